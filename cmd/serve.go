package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rankings, coverage and mortgage estimates over HTTP",
	Long: `Starts an HTTP server. Each request reloads the sources and runs the engine
with its own configuration built from the query string:

  GET /health
  GET /rank?state=VIC&limit=20&policy=default&w.gross_yield=0.4&format=geojson
  GET /coverage
  GET /mortgage?price=750000&deposit_pct=10&state=VIC`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		loader := newLoader()
		calc, err := newCalculator(ctx, loader)
		if err != nil {
			return err
		}
		if !calc.HasSchedule() {
			zap.L().Warn("no stamp duty schedule loaded; /mortgage omits stamp duty until restart",
				zap.String("path", cfg.Data.StampDuty.Path))
		}

		return server.New(cfg, loader, calc).ListenAndServe(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
