package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "suburb-insights",
	Short: "Rank Australian suburbs from public housing and demographic data",
	Long: `Joins ABS home ownership and SEIFA tables, SQM vacancy rates, VPSR price
medians, RBA cash rate history and SA2 boundaries on the SA2 key, bridging
postcode sources through a correspondence table, and ranks regions by a
weighted composite of factor z-scores.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
