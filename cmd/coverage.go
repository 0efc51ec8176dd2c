package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/suburb-insights/internal/export"
	"github.com/sells-group/suburb-insights/internal/scorer"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report per-source rows, load warnings and unjoined keys",
	Long: `Loads and joins every source without scoring, then reports how many rows
each source contributed, which rows were skipped as malformed, and which keys
could not be resolved to an SA2 region.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("rank"); err != nil {
			return err
		}
		maxDetail, _ := cmd.Flags().GetInt("max-detail")

		loader := newLoader()
		b, err := loader.LoadBundle(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "coverage: load sources")
		}

		joined := scorer.Join(b, nil)
		return export.WriteCoverage(os.Stdout, joined.Diagnostics, maxDetail)
	},
}

func init() {
	coverageCmd.Flags().Int("max-detail", 25, "maximum warnings and unjoined keys listed (0 = all)")
	rootCmd.AddCommand(coverageCmd)
}
