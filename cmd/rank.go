package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/dataset"
	"github.com/sells-group/suburb-insights/internal/export"
	"github.com/sells-group/suburb-insights/internal/model"
	"github.com/sells-group/suburb-insights/internal/scorer"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank regions by composite score",
	Long: `Loads every source, joins on SA2 and ranks regions by a weighted mean of
directed factor z-scores. Regions missing a factor are scored with the
configured missing policy: renormalize (drop the factor and divide by the
weight that is present) or default (substitute --missing-default as the z value).
Regions with no scoring factor at all are listed as unranked.

Examples:
  # Top 20 Victorian regions
  rank --state VIC --limit 20

  # Investor preset with a heavier vacancy weight, exported to XLSX
  rank --profile investor --weight vacancy_rate=0.4 --format xlsx --output ranks.xlsx

  # One ranking per state, each scored against its own population
  rank --split-by-state --format csv --output ranks.csv`,
	RunE: runRank,
}

func init() {
	addRankFlags(rankCmd)
	rootCmd.AddCommand(rankCmd)
}

func addRankFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("state", "", "comma-separated state codes (e.g., VIC,NSW)")
	f.Int("limit", 0, "maximum number of ranked regions (0 = all)")
	f.Float64("min-score", 0, "drop regions scoring below this value")
	f.String("policy", "", "missing-metric policy: renormalize or default (overrides config)")
	f.Float64("missing-default", 0, "z value substituted for missing factors under the default policy")
	f.StringSlice("weight", nil, "factor weight override as factor=weight (repeatable)")
	f.String("profile", "", "named weight profile (builtin or from --profiles)")
	f.String("profiles", "", "YAML file of weight profiles (overrides config)")
	f.String("format", export.FormatTable, "output format: "+strings.Join(export.Formats(), ", "))
	f.String("output", "", "output file path (default: stdout)")
	f.String("label", "", "label stored on the run")
	f.Bool("split-by-state", false, "rank each state separately")
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("rank"); err != nil {
		return err
	}
	log := zap.L().With(zap.String("command", "rank"))

	format, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")
	if format == export.FormatXLSX && outputPath == "" {
		return eris.New("rank: --output is required for xlsx")
	}
	label, _ := cmd.Flags().GetString("label")
	split, _ := cmd.Flags().GetBool("split-by-state")

	sc, err := applyScoringOverrides(cmd, cfg.Scoring)
	if err != nil {
		return err
	}
	filters, err := applyFilterOverrides(cmd, cfg.Filters)
	if err != nil {
		return err
	}

	loader := newLoader()
	calc, err := newCalculator(ctx, loader)
	if err != nil {
		return err
	}
	b, err := loader.LoadBundle(ctx)
	if err != nil {
		return eris.Wrap(err, "rank: load sources")
	}
	engine := scorer.NewEngine(calc)

	log.Info("ranking regions",
		zap.String("policy", sc.MissingPolicy),
		zap.String("profile", sc.Profile),
		zap.Int("limit", filters.Limit),
		zap.Bool("split_by_state", split),
	)

	if split {
		return rankByState(ctx, engine, b, sc, filters, format, outputPath, label)
	}

	res, err := engine.Run(b, sc, filters)
	if err != nil {
		return eris.Wrap(err, "rank")
	}
	run := scorer.NewRun(label, sc, res)
	log.Info("ranking complete",
		zap.String("run_id", run.ID),
		zap.Int("ranked", len(res.Ranked)),
		zap.Int("unranked", len(res.Unranked)),
	)
	return export.WriteFile(outputPath, format, run)
}

// rankByState runs the engine once per state over the shared bundle. States
// come from the filters, or every state when none are set; states with no
// regions produce no output.
func rankByState(ctx context.Context, engine *scorer.Engine, b *dataset.Bundle, sc config.ScoringConfig, filters scorer.Filters, format, outputPath, label string) error {
	states := filters.States
	if len(states) == 0 {
		states = model.AllStates()
	}

	runs := make([]model.Run, len(states))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, st := range states {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := engine.Run(b, sc, filters.WithState(st))
			if err != nil {
				return eris.Wrapf(err, "rank: state %s", st)
			}
			runs[i] = scorer.NewRun(stateLabel(label, st), sc, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, st := range states {
		if runs[i].Result.Len() == 0 {
			zap.L().Debug("no regions for state", zap.String("state", string(st)))
			continue
		}
		path := ""
		if outputPath != "" {
			path = statePath(outputPath, st)
		}
		if err := export.WriteFile(path, format, runs[i]); err != nil {
			return err
		}
	}
	return nil
}

func stateLabel(label string, st model.State) string {
	if label == "" {
		return string(st)
	}
	return label + "-" + string(st)
}

// statePath inserts the state before the extension: ranks.csv -> ranks_vic.csv.
func statePath(path string, st model.State) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + strings.ToLower(string(st)) + ext
}

// applyScoringOverrides returns a copy of base with the profile and flag
// overrides applied, validated. Explicit --weight values win over the profile.
func applyScoringOverrides(cmd *cobra.Command, base config.ScoringConfig) (config.ScoringConfig, error) {
	c := base
	c.Weights = make(map[string]float64, len(base.Weights))
	for k, v := range base.Weights {
		c.Weights[k] = v
	}

	if v, _ := cmd.Flags().GetString("profiles"); v != "" {
		c.ProfilePath = v
	}
	if v, _ := cmd.Flags().GetString("profile"); v != "" {
		c.Profile = v
	}
	c, err := scorer.ResolveProfile(c)
	if err != nil {
		return c, err
	}

	weights, _ := cmd.Flags().GetStringSlice("weight")
	for _, kv := range weights {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return c, eris.Errorf("rank: --weight must be factor=weight, got %q", kv)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return c, eris.Errorf("rank: weight for %s is not a number: %q", name, raw)
		}
		c.Weights[strings.TrimSpace(name)] = w
	}
	if v, _ := cmd.Flags().GetString("policy"); v != "" {
		c.MissingPolicy = v
	}
	if cmd.Flags().Changed("missing-default") {
		c.MissingDefault, _ = cmd.Flags().GetFloat64("missing-default")
	}

	return c, scorer.ValidateScoring(c)
}

// applyFilterOverrides parses the configured filters with flag overrides.
func applyFilterOverrides(cmd *cobra.Command, base config.FiltersConfig) (scorer.Filters, error) {
	fc := base
	if v, _ := cmd.Flags().GetString("state"); v != "" {
		fc.States = splitAndTrim(v)
	}
	if cmd.Flags().Changed("limit") {
		fc.Limit, _ = cmd.Flags().GetInt("limit")
	}
	if cmd.Flags().Changed("min-score") {
		v, _ := cmd.Flags().GetFloat64("min-score")
		fc.MinScore = &v
	}
	return scorer.FiltersFromConfig(fc)
}
