package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/finance"
	"github.com/sells-group/suburb-insights/internal/model"
	"github.com/sells-group/suburb-insights/internal/scorer"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"rank", "coverage", "mortgage", "stamp-duty", "serve", "profiles"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "suburb-insights", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRankCommand_Flags(t *testing.T) {
	for _, name := range []string{"state", "limit", "min-score", "policy", "missing-default", "weight", "profile", "profiles", "format", "output", "label", "split-by-state"} {
		assert.NotNil(t, rankCmd.Flags().Lookup(name), "rank should have --%s flag", name)
	}
	assert.Equal(t, "table", rankCmd.Flags().Lookup("format").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCoverageCommand_Flags(t *testing.T) {
	flag := coverageCmd.Flags().Lookup("max-detail")
	require.NotNil(t, flag)
	assert.Equal(t, "25", flag.DefValue)
}

func TestMortgageCommand_Flags(t *testing.T) {
	for _, name := range []string{"price", "deposit-pct", "rate", "years", "state", "occupancy", "weekly-rent", "expenses"} {
		assert.NotNil(t, mortgageCmd.Flags().Lookup(name), "mortgage should have --%s flag", name)
	}
	assert.Equal(t, finance.OwnerOccupier, mortgageCmd.Flags().Lookup("occupancy").DefValue)
}

func TestStatePath(t *testing.T) {
	tests := []struct {
		path string
		st   model.State
		want string
	}{
		{"ranks.csv", model.StateVIC, "ranks_vic.csv"},
		{"out/ranks.geojson", model.StateNSW, "out/ranks_nsw.geojson"},
		{"ranks", model.StateQLD, "ranks_qld"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, statePath(tt.path, tt.st))
		})
	}
}

func TestStateLabel(t *testing.T) {
	assert.Equal(t, "VIC", stateLabel("", model.StateVIC))
	assert.Equal(t, "weekly-VIC", stateLabel("weekly", model.StateVIC))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"VIC", "NSW"}, splitAndTrim(" VIC, ,NSW "))
	assert.Nil(t, splitAndTrim(""))
}

func newRankTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "rank"}
	addRankFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplyScoringOverrides(t *testing.T) {
	base := scorer.DefaultScoringConfig()

	t.Run("no flags keeps base", func(t *testing.T) {
		got, err := applyScoringOverrides(newRankTestCmd(t), base)
		require.NoError(t, err)
		assert.Equal(t, base.Weights, got.Weights)
		assert.Equal(t, scorer.PolicyRenormalize, got.MissingPolicy)
	})

	t.Run("weights policy and default", func(t *testing.T) {
		cmd := newRankTestCmd(t,
			"--weight", "gross_yield=0.5",
			"--weight", "vacancy_rate = 0",
			"--policy", "default",
			"--missing-default", "-1",
		)
		got, err := applyScoringOverrides(cmd, base)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, got.Weights["gross_yield"], 1e-9)
		assert.InDelta(t, 0.0, got.Weights["vacancy_rate"], 1e-9)
		assert.Equal(t, "default", got.MissingPolicy)
		assert.InDelta(t, -1.0, got.MissingDefault, 1e-9)
		// base is not mutated
		assert.NotEqual(t, 0.5, base.Weights["gross_yield"])
	})

	t.Run("weight flag wins over profile", func(t *testing.T) {
		cmd := newRankTestCmd(t, "--profile", "investor", "--weight", "gross_yield=0.9")
		got, err := applyScoringOverrides(cmd, base)
		require.NoError(t, err)
		assert.Equal(t, "investor", got.Profile)
		assert.InDelta(t, 0.9, got.Weights["gross_yield"], 1e-9)
		assert.InDelta(t, 0.25, got.Weights["vacancy_rate"], 1e-9)
	})

	errCases := []struct {
		name string
		args []string
	}{
		{"missing equals", []string{"--weight", "gross_yield"}},
		{"not a number", []string{"--weight", "gross_yield=high"}},
		{"unknown profile", []string{"--profile", "speculator"}},
		{"bad policy", []string{"--policy", "zero"}},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := applyScoringOverrides(newRankTestCmd(t, tc.args...), base)
			assert.Error(t, err)
		})
	}
}

func TestApplyFilterOverrides(t *testing.T) {
	base := config.FiltersConfig{States: []string{"NSW"}, Limit: 50}

	t.Run("config only", func(t *testing.T) {
		f, err := applyFilterOverrides(newRankTestCmd(t), base)
		require.NoError(t, err)
		assert.Equal(t, []model.State{model.StateNSW}, f.States)
		assert.Equal(t, 50, f.Limit)
		assert.Nil(t, f.MinScore)
	})

	t.Run("flags override", func(t *testing.T) {
		cmd := newRankTestCmd(t, "--state", "vic, qld", "--limit", "0", "--min-score", "0")
		f, err := applyFilterOverrides(cmd, base)
		require.NoError(t, err)
		assert.Equal(t, []model.State{model.StateVIC, model.StateQLD}, f.States)
		assert.Equal(t, 0, f.Limit)
		require.NotNil(t, f.MinScore)
		assert.InDelta(t, 0.0, *f.MinScore, 1e-9)
	})

	t.Run("unknown state", func(t *testing.T) {
		_, err := applyFilterOverrides(newRankTestCmd(t, "--state", "XX"), base)
		assert.Error(t, err)
	})
}

func TestFormatWeights(t *testing.T) {
	got := formatWeights(map[string]float64{"vacancy_rate": 0.25, "gross_yield": 0.4, "cash_rate": 0})
	assert.Equal(t, "gross_yield=0.4 vacancy_rate=0.25", got)
}

func TestPrintProfiles(t *testing.T) {
	var buf bytes.Buffer
	printProfiles(&buf, scorer.BuiltinProfiles())
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "balanced")
	assert.Contains(t, out, "owner_occupier")
	assert.Contains(t, out, "monthly_repayment=0.2")
}

func TestPrintFactors(t *testing.T) {
	var buf bytes.Buffer
	printFactors(&buf, scorer.Factors())
	out := buf.String()
	assert.Contains(t, out, "FACTOR")
	assert.Regexp(t, `gross_yield\s+higher\s+0\.25`, out)
	assert.Regexp(t, `vacancy_rate\s+lower\s+0\.15`, out)
	assert.Regexp(t, `monthly_repayment\s+lower\s+0\n`, out)
}

func TestPrintEstimate(t *testing.T) {
	duty := 40070.0
	upfront := 115070.0
	var buf bytes.Buffer
	printEstimate(&buf, finance.Estimate{
		Price:            750000,
		DepositPct:       10,
		Deposit:          75000,
		Loan:             675000,
		RatePct:          6,
		LoanTermYears:    30,
		MonthlyRepayment: 4046.97,
		AssessedRatePct:  9,
		LVRPct:           90,
		LikelyLMI:        true,
		StampDuty:        &duty,
		UpfrontCash:      &upfront,
	})
	out := buf.String()
	assert.Contains(t, out, "$750,000.00")
	assert.Contains(t, out, "$675,000.00")
	assert.Contains(t, out, "(LMI likely)")
	assert.Contains(t, out, "$40,070.00")
	assert.Contains(t, out, "$115,070.00")
	assert.NotContains(t, out, "Cash on cash")
}

func TestPrintEstimate_WithRent(t *testing.T) {
	est := finance.Estimate{Price: 500000, Deposit: 100000, MonthlyRepayment: 2000}.WithRent(500, 5000)
	var buf bytes.Buffer
	printEstimate(&buf, est)
	out := buf.String()
	assert.Contains(t, out, "5.20% gross, 4.20% net")
	assert.Contains(t, out, "Annual cashflow:    -$3,000.00")
	assert.Contains(t, out, "Cash on cash:       -3.00%")
}

func TestFormatAUD(t *testing.T) {
	assert.Equal(t, "$1,234,567.89", formatAUD(1234567.891))
	assert.Equal(t, "$0.00", formatAUD(0))
	assert.Equal(t, "-$3,000.00", formatAUD(-3000))
}
