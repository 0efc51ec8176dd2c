package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/suburb-insights/internal/finance"
	"github.com/sells-group/suburb-insights/internal/model"
)

// printer formats currency with Australian digit grouping.
var printer = message.NewPrinter(language.MustParse("en-AU"))

func formatAUD(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

var mortgageCmd = &cobra.Command{
	Use:   "mortgage",
	Short: "Estimate deposit, loan and repayments for a purchase price",
	Long: `Estimates the deposit, loan, principal and interest repayment, serviceability
repayment at the buffered rate, LVR and likely LMI for a purchase price.
With --state, stamp duty and total upfront cash are added from the stamp
duty schedule when one is loaded. With --weekly-rent, gross and net yield,
annual cashflow and cash on cash return are added.

Examples:
  mortgage --price 750000
  mortgage --price 750000 --deposit-pct 10 --rate 6.2 --state VIC
  mortgage --price 650000 --state VIC --occupancy INV --weekly-rent 620 --expenses 6500`,
	RunE: func(cmd *cobra.Command, args []string) error {
		price, _ := cmd.Flags().GetFloat64("price")
		occupancy, _ := cmd.Flags().GetString("occupancy")
		rent, _ := cmd.Flags().GetFloat64("weekly-rent")
		expenses, _ := cmd.Flags().GetFloat64("expenses")
		if rent < 0 || expenses < 0 {
			return eris.New("mortgage: --weekly-rent and --expenses must not be negative")
		}

		a := cfg.Finance
		if cmd.Flags().Changed("deposit-pct") {
			a.DepositPct, _ = cmd.Flags().GetFloat64("deposit-pct")
		}
		if cmd.Flags().Changed("rate") {
			a.InterestRatePct, _ = cmd.Flags().GetFloat64("rate")
		}
		if cmd.Flags().Changed("years") {
			a.LoanTermYears, _ = cmd.Flags().GetInt("years")
		}
		if a.DepositPct < 0 || a.DepositPct > 100 {
			return eris.Errorf("mortgage: --deposit-pct must be between 0 and 100, got %.2f", a.DepositPct)
		}
		if a.LoanTermYears <= 0 {
			return eris.Errorf("mortgage: --years must be positive, got %d", a.LoanTermYears)
		}

		state, err := stateFlag(cmd)
		if err != nil {
			return err
		}

		calc, err := newCalculator(cmd.Context(), newLoader())
		if err != nil {
			return err
		}
		est, err := calc.WithAssumptions(a).Estimate(price, state, strings.ToUpper(occupancy))
		if err != nil {
			return eris.Wrap(err, "mortgage")
		}
		printEstimate(os.Stdout, est.WithRent(rent, expenses))
		return nil
	},
}

func init() {
	f := mortgageCmd.Flags()
	f.Float64("price", 0, "purchase price")
	f.Float64("deposit-pct", 0, "deposit as a percentage of price (default from config)")
	f.Float64("rate", 0, "annual interest rate in percent (default from config)")
	f.Int("years", 0, "loan term in years (default from config)")
	f.String("state", "", "state for stamp duty (e.g., VIC)")
	f.String("occupancy", finance.OwnerOccupier, "OO (owner occupier) or INV (investor)")
	f.Float64("weekly-rent", 0, "expected weekly rent; adds yield and cashflow")
	f.Float64("expenses", 0, "annual holding expenses (rates, insurance, management)")
	_ = mortgageCmd.MarkFlagRequired("price")

	rootCmd.AddCommand(mortgageCmd)
}

func stateFlag(cmd *cobra.Command) (model.State, error) {
	v, _ := cmd.Flags().GetString("state")
	if v == "" {
		return "", nil
	}
	st, ok := model.ParseState(v)
	if !ok {
		return "", eris.Errorf("unknown state %q", v)
	}
	return st, nil
}

func printEstimate(w io.Writer, e finance.Estimate) {
	_, _ = fmt.Fprintf(w, "Price:              %s\n", formatAUD(e.Price))
	_, _ = fmt.Fprintf(w, "Deposit (%.1f%%):    %s\n", e.DepositPct, formatAUD(e.Deposit))
	_, _ = fmt.Fprintf(w, "Loan:               %s\n", formatAUD(e.Loan))
	_, _ = fmt.Fprintf(w, "Rate:               %.2f%% over %d years\n", e.RatePct, e.LoanTermYears)
	_, _ = fmt.Fprintf(w, "Monthly repayment:  %s\n", formatAUD(e.MonthlyRepayment))
	_, _ = fmt.Fprintf(w, "Assessed at %.2f%%:  %s\n", e.AssessedRatePct, formatAUD(e.AssessedRepayment))
	_, _ = fmt.Fprintf(w, "LVR:                %.1f%%", e.LVRPct)
	if e.LikelyLMI {
		_, _ = fmt.Fprint(w, " (LMI likely)")
	}
	_, _ = fmt.Fprintln(w)
	if e.StampDuty != nil {
		_, _ = fmt.Fprintf(w, "Stamp duty:         %s\n", formatAUD(*e.StampDuty))
	}
	if e.UpfrontCash != nil {
		_, _ = fmt.Fprintf(w, "Upfront cash:       %s\n", formatAUD(*e.UpfrontCash))
	}
	if e.GrossYieldPct != nil && e.NetYieldPct != nil {
		_, _ = fmt.Fprintf(w, "Yield:              %.2f%% gross, %.2f%% net\n", *e.GrossYieldPct, *e.NetYieldPct)
	}
	if e.AnnualCashflow != nil {
		_, _ = fmt.Fprintf(w, "Annual cashflow:    %s\n", formatAUD(*e.AnnualCashflow))
	}
	if e.CashOnCashPct != nil {
		_, _ = fmt.Fprintf(w, "Cash on cash:       %.2f%%\n", *e.CashOnCashPct)
	}
}
