// Package finance holds the purchase and investment calculators used by the
// mortgage estimator, the stamp duty lookup and the repayment metric.
package finance

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/model"
)

// Occupancy codes used by stamp duty schedules.
const (
	OwnerOccupier = "OO"
	Investor      = "INV"
)

// LMIThresholdPct is the LVR above which lenders' mortgage insurance is
// likely to apply.
const LMIThresholdPct = 80.0

// MonthlyRepayment returns the principal-and-interest repayment on a loan.
// A zero rate spreads the principal evenly; a non-positive term yields 0.
func MonthlyRepayment(principal, annualRatePct float64, years int) float64 {
	n := float64(years * 12)
	if n <= 0 {
		return 0
	}
	r := annualRatePct / 100 / 12
	if r == 0 {
		return principal / n
	}
	growth := math.Pow(1+r, n)
	return principal * (r * growth) / (growth - 1)
}

// AssessedRatePct returns the serviceability rate a lender assesses against.
func AssessedRatePct(ratePct, bufferPct float64) float64 {
	return ratePct + bufferPct
}

// LVRPct returns the loan-to-value ratio as a percentage.
func LVRPct(price, deposit float64) float64 {
	if price <= 0 {
		return 0
	}
	return 100 * (1 - deposit/price)
}

// LikelyLMI reports whether an LVR would usually attract LMI.
func LikelyLMI(lvrPct float64) bool {
	return lvrPct > LMIThresholdPct
}

// GrossYieldPct returns annual rent over price as a percentage.
func GrossYieldPct(price, weeklyRent float64) float64 {
	if price <= 0 {
		return 0
	}
	return weeklyRent * 52 / price * 100
}

// NetYieldPct returns annual rent less expenses over price as a percentage.
func NetYieldPct(price, weeklyRent, annualExpenses float64) float64 {
	if price <= 0 {
		return 0
	}
	return (weeklyRent*52 - annualExpenses) / price * 100
}

// CashOnCashPct returns the annual cashflow after debt over the cash put in.
func CashOnCashPct(annualNetCashflow, deposit, stampDuty, closingCosts, lmiCost float64) float64 {
	denom := deposit + stampDuty + closingCosts + lmiCost
	if denom <= 0 {
		return 0
	}
	return annualNetCashflow / denom * 100
}

// StampDuty computes transfer duty from a bracket schedule. The bracket
// containing price is used; a price outside every bracket falls back to the
// bracket with the highest upper bound for that state and occupancy.
func StampDuty(price float64, state model.State, occupancy string, brackets []model.StampDutyBracket) (float64, error) {
	occupancy = strings.ToUpper(strings.TrimSpace(occupancy))

	var matching []model.StampDutyBracket
	for _, b := range brackets {
		if b.State == state && b.Occupancy == occupancy {
			matching = append(matching, b)
		}
	}
	if len(matching) == 0 {
		return 0, eris.Errorf("finance: no stamp duty brackets for %s %s", state, occupancy)
	}

	sort.SliceStable(matching, func(i, j int) bool { return matching[i].BracketMin < matching[j].BracketMin })
	chosen := -1
	for i, b := range matching {
		if b.BracketMin <= price && price <= b.BracketMax {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		chosen = 0
		for i, b := range matching {
			if b.BracketMax >= matching[chosen].BracketMax {
				chosen = i
			}
		}
	}

	b := matching[chosen]
	return b.Base + b.RatePct/100*math.Max(0, price-b.MarginalAbove), nil
}

// Estimate is the mortgage estimator result for one purchase price.
type Estimate struct {
	Price             float64  `json:"price"`
	DepositPct        float64  `json:"deposit_pct"`
	Deposit           float64  `json:"deposit"`
	Loan              float64  `json:"loan"`
	RatePct           float64  `json:"rate_pct"`
	LoanTermYears     int      `json:"loan_term_years"`
	MonthlyRepayment  float64  `json:"monthly_repayment"`
	AssessedRatePct   float64  `json:"assessed_rate_pct"`
	AssessedRepayment float64  `json:"assessed_repayment"`
	LVRPct            float64  `json:"lvr_pct"`
	LikelyLMI         bool     `json:"likely_lmi"`
	StampDuty         *float64 `json:"stamp_duty,omitempty"`
	UpfrontCash       *float64 `json:"upfront_cash,omitempty"`

	// Investment returns, set by WithRent.
	WeeklyRent     *float64 `json:"weekly_rent,omitempty"`
	AnnualExpenses *float64 `json:"annual_expenses,omitempty"`
	GrossYieldPct  *float64 `json:"gross_yield_pct,omitempty"`
	NetYieldPct    *float64 `json:"net_yield_pct,omitempty"`
	AnnualCashflow *float64 `json:"annual_cashflow,omitempty"`
	CashOnCashPct  *float64 `json:"cash_on_cash_pct,omitempty"`
}

// WithRent adds rental returns to an estimate. Cashflow is rent less
// expenses and twelve repayments; cash on cash divides it by the deposit plus
// stamp duty when known. A non-positive rent leaves e unchanged.
func (e Estimate) WithRent(weeklyRent, annualExpenses float64) Estimate {
	if weeklyRent <= 0 {
		return e
	}
	var duty float64
	if e.StampDuty != nil {
		duty = *e.StampDuty
	}
	gross := GrossYieldPct(e.Price, weeklyRent)
	net := NetYieldPct(e.Price, weeklyRent, annualExpenses)
	cashflow := weeklyRent*52 - annualExpenses - e.MonthlyRepayment*12
	coc := CashOnCashPct(cashflow, e.Deposit, duty, 0, 0)

	e.WeeklyRent = &weeklyRent
	e.AnnualExpenses = &annualExpenses
	e.GrossYieldPct = &gross
	e.NetYieldPct = &net
	e.AnnualCashflow = &cashflow
	e.CashOnCashPct = &coc
	return e
}

// Calculator applies a fixed set of finance assumptions.
type Calculator struct {
	assumptions config.FinanceConfig
	brackets    []model.StampDutyBracket
}

// NewCalculator creates a Calculator. brackets may be nil when no stamp duty
// schedule is loaded.
func NewCalculator(assumptions config.FinanceConfig, brackets []model.StampDutyBracket) *Calculator {
	return &Calculator{assumptions: assumptions, brackets: brackets}
}

// Assumptions returns the calculator's finance assumptions.
func (c *Calculator) Assumptions() config.FinanceConfig {
	return c.assumptions
}

// WithAssumptions returns a Calculator sharing c's stamp duty schedule with
// different loan assumptions.
func (c *Calculator) WithAssumptions(a config.FinanceConfig) *Calculator {
	return &Calculator{assumptions: a, brackets: c.brackets}
}

// HasSchedule reports whether a stamp duty schedule is loaded.
func (c *Calculator) HasSchedule() bool {
	return len(c.brackets) > 0
}

// StampDuty looks up duty for price in the calculator's schedule.
func (c *Calculator) StampDuty(price float64, state model.State, occupancy string) (float64, error) {
	if !c.HasSchedule() {
		return 0, eris.New("finance: no stamp duty schedule loaded")
	}
	return StampDuty(price, state, occupancy, c.brackets)
}

// Repayment returns the monthly repayment on price less the configured
// deposit.
func (c *Calculator) Repayment(price float64) float64 {
	loan := price * (1 - c.assumptions.DepositPct/100)
	return MonthlyRepayment(loan, c.assumptions.InterestRatePct, c.assumptions.LoanTermYears)
}

// Estimate runs the mortgage estimator for price. When state is set and a
// schedule is loaded, stamp duty and the total upfront cash are included.
func (c *Calculator) Estimate(price float64, state model.State, occupancy string) (Estimate, error) {
	a := c.assumptions
	if price <= 0 {
		return Estimate{}, eris.Errorf("finance: price must be positive, got %.2f", price)
	}

	e := Estimate{
		Price:         price,
		DepositPct:    a.DepositPct,
		Deposit:       price * a.DepositPct / 100,
		RatePct:       a.InterestRatePct,
		LoanTermYears: a.LoanTermYears,
	}
	e.Loan = price - e.Deposit
	e.MonthlyRepayment = MonthlyRepayment(e.Loan, a.InterestRatePct, a.LoanTermYears)
	e.AssessedRatePct = AssessedRatePct(a.InterestRatePct, a.AssessmentBufferPct)
	e.AssessedRepayment = MonthlyRepayment(e.Loan, e.AssessedRatePct, a.LoanTermYears)
	e.LVRPct = LVRPct(price, e.Deposit)
	e.LikelyLMI = LikelyLMI(e.LVRPct)

	if state == "" || !c.HasSchedule() {
		return e, nil
	}
	if occupancy == "" {
		occupancy = OwnerOccupier
	}
	duty, err := c.StampDuty(price, state, occupancy)
	if err != nil {
		return e, err
	}
	upfront := e.Deposit + duty
	e.StampDuty = &duty
	e.UpfrontCash = &upfront
	return e, nil
}
