package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/model"
)

func testBrackets() []model.StampDutyBracket {
	return []model.StampDutyBracket{
		{State: model.StateVIC, Occupancy: "OO", BracketMin: 0, BracketMax: 25000, Base: 0, RatePct: 1.4, MarginalAbove: 0},
		{State: model.StateVIC, Occupancy: "OO", BracketMin: 25000, BracketMax: 130000, Base: 350, RatePct: 2.4, MarginalAbove: 25000},
		{State: model.StateVIC, Occupancy: "OO", BracketMin: 130000, BracketMax: 960000, Base: 2870, RatePct: 6, MarginalAbove: 130000},
		{State: model.StateVIC, Occupancy: "INV", BracketMin: 0, BracketMax: 2000000, Base: 0, RatePct: 5.5, MarginalAbove: 0},
	}
}

func testAssumptions() config.FinanceConfig {
	return config.FinanceConfig{InterestRatePct: 6, LoanTermYears: 30, DepositPct: 20, AssessmentBufferPct: 3}
}

func TestMonthlyRepayment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal float64
		rate      float64
		years     int
		want      float64
	}{
		{name: "standard 30 year", principal: 600000, rate: 6, years: 30, want: 3597.30},
		{name: "zero rate", principal: 360000, rate: 0, years: 30, want: 1000},
		{name: "zero principal", principal: 0, rate: 6, years: 30, want: 0},
		{name: "zero term", principal: 100000, rate: 6, years: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, MonthlyRepayment(tt.principal, tt.rate, tt.years), 0.01)
		})
	}
}

func TestRatios(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 9.0, AssessedRatePct(6, 3), 1e-9)
	assert.InDelta(t, 80.0, LVRPct(500000, 100000), 1e-9)
	assert.InDelta(t, 0.0, LVRPct(0, 100000), 1e-9)
	assert.False(t, LikelyLMI(80))
	assert.True(t, LikelyLMI(80.01))
	assert.InDelta(t, 5.2, GrossYieldPct(500000, 500), 1e-9)
	assert.InDelta(t, 0.0, GrossYieldPct(0, 500), 1e-9)
	assert.InDelta(t, 4.2, NetYieldPct(500000, 500, 5000), 1e-9)
	assert.InDelta(t, 10.0, CashOnCashPct(12000, 100000, 15000, 5000, 0), 1e-9)
	assert.InDelta(t, 0.0, CashOnCashPct(12000, 0, 0, 0, 0), 1e-9)
}

func TestStampDuty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		price     float64
		state     model.State
		occupancy string
		want      float64
		wantErr   bool
	}{
		{name: "first bracket", price: 20000, state: model.StateVIC, occupancy: "OO", want: 280},
		{name: "middle bracket", price: 100000, state: model.StateVIC, occupancy: "oo", want: 350 + 0.024*75000},
		{name: "bracket boundary uses lower bracket", price: 25000, state: model.StateVIC, occupancy: "OO", want: 350},
		{name: "above all brackets falls back to highest", price: 1000000, state: model.StateVIC, occupancy: "OO", want: 2870 + 0.06*870000},
		{name: "investor", price: 500000, state: model.StateVIC, occupancy: "INV", want: 27500},
		{name: "unknown state", price: 500000, state: model.StateNSW, occupancy: "OO", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := StampDuty(tt.price, tt.state, tt.occupancy, testBrackets())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestStampDuty_OpenEndedBracket(t *testing.T) {
	t.Parallel()
	brackets := []model.StampDutyBracket{
		{State: model.StateNSW, Occupancy: "OO", BracketMin: 0, BracketMax: 1000000, Base: 0, RatePct: 4, MarginalAbove: 0},
		{State: model.StateNSW, Occupancy: "OO", BracketMin: 1000000, BracketMax: math.MaxFloat64, Base: 40000, RatePct: 5.5, MarginalAbove: 1000000},
	}
	got, err := StampDuty(3000000, model.StateNSW, "OO", brackets)
	require.NoError(t, err)
	assert.InDelta(t, 150000, got, 0.01)
}

func TestCalculatorEstimate(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testAssumptions(), testBrackets())

	e, err := calc.Estimate(750000, model.StateVIC, "")
	require.NoError(t, err)
	assert.InDelta(t, 150000, e.Deposit, 0.01)
	assert.InDelta(t, 600000, e.Loan, 0.01)
	assert.InDelta(t, 3597.30, e.MonthlyRepayment, 0.01)
	assert.InDelta(t, 9.0, e.AssessedRatePct, 1e-9)
	assert.Greater(t, e.AssessedRepayment, e.MonthlyRepayment)
	assert.InDelta(t, 80.0, e.LVRPct, 1e-9)
	assert.False(t, e.LikelyLMI)
	require.NotNil(t, e.StampDuty)
	assert.InDelta(t, 2870+0.06*620000, *e.StampDuty, 0.01)
	require.NotNil(t, e.UpfrontCash)
	assert.InDelta(t, 150000+*e.StampDuty, *e.UpfrontCash, 0.01)
}

func TestCalculatorEstimate_NoSchedule(t *testing.T) {
	t.Parallel()
	a := testAssumptions()
	a.DepositPct = 10
	calc := NewCalculator(a, nil)

	e, err := calc.Estimate(500000, model.StateVIC, "OO")
	require.NoError(t, err)
	assert.True(t, e.LikelyLMI)
	assert.Nil(t, e.StampDuty)
	assert.Nil(t, e.UpfrontCash)

	_, err = calc.Estimate(0, "", "")
	assert.Error(t, err)
}

func TestCalculatorRepayment(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testAssumptions(), nil)
	assert.InDelta(t, 3597.30, calc.Repayment(750000), 0.01)
	assert.Equal(t, testAssumptions(), calc.Assumptions())
}

func TestCalculatorWithAssumptions(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testAssumptions(), testBrackets())
	assert.True(t, calc.HasSchedule())
	assert.False(t, NewCalculator(testAssumptions(), nil).HasSchedule())

	a := testAssumptions()
	a.DepositPct = 10
	other := calc.WithAssumptions(a)
	assert.True(t, other.HasSchedule())
	assert.Equal(t, 20.0, calc.Assumptions().DepositPct, "original is unchanged")

	e, err := other.Estimate(750000, model.StateVIC, "")
	require.NoError(t, err)
	assert.InDelta(t, 75000, e.Deposit, 0.01)
	assert.NotNil(t, e.StampDuty)
}

func TestCalculatorStampDuty(t *testing.T) {
	t.Parallel()

	duty, err := NewCalculator(testAssumptions(), testBrackets()).StampDuty(100000, model.StateVIC, OwnerOccupier)
	require.NoError(t, err)
	assert.InDelta(t, 350+0.024*75000, duty, 0.01)

	_, err = NewCalculator(testAssumptions(), nil).StampDuty(100000, model.StateVIC, OwnerOccupier)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stamp duty schedule loaded")
}

func TestEstimate_WithRent(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testAssumptions(), testBrackets())
	est, err := calc.Estimate(500000, model.StateVIC, OwnerOccupier)
	require.NoError(t, err)
	require.NotNil(t, est.StampDuty)

	t.Run("no rent", func(t *testing.T) {
		got := est.WithRent(0, 5000)
		assert.Nil(t, got.NetYieldPct)
		assert.Nil(t, got.CashOnCashPct)
	})

	t.Run("rent and expenses", func(t *testing.T) {
		got := est.WithRent(500, 5000)
		require.NotNil(t, got.GrossYieldPct)
		assert.InDelta(t, 5.2, *got.GrossYieldPct, 1e-9)
		require.NotNil(t, got.NetYieldPct)
		assert.InDelta(t, 4.2, *got.NetYieldPct, 1e-9)

		cashflow := 26000 - 5000 - est.MonthlyRepayment*12
		require.NotNil(t, got.AnnualCashflow)
		assert.InDelta(t, cashflow, *got.AnnualCashflow, 1e-6)
		require.NotNil(t, got.CashOnCashPct)
		assert.InDelta(t, cashflow/(est.Deposit+*est.StampDuty)*100, *got.CashOnCashPct, 1e-6)

		// the receiver is not modified
		assert.Nil(t, est.NetYieldPct)
	})
}
