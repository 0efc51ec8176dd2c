package model

// Metric names one derived or sourced value attached to a region.
type Metric string

const (
	MetricOwnershipPct     Metric = "ownership_pct"
	MetricIRSADRank        Metric = "irsad_rank"
	MetricVacancyRate      Metric = "vacancy_rate"
	MetricMedianPrice      Metric = "median_price"
	MetricMedianRentWeekly Metric = "median_rent_weekly"
	MetricGrossYield       Metric = "gross_yield"
	MetricPriceMomentumQoQ Metric = "price_momentum_qoq"
	MetricCashRate         Metric = "cash_rate"
	MetricMonthlyRepayment Metric = "monthly_repayment"
	MetricDistanceCBDKm    Metric = "distance_cbd_km"
)

// AllMetrics returns every metric in output order.
func AllMetrics() []Metric {
	return []Metric{
		MetricOwnershipPct,
		MetricIRSADRank,
		MetricVacancyRate,
		MetricMedianPrice,
		MetricMedianRentWeekly,
		MetricGrossYield,
		MetricPriceMomentumQoQ,
		MetricCashRate,
		MetricMonthlyRepayment,
		MetricDistanceCBDKm,
	}
}

// ParseMetric reports whether s names a known metric.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range AllMetrics() {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Metrics is the per-region record of optional metric values. A nil field
// means the value is absent from every source, which is distinct from zero.
type Metrics struct {
	OwnershipPct     *float64 `json:"ownership_pct,omitempty"`
	IRSADRank        *float64 `json:"irsad_rank,omitempty"`
	VacancyRate      *float64 `json:"vacancy_rate,omitempty"`
	MedianPrice      *float64 `json:"median_price,omitempty"`
	MedianRentWeekly *float64 `json:"median_rent_weekly,omitempty"`
	GrossYield       *float64 `json:"gross_yield,omitempty"`
	PriceMomentumQoQ *float64 `json:"price_momentum_qoq,omitempty"`
	CashRate         *float64 `json:"cash_rate,omitempty"`
	MonthlyRepayment *float64 `json:"monthly_repayment,omitempty"`
	DistanceCBDKm    *float64 `json:"distance_cbd_km,omitempty"`
}

func (m *Metrics) field(k Metric) **float64 {
	switch k {
	case MetricOwnershipPct:
		return &m.OwnershipPct
	case MetricIRSADRank:
		return &m.IRSADRank
	case MetricVacancyRate:
		return &m.VacancyRate
	case MetricMedianPrice:
		return &m.MedianPrice
	case MetricMedianRentWeekly:
		return &m.MedianRentWeekly
	case MetricGrossYield:
		return &m.GrossYield
	case MetricPriceMomentumQoQ:
		return &m.PriceMomentumQoQ
	case MetricCashRate:
		return &m.CashRate
	case MetricMonthlyRepayment:
		return &m.MonthlyRepayment
	case MetricDistanceCBDKm:
		return &m.DistanceCBDKm
	default:
		return nil
	}
}

// Get returns the value of k and whether it is present.
func (m Metrics) Get(k Metric) (float64, bool) {
	f := m.field(k)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// Set stores v for k. Unknown metrics are ignored.
func (m *Metrics) Set(k Metric, v float64) {
	f := m.field(k)
	if f == nil {
		return
	}
	*f = &v
}

// Has reports whether k is present.
func (m Metrics) Has(k Metric) bool {
	_, ok := m.Get(k)
	return ok
}

// Count returns the number of present metrics.
func (m Metrics) Count() int {
	n := 0
	for _, k := range AllMetrics() {
		if m.Has(k) {
			n++
		}
	}
	return n
}

// Present returns the present metrics in AllMetrics order.
func (m Metrics) Present() []Metric {
	var out []Metric
	for _, k := range AllMetrics() {
		if m.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Values returns the present metrics as a map for output.
func (m Metrics) Values() map[Metric]float64 {
	out := make(map[Metric]float64)
	for _, k := range AllMetrics() {
		if v, ok := m.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
