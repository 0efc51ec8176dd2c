// Package scorer joins the loaded datasets on SA2 and ranks regions by a
// weighted composite of directed factor z-scores.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/model"
)

// Missing-metric policies.
const (
	// PolicyRenormalize drops missing factors and divides by the weight of
	// the factors that are present.
	PolicyRenormalize = "renormalize"
	// PolicyDefault substitutes MissingDefault (a directed z value) for each
	// missing factor and divides by the full weight sum.
	PolicyDefault = "default"
)

// Factor is one scoring input. Direction is +1 when a higher value is
// better and -1 when lower is better.
type Factor struct {
	Metric    model.Metric
	Direction float64
	Weight    float64 // default weight
}

var factors = []Factor{
	{Metric: model.MetricGrossYield, Direction: +1, Weight: 0.25},
	{Metric: model.MetricVacancyRate, Direction: -1, Weight: 0.15},
	{Metric: model.MetricOwnershipPct, Direction: +1, Weight: 0.15},
	{Metric: model.MetricPriceMomentumQoQ, Direction: -1, Weight: 0.20},
	{Metric: model.MetricIRSADRank, Direction: +1, Weight: 0.15},
	{Metric: model.MetricDistanceCBDKm, Direction: -1, Weight: 0.10},
	{Metric: model.MetricMonthlyRepayment, Direction: -1, Weight: 0},
}

// Factors returns the scoring factors in evaluation order.
func Factors() []Factor {
	out := make([]Factor, len(factors))
	copy(out, factors)
	return out
}

func factorFor(m model.Metric) (Factor, bool) {
	for _, f := range factors {
		if f.Metric == m {
			return f, true
		}
	}
	return Factor{}, false
}

// DefaultScoringConfig returns a config.ScoringConfig with the default
// weights (sum = 1) and the renormalize policy.
func DefaultScoringConfig() config.ScoringConfig {
	w := make(map[string]float64, len(factors))
	for _, f := range factors {
		w[string(f.Metric)] = f.Weight
	}
	return config.ScoringConfig{
		Weights:        w,
		MissingPolicy:  PolicyRenormalize,
		MissingDefault: 0,
	}
}

// Weights merges the configured weights over the defaults. Factors the
// configuration leaves out keep their default weight.
func Weights(c config.ScoringConfig) map[model.Metric]float64 {
	out := make(map[model.Metric]float64, len(factors))
	for _, f := range factors {
		out[f.Metric] = f.Weight
	}
	for name, w := range c.Weights {
		if m, ok := model.ParseMetric(strings.ToLower(strings.TrimSpace(name))); ok {
			if _, isFactor := factorFor(m); isFactor {
				out[m] = w
			}
		}
	}
	return out
}

// WeightSum returns the sum of all factor weights.
func WeightSum(w map[model.Metric]float64) float64 {
	sum := 0.0
	for _, f := range factors {
		sum += w[f.Metric]
	}
	return sum
}

// ValidateScoring checks that a ScoringConfig is internally consistent.
func ValidateScoring(c config.ScoringConfig) error {
	var errs []string

	names := make([]string, 0, len(c.Weights))
	for name := range c.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m, ok := model.ParseMetric(strings.ToLower(strings.TrimSpace(name)))
		if _, isFactor := factorFor(m); !ok || !isFactor {
			errs = append(errs, fmt.Sprintf("unknown factor %q", name))
			continue
		}
		w := c.Weights[name]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			errs = append(errs, fmt.Sprintf("weight for %s must be a finite number >= 0", name))
		}
	}

	if sum := WeightSum(Weights(c)); !(sum > 0) {
		errs = append(errs, "weight sum must be > 0")
	}

	switch c.MissingPolicy {
	case PolicyRenormalize, PolicyDefault, "":
	default:
		errs = append(errs, fmt.Sprintf("missing_policy must be %q or %q, got %q", PolicyRenormalize, PolicyDefault, c.MissingPolicy))
	}
	if math.IsNaN(c.MissingDefault) || math.IsInf(c.MissingDefault, 0) {
		errs = append(errs, "missing_default must be finite")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
