package scorer

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/dataset"
	"github.com/sells-group/suburb-insights/internal/finance"
	"github.com/sells-group/suburb-insights/internal/model"
)

// Engine runs join and rank over a loaded bundle. It holds only read-only
// collaborators, so one Engine may serve concurrent runs.
type Engine struct {
	calc *finance.Calculator
}

// NewEngine creates an Engine. calc may be nil, in which case the
// monthly_repayment metric is never produced.
func NewEngine(calc *finance.Calculator) *Engine {
	return &Engine{calc: calc}
}

// Run joins the bundle and ranks the result with the given configuration.
// Identical inputs produce identical output.
func (e *Engine) Run(b *dataset.Bundle, c config.ScoringConfig, f Filters) (model.RankedResult, error) {
	if b == nil {
		return model.RankedResult{}, eris.New("scorer: nil bundle")
	}
	joined := Join(b, e.calc)
	res, err := Rank(joined.Regions, c, f)
	if err != nil {
		return model.RankedResult{}, err
	}
	res.Diagnostics = joined.Diagnostics
	return res, nil
}

// NewRun wraps a result with a fresh ID and timestamp.
func NewRun(label string, c config.ScoringConfig, res model.RankedResult) model.Run {
	policy := c.MissingPolicy
	if policy == "" {
		policy = PolicyRenormalize
	}
	return model.Run{
		ID:          uuid.NewString(),
		Label:       label,
		GeneratedAt: time.Now().UTC(),
		Policy:      policy,
		Weights:     Weights(c),
		Result:      res,
	}
}
