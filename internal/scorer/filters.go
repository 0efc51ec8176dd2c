package scorer

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/model"
)

// Filters narrows a run. States restricts the population before z-scores
// are computed, so each run is scored relative to its own population.
// MinScore and Limit trim the ranked list afterwards.
type Filters struct {
	States   []model.State `json:"states,omitempty"`
	Limit    int           `json:"limit,omitempty"`
	MinScore *float64      `json:"min_score,omitempty"`
}

// FiltersFromConfig parses configured filters.
func FiltersFromConfig(c config.FiltersConfig) (Filters, error) {
	f := Filters{Limit: c.Limit, MinScore: c.MinScore}
	for _, raw := range c.States {
		st, ok := model.ParseState(raw)
		if !ok {
			return Filters{}, eris.Errorf("scorer: unknown state %q", raw)
		}
		f.States = appendState(f.States, st)
	}
	if f.Limit < 0 {
		return Filters{}, eris.Errorf("scorer: limit must be >= 0, got %d", f.Limit)
	}
	if f.MinScore != nil && (math.IsNaN(*f.MinScore) || math.IsInf(*f.MinScore, 0)) {
		return Filters{}, eris.New("scorer: min_score must be finite")
	}
	return f, nil
}

// WithState returns a copy of f restricted to a single state.
func (f Filters) WithState(st model.State) Filters {
	out := f
	out.States = []model.State{st}
	return out
}

func (f Filters) includes(r model.Region) bool {
	if len(f.States) == 0 {
		return true
	}
	for _, st := range f.States {
		if r.State == st {
			return true
		}
	}
	return false
}

func appendState(states []model.State, st model.State) []model.State {
	for _, s := range states {
		if s == st {
			return states
		}
	}
	return append(states, st)
}
