package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/export"
	"github.com/sells-group/suburb-insights/internal/model"
	"github.com/sells-group/suburb-insights/internal/scorer"
)

// weightPrefix marks per-factor weight overrides, e.g. w.gross_yield=0.4.
const weightPrefix = "w."

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sc, err := scoringFromQuery(s.cfg.Scoring, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	filters, err := filtersFromQuery(s.cfg.Filters, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format := export.FormatJSON
	if v := q.Get("format"); v != "" {
		format, err = export.ParseFormat(v)
		if err != nil || (format != export.FormatJSON && format != export.FormatGeoJSON && format != export.FormatCSV) {
			writeError(w, http.StatusBadRequest, eris.Errorf("server: format must be json, geojson or csv, got %q", v))
			return
		}
	}

	b, err := s.loader.LoadBundle(r.Context())
	if err != nil {
		loadError(w, err)
		return
	}
	res, err := s.engine.Run(b, sc, filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	run := scorer.NewRun(q.Get("label"), sc, res)

	switch format {
	case export.FormatGeoJSON:
		w.Header().Set("Content-Type", "application/geo+json")
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("X-Run-ID", run.ID)
	// The status line has been sent; a failure here can only be logged.
	if err := export.Write(w, format, run); err != nil {
		zap.L().Error("write rank response",
			zap.String("component", "server"),
			zap.String("run_id", run.ID),
			zap.String("format", format),
			zap.Error(err),
		)
	}
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	b, err := s.loader.LoadBundle(r.Context())
	if err != nil {
		loadError(w, err)
		return
	}
	joined := scorer.Join(b, s.calc)
	writeJSON(w, http.StatusOK, map[string]any{
		"regions":     len(joined.Regions),
		"diagnostics": joined.Diagnostics,
	})
}

func (s *Server) handleMortgage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	price, err := floatParam(q, "price", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a := s.calc.Assumptions()
	if a.DepositPct, err = floatParam(q, "deposit_pct", a.DepositPct); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if a.InterestRatePct, err = floatParam(q, "rate", a.InterestRatePct); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if v := q.Get("years"); v != "" {
		years, convErr := strconv.Atoi(v)
		if convErr != nil || years <= 0 {
			writeError(w, http.StatusBadRequest, eris.Errorf("server: years must be a positive integer, got %q", v))
			return
		}
		a.LoanTermYears = years
	}
	if a.DepositPct < 0 || a.DepositPct > 100 || a.InterestRatePct < 0 {
		writeError(w, http.StatusBadRequest, eris.New("server: deposit_pct must be 0-100 and rate >= 0"))
		return
	}

	var state model.State
	if v := q.Get("state"); v != "" {
		st, ok := model.ParseState(v)
		if !ok {
			writeError(w, http.StatusBadRequest, eris.Errorf("server: unknown state %q", v))
			return
		}
		state = st
	}

	rent, err := floatParam(q, "weekly_rent", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expenses, err := floatParam(q, "expenses", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if rent < 0 || expenses < 0 {
		writeError(w, http.StatusBadRequest, eris.New("server: weekly_rent and expenses must not be negative"))
		return
	}

	est, err := s.calc.WithAssumptions(a).Estimate(price, state, strings.ToUpper(q.Get("occupancy")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, est.WithRent(rent, expenses))
}

// scoringFromQuery overlays query parameters on base without modifying it.
// The profile is applied first so explicit w.<factor> weights win.
func scoringFromQuery(base config.ScoringConfig, q url.Values) (config.ScoringConfig, error) {
	c := base
	c.Weights = make(map[string]float64, len(base.Weights))
	for k, v := range base.Weights {
		c.Weights[k] = v
	}

	if v := q.Get("profile"); v != "" {
		c.Profile = v
	}
	c, err := scorer.ResolveProfile(c)
	if err != nil {
		return c, err
	}

	for key, vals := range q {
		if !strings.HasPrefix(key, weightPrefix) || len(vals) == 0 {
			continue
		}
		w, err := strconv.ParseFloat(vals[len(vals)-1], 64)
		if err != nil {
			return c, eris.Errorf("server: weight %s is not a number", key)
		}
		c.Weights[strings.TrimPrefix(key, weightPrefix)] = w
	}
	if v := q.Get("policy"); v != "" {
		c.MissingPolicy = v
	}
	if c.MissingDefault, err = floatParam(q, "missing_default", c.MissingDefault); err != nil {
		return c, err
	}
	return c, scorer.ValidateScoring(c)
}

// filtersFromQuery accepts state as a repeated or comma-separated parameter.
func filtersFromQuery(base config.FiltersConfig, q url.Values) (scorer.Filters, error) {
	fc := base
	if vals, ok := q["state"]; ok {
		fc.States = nil
		for _, v := range vals {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					fc.States = append(fc.States, part)
				}
			}
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return scorer.Filters{}, eris.Errorf("server: limit must be an integer, got %q", v)
		}
		fc.Limit = n
	}
	if q.Has("min_score") {
		v, err := floatParam(q, "min_score", 0)
		if err != nil {
			return scorer.Filters{}, err
		}
		fc.MinScore = &v
	}
	return scorer.FiltersFromConfig(fc)
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Errorf("server: %s must be a number, got %q", name, v)
	}
	return f, nil
}
