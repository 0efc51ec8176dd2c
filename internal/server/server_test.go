package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/dataset"
	"github.com/sells-group/suburb-insights/internal/finance"
	"github.com/sells-group/suburb-insights/internal/model"
	"github.com/sells-group/suburb-insights/internal/scorer"
)

type stubLoader struct {
	bundle *dataset.Bundle
	err    error
	calls  int
}

func (s *stubLoader) LoadBundle(context.Context) (*dataset.Bundle, error) {
	s.calls++
	return s.bundle, s.err
}

func ptr(v float64) *float64 { return &v }

func testBundle() *dataset.Bundle {
	b := &dataset.Bundle{}
	b.Ownership.Source = dataset.SourceOwnership
	b.Ownership.Rows = []model.OwnershipRecord{
		{Line: 2, RawKey: "201011001", OwnershipPct: ptr(70)},
		{Line: 3, RawKey: "206041117", OwnershipPct: ptr(35)},
		{Line: 4, RawKey: "206041118", OwnershipPct: ptr(55)},
	}
	b.SEIFA.Source = dataset.SourceSEIFA
	b.SEIFA.Rows = []model.SEIFARecord{{Line: 2, RawKey: "305011105"}}
	b.Vacancy.Source = dataset.SourceVacancy
	b.Vacancy.Rows = []model.VacancyRecord{{Line: 2, RawKey: "3999", VacancyPct: ptr(3)}}
	b.Correspondence.Source = dataset.SourceCorrespondence
	b.Correspondence.Path = "correspondence.csv"
	return b
}

func testConfig() *config.Config {
	return &config.Config{
		Scoring: scorer.DefaultScoringConfig(),
		Finance: config.FinanceConfig{InterestRatePct: 6, LoanTermYears: 30, DepositPct: 20, AssessmentBufferPct: 3},
		Server:  config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
	}
}

func newTestServer(loader BundleLoader) *Server {
	cfg := testConfig()
	brackets := []model.StampDutyBracket{
		{State: model.StateVIC, Occupancy: "OO", BracketMin: 0, BracketMax: 2000000, Base: 0, RatePct: 5, MarginalAbove: 0},
	}
	return New(cfg, loader, finance.NewCalculator(cfg.Finance, brackets))
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type rankResponse struct {
	ID      string             `json:"id"`
	Policy  string             `json:"policy"`
	Weights map[string]float64 `json:"weights"`
	Result  struct {
		Ranked []struct {
			Region struct {
				Code string `json:"code"`
			} `json:"region"`
			Rank  int     `json:"rank"`
			Score float64 `json:"score"`
		} `json:"ranked"`
		Unranked    []json.RawMessage `json:"unranked"`
		Diagnostics struct {
			Unjoined []model.Unjoined `json:"unjoined"`
		} `json:"diagnostics"`
	} `json:"result"`
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(&stubLoader{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRank(t *testing.T) {
	loader := &stubLoader{bundle: testBundle()}
	s := newTestServer(loader)

	rec := get(t, s, "/rank")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, got.ID, rec.Header().Get("X-Run-ID"))
	assert.Equal(t, scorer.PolicyRenormalize, got.Policy)
	require.Len(t, got.Result.Ranked, 3)
	assert.Equal(t, "201011001", got.Result.Ranked[0].Region.Code)
	assert.Len(t, got.Result.Unranked, 1)
	require.Len(t, got.Result.Diagnostics.Unjoined, 1)
	assert.Equal(t, "3999", got.Result.Diagnostics.Unjoined[0].RawKey)
	assert.Equal(t, 1, loader.calls)

	get(t, s, "/rank")
	assert.Equal(t, 2, loader.calls, "sources are reloaded per request")
}

func TestRank_QueryOverrides(t *testing.T) {
	s := newTestServer(&stubLoader{bundle: testBundle()})

	rec := get(t, s, "/rank?state=vic&limit=1&w.gross_yield=0.5&policy=default")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, scorer.PolicyDefault, got.Policy)
	assert.Equal(t, 0.5, got.Weights["gross_yield"])
	require.Len(t, got.Result.Ranked, 1)
	assert.Equal(t, "206041118", got.Result.Ranked[0].Region.Code)

	rec = get(t, s, "/rank?min_score=0")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	for _, r := range got.Result.Ranked {
		assert.GreaterOrEqual(t, r.Score, 0.0)
	}
}

func TestRank_Formats(t *testing.T) {
	s := newTestServer(&stubLoader{bundle: testBundle()})

	rec := get(t, s, "/rank?format=geojson")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)

	rec = get(t, s, "/rank?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "rank,sa2_code"))

	rec = get(t, s, "/rank?format=xlsx")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// failingWriter accepts the status line and fails every body write.
type failingWriter struct {
	header  http.Header
	written []int
}

func (f *failingWriter) Header() http.Header       { return f.header }
func (f *failingWriter) WriteHeader(code int)      { f.written = append(f.written, code) }
func (f *failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestRank_WriteFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	s := newTestServer(&stubLoader{bundle: testBundle()})
	fw := &failingWriter{header: http.Header{}}
	s.Handler().ServeHTTP(fw, httptest.NewRequest(http.MethodGet, "/rank?format=csv", nil))

	assert.Equal(t, []int{http.StatusOK}, fw.written)
	entries := logs.FilterMessage("write rank response").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "csv", entries[0].ContextMap()["format"])
}

func TestRank_BadRequests(t *testing.T) {
	s := newTestServer(&stubLoader{bundle: testBundle()})

	for _, target := range []string{
		"/rank?state=XX",
		"/rank?limit=abc",
		"/rank?limit=-1",
		"/rank?w.sunshine=1",
		"/rank?w.gross_yield=abc",
		"/rank?policy=zero",
		"/rank?min_score=high",
		"/rank?profile=nope",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, s, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRank_LoadErrors(t *testing.T) {
	missing := &dataset.MissingFileError{Source: dataset.SourceSEIFA, Path: "/data/seifa.csv", Schema: []string{"sa2_code21", "irsad_rank"}}
	rec := get(t, newTestServer(&stubLoader{err: missing}), "/rank")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "seifa")

	rec = get(t, newTestServer(&stubLoader{err: errors.New("disk on fire")}), "/coverage")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestCoverage(t *testing.T) {
	rec := get(t, newTestServer(&stubLoader{bundle: testBundle()}), "/coverage")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Regions     int               `json:"regions"`
		Diagnostics model.Diagnostics `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.Regions)
	assert.Len(t, got.Diagnostics.Unjoined, 1)
	assert.Len(t, got.Diagnostics.Sources, 7)
}

func TestMortgage(t *testing.T) {
	s := newTestServer(&stubLoader{})

	rec := get(t, s, "/mortgage?price=750000")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var est finance.Estimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.InDelta(t, 600000, est.Loan, 0.01)
	assert.InDelta(t, 3597.30, est.MonthlyRepayment, 0.01)
	assert.Nil(t, est.StampDuty)

	rec = get(t, s, "/mortgage?price=500000&deposit_pct=10&rate=5&years=25&state=vic&occupancy=oo")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	est = finance.Estimate{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.InDelta(t, 50000, est.Deposit, 0.01)
	assert.Equal(t, 25, est.LoanTermYears)
	assert.True(t, est.LikelyLMI)
	require.NotNil(t, est.StampDuty)
	assert.InDelta(t, 25000, *est.StampDuty, 0.01)
	assert.Nil(t, est.NetYieldPct)

	rec = get(t, s, "/mortgage?price=500000&state=vic&weekly_rent=500&expenses=5000")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	est = finance.Estimate{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	require.NotNil(t, est.NetYieldPct)
	assert.InDelta(t, 4.2, *est.NetYieldPct, 1e-9)
	require.NotNil(t, est.CashOnCashPct)
	require.NotNil(t, est.AnnualCashflow)
	assert.InDelta(t, *est.AnnualCashflow/(est.Deposit+*est.StampDuty)*100, *est.CashOnCashPct, 1e-6)

	for _, target := range []string{
		"/mortgage?price=500000&weekly_rent=lots",
		"/mortgage?price=500000&weekly_rent=500&expenses=-1",
		"/mortgage",
		"/mortgage?price=abc",
		"/mortgage?price=500000&years=0",
		"/mortgage?price=500000&deposit_pct=120",
		"/mortgage?price=500000&state=XX",
		"/mortgage?price=500000&state=NSW",
	} {
		rec := get(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(&stubLoader{})
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
