// Package server exposes ranking runs over HTTP. Every request builds its
// own scoring configuration and filters from the query string on top of the
// configured defaults, reloads the sources from disk and runs the engine.
// Only the finance calculator, with its stamp duty schedule, outlives a
// request.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/dataset"
	"github.com/sells-group/suburb-insights/internal/finance"
	"github.com/sells-group/suburb-insights/internal/scorer"
)

// BundleLoader loads the ranking sources. *dataset.Loader satisfies it.
type BundleLoader interface {
	LoadBundle(ctx context.Context) (*dataset.Bundle, error)
}

// Server serves ranking, coverage and mortgage requests.
type Server struct {
	cfg    *config.Config
	loader BundleLoader
	calc   *finance.Calculator
	engine *scorer.Engine
	router chi.Router
}

// New creates a Server. calc supplies the repayment metric and the
// mortgage estimator. Unlike the ranking sources, which loader reloads on
// every request, calc's stamp duty schedule is fixed for the life of the
// Server; restart to pick up a changed schedule file.
func New(cfg *config.Config, loader BundleLoader, calc *finance.Calculator) *Server {
	s := &Server{
		cfg:    cfg,
		loader: loader,
		calc:   calc,
		engine: scorer.NewEngine(calc),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/rank", s.handleRank)
	r.Get("/coverage", s.handleCoverage)
	r.Get("/mortgage", s.handleMortgage)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on the configured port until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// requestLogger logs one line per request at Info.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("component", "server"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// loadError maps a bundle load failure to a response. A missing source is
// an operator problem, reported as 503 with the file and schema.
func loadError(w http.ResponseWriter, err error) {
	var mf *dataset.MissingFileError
	if errors.As(err, &mf) {
		writeError(w, http.StatusServiceUnavailable, mf)
		return
	}
	zap.L().Error("load sources", zap.Error(err))
	writeError(w, http.StatusInternalServerError, errors.New("failed to load sources"))
}
