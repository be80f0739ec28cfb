// Package api exposes the read-only HTTP surface over the history store,
// plus a manual trigger for the daily pipeline.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/archive"
	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
	"github.com/akshayg/coach/internal/metrics"
	"github.com/akshayg/coach/internal/pipeline"
	"github.com/akshayg/coach/internal/tracking"
)

// Runner triggers a pipeline run on demand.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Outcome, error)
}

// Server serves the HTTP API.
type Server struct {
	httpServer *http.Server
	store      tracking.Store
	runner     Runner
	archiver   *archive.Archiver
	log        *zap.Logger
}

// NewServer wires the API routes. runner and archiver may be nil, which
// disables the run trigger and report download respectively. When reg is
// non-nil its metrics are exposed under metricsPath and all requests are
// instrumented.
func NewServer(cfg config.ServerConfig, store tracking.Store, runner Runner, archiver *archive.Archiver, reg *metrics.Registry, metricsCfg config.MetricsConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		store:    store,
		runner:   runner,
		archiver: archiver,
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/snapshots/latest", s.handleLatestSnapshot)
	mux.HandleFunc("GET /api/v1/snapshots/{date}", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/market/{date}", s.handleMarket)
	mux.HandleFunc("GET /api/v1/recommendations", s.handleRecommendationHistory)
	mux.HandleFunc("GET /api/v1/recommendations/{date}", s.handleRecommendations)
	mux.HandleFunc("GET /api/v1/metrics/{date}", s.handleMetrics)
	mux.HandleFunc("GET /api/v1/reports/{date}", s.handleReport)
	mux.HandleFunc("POST /api/v1/run", s.handleRun)

	var handler http.Handler = apiKeyAuth(cfg.APIKey)(mux)
	if reg != nil {
		handler = metrics.HTTPMiddleware(reg)(handler)
	}

	// The scrape endpoint and health check sit outside auth.
	outer := http.NewServeMux()
	outer.Handle("/", handler)
	outer.HandleFunc("GET /healthz", s.handleHealth)
	if reg != nil && metricsCfg.Enabled {
		path := metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		outer.Handle("GET "+path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      outer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the composed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	days := queryDays(r, 30)
	summaries, err := s.store.DailySummaries(r.Context(), days)
	if err != nil {
		writeError(w, 0, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.LatestSnapshot(r.Context())
	if err != nil {
		writeError(w, 0, err)
		return
	}
	if snap == nil {
		writeError(w, 0, core.ErrNoSnapshot)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	snap, err := s.store.SnapshotByDate(r.Context(), date)
	if err != nil {
		writeError(w, 0, err)
		return
	}
	if snap == nil {
		writeError(w, 0, core.ErrNoSnapshot)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	mc, err := s.store.MarketDataByDate(r.Context(), date)
	if err != nil {
		writeError(w, 0, err)
		return
	}
	if mc == nil {
		writeError(w, 0, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, mc)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	recs, err := s.store.RecommendationsByDate(r.Context(), date)
	if err != nil {
		writeError(w, 0, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleRecommendationHistory(w http.ResponseWriter, r *http.Request) {
	days := queryDays(r, 7)
	recs, err := s.store.RecommendationHistory(r.Context(), days)
	if err != nil {
		writeError(w, 0, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	m, err := s.store.MetricsByDate(r.Context(), date)
	if err != nil {
		writeError(w, 0, err)
		return
	}
	if m == nil {
		writeError(w, 0, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.archiver == nil {
		writeError(w, 0, core.ErrNotFound)
		return
	}
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	markdown, err := s.archiver.Report(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusNotFound, core.WrapError(core.ErrNotFound, err))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(markdown))
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, 0, core.ErrNotFound)
		return
	}
	outcome, err := s.runner.Run(r.Context())
	if err != nil {
		writeError(w, 0, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":            outcome.Date,
		"recommendations": outcome.Recommendations,
	})
}

// pathDate extracts and validates the {date} path segment.
func pathDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.PathValue("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, fmt.Errorf("date must be YYYY-MM-DD, got %q", date)))
		return "", false
	}
	return date, true
}

func queryDays(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return fallback
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return fallback
	}
	return days
}
