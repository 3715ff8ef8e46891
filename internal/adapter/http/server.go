// Package http exposes health probes, Prometheus metrics, and the dashboard
// JSON API.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/query"
)

// Querier answers filtered dashboard queries.
type Querier interface {
	Query(ctx context.Context, f domain.Filter) (query.Result, error)
}

// Ingester triggers one ingestion run on demand.
type Ingester interface {
	RunOnce(ctx context.Context) (domain.IngestReport, error)
}

// Server exposes health, readiness, metrics, and API endpoints.
type Server struct {
	httpServer *http.Server
	querier    Querier
	ingester   Ingester
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server. A nil ingester leaves POST /api/ingest
// unregistered.
func NewServer(addr string, ready sharedobs.ReadinessChecker, querier Querier, ingester Ingester, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		querier:  querier,
		ingester: ingester,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/earthquakes", s.handleEarthquakes)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	if ingester != nil {
		mux.HandleFunc("POST /api/ingest", s.handleIngest)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
