package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/projection"
	"github.com/couchcryptid/weather-stream-listener/internal/stream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Hub is the live stream state the API reads and re-targets.
type Hub interface {
	sharedobs.ReadinessChecker
	Status() stream.HubStatus
	Snapshot() []domain.Record
	Subscribe(endpoint, label string) (stream.Subscription, error)
}

// Locator turns location names into subscription endpoints.
type Locator interface {
	List() []domain.Location
	Endpoint(ctx context.Context, name string) (string, domain.Location, error)
}

// Server exposes health, readiness, metrics, and the stream read API.
type Server struct {
	httpServer *http.Server
	hub        Hub
	locator    Locator
	builder    *projection.Builder
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes. locator may be nil, in which case location subscriptions and
// /api/locations are unavailable.
func NewServer(addr string, hub Hub, locator Locator, builder *projection.Builder, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		hub:     hub,
		locator: locator,
		builder: builder,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(hub))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	mux.HandleFunc("GET /api/segments", s.handleSegments)
	mux.HandleFunc("GET /api/locations", s.handleLocations)
	mux.HandleFunc("PUT /api/subscription", s.handleSubscribe)

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
