package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/forecast"
)

// DatasetService is the pipeline surface the API reads from and drives.
type DatasetService interface {
	sharedobs.ReadinessChecker
	Latest() *domain.ProcessedDataset
	Reprocess(ctx context.Context, opts domain.Options) (*domain.ProcessedDataset, error)
	Forecast(ctx context.Context, opts forecast.Options) (forecast.Evaluation, error)
}

// Server exposes health, readiness, metrics, and the dashboard API.
type Server struct {
	httpServer *http.Server
	svc        DatasetService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the health and /api/v1 routes.
func NewServer(addr string, svc DatasetService, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(svc))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/dataset", s.handleDataset)
		r.Get("/dataset/records", s.handleRecords)
		r.Get("/dataset/top-areas", s.handleTopAreas)
		r.Get("/dataset/damage", s.handleDamage)
		r.Post("/dataset/process", s.handleProcess)
		r.Get("/exports/{artifact}", s.handleExport)
		r.Post("/forecast", s.handleForecast)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // forecast fits can run for seconds
		IdleTimeout:  60 * time.Second,
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
