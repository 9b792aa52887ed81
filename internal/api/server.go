// Package api exposes scans, analytics and diagnostics over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AI-Template-SDK/visibility-workflows/services"
)

// ScanEnqueuer hands a scan to the workflow engine and returns the event ID.
type ScanEnqueuer interface {
	EnqueueScan(ctx context.Context, req services.ScanRequest) (string, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	scans       services.ScanService
	analytics   services.AnalyticsService
	diagnostics services.DiagnosticsService
	catalog     services.CatalogService
	enqueuer    ScanEnqueuer
	inngest     http.Handler
	router      *chi.Mux
	logger      *slog.Logger
}

// Options carries the optional parts of the server.
type Options struct {
	Enqueuer ScanEnqueuer
	Inngest  http.Handler
	Logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(scans services.ScanService, analytics services.AnalyticsService, diagnostics services.DiagnosticsService, catalog services.CatalogService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		scans:       scans,
		analytics:   analytics,
		diagnostics: diagnostics,
		catalog:     catalog,
		enqueuer:    opts.Enqueuer,
		inngest:     opts.Inngest,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	if s.inngest != nil {
		s.router.Handle("/api/inngest", s.inngest)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/brands", func(r chi.Router) {
			r.Get("/", s.handleListBrands)
			r.Post("/", s.handleCreateBrand)
			r.Get("/{id}", s.handleGetBrand)
			r.Put("/{id}", s.handleUpdateBrand)
			r.Delete("/{id}", s.handleDeleteBrand)
		})

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", s.handleListQueries)
			r.Post("/", s.handleCreateQuery)
			r.Get("/templates", s.handleListTemplates)
		})

		r.Route("/scans", func(r chi.Router) {
			r.Get("/", s.handleListScans)
			r.Post("/run", s.handleRunScan)
			r.Post("/enqueue", s.handleEnqueueScan)
			r.Get("/{id}", s.handleGetScan)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/", s.handleAnalytics)
			r.Get("/trends", s.handleTrends)
			r.Get("/competitors", s.handleCompetitors)
			r.Get("/failures", s.handleFailures)
		})

		r.Get("/diagnostics", s.handleDiagnostics)
		r.Get("/cron/daily-scan", s.handleDailyScan)
	})
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
