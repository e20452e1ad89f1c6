// Package web provides the HTTP API for tabular ingestion.
//
// Every failure is logged with its technical detail and request ID, then
// returned as a JSON envelope carrying the user-facing message, a suggested
// action and a support code from ingest.MapError. Internal errors never
// expose their detail to the client.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/plotapi/internal/audit"
	"github.com/JonMunkholm/plotapi/internal/config"
	"github.com/JonMunkholm/plotapi/internal/ingest"
	"github.com/JonMunkholm/plotapi/internal/metrics"
	"github.com/JonMunkholm/plotapi/internal/web/middleware"
)

// Fetcher retrieves a remote file for ingestion.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (ingest.RawInput, error)
}

// Deps are the collaborators a Server dispatches to. Nil fields are built
// from the configuration.
type Deps struct {
	Ingestor *ingest.Ingestor
	Fetcher  Fetcher
	Limiter  *ingest.Limiter
	Metrics  *metrics.Metrics
	Audit    audit.Recorder // nil disables auditing
}

// Server is the HTTP server for the ingestion API.
type Server struct {
	cfg      *config.Config
	ingestor *ingest.Ingestor
	fetcher  Fetcher
	limiter  *ingest.Limiter
	metrics  *metrics.Metrics
	audit    audit.Recorder
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		ingestor: deps.Ingestor,
		fetcher:  deps.Fetcher,
		limiter:  deps.Limiter,
		metrics:  deps.Metrics,
		audit:    deps.Audit,
		router:   chi.NewRouter(),
	}
	if s.ingestor == nil {
		s.ingestor = ingest.NewIngestor(ingest.Options{
			MaxBytes:    cfg.Ingest.MaxFileSize,
			PreviewRows: cfg.Ingest.PreviewRows,
		})
	}
	if s.fetcher == nil {
		s.fetcher = ingest.NewFetcher(ingest.FetcherOptions{
			Timeout:  cfg.Ingest.FetchTimeout,
			MaxBytes: cfg.Ingest.MaxFileSize,
		})
	}
	if s.limiter == nil {
		s.limiter = ingest.NewLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(metrics.InFlight(s.limiter.Active))
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   s.cfg.CORS.AllowedMethods,
		AllowedHeaders:   s.cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: s.cfg.CORS.AllowCredentials,
		MaxAge:           int(s.cfg.CORS.MaxAge.Seconds()),
	}))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))
		if s.cfg.Rate.Enabled {
			r.Use(middleware.NewRateLimiter(s.cfg.Rate.UploadLimit).Handler)
		}

		r.Post("/upload", s.handleUpload)
		r.Post("/fetch-url", s.handleFetchURL)
	})
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, then waits for in-flight
// ingestions to release their slots.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if derr := s.limiter.WaitForDrain(ctx); derr != nil {
		err = errors.Join(err, derr)
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// JSON only: nothing here should ever load as a document.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
