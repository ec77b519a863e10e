// Package server exposes the JSON API over chi: service CRUD, connection
// testing, the aggregated health overview, and the cross-service rollups.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avelinn/mediadeck/internal/config"
	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/constants"
	"github.com/avelinn/mediadeck/internal/health"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/metrics"
	"github.com/avelinn/mediadeck/internal/registry"
	"github.com/avelinn/mediadeck/internal/store"
)

// Server holds the shared dependencies for all HTTP handlers.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	registry   *registry.Registry
	factory    *connector.Factory
	aggregator *health.Aggregator
	metrics    *metrics.Metrics
	log        logger.Logger

	version      string
	probeTimeout time.Duration
}

// New creates a server around the shared application state.
func New(cfg *config.Config, st *store.Store, reg *registry.Registry, factory *connector.Factory, agg *health.Aggregator, m *metrics.Metrics, log logger.Logger, version string) *Server {
	return &Server{
		cfg:          cfg,
		store:        st,
		registry:     reg,
		factory:      factory,
		aggregator:   agg,
		metrics:      m,
		log:          log,
		version:      version,
		probeTimeout: cfg.ProbeTimeout,
	}
}

// Router assembles the middleware chain and routes.
func (s *Server) Router() http.Handler {
	limiter := NewRateLimiter(s.cfg.RateLimitPerSecond, s.cfg.RateLimitBurst)
	limiter.StartPeriodicCleanup(constants.RateLimiterCleanupIntervalSeconds * time.Second)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))
	r.Use(cors(s.cfg.CORSAllowedOrigin))
	r.Use(requestSizeLimit)
	r.Use(limiter.Middleware)

	r.Get("/health", s.HandleSelfHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/services", func(r chi.Router) {
			r.Get("/", s.HandleListServices)
			r.Post("/", s.HandleCreateService)
			r.Get("/overview", s.HandleOverview)
			r.Post("/refresh", s.HandleRefresh)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.HandleUpdateService)
				r.Delete("/", s.HandleDeleteService)
				r.Post("/test", s.HandleTestService)
			})
		})

		r.Route("/rollups", func(r chi.Router) {
			r.Get("/downloads", s.HandleDownloadsRollup)
			r.Get("/library", s.HandleLibraryRollup)
		})
	})

	return r
}

// Run serves HTTP until the context is cancelled, then drains in-flight
// requests with a bounded shutdown window.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("server listening", logger.String("addr", s.cfg.ListenAddr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		s.log.Info("server stopped")
		return nil
	}
}
