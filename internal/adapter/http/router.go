package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/playerbank/internal/adapter/http/handler"
	"github.com/iho/playerbank/internal/adapter/http/middleware"
	"github.com/iho/playerbank/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler    *handler.LedgerHandler
	TransferHandler  *handler.TransferHandler
	SessionHandler   *handler.SessionHandler
	HealthHandler    *handler.HealthHandler
	Logger           zerolog.Logger
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Players
		r.Get("/players/{id}/balance/{lane}", cfg.LedgerHandler.GetBalance)
		r.Post("/players/{id}/balance/{lane}/modify", cfg.LedgerHandler.Modify)
		r.Post("/players/{id}/balance/{lane}/set", cfg.LedgerHandler.Set)

		// Sessions
		if cfg.SessionHandler != nil {
			r.Put("/sessions/{id}", cfg.SessionHandler.Attach)
			r.Get("/sessions/{id}", cfg.SessionHandler.Get)
			r.Delete("/sessions/{id}", cfg.SessionHandler.Detach)
		}

		// Transfers
		r.Post("/transfers", cfg.TransferHandler.Create)
	})

	return r
}
