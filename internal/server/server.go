// Package server exposes the bridge fee API over HTTP: quote and limit
// lookups, route discovery, a small cache admin surface, and the usual
// health, readiness, and metrics endpoints.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dohaki/across-api/internal/fees"
	"github.com/dohaki/across-api/internal/platform/cache"
	"github.com/dohaki/across-api/internal/platform/observability"
	"github.com/dohaki/across-api/internal/platform/resilience"
)

// ReadyChecker reports whether the service is ready to take traffic.
type ReadyChecker func(ctx context.Context) error

// Deps carries the collaborators the HTTP layer needs. Fees and Cache are
// required; the rest are optional and disable their concern when nil.
type Deps struct {
	Fees    *fees.Service
	Cache   cache.Provider
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Limiter is the shared token bucket applied to /api routes. Nil
	// disables rate limiting.
	Limiter *resilience.RateLimiter

	// ReadyCheck gates /ready. Nil means always ready.
	ReadyCheck ReadyChecker
}

// New assembles the router with all middleware and routes wired.
func New(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger("info", "json")
	}
	s := &server{deps: deps}

	r := chi.NewRouter()

	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)

	// System endpoints sit outside the rate limit so probes keep working
	// while the bucket is exhausted.
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/suggested-fees", s.handleSuggestedFees)
		r.Get("/limits", s.handleLimits)
		r.Get("/available-routes", s.handleAvailableRoutes)

		r.Route("/admin/cache", func(r chi.Router) {
			r.Post("/flush", s.handleCacheFlush)
			r.Get("/entry", s.handleCacheEntry)
			r.Delete("/entry", s.handleCacheEntryDelete)
		})
	})

	return r
}

type server struct {
	deps Deps
}
