// Package handler provides HTTP handlers for the Scribe API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/scribe/internal/auth"
	"github.com/prn-tf/scribe/internal/metrics"
)

// HealthChecker reports whether the backing store is usable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router wires handlers and middleware into one http.Handler.
type Router struct {
	userHandler *UserHandler
	blogHandler *BlogHandler
	verifier    auth.TokenVerifier
	metrics     *metrics.Metrics
	health      HealthChecker
	maxBodySize int64
	logger      zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	UserHandler   *UserHandler
	BlogHandler   *BlogHandler
	TokenVerifier auth.TokenVerifier
	Metrics       *metrics.Metrics
	Health        HealthChecker
	MaxBodySize   int64
	Logger        zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		userHandler: config.UserHandler,
		blogHandler: config.BlogHandler,
		verifier:    config.TokenVerifier,
		metrics:     config.Metrics,
		health:      config.Health,
		maxBodySize: config.MaxBodySize,
		logger:      config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(rt.logger))
	r.Use(hlog.AccessHandler(rt.logAccess))
	r.Use(middleware.Recoverer)
	r.Use(rt.metrics.Middleware)
	if rt.maxBodySize > 0 {
		r.Use(middleware.RequestSize(rt.maxBodySize))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health check (no auth)
	r.Get("/health", rt.handleHealth)

	r.Route("/api", func(r chi.Router) {
		rt.userHandler.RegisterRoutes(r)
		rt.blogHandler.RegisterRoutes(r, auth.Middleware(rt.verifier), auth.OptionalMiddleware(rt.verifier))
	})

	return r
}

// logAccess writes one line per request.
func (rt *Router) logAccess(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := rt.health.Health(ctx); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
