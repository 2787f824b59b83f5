package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/reviewhub-realtime/internal/auth"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
)

// RouterConfig carries everything the HTTP surface is built from. Optional
// handlers and middleware may be nil.
type RouterConfig struct {
	Logger        *slog.Logger
	TokenManager  *auth.TokenManager
	RateLimiter   *mw.RateLimiter
	StreamLimiter *mw.StreamLimiter
	CORS          cors.Options
	MetricsPath   string

	Health        *HealthHandler
	SSE           *SSEHandler
	WebSocket     *WebSocketHandler
	Notifications *NotificationHandler
	Me            *MeHandler
	AdminEvents   *AdminEventHandler
}

// NewRouter wires middleware and routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cfg.CORS))

	// Health check endpoints live outside /api/v1
	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived streams: token may come from the query string and the
		// request rate limiter does not apply.
		r.Group(func(r chi.Router) {
			r.Use(mw.StreamJWTMiddleware(cfg.TokenManager))
			if cfg.StreamLimiter != nil {
				r.Use(cfg.StreamLimiter.Middleware)
			}
			if cfg.SSE != nil {
				r.Get("/realtime/events", cfg.SSE.HandleEvents)
			}
			if cfg.WebSocket != nil {
				r.Get("/realtime/ws", cfg.WebSocket.ServeHTTP)
			}
		})

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(cfg.TokenManager))
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Middleware)
			}

			if cfg.Notifications != nil {
				cfg.Notifications.RegisterRoutes(r)
			}
			if cfg.Me != nil {
				cfg.Me.RegisterRoutes(r)
			}

			if cfg.AdminEvents != nil {
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(domain.RoleAdmin))
					cfg.AdminEvents.RegisterRoutes(r)
				})
			}
		})
	})

	return r
}
