package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tickethub/ticket-inventory/internal/observability"
	"github.com/tickethub/ticket-inventory/internal/rateLimit"
)

// SetupRouter exposes the booking API. rl may be nil when no redis is
// configured.
func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	if rl != nil {
		r.Use(RateLimitMiddleware(rl))
	}

	r.Post("/initialize", h.InitializeEvent)
	r.Post("/book", h.BookTicket)
	r.Post("/cancel", h.CancelBooking)
	r.Get("/status/{eventID}", h.GetStatus)
	r.Get("/orders/{eventID}", h.ListOrders)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
