/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for field-device clients

ROUTE GROUPS:
  /api/periods/*  Period lifecycle, approvals and audit trail
  /api/limits     Shared child-collection ceilings

SECURITY NOTE:
  Actor identity arrives as headers set by the upstream identity proxy.
  There is no authentication here; deploy behind the proxy only.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. allowedOrigins
// feeds the CORS middleware; an empty list allows none.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor-ID", "X-Actor-Role", "X-Actor-Level"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Post("/", h.SubmitPeriod)
			r.Get("/{id}", h.GetPeriod)
			r.Put("/{id}", h.EditPeriod)
			r.Delete("/{id}", h.DeletePeriod)
			r.Post("/{id}/supervisor-approval", h.SupervisorApprove)
			r.Post("/{id}/admin-approval", h.AdminApprove)
			r.Get("/{id}/revisions", h.ListRevisions)
		})

		r.Route("/limits", func(r chi.Router) {
			r.Get("/", h.GetLimits)
			r.Put("/", h.UpdateLimits)
		})
	})

	return r
}
