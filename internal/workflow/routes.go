package workflow

import (
	"github.com/go-chi/chi/v5"

	"github.com/meridian-hr/meridian-hr/internal/identity"
)

// MountRoutes registers workflow routes. All routes require a session.
func (h *Handler) MountRoutes(r chi.Router, mw identity.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		r.Post("/requests", h.submit)
		r.Get("/requests", h.list)
		r.Get("/requests/inbox", h.inbox)
		r.Get("/requests/{id}", h.show)
		r.Post("/steps/{stepID}/approve", h.approve)
		r.Post("/steps/{stepID}/reject", h.reject)
	})
}
