package customers

import (
	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPartiesEdit))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}/edit", h.Update)
		r.Post("/{id}/delete", h.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPartiesView, shared.PermPartiesEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
}
