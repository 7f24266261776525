package items

import (
	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// MountRoutes registers the item pages under /items.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermStockEdit))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
		r.Get("/import", h.ImportForm)
		r.Post("/import", h.Import)
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}/edit", h.Update)
		r.Post("/{id}/delete", h.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermStockView, shared.PermStockEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
}

// MountAPIRoutes registers the JSON lookups under /api.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermStockView, shared.PermSalesPost, shared.PermPurchasesPost))
		r.Get("/item/{id}", h.LookupJSON)
		r.Get("/items", h.PickerJSON)
	})
}
