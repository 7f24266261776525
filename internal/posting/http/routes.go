package postinghttp

import (
	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/posting"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// MountRoutes registers the pages under /sales or /purchases.
func (h *Handler) MountRoutes(r chi.Router) {
	viewPerm, postPerm := shared.PermSalesView, shared.PermSalesPost
	if h.view.Kind == posting.KindPurchase {
		viewPerm, postPerm = shared.PermPurchasesView, shared.PermPurchasesPost
	}
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(postPerm))
		r.Get("/new", h.form)
		r.Post("/", h.create)
		r.Post("/{id}/delete", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(viewPerm, postPerm))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/pdf", h.exportPDF)
	})
}
