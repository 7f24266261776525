package vendors

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/view"
)

// Handler serves the vendor pages.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pages   *view.Responder
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, pages: pages, rbac: rbac}
}

type formPage struct {
	ID     int64
	Form   Input
	Errors map[string]string
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	vendors, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/vendors/vendor_list.html", "Vendors", map[string]any{
		"Vendors":    vendors,
		"Filters":    filters,
		"Pagination": filters.Pagination(total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	vendor, ok := h.load(w, r)
	if !ok {
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/vendors/vendor_detail.html", vendor.Name, vendor)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.pages.Page(w, r, http.StatusOK, "pages/vendors/vendor_form.html", "New vendor", formPage{Errors: map[string]string{}})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.formError(w, r, formPage{Form: in}, "New vendor", err)
		return
	}
	h.logger.Info("vendor created", slog.Int64("vendor_id", created.ID))
	h.pages.Redirect(w, r, "/vendors/"+strconv.FormatInt(created.ID, 10), "success", "Vendor created.")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	vendor, ok := h.load(w, r)
	if !ok {
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/vendors/vendor_form.html", "Edit vendor", formPage{
		ID:     vendor.ID,
		Form:   InputFrom(vendor),
		Errors: map[string]string{},
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return
	}
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, in); err != nil {
		h.formError(w, r, formPage{ID: id, Form: in}, "Edit vendor", err)
		return
	}
	h.pages.Redirect(w, r, "/vendors/"+strconv.FormatInt(id, 10), "success", "Vendor updated.")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.pages.NotFound(w, r)
			return
		}
		h.logger.Error("delete vendor", slog.Int64("vendor_id", id), slog.Any("error", err))
		h.pages.Redirect(w, r, "/vendors", "error", "Could not delete the vendor.")
		return
	}
	h.pages.Redirect(w, r, "/vendors", "success", "Vendor deleted.")
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Vendor, bool) {
	id, err := shared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return Vendor{}, false
	}
	vendor, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.pages.NotFound(w, r)
		} else {
			h.pages.ServerError(w, r, err)
		}
		return Vendor{}, false
	}
	return vendor, true
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Name:         r.PostFormValue("name"),
		Email:        r.PostFormValue("email"),
		Phone:        r.PostFormValue("phone"),
		Address:      r.PostFormValue("address"),
		Balance:      r.PostFormValue("balance"),
		TaxNumber:    r.PostFormValue("tax_number"),
		DiscountRate: r.PostFormValue("discount_rate"),
		VATRate:      r.PostFormValue("vat_rate"),
		ExciseRate:   r.PostFormValue("excise_rate"),
	}, true
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, page formPage, title string, err error) {
	var ve *shared.ValidationError
	switch {
	case errors.As(err, &ve):
		page.Errors = ve.Fields
		h.pages.Page(w, r, http.StatusUnprocessableEntity, "pages/vendors/vendor_form.html", title, page)
	case errors.Is(err, shared.ErrNotFound):
		h.pages.NotFound(w, r)
	default:
		h.pages.ServerError(w, r, err)
	}
}
