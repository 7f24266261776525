package customers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/view"
)

// Handler serves the customer pages.
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
	customers, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/customers/customer_list.html", "Customers", map[string]any{
		"Customers":  customers,
		"Filters":    filters,
		"Pagination": filters.Pagination(total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.load(w, r)
	if !ok {
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/customers/customer_detail.html", customer.Name, customer)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.pages.Page(w, r, http.StatusOK, "pages/customers/customer_form.html", "New customer", formPage{Errors: map[string]string{}})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.formError(w, r, formPage{Form: in}, "New customer", err)
		return
	}
	h.logger.Info("customer created", slog.Int64("customer_id", created.ID))
	h.pages.Redirect(w, r, "/customers/"+strconv.FormatInt(created.ID, 10), "success", "Customer created.")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.load(w, r)
	if !ok {
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/customers/customer_form.html", "Edit customer", formPage{
		ID:     customer.ID,
		Form:   InputFrom(customer),
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
		h.formError(w, r, formPage{ID: id, Form: in}, "Edit customer", err)
		return
	}
	h.pages.Redirect(w, r, "/customers/"+strconv.FormatInt(id, 10), "success", "Customer updated.")
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
		h.logger.Error("delete customer", slog.Int64("customer_id", id), slog.Any("error", err))
		h.pages.Redirect(w, r, "/customers", "error", "Could not delete the customer.")
		return
	}
	h.pages.Redirect(w, r, "/customers", "success", "Customer deleted.")
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Customer, bool) {
	id, err := shared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return Customer{}, false
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.pages.NotFound(w, r)
		} else {
			h.pages.ServerError(w, r, err)
		}
		return Customer{}, false
	}
	return customer, true
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Phone:   r.PostFormValue("phone"),
		Address: r.PostFormValue("address"),
		Balance: r.PostFormValue("balance"),
	}, true
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, page formPage, title string, err error) {
	var ve *shared.ValidationError
	switch {
	case errors.As(err, &ve):
		page.Errors = ve.Fields
		h.pages.Page(w, r, http.StatusUnprocessableEntity, "pages/customers/customer_form.html", title, page)
	case errors.Is(err, shared.ErrNotFound):
		h.pages.NotFound(w, r)
	default:
		h.pages.ServerError(w, r, err)
	}
}
