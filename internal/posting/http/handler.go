// Package postinghttp serves the sale and purchase pages: list, form, invoice, PDF
// export and reversal.
package postinghttp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ledgerline/ledgerline/internal/masterdata/items"
	mdshared "github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/posting"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/view"
	"github.com/ledgerline/ledgerline/report"
)

// Poster is the posting service surface used by the pages.
type Poster interface {
	PostSale(ctx context.Context, in posting.SaleInput) (posting.PostResult, error)
	PostPurchase(ctx context.Context, in posting.PurchaseInput) (posting.PostResult, error)
	DeleteSale(ctx context.Context, id, actorID int64) error
	DeletePurchase(ctx context.Context, id, actorID int64) error
	GetSale(ctx context.Context, id int64) (posting.Header, error)
	GetPurchase(ctx context.Context, id int64) (posting.Header, error)
	ListSales(ctx context.Context, filter posting.ListFilter) ([]posting.Header, int, error)
	ListPurchases(ctx context.Context, filter posting.ListFilter) ([]posting.Header, int, error)
}

// PartySource lists customers or vendors for the form.
type PartySource interface {
	Options(ctx context.Context) ([]mdshared.Option, error)
}

// ItemSource lists the items offered on the form.
type ItemSource interface {
	Pickable(ctx context.Context, inStock bool) ([]items.Item, error)
}

// PDFRenderer converts invoice HTML into PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Config wires a Handler for one kind of transaction.
type Config struct {
	Kind    posting.Kind
	Service Poster
	Parties PartySource
	Items   ItemSource
	Pages   *view.Responder
	PDF     PDFRenderer
	RBAC    rbac.Middleware
	Logger  *slog.Logger
}

// Handler serves either the sale or the purchase pages.
type Handler struct {
	view    kindView
	service Poster
	parties PartySource
	items   ItemSource
	pages   *view.Responder
	pdf     PDFRenderer
	rbac    rbac.Middleware
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pdf := cfg.PDF
	if pdf == nil {
		pdf = report.NewClient("")
	}
	return &Handler{
		view:    viewFor(cfg.Kind),
		service: cfg.Service,
		parties: cfg.Parties,
		items:   cfg.Items,
		pages:   cfg.Pages,
		pdf:     pdf,
		rbac:    cfg.RBAC,
		logger:  logger.With(slog.String("kind", string(cfg.Kind))),
	}
}

func (h *Handler) isSale() bool { return h.view.Kind == posting.KindSale }

func (h *Handler) template(name string) string {
	return "pages" + h.view.BasePath + "/" + string(h.view.Kind) + "_" + name + ".html"
}

func (h *Handler) idPath(id int64) string {
	return h.view.BasePath + "/" + strconv.FormatInt(id, 10)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := mdshared.ParseListFilters(r)
	filter := posting.ListFilter{Page: filters.Page, PerPage: filters.Limit}
	var (
		headers []posting.Header
		total   int
		err     error
	)
	if h.isSale() {
		headers, total, err = h.service.ListSales(r.Context(), filter)
	} else {
		headers, total, err = h.service.ListPurchases(r.Context(), filter)
	}
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Page(w, r, http.StatusOK, h.template("list"), h.view.Title, listPage{
		View:       h.view,
		Headers:    headers,
		Pagination: filters.Pagination(total),
	})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (posting.Header, bool) {
	id, err := mdshared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return posting.Header{}, false
	}
	var header posting.Header
	if h.isSale() {
		header, err = h.service.GetSale(r.Context(), id)
	} else {
		header, err = h.service.GetPurchase(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, posting.ErrNotFound) {
			h.pages.NotFound(w, r)
		} else {
			h.pages.ServerError(w, r, err)
		}
		return posting.Header{}, false
	}
	return header, true
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	header, ok := h.load(w, r)
	if !ok {
		return
	}
	h.pages.Page(w, r, http.StatusOK, h.template("invoice"), h.view.Singular+" "+header.Number, invoicePage{View: h.view, Header: header})
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	header, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.pages.Engine.Execute(&buf, "pages/invoice_pdf.html", view.TemplateData{
		Title: h.view.Singular + " " + header.Number,
		Data:  invoicePage{View: h.view, Header: header},
	}); err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), buf.Bytes())
	if err != nil {
		if errors.Is(err, report.ErrNotConfigured) {
			h.pages.Redirect(w, r, h.idPath(header.ID), "error", "PDF export is not configured.")
			return
		}
		h.logger.Error("render invoice pdf", slog.Int64("id", header.ID), slog.Any("error", err))
		h.pages.Redirect(w, r, h.idPath(header.ID), "error", "The PDF could not be generated. Please try again.")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+header.Number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, newFormValues(), "")
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, values formValues, message string) {
	parties, err := h.parties.Options(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	pickable, err := h.items.Pickable(r.Context(), h.isSale())
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	if len(values.Lines) == 0 {
		values.Lines = []posting.RawLine{{}}
	}
	h.pages.Page(w, r, status, h.template("form"), "New "+h.view.Singular, formPage{
		View:    h.view,
		Parties: parties,
		Items:   pickable,
		Values:  values,
		Error:   message,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	values, err := parseForm(r, h.view.Kind)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())

	var result posting.PostResult
	if h.isSale() {
		var in posting.SaleInput
		if in, err = values.saleInput(principal.UserID); err == nil {
			result, err = h.service.PostSale(r.Context(), in)
		}
	} else {
		var in posting.PurchaseInput
		if in, err = values.purchaseInput(principal.UserID); err == nil {
			result, err = h.service.PostPurchase(r.Context(), in)
		}
	}

	var userErr shared.UserError
	switch {
	case err == nil:
		h.logger.Info("transaction posted",
			slog.Int64("id", result.Header.ID),
			slog.String("number", result.Header.Number),
			slog.Int("created_items", len(result.CreatedItems)))
		h.pages.Redirect(w, r, h.idPath(result.Header.ID), "success",
			h.view.Singular+" "+result.Header.Number+" recorded.")
	case errors.Is(err, posting.ErrDuplicateSubmission):
		h.pages.Redirect(w, r, h.view.BasePath, "info", shared.UserSafeMessage(err))
	case errors.As(err, &userErr):
		h.renderForm(w, r, http.StatusUnprocessableEntity, values, shared.UserSafeMessage(err))
	default:
		h.logger.Error("post transaction", slog.Any("error", err))
		h.renderForm(w, r, http.StatusInternalServerError, values, shared.UserSafeMessage(err))
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := mdshared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if h.isSale() {
		err = h.service.DeleteSale(r.Context(), id, principal.UserID)
	} else {
		err = h.service.DeletePurchase(r.Context(), id, principal.UserID)
	}

	var userErr shared.UserError
	switch {
	case err == nil:
		h.logger.Info("transaction deleted", slog.Int64("id", id), slog.Int64("user_id", principal.UserID))
		h.pages.Redirect(w, r, h.view.BasePath, "success", h.view.Singular+" deleted and stock restored.")
	case errors.Is(err, posting.ErrNotFound):
		h.pages.NotFound(w, r)
	case errors.As(err, &userErr):
		h.pages.Redirect(w, r, h.idPath(id), "error", shared.UserSafeMessage(err))
	default:
		h.logger.Error("delete transaction", slog.Int64("id", id), slog.Any("error", err))
		h.pages.Redirect(w, r, h.idPath(id), "error", shared.UserSafeMessage(err))
	}
}
