package items

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/posting"
	"github.com/ledgerline/ledgerline/internal/rbac"
	core "github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/view"
)

// ImportQueue hands saved workbooks to the background worker.
type ImportQueue interface {
	EnqueueItemImport(ctx context.Context, path string, actorID int64) error
}

// Handler serves the item pages, the import form and the JSON lookups.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	importer  *Importer
	pages     *view.Responder
	rbac      rbac.Middleware
	queue     ImportQueue
	uploadDir string
}

// NewHandler constructs a Handler that imports workbooks inline.
func NewHandler(logger *slog.Logger, service *Service, importer *Importer, pages *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, importer: importer, pages: pages, rbac: rbac}
}

// WithQueue makes uploads go through the worker. Files are saved under dir.
func (h *Handler) WithQueue(queue ImportQueue, dir string) *Handler {
	h.queue = queue
	h.uploadDir = dir
	return h
}

type formPage struct {
	ID     int64
	Item   *Item
	Form   Input
	Errors map[string]string
}

type importPage struct {
	Report *ImportReport
	Error  string
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	lf := shared.ParseListFilters(r)
	filters := Filters{Page: lf.Page, Limit: lf.Limit, Search: lf.Search, InStock: r.URL.Query().Get("in_stock") == "1"}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/items/item_list.html", "Items", map[string]any{
		"Items":      items,
		"Filters":    filters,
		"Pagination": lf.Pagination(total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/items/item_detail.html", item.Product, item)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.pages.Page(w, r, http.StatusOK, "pages/items/item_form.html", "New item", formPage{
		Form:   Input{UOM: defaultUOM},
		Errors: map[string]string{},
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.formError(w, r, formPage{Form: in}, "New item", err)
		return
	}
	h.logger.Info("item created", slog.Int64("item_id", created.ID), slog.String("sn", created.SN))
	h.pages.Redirect(w, r, "/items/"+strconv.FormatInt(created.ID, 10), "success", "Item created.")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/items/item_form.html", "Edit item", formPage{
		ID:     item.ID,
		Item:   &item,
		Form:   InputFrom(item),
		Errors: map[string]string{},
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), item.ID, in); err != nil {
		h.formError(w, r, formPage{ID: item.ID, Item: &item, Form: in}, "Edit item", err)
		return
	}
	h.pages.Redirect(w, r, "/items/"+strconv.FormatInt(item.ID, 10), "success", "Item updated.")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return
	}
	err = h.service.Delete(r.Context(), id)
	switch {
	case err == nil:
		h.pages.Redirect(w, r, "/items", "success", "Item deleted.")
	case errors.Is(err, shared.ErrNotFound):
		h.pages.NotFound(w, r)
	case errors.Is(err, shared.ErrInUse):
		h.pages.Redirect(w, r, "/items/"+strconv.FormatInt(id, 10), "error", core.UserSafeMessage(err))
	default:
		h.logger.Error("delete item", slog.Int64("item_id", id), slog.Any("error", err))
		h.pages.Redirect(w, r, "/items", "error", "Could not delete the item.")
	}
}

func (h *Handler) ImportForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Page(w, r, http.StatusOK, "pages/items/item_import.html", "Import items", importPage{})
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.importError(w, r, http.StatusRequestEntityTooLarge, ErrUploadTooLarge)
			return
		}
		h.importError(w, r, http.StatusBadRequest, shared.NewUserError("items: bad upload", "Choose an .xlsx file to upload."))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.importError(w, r, http.StatusBadRequest, shared.NewUserError("items: no file", "Choose an .xlsx file to upload."))
		return
	}
	defer file.Close()
	if header.Size > MaxUploadSize {
		h.importError(w, r, http.StatusRequestEntityTooLarge, ErrUploadTooLarge)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		h.importError(w, r, http.StatusUnprocessableEntity, shared.NewUserError("items: not xlsx", "Only .xlsx workbooks can be imported."))
		return
	}

	if h.queue != nil {
		h.enqueue(w, r, file)
		return
	}

	report, err := h.importer.Import(r.Context(), file)
	if err != nil {
		var ue core.UserError
		if errors.As(err, &ue) {
			h.importError(w, r, http.StatusUnprocessableEntity, err)
			return
		}
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Page(w, r, http.StatusOK, "pages/items/item_import.html", "Import items", importPage{Report: &report})
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, file io.Reader) {
	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		h.pages.ServerError(w, r, fmt.Errorf("items: create upload dir: %w", err))
		return
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+".xlsx")
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		h.pages.ServerError(w, r, fmt.Errorf("items: save upload: %w", err))
		return
	}
	_, err = io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		h.pages.ServerError(w, r, fmt.Errorf("items: save upload: %w", err))
		return
	}

	p, _ := core.PrincipalFromContext(r.Context())
	if err := h.queue.EnqueueItemImport(r.Context(), path, p.UserID); err != nil {
		_ = os.Remove(path)
		h.pages.ServerError(w, r, err)
		return
	}
	h.logger.Info("item import queued", slog.String("path", path), slog.Int64("user_id", p.UserID))
	h.pages.Redirect(w, r, "/items", "info", "Import queued. New items will appear shortly.")
}

func (h *Handler) importError(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.pages.Page(w, r, status, "pages/items/item_import.html", "Import items", importPage{Error: core.UserSafeMessage(err)})
}

type itemJSON struct {
	ID              int64       `json:"id"`
	Product         string      `json:"product"`
	SP              json.Number `json:"sp"`
	CurrentQuantity json.Number `json:"current_quantity"`
	UOM             string      `json:"uom"`
}

type pickerJSON struct {
	itemJSON
	SN string `json:"sn"`
}

func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(posting.MoneyPlaces))
}

func jsonQuantity(d decimal.Decimal) json.Number {
	return json.Number(d.Round(posting.QuantityPlaces).String())
}

func toJSON(i Item) itemJSON {
	return itemJSON{
		ID:              i.ID,
		Product:         i.Product,
		SP:              jsonNumber(i.SellingPrice),
		CurrentQuantity: jsonQuantity(i.CurrentQty),
		UOM:             i.UOM,
	}
}

var apiErrors = map[error]error{
	shared.ErrNotFound:  httpx.ErrNotFound,
	shared.ErrInvalidID: httpx.ErrNotFound,
}

// LookupJSON answers GET /api/item/{id}.
func (h *Handler) LookupJSON(w http.ResponseWriter, r *http.Request) {
	id, err := shared.URLID(r)
	if err != nil {
		httpx.RespondError(w, httpx.Classify(err, apiErrors))
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("lookup item", slog.Int64("item_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, httpx.Classify(err, apiErrors))
		return
	}
	httpx.JSON(w, http.StatusOK, toJSON(item))
}

// PickerJSON answers GET /api/items, optionally limited to items in stock.
func (h *Handler) PickerJSON(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Pickable(r.Context(), r.URL.Query().Get("in_stock") == "1")
	if err != nil {
		h.logger.Error("list pickable items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]pickerJSON, 0, len(items))
	for _, i := range items {
		out = append(out, pickerJSON{itemJSON: toJSON(i), SN: i.SN})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Item, bool) {
	id, err := shared.URLID(r)
	if err != nil {
		h.pages.NotFound(w, r)
		return Item{}, false
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.pages.NotFound(w, r)
		} else {
			h.pages.ServerError(w, r, err)
		}
		return Item{}, false
	}
	return item, true
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		SN:             r.PostFormValue("sn"),
		Product:        r.PostFormValue("product"),
		Category:       r.PostFormValue("category"),
		Brand:          r.PostFormValue("brand"),
		UOM:            r.PostFormValue("uom"),
		CostPrice:      r.PostFormValue("cp"),
		WholesalePrice: r.PostFormValue("wholesale"),
		SellingPrice:   r.PostFormValue("sp"),
		OpeningQty:     r.PostFormValue("opening_quantity"),
	}, true
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, page formPage, title string, err error) {
	var ve *shared.ValidationError
	switch {
	case errors.As(err, &ve):
		page.Errors = ve.Fields
		h.pages.Page(w, r, http.StatusUnprocessableEntity, "pages/items/item_form.html", title, page)
	case errors.Is(err, ErrDuplicateSN):
		page.Errors = map[string]string{"sn": core.UserSafeMessage(err)}
		h.pages.Page(w, r, http.StatusUnprocessableEntity, "pages/items/item_form.html", title, page)
	case errors.Is(err, shared.ErrNotFound):
		h.pages.NotFound(w, r)
	default:
		h.pages.ServerError(w, r, err)
	}
}
