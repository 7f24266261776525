package shared

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// DefaultLimit is the page size of list pages.
const DefaultLimit = 20

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
}

// ParseListFilters reads page, limit and search from the query string.
func ParseListFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = DefaultLimit
	}
	return ListFilters{Page: page, Limit: limit, Search: strings.TrimSpace(q.Get("search"))}
}

// Offset is the number of rows to skip.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Pagination builds page metadata for templates.
func (f ListFilters) Pagination(total int) shared.Pagination {
	return shared.NewPagination(f.Page, f.Limit, total)
}

// Option is an id/name pair used by select boxes.
type Option struct {
	ID   int64
	Name string
}

// URLID parses the {id} route parameter.
func URLID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
