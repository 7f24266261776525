package customers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/rbac"
	core "github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/view"
	_ "github.com/ledgerline/ledgerline/testing"
)

type memoryRepo struct {
	rows   map[int64]Customer
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[int64]Customer{}}
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.rows {
		if filters.Search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(filters.Search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := m.rows[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c Customer) error {
	if _, ok := m.rows[c.ID]; !ok {
		return shared.ErrNotFound
	}
	m.rows[c.ID] = c
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryRepo) Options(ctx context.Context) ([]shared.Option, error) {
	var out []shared.Option
	for _, c := range m.rows {
		out = append(out, shared.Option{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func TestServiceValidatesInput(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "  ", Email: "nope", Balance: "abc"})
	fields := shared.FieldErrors(err)
	require.Equal(t, "This field is required.", fields["name"])
	require.Equal(t, "Enter a valid email address.", fields["email"])
	require.Equal(t, "Enter a number.", fields["balance"])
	require.Equal(t, "Please correct the highlighted fields.", core.UserSafeMessage(err))

	created, err := svc.Create(ctx, Input{Name: " Ram Traders ", Email: "ram@example.com", Balance: "1250.456"})
	require.NoError(t, err)
	require.Equal(t, "Ram Traders", created.Name)
	require.True(t, decimal.RequireFromString("1250.46").Equal(created.Balance))

	require.ErrorIs(t, svc.Update(ctx, 99, Input{Name: "Ghost"}), shared.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 0), shared.ErrInvalidID)
}

func newTestRouter(t *testing.T, svc *Service, perms ...string) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	pages := view.NewResponder(engine, core.NewCSRFManager("secret"), nil)
	h := NewHandler(nil, svc, pages, rbac.Middleware{})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := core.Principal{UserID: 1, Email: "clerk@example.com", Permissions: perms}
			next.ServeHTTP(w, req.WithContext(core.ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/customers", h.MountRoutes)
	return r
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandlerCreateAndList(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, NewService(repo), core.PermPartiesView, core.PermPartiesEdit)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, postForm("/customers", url.Values{"name": {""}, "email": {"bad"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "This field is required.")
	require.Empty(t, repo.rows)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, postForm("/customers", url.Values{"name": {"Sita Stores"}, "phone": {"9800000000"}}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/customers/1", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Sita Stores")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/42", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, postForm("/customers/1/delete", url.Values{}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Empty(t, repo.rows)
}

func TestHandlerRequiresEditPermission(t *testing.T) {
	router := newTestRouter(t, NewService(newMemoryRepo()), core.PermPartiesView)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, postForm("/customers", url.Values{"name": {"Blocked"}}))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
