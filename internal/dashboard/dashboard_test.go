package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/view"
	_ "github.com/ledgerline/ledgerline/testing"
)

type fakeRepo struct {
	loads     atomic.Int32
	threshold decimal.Decimal
	limit     int
}

func (f *fakeRepo) Counts(ctx context.Context) (Counts, error) {
	f.loads.Add(1)
	return Counts{Customers: 2, Vendors: 1, Items: 7, Sales: 3, Purchases: 4}, nil
}

func (f *fakeRepo) RecentSales(ctx context.Context, limit int) ([]RecentTransaction, error) {
	return []RecentTransaction{{
		ID:        3,
		Number:    "SALE-20260110-0003",
		PartyName: "Sita Stores",
		PostedAt:  time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		Total:     decimal.RequireFromString("16.95"),
	}}, nil
}

func (f *fakeRepo) RecentPurchases(ctx context.Context, limit int) ([]RecentTransaction, error) {
	return nil, nil
}

func (f *fakeRepo) LowStock(ctx context.Context, threshold decimal.Decimal, limit int) ([]LowStockItem, error) {
	f.threshold = threshold
	f.limit = limit
	return []LowStockItem{{ID: 5, SN: "SN-5", Product: "Rice 5kg", UOM: "bag", CurrentQty: decimal.NewFromInt(2)}}, nil
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute, nil), mr
}

func TestOverviewLoadsAndCaches(t *testing.T) {
	repo := &fakeRepo{}
	cache, _ := newCache(t)
	svc := NewService(repo, cache, decimal.Zero)
	ctx := context.Background()

	first, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, first.Counts.Items)
	require.Len(t, first.RecentSales, 1)
	assert.True(t, decimal.RequireFromString("16.95").Equal(first.RecentSales[0].Total))
	assert.True(t, DefaultThreshold.Equal(repo.threshold))
	assert.Equal(t, RecentLimit, repo.limit)
	require.Len(t, first.LowStock, 1)

	second, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.loads.Load())
	assert.Equal(t, first.Counts, second.Counts)

	cache.ObservePosting("sale", "create", "rejected")
	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.loads.Load())

	cache.ObservePosting("sale", "create", "success")
	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.loads.Load())

	cache.ObserveImport(0, 3, 0)
	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.loads.Load())
}

func TestOverviewWithoutCache(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil, decimal.NewFromInt(3))

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)
	_, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.loads.Load())
	assert.True(t, decimal.NewFromInt(3).Equal(repo.threshold))
}

func TestDashboardPage(t *testing.T) {
	engine, err := view.NewEngine()
	require.NoError(t, err)
	pages := view.NewResponder(engine, shared.NewCSRFManager("secret"), nil)
	h := NewHandler(nil, NewService(&fakeRepo{}, nil, decimal.Zero), pages, rbac.Middleware{})

	allowed := shared.Principal{UserID: 1, Permissions: []string{shared.PermDashboardView}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), allowed))
	rr := httptest.NewRecorder()
	h.Show(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Sita Stores")
	assert.Contains(t, body, "Rice 5kg")
	assert.Contains(t, body, "16.95")
}
