package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads the dashboard figures.
type Repository interface {
	Counts(ctx context.Context) (Counts, error)
	RecentSales(ctx context.Context, limit int) ([]RecentTransaction, error)
	RecentPurchases(ctx context.Context, limit int) ([]RecentTransaction, error)
	LowStock(ctx context.Context, threshold decimal.Decimal, limit int) ([]LowStockItem, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `SELECT
    (SELECT COUNT(*) FROM customers),
    (SELECT COUNT(*) FROM vendors),
    (SELECT COUNT(*) FROM items),
    (SELECT COUNT(*) FROM sales),
    (SELECT COUNT(*) FROM purchases)`).Scan(&c.Customers, &c.Vendors, &c.Items, &c.Sales, &c.Purchases)
	if err != nil {
		return Counts{}, fmt.Errorf("dashboard: counts: %w", err)
	}
	return c, nil
}

func (r *repository) RecentSales(ctx context.Context, limit int) ([]RecentTransaction, error) {
	return r.recent(ctx, `SELECT s.id, s.bill_number, COALESCE(c.name, ''), s.posted_at, s.total_amount
FROM sales s
LEFT JOIN customers c ON c.id = s.customer_id
ORDER BY s.posted_at DESC, s.id DESC
LIMIT $1`, limit)
}

func (r *repository) RecentPurchases(ctx context.Context, limit int) ([]RecentTransaction, error) {
	return r.recent(ctx, `SELECT p.id, p.invoice_number, COALESCE(v.name, ''), p.posted_at, p.total_amount
FROM purchases p
LEFT JOIN vendors v ON v.id = p.vendor_id
ORDER BY p.posted_at DESC, p.id DESC
LIMIT $1`, limit)
}

func (r *repository) recent(ctx context.Context, sql string, limit int) ([]RecentTransaction, error) {
	rows, err := r.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: recent: %w", err)
	}
	defer rows.Close()
	var out []RecentTransaction
	for rows.Next() {
		var t RecentTransaction
		if err := rows.Scan(&t.ID, &t.Number, &t.PartyName, &t.PostedAt, &t.Total); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) LowStock(ctx context.Context, threshold decimal.Decimal, limit int) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sn, product, uom, current_quantity
FROM items
WHERE current_quantity < $1
ORDER BY current_quantity, product
LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: low stock: %w", err)
	}
	defer rows.Close()
	var out []LowStockItem
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ID, &it.SN, &it.Product, &it.UOM, &it.CurrentQty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
