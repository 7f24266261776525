package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

const snConstraint = "items_sn_key"

// Repository persists stock items.
type Repository interface {
	List(ctx context.Context, filters Filters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, item Item) error
	Delete(ctx context.Context, id int64) error
	Pickable(ctx context.Context, inStock bool) ([]Item, error)
	ImportStore
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const itemColumns = `id, sn, product, category, brand, uom, cp, wholesale, sp, opening_quantity, current_quantity, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.SN, &i.Product, &i.Category, &i.Brand, &i.UOM, &i.CostPrice, &i.WholesalePrice,
		&i.SellingPrice, &i.OpeningQty, &i.CurrentQty, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	defer rows.Close()
	var out []Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, filters Filters) ([]Item, int, error) {
	var conds []string
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conds = append(conds, fmt.Sprintf(`(sn ILIKE $%[1]d OR product ILIKE $%[1]d OR category ILIKE $%[1]d OR brand ILIKE $%[1]d)`, len(args)))
	}
	if filters.InStock {
		conds = append(conds, `current_quantity > 0`)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("items: count: %w", err)
	}

	lf := shared.ListFilters{Page: filters.Page, Limit: filters.Limit}
	query := `SELECT ` + itemColumns + ` FROM items` + where +
		fmt.Sprintf(` ORDER BY product, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filters.Limit, lf.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("items: list: %w", err)
	}
	out, err := collectItems(rows)
	return out, total, err
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	i, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.ErrNotFound
	}
	return i, err
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO items
(sn, product, category, brand, uom, cp, wholesale, sp, opening_quantity, current_quantity, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10, $10) RETURNING id`,
		item.SN, item.Product, item.Category, item.Brand, item.UOM, item.CostPrice, item.WholesalePrice,
		item.SellingPrice, item.OpeningQty, now).Scan(&item.ID)
	if err != nil {
		if db.IsUniqueViolation(err, snConstraint) {
			return Item{}, ErrDuplicateSN
		}
		return Item{}, fmt.Errorf("items: insert: %w", err)
	}
	item.CurrentQty = item.OpeningQty
	item.CreatedAt, item.UpdatedAt = now, now
	return item, nil
}

// Update never touches the quantity columns.
func (r *repository) Update(ctx context.Context, item Item) error {
	tag, err := r.db.Exec(ctx, `UPDATE items SET sn = $1, product = $2, category = $3, brand = $4, uom = $5,
cp = $6, wholesale = $7, sp = $8, updated_at = $9 WHERE id = $10`,
		item.SN, item.Product, item.Category, item.Brand, item.UOM, item.CostPrice, item.WholesalePrice,
		item.SellingPrice, time.Now(), item.ID)
	if err != nil {
		if db.IsUniqueViolation(err, snConstraint) {
			return ErrDuplicateSN
		}
		return fmt.Errorf("items: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return shared.ErrInUse
		}
		return fmt.Errorf("items: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Pickable(ctx context.Context, inStock bool) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	if inStock {
		query += ` WHERE current_quantity > 0`
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY product, id`)
	if err != nil {
		return nil, fmt.Errorf("items: pickable: %w", err)
	}
	return collectItems(rows)
}

func (r *repository) InsertImported(ctx context.Context, item Item) (bool, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO items
(sn, product, category, brand, uom, cp, wholesale, sp, opening_quantity, current_quantity, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, now(), now())
ON CONFLICT (sn) DO NOTHING RETURNING id`,
		item.SN, item.Product, item.Category, item.Brand, item.UOM, item.CostPrice, item.WholesalePrice,
		item.SellingPrice, item.OpeningQty).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("items: import insert: %w", err)
	}
	return true, nil
}
