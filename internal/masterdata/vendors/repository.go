package vendors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
)

// Repository persists vendors.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, v Vendor) (Vendor, error)
	Update(ctx context.Context, v Vendor) error
	Delete(ctx context.Context, id int64) error
	Options(ctx context.Context) ([]shared.Option, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a postgres-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const vendorColumns = `id, name, email, phone, address, balance, tax_number, discount_rate, vat_rate, excise_rate, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Address, &v.Balance, &v.TaxNumber,
		&v.DiscountRate, &v.VATRate, &v.ExciseRate, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	where := ""
	args := []any{}
	if filters.Search != "" {
		where = ` WHERE name ILIKE $1 OR email ILIKE $1 OR tax_number ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("vendors: count: %w", err)
	}

	query := `SELECT ` + vendorColumns + ` FROM vendors` + where +
		fmt.Sprintf(` ORDER BY name, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filters.Limit, filters.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("vendors: list: %w", err)
	}
	defer rows.Close()

	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	v, err := scanVendor(r.db.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.ErrNotFound
	}
	return v, err
}

func (r *repository) Create(ctx context.Context, v Vendor) (Vendor, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO vendors
(name, email, phone, address, balance, tax_number, discount_rate, vat_rate, excise_rate, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`,
		v.Name, v.Email, v.Phone, v.Address, v.Balance, v.TaxNumber, v.DiscountRate, v.VATRate, v.ExciseRate, now).Scan(&v.ID)
	if err != nil {
		return Vendor{}, fmt.Errorf("vendors: insert: %w", err)
	}
	v.CreatedAt, v.UpdatedAt = now, now
	return v, nil
}

func (r *repository) Update(ctx context.Context, v Vendor) error {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET name = $1, email = $2, phone = $3, address = $4, balance = $5,
tax_number = $6, discount_rate = $7, vat_rate = $8, excise_rate = $9, updated_at = $10 WHERE id = $11`,
		v.Name, v.Email, v.Phone, v.Address, v.Balance, v.TaxNumber, v.DiscountRate, v.VATRate, v.ExciseRate, time.Now(), v.ID)
	if err != nil {
		return fmt.Errorf("vendors: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("vendors: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Options(ctx context.Context) ([]shared.Option, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM vendors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("vendors: options: %w", err)
	}
	defer rows.Close()
	var out []shared.Option
	for rows.Next() {
		var o shared.Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
