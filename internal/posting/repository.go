package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Repository persists sales and purchases in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations a posting performs inside its unit of work.
type TxRepository interface {
	ItemLocker
	StockWriter
	CreateItem(ctx context.Context, item NewItem) (StockItem, error)
	LoadParty(ctx context.Context, kind Kind, id int64) (Party, error)
	NextNumber(ctx context.Context, prefix string, at time.Time) (string, error)
	InsertHeader(ctx context.Context, h Header) (int64, error)
	InsertLines(ctx context.Context, kind Kind, headerID int64, lines []Line) error
	LockHeader(ctx context.Context, kind Kind, id int64) (Header, error)
	DeleteHeader(ctx context.Context, kind Kind, id int64) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepo struct {
	tx pgx.Tx
}

// tables names the per-kind tables and columns. Values are constants, never input.
type tables struct {
	header     string
	number     string
	partyCol   string
	partyTable string
	lines      string
	linesFK    string
}

func tablesFor(kind Kind) tables {
	if kind == KindSale {
		return tables{"sales", "bill_number", "customer_id", "customers", "sale_items", "sale_id"}
	}
	return tables{"purchases", "invoice_number", "vendor_id", "vendors", "purchase_items", "purchase_id"}
}

// WithTx runs fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetHeader loads a posted header with its lines.
func (r *Repository) GetHeader(ctx context.Context, kind Kind, id int64) (Header, error) {
	return loadHeader(ctx, r.pool, kind, id, false)
}

// ListHeaders returns one page of headers, newest first, and the total count.
func (r *Repository) ListHeaders(ctx context.Context, kind Kind, filter ListFilter) ([]Header, int, error) {
	t := tablesFor(kind)
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+t.header).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("posting: count %s: %w", t.header, err)
	}
	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	rows, err := r.pool.Query(ctx, headerSelect(t)+` ORDER BY h.posted_at DESC, h.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("posting: list %s: %w", t.header, err)
	}
	defer rows.Close()
	var out []Header
	for rows.Next() {
		h, err := scanHeader(rows, kind)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, h)
	}
	return out, total, rows.Err()
}

func headerSelect(t tables) string {
	return fmt.Sprintf(`SELECT h.id, h.%[2]s, h.%[3]s, COALESCE(p.name, ''), h.posted_at,
       h.subtotal_amount, h.discount, h.taxable_amount, h.vat_amount, h.excise_amount, h.total_amount,
       h.vat_enabled, h.excise_enabled, h.notes, COALESCE(h.created_by, 0), h.created_at
FROM %[1]s h
LEFT JOIN %[4]s p ON p.id = h.%[3]s`, t.header, t.number, t.partyCol, t.partyTable)
}

func scanHeader(row pgx.Row, kind Kind) (Header, error) {
	h := Header{Kind: kind}
	err := row.Scan(&h.ID, &h.Number, &h.PartyID, &h.PartyName, &h.PostedAt,
		&h.Amounts.Subtotal, &h.Amounts.Discount, &h.Amounts.Taxable, &h.Amounts.VAT, &h.Amounts.Excise, &h.Amounts.Total,
		&h.VATEnabled, &h.ExciseEnabled, &h.Notes, &h.CreatedBy, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Header{}, ErrNotFound
		}
		return Header{}, err
	}
	return h, nil
}

func loadHeader(ctx context.Context, q querier, kind Kind, id int64, lock bool) (Header, error) {
	t := tablesFor(kind)
	sql := headerSelect(t) + ` WHERE h.id = $1`
	if lock {
		sql += ` FOR UPDATE OF h`
	}
	h, err := scanHeader(q.QueryRow(ctx, sql, id), kind)
	if err != nil {
		return Header{}, err
	}

	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT l.id, l.%[2]s, l.item_id, i.sn, i.product, i.uom,
       l.quantity, l.unit_price, l.total_price, l.vat_enabled, l.excise_enabled
FROM %[1]s l
JOIN items i ON i.id = l.item_id
WHERE l.%[2]s = $1
ORDER BY l.id`, t.lines, t.linesFK), id)
	if err != nil {
		return Header{}, fmt.Errorf("posting: load lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.HeaderID, &l.ItemID, &l.ItemSN, &l.Product, &l.UOM,
			&l.Quantity, &l.UnitPrice, &l.Total, &l.VATEnabled, &l.ExciseEnabled); err != nil {
			return Header{}, err
		}
		h.Lines = append(h.Lines, l)
	}
	return h, rows.Err()
}

func (r *txRepo) LockItems(ctx context.Context, ids []int64) (map[int64]StockItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, sn, product, category, brand, uom, cp, wholesale, sp, opening_quantity, current_quantity
FROM items
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]StockItem, len(ids))
	for rows.Next() {
		var it StockItem
		if err := rows.Scan(&it.ID, &it.SN, &it.Product, &it.Category, &it.Brand, &it.UOM,
			&it.CostPrice, &it.WholesalePrice, &it.SellingPrice, &it.OpeningQty, &it.CurrentQty); err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func (r *txRepo) CreateItem(ctx context.Context, item NewItem) (StockItem, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO items (sn, product, category, brand, uom, cp, wholesale, sp, opening_quantity, current_quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
ON CONFLICT (sn) DO NOTHING
RETURNING id`, item.SN, item.Product, item.Category, item.Brand, item.UOM,
		item.CostPrice, item.WholesalePrice, item.SellingPrice, item.OpeningQty).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrSerialTaken
		}
		return StockItem{}, err
	}
	return StockItem{
		ID:             id,
		SN:             item.SN,
		Product:        item.Product,
		Category:       item.Category,
		Brand:          item.Brand,
		UOM:            item.UOM,
		CostPrice:      item.CostPrice,
		WholesalePrice: item.WholesalePrice,
		SellingPrice:   item.SellingPrice,
		OpeningQty:     item.OpeningQty,
		CurrentQty:     decimal.Zero,
	}, nil
}

func (r *txRepo) SetItemQuantity(ctx context.Context, itemID int64, qty decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE items SET current_quantity = $2, updated_at = NOW() WHERE id = $1`, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepo) LoadParty(ctx context.Context, kind Kind, id int64) (Party, error) {
	var p Party
	var err error
	if kind == KindPurchase {
		err = r.tx.QueryRow(ctx, `SELECT id, name, excise_rate FROM vendors WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.ExciseRate)
	} else {
		err = r.tx.QueryRow(ctx, `SELECT id, name FROM customers WHERE id = $1`, id).Scan(&p.ID, &p.Name)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, ErrPartyNotFound
	}
	return p, err
}

func (r *txRepo) NextNumber(ctx context.Context, prefix string, at time.Time) (string, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO document_sequences (prefix, period, last_value)
VALUES ($1, $2, 1)
ON CONFLICT (prefix, period) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, prefix, numberPeriod(at)).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("posting: next number: %w", err)
	}
	return FormatNumber(prefix, at, seq), nil
}

func (r *txRepo) InsertHeader(ctx context.Context, h Header) (int64, error) {
	t := tablesFor(h.Kind)
	var createdBy *int64
	if h.CreatedBy > 0 {
		createdBy = &h.CreatedBy
	}
	var id int64
	err := r.tx.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (%s, %s, posted_at, subtotal_amount, discount, taxable_amount,
    vat_amount, excise_amount, total_amount, vat_enabled, excise_enabled, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`, t.header, t.number, t.partyCol),
		h.Number, h.PartyID, h.PostedAt, h.Amounts.Subtotal, h.Amounts.Discount, h.Amounts.Taxable,
		h.Amounts.VAT, h.Amounts.Excise, h.Amounts.Total, h.VATEnabled, h.ExciseEnabled, h.Notes, createdBy).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case db.IsUniqueViolation(err, t.header+"_"+t.number+"_key"):
		return 0, ErrDuplicateNumber
	case db.IsForeignKeyViolation(err):
		return 0, ErrPartyNotFound
	default:
		return 0, fmt.Errorf("posting: insert %s: %w", t.header, err)
	}
}

func (r *txRepo) InsertLines(ctx context.Context, kind Kind, headerID int64, lines []Line) error {
	t := tablesFor(kind)
	sql := fmt.Sprintf(`INSERT INTO %s (%s, item_id, quantity, unit_price, total_price, vat_enabled, excise_enabled)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, t.lines, t.linesFK)
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(sql, headerID, l.ItemID, l.Quantity, l.UnitPrice, l.Total, l.VATEnabled, l.ExciseEnabled)
	}
	if err := r.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("posting: insert lines: %w", err)
	}
	return nil
}

func (r *txRepo) LockHeader(ctx context.Context, kind Kind, id int64) (Header, error) {
	return loadHeader(ctx, r.tx, kind, id, true)
}

func (r *txRepo) DeleteHeader(ctx context.Context, kind Kind, id int64) error {
	t := tablesFor(kind)
	tag, err := r.tx.Exec(ctx, "DELETE FROM "+t.header+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("posting: delete %s: %w", t.header, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
