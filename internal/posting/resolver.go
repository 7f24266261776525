package posting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultProduct = "Unnamed Item"
	defaultUOM     = "pcs"
)

// ResolvedLine is a validated line. Exactly one of Existing and New is set:
// Existing for a line that references a stored item, New for a purchase line
// that materialises a fresh item.
type ResolvedLine struct {
	Existing  *StockItem
	New       *NewItem
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// IsNew reports whether the line creates an item.
func (l ResolvedLine) IsNew() bool { return l.New != nil }

// LineQuantity implements Pricer.
func (l ResolvedLine) LineQuantity() decimal.Decimal { return l.Quantity }

// LineUnitPrice implements Pricer.
func (l ResolvedLine) LineUnitPrice() decimal.Decimal { return l.UnitPrice }

// ItemLocker loads items by id, locking the rows for the rest of the unit of work.
// Unknown ids are absent from the result.
type ItemLocker interface {
	LockItems(ctx context.Context, ids []int64) (map[int64]StockItem, error)
}

// SerialFunc generates an item serial number.
type SerialFunc func(now time.Time) string

// NewSerial returns SN-<yyyymmddHHMMSS>-<5 uppercase hex chars>.
func NewSerial(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "SN-" + now.UTC().Format("20060102150405") + "-" + strings.ToUpper(hex[:5])
}

// Resolver turns raw lines into ResolvedLine values.
type Resolver struct {
	serial SerialFunc
	now    func() time.Time
}

// NewResolver builds a Resolver. Nil arguments fall back to NewSerial and time.Now.
func NewResolver(serial SerialFunc, now func() time.Time) Resolver {
	if serial == nil {
		serial = NewSerial
	}
	if now == nil {
		now = time.Now
	}
	return Resolver{serial: serial, now: now}
}

// Resolution is the outcome of Resolve: the lines in submission order, the
// locked existing items by id and the serials handed out so far.
type Resolution struct {
	Lines   []ResolvedLine
	Items   map[int64]StockItem
	serials map[string]struct{}
}

type parsedLine struct {
	itemID    int64
	hasItemID bool
	qty       decimal.Decimal
	price     decimal.Decimal
	raw       RawLine
}

// Resolve validates every line before touching the store, then loads and locks
// the referenced items. Sale lines must reference an existing item; purchase
// lines without a resolvable item become New lines.
func (r Resolver) Resolve(ctx context.Context, kind Kind, raw []RawLine, items ItemLocker) (*Resolution, error) {
	if len(raw) == 0 {
		return nil, ErrNoLines
	}
	parsed := make([]parsedLine, 0, len(raw))
	ids := make([]int64, 0, len(raw))
	for i, line := range raw {
		p, err := parseLine(kind, i+1, line)
		if err != nil {
			return nil, err
		}
		if p.hasItemID {
			ids = append(ids, p.itemID)
		}
		parsed = append(parsed, p)
	}

	found := map[int64]StockItem{}
	if len(ids) > 0 {
		var err error
		found, err = items.LockItems(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("posting: lock items: %w", err)
		}
	}

	res := &Resolution{
		Lines:   make([]ResolvedLine, 0, len(parsed)),
		Items:   found,
		serials: make(map[string]struct{}),
	}
	for i, p := range parsed {
		if p.hasItemID {
			if item, ok := found[p.itemID]; ok {
				item := item
				res.Lines = append(res.Lines, ResolvedLine{Existing: &item, Quantity: p.qty, UnitPrice: p.price})
				continue
			}
		}
		if kind == KindSale {
			return nil, &LineError{Line: i + 1, Field: "item_id", Err: ErrItemNotFound}
		}
		item := r.newItem(p, res.serials)
		res.Lines = append(res.Lines, ResolvedLine{New: &item, Quantity: p.qty, UnitPrice: p.price})
	}
	return res, nil
}

// Reserial replaces the serial of a new item after the store reported a collision.
func (r Resolver) Reserial(res *Resolution, item *NewItem) {
	item.SN = r.uniqueSerial(res.serials)
}

func parseLine(kind Kind, n int, line RawLine) (parsedLine, error) {
	p := parsedLine{raw: line}
	rawID := strings.TrimSpace(line.ItemID)
	switch {
	case rawID == "" && kind == KindSale:
		return p, &LineError{Line: n, Field: "item_id", Err: ErrItemRequired}
	case rawID != "":
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			if kind == KindSale {
				return p, &LineError{Line: n, Field: "item_id", Err: ErrItemNotFound}
			}
		} else {
			p.itemID, p.hasItemID = id, true
		}
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(line.Quantity))
	if err != nil || !qty.IsPositive() || !fitsScale(qty, QuantityPlaces) {
		return p, &LineError{Line: n, Field: "quantity", Err: ErrInvalidLine}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(line.UnitPrice))
	if err != nil || price.IsNegative() || !fitsScale(price, MoneyPlaces) {
		return p, &LineError{Line: n, Field: "unit_price", Err: ErrInvalidLine}
	}
	p.qty, p.price = qty, price
	return p, nil
}

// fitsScale reports whether d is stored without rounding at the given places.
func fitsScale(d decimal.Decimal, places int32) bool {
	return d.Round(places).Equal(d)
}

func (r Resolver) newItem(p parsedLine, taken map[string]struct{}) NewItem {
	cost := optionalDecimal(p.raw.CostPrice, p.price)
	item := NewItem{
		Product:        firstNonEmpty(p.raw.Product, defaultProduct),
		Category:       strings.TrimSpace(p.raw.Category),
		Brand:          strings.TrimSpace(p.raw.Brand),
		UOM:            firstNonEmpty(p.raw.UOM, defaultUOM),
		CostPrice:      round2(cost),
		WholesalePrice: round2(cost),
		SellingPrice:   round2(optionalDecimal(p.raw.SellingPrice, p.price)),
		OpeningQty:     p.qty,
	}
	item.SN = r.uniqueSerial(taken)
	return item
}

func (r Resolver) uniqueSerial(taken map[string]struct{}) string {
	for {
		sn := r.serial(r.now())
		if _, dup := taken[sn]; !dup {
			taken[sn] = struct{}{}
			return sn
		}
	}
}

// optionalDecimal parses s, falling back when it is blank, malformed or negative.
func optionalDecimal(s string, fallback decimal.Decimal) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}

func firstNonEmpty(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
