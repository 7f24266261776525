package posting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/shared"
	_ "github.com/ledgerline/ledgerline/testing"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type memoryState struct {
	items   map[int64]StockItem
	headers map[Kind]map[int64]Header
	seq     map[string]int64
	nextID  int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		items:   make(map[int64]StockItem, len(s.items)),
		headers: map[Kind]map[int64]Header{},
		seq:     make(map[string]int64, len(s.seq)),
		nextID:  s.nextID,
	}
	for k, v := range s.items {
		out.items[k] = v
	}
	for kind, hs := range s.headers {
		out.headers[kind] = make(map[int64]Header, len(hs))
		for id, h := range hs {
			h.Lines = append([]Line(nil), h.Lines...)
			out.headers[kind][id] = h
		}
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	return out
}

type memoryRepo struct {
	state     memoryState
	parties   map[Kind]map[int64]Party
	takenSN   map[string]bool
	lastWrite int
}

type memoryTx struct {
	repo   *memoryRepo
	writes int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		state: memoryState{
			items:   map[int64]StockItem{},
			headers: map[Kind]map[int64]Header{KindSale: {}, KindPurchase: {}},
			seq:     map[string]int64{},
			nextID:  100,
		},
		parties: map[Kind]map[int64]Party{KindSale: {}, KindPurchase: {}},
		takenSN: map[string]bool{},
	}
}

func (r *memoryRepo) addItem(id int64, product, qty, sp string) {
	r.state.items[id] = StockItem{
		ID:           id,
		SN:           fmt.Sprintf("SN-%d", id),
		Product:      product,
		UOM:          "pcs",
		SellingPrice: decimal.RequireFromString(sp),
		OpeningQty:   decimal.RequireFromString(qty),
		CurrentQty:   decimal.RequireFromString(qty),
	}
	r.takenSN[fmt.Sprintf("SN-%d", id)] = true
}

func (r *memoryRepo) qty(id int64) string {
	return r.state.items[id].CurrentQty.StringFixed(2)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := r.state.clone()
	taken := make(map[string]bool, len(r.takenSN))
	for k, v := range r.takenSN {
		taken[k] = v
	}
	tx := &memoryTx{repo: r}
	err := fn(ctx, tx)
	r.lastWrite = tx.writes
	if err != nil {
		r.state = before
		r.takenSN = taken
	}
	return err
}

func (r *memoryRepo) GetHeader(ctx context.Context, kind Kind, id int64) (Header, error) {
	h, ok := r.state.headers[kind][id]
	if !ok {
		return Header{}, ErrNotFound
	}
	return h, nil
}

func (r *memoryRepo) ListHeaders(ctx context.Context, kind Kind, filter ListFilter) ([]Header, int, error) {
	var out []Header
	for _, h := range r.state.headers[kind] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (tx *memoryTx) LockItems(ctx context.Context, ids []int64) (map[int64]StockItem, error) {
	out := map[int64]StockItem{}
	for _, id := range ids {
		if it, ok := tx.repo.state.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (tx *memoryTx) SetItemQuantity(ctx context.Context, itemID int64, qty decimal.Decimal) error {
	tx.writes++
	it, ok := tx.repo.state.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	it.CurrentQty = qty
	tx.repo.state.items[itemID] = it
	return nil
}

func (tx *memoryTx) CreateItem(ctx context.Context, item NewItem) (StockItem, error) {
	if tx.repo.takenSN[item.SN] {
		return StockItem{}, ErrSerialTaken
	}
	tx.writes++
	tx.repo.state.nextID++
	stored := StockItem{
		ID:             tx.repo.state.nextID,
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
	}
	tx.repo.state.items[stored.ID] = stored
	tx.repo.takenSN[item.SN] = true
	return stored, nil
}

func (tx *memoryTx) LoadParty(ctx context.Context, kind Kind, id int64) (Party, error) {
	p, ok := tx.repo.parties[kind][id]
	if !ok {
		return Party{}, ErrPartyNotFound
	}
	return p, nil
}

func (tx *memoryTx) NextNumber(ctx context.Context, prefix string, at time.Time) (string, error) {
	key := prefix + numberPeriod(at)
	tx.repo.state.seq[key]++
	return FormatNumber(prefix, at, tx.repo.state.seq[key]), nil
}

func (tx *memoryTx) InsertHeader(ctx context.Context, h Header) (int64, error) {
	for _, existing := range tx.repo.state.headers[h.Kind] {
		if existing.Number == h.Number {
			return 0, ErrDuplicateNumber
		}
	}
	tx.writes++
	tx.repo.state.nextID++
	h.ID = tx.repo.state.nextID
	h.Lines = nil
	tx.repo.state.headers[h.Kind][h.ID] = h
	return h.ID, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, kind Kind, headerID int64, lines []Line) error {
	tx.writes++
	h := tx.repo.state.headers[kind][headerID]
	for _, l := range lines {
		l.HeaderID = headerID
		h.Lines = append(h.Lines, l)
	}
	tx.repo.state.headers[kind][headerID] = h
	return nil
}

func (tx *memoryTx) LockHeader(ctx context.Context, kind Kind, id int64) (Header, error) {
	return tx.repo.GetHeader(ctx, kind, id)
}

func (tx *memoryTx) DeleteHeader(ctx context.Context, kind Kind, id int64) error {
	if _, ok := tx.repo.state.headers[kind][id]; !ok {
		return ErrNotFound
	}
	tx.writes++
	delete(tx.repo.state.headers[kind], id)
	return nil
}

type memoryIdem struct {
	keys map[string]string
}

func (m *memoryIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = module
	return nil
}

func (m *memoryIdem) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (m *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) ObservePosting(kind, op, outcome string) {
	o.calls = append(o.calls, kind+"/"+op+"/"+outcome)
}

func counterSerial() SerialFunc {
	n := 0
	return func(time.Time) string {
		n++
		return fmt.Sprintf("SN-TEST-%04d", n)
	}
}

type fixture struct {
	repo     *memoryRepo
	idem     *memoryIdem
	audit    *memoryAudit
	observer *recordingObserver
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemoryRepo(),
		idem:     &memoryIdem{keys: map[string]string{}},
		audit:    &memoryAudit{},
		observer: &recordingObserver{},
	}
	f.svc = NewService(f.repo, f.audit, f.idem, ServiceConfig{
		Now:      func() time.Time { return fixedNow },
		Serial:   counterSerial(),
		Observer: f.observer,
	})
	return f
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Equal(t, want, got.StringFixed(2))
}

func TestPostSaleAndDeleteRestoresStock(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "10", "5.00")
	ctx := context.Background()

	res, err := f.svc.PostSale(ctx, SaleInput{
		VATEnabled: true,
		Lines:      []RawLine{{ItemID: "1", Quantity: "3", UnitPrice: "5.00"}},
		ActorID:    7,
	})
	require.NoError(t, err)
	h := res.Header
	requireAmount(t, "15.00", h.Amounts.Subtotal)
	requireAmount(t, "15.00", h.Amounts.Taxable)
	requireAmount(t, "1.95", h.Amounts.VAT)
	requireAmount(t, "0.00", h.Amounts.Excise)
	requireAmount(t, "16.95", h.Amounts.Total)
	require.Equal(t, "SALE-20260301-0001", h.Number)
	require.Equal(t, "7.00", f.repo.qty(1))
	require.Len(t, h.Lines, 1)
	require.True(t, h.Lines[0].VATEnabled)
	require.False(t, h.Lines[0].ExciseEnabled)
	requireAmount(t, "15.00", h.Lines[0].Total)
	require.Empty(t, res.CreatedItems)

	stored, err := f.svc.GetSale(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)

	require.NoError(t, f.svc.DeleteSale(ctx, h.ID, 7))
	require.Equal(t, "10.00", f.repo.qty(1))
	_, err = f.svc.GetSale(ctx, h.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.Len(t, f.audit.logs, 2)
	require.Equal(t, "sale.posted", f.audit.logs[0].Action)
	require.Equal(t, "sale.deleted", f.audit.logs[1].Action)
	require.Equal(t, []string{"sale/create/success", "sale/delete/success"}, f.observer.calls)
}

func TestFractionalSaleRoundTripsExactly(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "10", "1.33")
	ctx := context.Background()

	res, err := f.svc.PostSale(ctx, SaleInput{
		Lines: []RawLine{
			{ItemID: "1", Quantity: "2.125", UnitPrice: "1.33"},
			{ItemID: "1", Quantity: "1.5", UnitPrice: "0.33"},
		},
	})
	require.NoError(t, err)
	h := res.Header
	requireAmount(t, "2.83", h.Lines[0].Total)
	requireAmount(t, "0.50", h.Lines[1].Total)
	require.True(t, h.Amounts.Subtotal.Equal(h.Lines[0].Total.Add(h.Lines[1].Total)))
	requireAmount(t, "3.33", h.Amounts.Subtotal)
	require.True(t, decimal.RequireFromString("6.375").Equal(f.repo.state.items[1].CurrentQty))

	require.NoError(t, f.svc.DeleteSale(ctx, h.ID, 0))
	require.True(t, decimal.NewFromInt(10).Equal(f.repo.state.items[1].CurrentQty))
}

func TestPostSaleNumbersIncrementPerDay(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "10", "5.00")
	ctx := context.Background()

	line := []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "5"}}
	first, err := f.svc.PostSale(ctx, SaleInput{Lines: line})
	require.NoError(t, err)
	second, err := f.svc.PostSale(ctx, SaleInput{Lines: line})
	require.NoError(t, err)
	next, err := f.svc.PostSale(ctx, SaleInput{Lines: line, PostedAt: fixedNow.Add(24 * time.Hour)})
	require.NoError(t, err)

	require.Equal(t, "SALE-20260301-0001", first.Header.Number)
	require.Equal(t, "SALE-20260301-0002", second.Header.Number)
	require.Equal(t, "SALE-20260302-0001", next.Header.Number)
}

func TestPostSaleInsufficientStockWritesNothing(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "2", "5.00")

	_, err := f.svc.PostSale(context.Background(), SaleInput{
		Lines: []RawLine{{ItemID: "1", Quantity: "3", UnitPrice: "5.00"}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, "Item A", stockErr.Product)
	requireAmount(t, "2.00", stockErr.Available)
	require.Equal(t, "Insufficient stock for Item A. Available: 2", shared.UserSafeMessage(err))

	require.Zero(t, f.repo.lastWrite)
	require.Equal(t, "2.00", f.repo.qty(1))
	require.Empty(t, f.repo.state.headers[KindSale])
	require.Equal(t, []string{"sale/create/rejected"}, f.observer.calls)
}

func TestPostSaleChecksStockPerItemAcrossLines(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "3", "5.00")

	_, err := f.svc.PostSale(context.Background(), SaleInput{
		Lines: []RawLine{
			{ItemID: "1", Quantity: "2", UnitPrice: "5"},
			{ItemID: "1", Quantity: "2", UnitPrice: "5"},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Zero(t, f.repo.lastWrite)
	require.Equal(t, "3.00", f.repo.qty(1))
}

func TestPostSaleValidation(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "5", "5.00")
	ctx := context.Background()

	cases := []struct {
		name  string
		input SaleInput
		want  error
		line  int
	}{
		{"no lines", SaleInput{}, ErrNoLines, 0},
		{"negative discount", SaleInput{Discount: "-1", Lines: []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "1"}}}, ErrInvalidDiscount, 0},
		{"blank item", SaleInput{Lines: []RawLine{{Quantity: "1", UnitPrice: "1"}}}, ErrItemRequired, 1},
		{"unknown item", SaleInput{Lines: []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "1"}, {ItemID: "99", Quantity: "1", UnitPrice: "1"}}}, ErrItemNotFound, 2},
		{"zero quantity", SaleInput{Lines: []RawLine{{ItemID: "1", Quantity: "0", UnitPrice: "1"}}}, ErrInvalidLine, 1},
		{"bad price", SaleInput{Lines: []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "abc"}}}, ErrInvalidLine, 1},
		{"quantity past three places", SaleInput{Lines: []RawLine{{ItemID: "1", Quantity: "1.0005", UnitPrice: "1"}}}, ErrInvalidLine, 1},
		{"price past two places", SaleInput{Lines: []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "0.005"}}}, ErrInvalidLine, 1},
		{"missing customer", SaleInput{CustomerID: ptr(int64(42)), Lines: []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "1"}}}, ErrPartyNotFound, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.PostSale(ctx, tc.input)
			require.ErrorIs(t, err, tc.want)
			if tc.line > 0 {
				var lineErr *LineError
				require.True(t, errors.As(err, &lineErr))
				require.Equal(t, tc.line, lineErr.Line)
			}
			require.Equal(t, "5.00", f.repo.qty(1))
		})
	}
}

func TestPostPurchaseCreatesItems(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "1", "5.00")

	res, err := f.svc.PostPurchase(context.Background(), PurchaseInput{
		Lines: []RawLine{
			{Product: "Widget", Quantity: "4", UnitPrice: "2.50", SellingPrice: "3.75"},
			{Quantity: "2", UnitPrice: "1.00", CostPrice: "0.90"},
			{ItemID: "1", Quantity: "5", UnitPrice: "4.00"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "PUR-20260301-0001", res.Header.Number)
	require.Len(t, res.CreatedItems, 2)

	widget := f.repo.state.items[res.CreatedItems[0].ID]
	require.Equal(t, "Widget", widget.Product)
	require.Equal(t, "pcs", widget.UOM)
	require.Equal(t, "SN-TEST-0001", widget.SN)
	requireAmount(t, "2.50", widget.CostPrice)
	requireAmount(t, "2.50", widget.WholesalePrice)
	requireAmount(t, "3.75", widget.SellingPrice)
	requireAmount(t, "4.00", widget.OpeningQty)
	requireAmount(t, "4.00", widget.CurrentQty)

	unnamed := f.repo.state.items[res.CreatedItems[1].ID]
	require.Equal(t, "Unnamed Item", unnamed.Product)
	require.NotEqual(t, widget.SN, unnamed.SN)
	requireAmount(t, "0.90", unnamed.CostPrice)
	requireAmount(t, "1.00", unnamed.SellingPrice)
	requireAmount(t, "2.00", unnamed.CurrentQty)

	require.Equal(t, "6.00", f.repo.qty(1))
	requireAmount(t, "32.00", res.Header.Amounts.Subtotal)
}

func TestPostPurchaseRetriesTakenSerial(t *testing.T) {
	f := newFixture()
	f.repo.takenSN["SN-TEST-0001"] = true

	res, err := f.svc.PostPurchase(context.Background(), PurchaseInput{
		Lines: []RawLine{{Product: "Widget", Quantity: "1", UnitPrice: "1"}},
	})
	require.NoError(t, err)
	require.Len(t, res.CreatedItems, 1)
	require.Equal(t, "SN-TEST-0002", res.CreatedItems[0].SN)
}

func TestPostPurchaseExciseComesFromVendor(t *testing.T) {
	f := newFixture()
	f.repo.parties[KindPurchase][3] = Party{ID: 3, Name: "Acme", ExciseRate: decimal.NewFromInt(5)}
	f.repo.parties[KindSale][4] = Party{ID: 4, Name: "Walk-in"}
	f.repo.addItem(1, "Item A", "10", "100")
	ctx := context.Background()

	res, err := f.svc.PostPurchase(ctx, PurchaseInput{
		VendorID:      ptr(int64(3)),
		InvoiceNumber: "  INV-77 ",
		ExciseEnabled: true,
		Lines:         []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "100"}},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-77", res.Header.Number)
	require.Equal(t, "Acme", res.Header.PartyName)
	requireAmount(t, "5.00", res.Header.Amounts.Excise)
	requireAmount(t, "105.00", res.Header.Amounts.Total)
	require.True(t, res.Header.Lines[0].ExciseEnabled)

	sale, err := f.svc.PostSale(ctx, SaleInput{
		CustomerID:    ptr(int64(4)),
		ExciseEnabled: true,
		Lines:         []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "100"}},
	})
	require.NoError(t, err)
	requireAmount(t, "0.00", sale.Header.Amounts.Excise)
	require.True(t, sale.Header.ExciseEnabled)
	require.False(t, sale.Header.Lines[0].ExciseEnabled)
}

func TestPostPurchaseDuplicateInvoiceNumberRollsBack(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "0", "1")
	ctx := context.Background()
	input := PurchaseInput{
		InvoiceNumber: "INV-1",
		Lines:         []RawLine{{ItemID: "1", Quantity: "2", UnitPrice: "1"}, {Product: "New", Quantity: "1", UnitPrice: "1"}},
	}

	_, err := f.svc.PostPurchase(ctx, input)
	require.NoError(t, err)
	itemsBefore := len(f.repo.state.items)

	input.IdempotencyKey = "retry-key"
	_, err = f.svc.PostPurchase(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateNumber)
	require.Equal(t, "2.00", f.repo.qty(1))
	require.Len(t, f.repo.state.items, itemsBefore)
	require.NotContains(t, f.idem.keys, "retry-key")
}

func TestDeletePurchaseRefusesNegativeStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.addItem(1, "Item A", "0", "1")

	purchase, err := f.svc.PostPurchase(ctx, PurchaseInput{Lines: []RawLine{{ItemID: "1", Quantity: "5", UnitPrice: "1"}}})
	require.NoError(t, err)
	require.Equal(t, "5.00", f.repo.qty(1))

	_, err = f.svc.PostSale(ctx, SaleInput{Lines: []RawLine{{ItemID: "1", Quantity: "3", UnitPrice: "2"}}})
	require.NoError(t, err)

	err = f.svc.DeletePurchase(ctx, purchase.Header.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, "2.00", f.repo.qty(1))
	_, err = f.svc.GetPurchase(ctx, purchase.Header.ID)
	require.NoError(t, err)
}

func TestDeletePurchaseRestoresStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.addItem(1, "Item A", "4", "1")

	purchase, err := f.svc.PostPurchase(ctx, PurchaseInput{Lines: []RawLine{{ItemID: "1", Quantity: "6", UnitPrice: "1"}}})
	require.NoError(t, err)
	require.Equal(t, "10.00", f.repo.qty(1))

	require.NoError(t, f.svc.DeletePurchase(ctx, purchase.Header.ID, 1))
	require.Equal(t, "4.00", f.repo.qty(1))
}

func TestDeleteMissingHeader(t *testing.T) {
	f := newFixture()
	err := f.svc.DeleteSale(context.Background(), 404, 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, []string{"sale/delete/rejected"}, f.observer.calls)
}

func TestIdempotencyKeyBlocksDoubleSubmit(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "10", "5.00")
	ctx := context.Background()
	input := SaleInput{IdempotencyKey: "form-1", Lines: []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "5"}}}

	_, err := f.svc.PostSale(ctx, input)
	require.NoError(t, err)
	_, err = f.svc.PostSale(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	require.Equal(t, "9.00", f.repo.qty(1))
	require.Equal(t, "posting.sale", f.idem.keys["form-1"])
}

func TestFailedPostingReleasesKey(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "1", "5.00")
	ctx := context.Background()
	input := SaleInput{IdempotencyKey: "form-2", Lines: []RawLine{{ItemID: "1", Quantity: "2", UnitPrice: "5"}}}

	_, err := f.svc.PostSale(ctx, input)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.NotContains(t, f.idem.keys, "form-2")

	input.Lines[0].Quantity = "1"
	_, err = f.svc.PostSale(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "0.00", f.repo.qty(1))
}

func TestListSalesNewestFirst(t *testing.T) {
	f := newFixture()
	f.repo.addItem(1, "Item A", "10", "5.00")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.PostSale(ctx, SaleInput{Lines: []RawLine{{ItemID: "1", Quantity: "1", UnitPrice: "5"}}})
		require.NoError(t, err)
	}

	list, total, err := f.svc.ListSales(ctx, ListFilter{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, "SALE-20260301-0003", list[0].Number)
}

func ptr[T any](v T) *T { return &v }
