package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/shared"
)

const maxSerialAttempts = 3

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetHeader(ctx context.Context, kind Kind, id int64) (Header, error)
	ListHeaders(ctx context.Context, kind Kind, filter ListFilter) ([]Header, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against a form being submitted twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Observer receives one call per posting attempt.
type Observer interface {
	ObservePosting(kind, op, outcome string)
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Now      func() time.Time
	Serial   SerialFunc
	Logger   *slog.Logger
	Observer Observer
}

// Service records and reverses sales and purchases.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	idem     IdempotencyPort
	resolver Resolver
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

// NewService builds Service. audit and idem may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		audit:    audit,
		idem:     idem,
		resolver: NewResolver(cfg.Serial, now),
		now:      now,
		logger:   logger,
		observer: cfg.Observer,
	}
}

type postRequest struct {
	kind          Kind
	partyID       *int64
	number        string
	discount      string
	vatEnabled    bool
	exciseEnabled bool
	notes         string
	lines         []RawLine
	postedAt      time.Time
	actorID       int64
	key           string
}

// PostSale records a sale and takes its quantities out of stock.
func (s *Service) PostSale(ctx context.Context, in SaleInput) (PostResult, error) {
	return s.post(ctx, postRequest{
		kind:          KindSale,
		partyID:       in.CustomerID,
		discount:      in.Discount,
		vatEnabled:    in.VATEnabled,
		exciseEnabled: in.ExciseEnabled,
		notes:         in.Notes,
		lines:         in.Lines,
		postedAt:      in.PostedAt,
		actorID:       in.ActorID,
		key:           in.IdempotencyKey,
	})
}

// PostPurchase records a purchase, creating items for lines without one, and
// adds its quantities to stock.
func (s *Service) PostPurchase(ctx context.Context, in PurchaseInput) (PostResult, error) {
	return s.post(ctx, postRequest{
		kind:          KindPurchase,
		partyID:       in.VendorID,
		number:        in.InvoiceNumber,
		discount:      in.Discount,
		vatEnabled:    in.VATEnabled,
		exciseEnabled: in.ExciseEnabled,
		notes:         in.Notes,
		lines:         in.Lines,
		postedAt:      in.PostedAt,
		actorID:       in.ActorID,
		key:           in.IdempotencyKey,
	})
}

func (s *Service) post(ctx context.Context, req postRequest) (result PostResult, err error) {
	defer func() { s.observe(req.kind, "create", err) }()

	if len(req.lines) == 0 {
		return PostResult{}, ErrNoLines
	}
	discount, err := parseDiscount(req.discount)
	if err != nil {
		return PostResult{}, err
	}
	number, err := normalizeNumber(req.number)
	if err != nil {
		return PostResult{}, err
	}
	postedAt := req.postedAt
	if postedAt.IsZero() {
		postedAt = s.now()
	}
	postedAt = postedAt.UTC()

	if err := s.claimKey(ctx, req.kind, req.key); err != nil {
		return PostResult{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		res, err := s.resolver.Resolve(ctx, req.kind, req.lines, tx)
		if err != nil {
			return err
		}
		if req.kind == KindSale {
			if err := checkAvailability(res.Items, deltasFor(req.kind.stockSign(), existingLines(res))); err != nil {
				return err
			}
		}

		header := Header{
			Kind:          req.kind,
			PartyID:       req.partyID,
			PostedAt:      postedAt,
			VATEnabled:    req.vatEnabled,
			ExciseEnabled: req.exciseEnabled,
			Notes:         strings.TrimSpace(req.notes),
			CreatedBy:     req.actorID,
		}
		opts := TaxOptions{VATEnabled: req.vatEnabled, ExciseEnabled: req.exciseEnabled}
		if req.partyID != nil {
			party, err := tx.LoadParty(ctx, req.kind, *req.partyID)
			if err != nil {
				return err
			}
			header.PartyName = party.Name
			if req.kind == KindPurchase {
				opts.ExciseRate = party.ExciseRate
			}
		}
		header.Amounts = Calculate(res.Lines, discount, opts)

		header.Number = number
		if header.Number == "" {
			header.Number, err = tx.NextNumber(ctx, req.kind.NumberPrefix(), postedAt)
			if err != nil {
				return err
			}
		}

		var created []StockItem
		header.Lines = make([]Line, 0, len(res.Lines))
		for _, rl := range res.Lines {
			item := rl.Existing
			if rl.IsNew() {
				stored, err := s.createItem(ctx, tx, res, rl.New)
				if err != nil {
					return err
				}
				res.Items[stored.ID] = stored
				created = append(created, stored)
				item = &stored
			}
			header.Lines = append(header.Lines, Line{
				ItemID:        item.ID,
				ItemSN:        item.SN,
				Product:       item.Product,
				UOM:           item.UOM,
				Quantity:      rl.Quantity,
				UnitPrice:     rl.UnitPrice,
				Total:         LineTotal(rl.Quantity, rl.UnitPrice),
				VATEnabled:    req.vatEnabled,
				ExciseEnabled: req.kind == KindPurchase && req.exciseEnabled,
			})
		}

		header.ID, err = tx.InsertHeader(ctx, header)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, req.kind, header.ID, header.Lines); err != nil {
			return err
		}
		for i := range header.Lines {
			header.Lines[i].HeaderID = header.ID
		}
		if err := applyDeltas(ctx, tx, res.Items, deltasFor(req.kind.stockSign(), header.Lines)); err != nil {
			return err
		}

		header.CreatedAt = s.now().UTC()
		result = PostResult{Header: header, CreatedItems: created}
		return nil
	})
	if err != nil {
		s.releaseKey(req.key)
		return PostResult{}, err
	}

	s.record(ctx, req.actorID, string(req.kind)+".posted", result.Header, map[string]any{
		"number":        result.Header.Number,
		"total":         result.Header.Amounts.Total.StringFixed(2),
		"lines":         len(result.Header.Lines),
		"created_items": len(result.CreatedItems),
	})
	return result, nil
}

// createItem inserts a new item, regenerating its serial when the store
// already holds it.
func (s *Service) createItem(ctx context.Context, tx TxRepository, res *Resolution, item *NewItem) (StockItem, error) {
	for attempt := 1; ; attempt++ {
		stored, err := tx.CreateItem(ctx, *item)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, ErrSerialTaken) || attempt == maxSerialAttempts {
			return StockItem{}, fmt.Errorf("posting: create item %s: %w", item.SN, err)
		}
		s.resolver.Reserial(res, item)
	}
}

// DeleteSale removes a sale and puts its quantities back into stock.
func (s *Service) DeleteSale(ctx context.Context, id, actorID int64) error {
	return s.remove(ctx, KindSale, id, actorID)
}

// DeletePurchase removes a purchase and takes its quantities back out of
// stock. It fails when an item no longer holds enough to reverse.
func (s *Service) DeletePurchase(ctx context.Context, id, actorID int64) error {
	return s.remove(ctx, KindPurchase, id, actorID)
}

func (s *Service) remove(ctx context.Context, kind Kind, id, actorID int64) (err error) {
	defer func() { s.observe(kind, "delete", err) }()

	var removed Header
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		h, err := tx.LockHeader(ctx, kind, id)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(h.Lines))
		for _, l := range h.Lines {
			ids = append(ids, l.ItemID)
		}
		items := map[int64]StockItem{}
		if len(ids) > 0 {
			items, err = tx.LockItems(ctx, ids)
			if err != nil {
				return fmt.Errorf("posting: lock items: %w", err)
			}
		}
		if err := applyDeltas(ctx, tx, items, deltasFor(-kind.stockSign(), h.Lines)); err != nil {
			return err
		}
		if err := tx.DeleteHeader(ctx, kind, id); err != nil {
			return err
		}
		removed = h
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, string(kind)+".deleted", removed, map[string]any{
		"number": removed.Number,
		"total":  removed.Amounts.Total.StringFixed(2),
	})
	return nil
}

// GetSale loads a sale for the invoice view.
func (s *Service) GetSale(ctx context.Context, id int64) (Header, error) {
	return s.repo.GetHeader(ctx, KindSale, id)
}

// GetPurchase loads a purchase for the invoice view.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Header, error) {
	return s.repo.GetHeader(ctx, KindPurchase, id)
}

// ListSales pages through sales, newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Header, int, error) {
	return s.repo.ListHeaders(ctx, KindSale, filter)
}

// ListPurchases pages through purchases, newest first.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) ([]Header, int, error) {
	return s.repo.ListHeaders(ctx, KindPurchase, filter)
}

func (s *Service) claimKey(ctx context.Context, kind Kind, key string) error {
	if key == "" || s.idem == nil {
		return nil
	}
	err := s.idem.CheckAndInsert(ctx, key, "posting."+string(kind))
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return ErrDuplicateSubmission
	}
	if err != nil {
		return fmt.Errorf("posting: idempotency: %w", err)
	}
	return nil
}

// releaseKey frees the key of a failed posting so the form can be resubmitted.
func (s *Service) releaseKey(key string) {
	if key == "" || s.idem == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.idem.Delete(ctx, key); err != nil {
		s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, h Header, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   string(h.Kind),
		EntityID: strconv.FormatInt(h.ID, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("audit posting", slog.String("action", action), slog.Int64("id", h.ID), slog.Any("error", err))
	}
}

func (s *Service) observe(kind Kind, op string, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObservePosting(string(kind), op, outcome(err))
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var ue shared.UserError
	if errors.As(err, &ue) {
		return "rejected"
	}
	return "error"
}

func existingLines(res *Resolution) []Line {
	out := make([]Line, 0, len(res.Lines))
	for _, rl := range res.Lines {
		if rl.Existing != nil {
			out = append(out, Line{ItemID: rl.Existing.ID, Quantity: rl.Quantity})
		}
	}
	return out
}

func parseDiscount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidDiscount
	}
	return d, nil
}
