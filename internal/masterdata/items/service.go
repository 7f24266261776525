package items

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
	"github.com/ledgerline/ledgerline/internal/posting"
)

const defaultUOM = "pcs"

// Service applies item validation on top of the repository.
type Service struct {
	repo   Repository
	serial posting.SerialFunc
	now    func() time.Time
}

// NewService constructs a Service. A nil serial falls back to posting.NewSerial.
func NewService(repo Repository, serial posting.SerialFunc) *Service {
	if serial == nil {
		serial = posting.NewSerial
	}
	return &Service{repo: repo, serial: serial, now: time.Now}
}

func (s *Service) List(ctx context.Context, filters Filters) ([]Item, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Pickable lists the items offered by line-item pickers. Sale forms pass inStock.
func (s *Service) Pickable(ctx context.Context, inStock bool) ([]Item, error) {
	return s.repo.Pickable(ctx, inStock)
}

// Create stores a new item. A blank serial is generated and the opening
// quantity becomes the current quantity.
func (s *Service) Create(ctx context.Context, in Input) (Item, error) {
	item, ve := s.build(in)
	qty, err := shared.Decimal(in.OpeningQty)
	switch {
	case err != nil:
		ve.Add("opening_quantity", "Enter a number.")
	case qty.IsNegative():
		ve.Add("opening_quantity", "Quantity cannot be negative.")
	}
	if err := ve.OrNil(); err != nil {
		return Item{}, err
	}
	item.OpeningQty = qty.Round(posting.QuantityPlaces)
	if item.SN == "" {
		item.SN = s.serial(s.now())
	}
	return s.repo.Create(ctx, item)
}

// Update changes descriptive fields and prices. Quantities are left alone.
func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	item, ve := s.build(in)
	if item.SN == "" {
		ve.Add("sn", "This field is required.")
	}
	if err := ve.OrNil(); err != nil {
		return err
	}
	item.ID = id
	return s.repo.Update(ctx, item)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) build(in Input) (Item, *shared.ValidationError) {
	in.SN = strings.TrimSpace(in.SN)
	in.Product = strings.TrimSpace(in.Product)
	ve := &shared.ValidationError{}
	if err := shared.Validate(in); err != nil {
		for k, msg := range shared.FieldErrors(err) {
			ve.Add(k, msg)
		}
	}
	item := Item{
		SN:             in.SN,
		Product:        in.Product,
		Category:       strings.TrimSpace(in.Category),
		Brand:          strings.TrimSpace(in.Brand),
		UOM:            strings.TrimSpace(in.UOM),
		CostPrice:      price(ve, "cp", in.CostPrice),
		WholesalePrice: price(ve, "wholesale", in.WholesalePrice),
		SellingPrice:   price(ve, "sp", in.SellingPrice),
	}
	if item.UOM == "" {
		item.UOM = defaultUOM
	}
	return item, ve
}

func price(ve *shared.ValidationError, field, raw string) decimal.Decimal {
	d, err := shared.Decimal(raw)
	if err != nil {
		ve.Add(field, "Enter a number.")
		return decimal.Zero
	}
	if d.IsNegative() {
		ve.Add(field, "Price cannot be negative.")
		return decimal.Zero
	}
	return d.Round(posting.MoneyPlaces)
}
