package vendors

import (
	"context"
	"strings"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
)

// Service applies vendor validation on top of the repository.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Options lists every vendor for the purchase form.
func (s *Service) Options(ctx context.Context) ([]shared.Option, error) {
	return s.repo.Options(ctx)
}

func (s *Service) Create(ctx context.Context, in Input) (Vendor, error) {
	v, err := s.build(in)
	if err != nil {
		return Vendor{}, err
	}
	return s.repo.Create(ctx, v)
}

func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	v, err := s.build(in)
	if err != nil {
		return err
	}
	v.ID = id
	return s.repo.Update(ctx, v)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) build(in Input) (Vendor, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	ve := &shared.ValidationError{}
	if err := shared.Validate(in); err != nil {
		fields := shared.FieldErrors(err)
		if len(fields) == 0 {
			return Vendor{}, err
		}
		for k, msg := range fields {
			ve.Add(k, msg)
		}
	}
	v := Vendor{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		TaxNumber:    strings.TrimSpace(in.TaxNumber),
		DiscountRate: shared.Percent(ve, "discount_rate", in.DiscountRate),
		VATRate:      shared.Percent(ve, "vat_rate", in.VATRate),
		ExciseRate:   shared.Percent(ve, "excise_rate", in.ExciseRate),
	}
	if _, bad := ve.Fields["balance"]; !bad {
		balance, err := shared.Decimal(in.Balance)
		if err != nil {
			ve.Add("balance", "Enter a number.")
		}
		v.Balance = balance.Round(2)
	}
	if err := ve.OrNil(); err != nil {
		return Vendor{}, err
	}
	return v, nil
}
