package customers

import (
	"context"
	"strings"

	"github.com/ledgerline/ledgerline/internal/masterdata/shared"
)

// Service applies customer validation on top of the repository.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Options lists every customer for the sale form.
func (s *Service) Options(ctx context.Context) ([]shared.Option, error) {
	return s.repo.Options(ctx)
}

func (s *Service) Create(ctx context.Context, in Input) (Customer, error) {
	c, err := s.build(in)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	c, err := s.build(in)
	if err != nil {
		return err
	}
	c.ID = id
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) build(in Input) (Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := shared.Validate(in); err != nil {
		return Customer{}, err
	}
	balance, err := shared.Decimal(in.Balance)
	if err != nil {
		return Customer{}, &shared.ValidationError{Fields: map[string]string{"balance": "Enter a number."}}
	}
	return Customer{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Balance: balance.Round(2),
	}, nil
}
