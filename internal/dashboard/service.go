package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const requestTimeout = 2 * time.Second

// DefaultThreshold is used when no low-stock threshold is configured.
var DefaultThreshold = decimal.NewFromInt(10)

// Service loads the dashboard overview.
type Service struct {
	repo      Repository
	cache     *Cache
	threshold decimal.Decimal
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *Cache, threshold decimal.Decimal) *Service {
	if threshold.Sign() <= 0 {
		threshold = DefaultThreshold
	}
	return &Service{repo: repo, cache: cache, threshold: threshold}
}

// Overview returns the dashboard figures, served from the cache when warm.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var out Overview
	err := s.cache.FetchJSON(ctx, "overview:"+s.threshold.String(), &out, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	return out, err
}

func (s *Service) load(ctx context.Context) (Overview, error) {
	data := Overview{Threshold: s.threshold}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.repo.Counts(ctx)
		data.Counts = counts
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.RecentSales(ctx, RecentLimit)
		data.RecentSales = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.RecentPurchases(ctx, RecentLimit)
		data.RecentPurchases = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.LowStock(ctx, s.threshold, RecentLimit)
		data.LowStock = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return data, nil
}
