package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type CacheSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	cache  *Cache
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.cache = NewCache(s.client, time.Minute, nil)
}

func (s *CacheSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *CacheSuite) TestVersionInitialisedOnce() {
	ctx := context.Background()
	ver, err := s.cache.Version(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), ver)

	s.Require().NoError(s.cache.Bump(ctx))
	ver, err = s.cache.Version(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), ver)
}

func (s *CacheSuite) TestFetchJSONStoresUnderVersionedKey() {
	ctx := context.Background()
	var out map[string]int
	err := s.cache.FetchJSON(ctx, "overview", &out, func(context.Context) (any, error) {
		return map[string]int{"items": 4}, nil
	})
	s.Require().NoError(err)
	s.Equal(4, out["items"])
	s.True(s.mr.Exists("ledgerline:dashboard:overview:1"))
	s.Equal(time.Minute, s.mr.TTL("ledgerline:dashboard:overview:1"))
}

func (s *CacheSuite) TestBumpForcesReload() {
	ctx := context.Background()
	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		return map[string]int32{"n": calls.Add(1)}, nil
	}

	var out map[string]int32
	s.Require().NoError(s.cache.FetchJSON(ctx, "overview", &out, loader))
	s.Require().NoError(s.cache.FetchJSON(ctx, "overview", &out, loader))
	s.Equal(int32(1), out["n"])

	s.cache.ObservePosting("sale", "post", "success")
	s.Require().NoError(s.cache.FetchJSON(ctx, "overview", &out, loader))
	s.Equal(int32(2), out["n"])
}

func (s *CacheSuite) TestObserversIgnoreNoOps() {
	ctx := context.Background()
	s.cache.ObservePosting("sale", "post", "error")
	s.cache.ObserveImport(0, 3, 1)
	ver, err := s.cache.Version(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), ver)

	s.cache.ObserveImport(2, 0, 0)
	ver, err = s.cache.Version(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), ver)
}

func (s *CacheSuite) TestConcurrentMissesShareOneLoad() {
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return map[string]int{"items": 1}, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out map[string]int
			errs <- s.cache.FetchJSON(ctx, "overview", &out, loader)
		}()
	}
	s.Eventually(func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}
	s.Equal(int32(1), calls.Load())
}

func (s *CacheSuite) TestLoaderErrorIsNotCached() {
	ctx := context.Background()
	boom := errors.New("boom")
	var out map[string]int
	err := s.cache.FetchJSON(ctx, "overview", &out, func(context.Context) (any, error) { return nil, boom })
	s.ErrorIs(err, boom)
	s.False(s.mr.Exists("ledgerline:dashboard:overview:1"))
}

func (s *CacheSuite) TestUnreachableRedisFallsBackToLoader() {
	s.mr.Close()
	var out map[string]int
	err := s.cache.FetchJSON(context.Background(), "overview", &out, func(context.Context) (any, error) {
		return map[string]int{"items": 3}, nil
	})
	s.Require().NoError(err)
	s.Equal(3, out["items"])
}

func (s *CacheSuite) TestCorruptVersionFallsBackToLoader() {
	s.Require().NoError(s.mr.Set(cacheVersionKey, "not-a-number"))
	var out map[string]int
	err := s.cache.FetchJSON(context.Background(), "overview", &out, func(context.Context) (any, error) {
		return map[string]int{"items": 5}, nil
	})
	s.Require().NoError(err)
	s.Equal(5, out["items"])
}

func (s *CacheSuite) TestNilCacheCallsLoaderDirectly() {
	var nilCache *Cache
	var out map[string]int
	err := nilCache.FetchJSON(context.Background(), "overview", &out, func(context.Context) (any, error) {
		return map[string]int{"items": 9}, nil
	})
	s.Require().NoError(err)
	s.Equal(9, out["items"])
}
