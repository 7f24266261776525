package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "ledgerline:dashboard:version"

// Cache stores the overview in Redis under a versioned key. Bumping the
// version invalidates every cached overview at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCache instantiates the cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// Version returns the current cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	return ver, err
}

// FetchJSON loads key into dest, running loader and storing its result on a miss.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if !c.enabled() {
		return loadDirect(ctx, dest, loader)
	}
	ver, err := c.Version(ctx)
	if err != nil {
		c.logger.Warn("dashboard cache version, loading from database", slog.Any("error", err))
		return loadDirect(ctx, dest, loader)
	}
	key = fmt.Sprintf("ledgerline:dashboard:%s:%d", key, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("dashboard cache read, loading from database", slog.String("key", key), slog.Any("error", err))
		return loadDirect(ctx, dest, loader)
	}

	// Concurrent misses on the same version share one load.
	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("dashboard cache write", slog.String("key", key), slog.Any("error", err))
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Bump invalidates the cached overviews.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// ObservePosting invalidates the cache after a successful posting or reversal.
func (c *Cache) ObservePosting(kind, op, outcome string) {
	if outcome == "success" {
		c.bumpQuietly("posting")
	}
}

// ObserveImport invalidates the cache once an import created items.
func (c *Cache) ObserveImport(created, skipped, failed int) {
	if created > 0 {
		c.bumpQuietly("import")
	}
}

func (c *Cache) bumpQuietly(reason string) {
	if !c.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Bump(ctx); err != nil {
		c.logger.Warn("bump dashboard cache", slog.String("reason", reason), slog.Any("error", err))
	}
}

func loadDirect(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	return roundTrip(value, dest)
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
