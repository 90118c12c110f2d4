package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

const (
	cacheKeyPrefix = "ledger:reports"
	bumpChannel    = "ledger.reports.bump"
)

var buildGroup singleflight.Group

// Cache stores rendered reports in Redis under a per entity version. Bumping
// the version orphans every report of that entity at once.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *shared.Metrics
}

// NewCache instantiates the cache helper. A nil client disables storage but
// keeps concurrent builds deduplicated.
func NewCache(client *redis.Client, ttl time.Duration, metrics *shared.Metrics) *Cache {
	return &Cache{client: client, ttl: ttl, metrics: metrics}
}

func versionKey(entityID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:version", cacheKeyPrefix, entityID)
}

// Version returns the current report version of an entity. A missing
// version reads as zero.
func (c *Cache) Version(ctx context.Context, entityID uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(entityID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

// Key composes ledger:reports:<entity>:v<version>:<parts...>.
func (c *Cache) Key(ctx context.Context, entityID uuid.UUID, parts ...string) (string, error) {
	ver, err := c.Version(ctx, entityID)
	if err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("%s:%s:v%d", cacheKeyPrefix, entityID, ver)
	return strings.Join(append([]string{prefix}, parts...), ":"), nil
}

// FetchJSON loads a cached value or builds it with loader. Concurrent
// callers for the same key share one build. Redis failures fall back to
// building without storing; an empty key skips the cache entirely.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if key == "" {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			c.count("hit")
			return json.Unmarshal(payload, dest)
		case errors.Is(err, redis.Nil):
			c.count("miss")
		default:
			c.count("error")
		}
	}
	raw, err := c.build(ctx, key, loader)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// build runs loader once per key. The shared build is detached from the
// caller's cancellation so one caller leaving does not fail the others.
func (c *Cache) build(ctx context.Context, key string, loader func(context.Context) (any, error)) ([]byte, error) {
	buildCtx := context.WithoutCancel(ctx)
	result := buildGroup.DoChan(key, func() (any, error) {
		value, err := loader(buildCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if c != nil && c.client != nil {
			if err := c.client.Set(buildCtx, key, raw, c.ttl).Err(); err != nil {
				c.count("error")
			}
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Invalidate bumps the version of an entity and publishes the new value.
func (c *Cache) Invalidate(ctx context.Context, entityID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(entityID)).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, fmt.Sprintf("%s:%d", entityID, ver)).Err()
}

func (c *Cache) count(result string) {
	if c == nil {
		return
	}
	c.metrics.CacheResult(result)
}
