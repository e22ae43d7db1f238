// Package cache memoises statistics queries in Redis.
//
// Keys embed a version number; bumping the version after an ingestion or a
// bulk clear makes every older entry unreachable without scanning for keys.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultPrefix = "helpdesk-stats"

// StatsCache is a versioned JSON cache. A nil *StatsCache is valid and
// always loads.
type StatsCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsCache builds a cache over client. Entries expire after ttl.
func NewStatsCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *StatsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsCache{client: client, prefix: defaultPrefix, ttl: ttl, logger: logger}
}

func (c *StatsCache) versionKey() string {
	return c.prefix + ":version"
}

func (c *StatsCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// key returns the versioned key for name.
func (c *StatsCache) key(version int64, name string) string {
	return fmt.Sprintf("%s:v%d:%s", c.prefix, version, name)
}

// Invalidate drops every cached entry by bumping the version.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey()).Err()
}

// Remember returns the cached value for name or stores the result of load.
// Redis failures degrade to calling load.
func Remember[T any](ctx context.Context, c *StatsCache, name string, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}

	version, err := c.version(ctx)
	if err != nil {
		c.logger.Debug("stats cache unavailable", zap.Error(err))
		return load(ctx)
	}
	key := c.key(version, name)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Debug("discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Debug("stats cache read failed", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := c.client.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		c.logger.Debug("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
