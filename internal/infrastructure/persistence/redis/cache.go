// Package redis provides the read-side cache for attendance summaries and
// dashboard counters.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/academy-hub/academy-lms/config"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS & ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Key prefixes. All keys live under the application namespace so a shared
// Redis instance stays partitioned.
const (
	keyPrefix          = "lms:"
	keyPrefixSummary   = keyPrefix + "summary:"   // summary:<student_id>
	keyPrefixDashboard = keyPrefix + "dashboard:" // dashboard:<role>
)

var (
	// ErrCacheMiss is returned when the requested key is not in the cache.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheDisabled is returned when the cache is configured off.
	ErrCacheDisabled = errors.New("cache: disabled")
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE
// ══════════════════════════════════════════════════════════════════════════════

// Cache wraps a Redis client with JSON serialization. A nil client means the
// cache is disabled; every operation then degrades to a miss so callers fall
// through to the database.
type Cache struct {
	client *goredis.Client
	log    *logger.Logger
}

// Connect creates a Redis-backed cache from configuration. Returns a
// disabled cache when cfg.Disabled is set.
func Connect(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*Cache, error) {
	if cfg.Disabled {
		log.Warn("redis cache disabled by configuration")
		return &Cache{log: log}, nil
	}

	var opts *goredis.Options
	if cfg.URL != "" {
		parsed, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("connected to redis", logger.Int("pool_size", cfg.PoolSize))

	return &Cache{client: client, log: log}, nil
}

// NewWithClient wraps an existing client. Used in tests with miniature
// servers or a nil client for the disabled path.
func NewWithClient(client *goredis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Enabled reports whether the cache has a live client.
func (c *Cache) Enabled() bool {
	return c.client != nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Ping verifies the cache is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}

// GetJSON reads a key and unmarshals it into dest. Returns ErrCacheMiss when
// the key is absent or the cache is disabled.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	if c.client == nil {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is as good as a miss; drop it so it cannot
		// poison later reads.
		_ = c.client.Del(ctx, key).Err()
		return ErrCacheMiss
	}

	return nil
}

// SetJSON marshals value and writes it under key with a TTL. A disabled
// cache accepts the write as a no-op.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	return nil
}

// Delete removes keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}

	return nil
}

// DeleteByPrefix removes every key under a prefix using SCAN, never KEYS.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache delete batch: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache delete batch: %w", err)
		}
	}

	return nil
}
