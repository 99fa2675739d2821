// Package sessioncache stores session-scoped pseudonym bindings in
// Redis with a TTL. It holds forward (real value -> token) and reverse
// (token -> ciphertext) bindings; plaintext real values appear only in
// forward keys, never in values, and reverse values are ciphertext
// produced by the key service.
package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/regulens/pseudonymd/internal/logger"
	"github.com/regulens/pseudonymd/pkg/config"
)

// scanBatch is the COUNT hint for SCAN during session teardown.
const scanBatch = 200

// Cache wraps the Redis client with operation timeouts.
type Cache struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

// New creates a session cache client. It does not contact Redis; call
// Ping to verify connectivity.
func New(cfg config.CacheConfig) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})
	return &Cache{rdb: rdb, opTimeout: cfg.OpTimeout}
}

// NewFromClient wraps an existing Redis client. Used by tests with
// miniredis.
func NewFromClient(rdb *redis.Client, opTimeout time.Duration) *Cache {
	return &Cache{rdb: rdb, opTimeout: opTimeout}
}

// Ping verifies connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session cache unreachable: %w", err)
	}
	return nil
}

// Get returns the value for key, reporting presence separately from
// transport errors.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get failed: %w", err)
	}
	return val, true, nil
}

// Set stores key=value with the given TTL, overwriting any existing
// value atomically.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Incr increments the counter at key and refreshes its TTL, returning
// the new value. Used for per-session binding caps.
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr failed: %w", err)
	}
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return n, fmt.Errorf("cache expire failed: %w", err)
	}
	return n, nil
}

// Decr decrements the counter at key. Used to roll back a reserved
// binding slot when minting fails.
func (c *Cache) Decr(ctx context.Context, key string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()
	if err := c.rdb.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache decr failed: %w", err)
	}
	return nil
}

// DeletePattern removes every key beginning with prefix using SCAN so
// large sessions do not block Redis. Returns the number of keys
// removed.
func (c *Cache) DeletePattern(ctx context.Context, prefix string) (int, error) {
	pattern := prefix + "*"
	deleted := 0
	var cursor uint64

	for {
		opCtx, cancel := c.opCtx(ctx)
		keys, next, err := c.rdb.Scan(opCtx, cursor, pattern, scanBatch).Result()
		cancel()
		if err != nil {
			return deleted, fmt.Errorf("cache scan failed: %w", err)
		}

		if len(keys) > 0 {
			opCtx, cancel = c.opCtx(ctx)
			err = c.rdb.Del(opCtx, keys...).Err()
			cancel()
			if err != nil {
				return deleted, fmt.Errorf("cache delete failed: %w", err)
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if deleted > 0 {
		logger.Debug("session keys removed", "prefix", prefix, "count", deleted)
	}
	return deleted, nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}
