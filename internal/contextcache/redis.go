package contextcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores snapshots in Redis so every instance of the service
// sees the same advisor context. Reads fall through to a rebuild when
// the key is missing or expired.
type RedisCache struct {
	rdb        *redis.Client
	summarizer Summarizer
	ttl        time.Duration
}

// NewRedisCache creates a Redis-backed context cache.
func NewRedisCache(rdb *redis.Client, summarizer Summarizer, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, summarizer: summarizer, ttl: ttl}
}

func contextKey(userID string) string { return fmt.Sprintf("usercontext:%s", userID) }

func (c *RedisCache) Refresh(ctx context.Context, userID string) error {
	text, err := c.build(ctx, userID)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, contextKey(userID), text, c.ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, userID string) (string, error) {
	text, err := c.rdb.Get(ctx, contextKey(userID)).Result()
	if err == nil {
		return text, nil
	}

	// Cache miss: rebuild and store.
	text, err = c.build(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, contextKey(userID), text, c.ttl).Err(); err != nil {
		return "", err
	}
	return text, nil
}

func (c *RedisCache) build(ctx context.Context, userID string) (string, error) {
	summary, err := c.summarizer.Summary(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", userID, err)
	}
	return BuildSnapshot(summary)
}
