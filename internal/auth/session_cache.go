package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache keeps recently resolved sessions so GetSession can skip the
// database. Entries are keyed by token hash.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (*SessionData, error)
	Set(ctx context.Context, tokenHash string, data *SessionData, ttl time.Duration) error
	Delete(ctx context.Context, tokenHashes ...string) error
}

// RedisSessionCache stores SessionData as JSON with a TTL.
type RedisSessionCache struct {
	client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func sessionCacheKey(tokenHash string) string {
	return fmt.Sprintf("session:%s", tokenHash)
}

func (c *RedisSessionCache) Get(ctx context.Context, tokenHash string) (*SessionData, error) {
	raw, err := c.client.Get(ctx, sessionCacheKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached session: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode cached session: %w", err)
	}
	if data.User == nil || data.Session == nil {
		return nil, ErrCacheMiss
	}
	return &data, nil
}

func (c *RedisSessionCache) Set(ctx context.Context, tokenHash string, data *SessionData, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.client.Set(ctx, sessionCacheKey(tokenHash), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

func (c *RedisSessionCache) Delete(ctx context.Context, tokenHashes ...string) error {
	if len(tokenHashes) == 0 {
		return nil
	}
	keys := make([]string, len(tokenHashes))
	for i, h := range tokenHashes {
		keys[i] = sessionCacheKey(h)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to evict cached sessions: %w", err)
	}
	return nil
}

type noopSessionCache struct{}

func (noopSessionCache) Get(context.Context, string) (*SessionData, error) { return nil, ErrCacheMiss }
func (noopSessionCache) Set(context.Context, string, *SessionData, time.Duration) error {
	return nil
}
func (noopSessionCache) Delete(context.Context, ...string) error { return nil }
