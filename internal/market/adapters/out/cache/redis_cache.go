package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	out "una/internal/market/application/ports/out"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "una:device:"

// RedisStore — локальные кеши устройств, по хешу на устройство
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore. ttl <= 0 — без истечения.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// ForDevice — кеш одного устройства
func (s *RedisStore) ForDevice(deviceID string) out.LocalCache {
	return &deviceCache{store: s, key: keyPrefix + deviceID}
}

type deviceCache struct {
	store *RedisStore
	key   string
}

func (c *deviceCache) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := c.store.client.HGet(ctx, c.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", field, err)
	}
	return v, true, nil
}

func (c *deviceCache) Set(ctx context.Context, field, value string) error {
	_, err := c.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.key, field, value)
		if c.store.ttl > 0 {
			pipe.Expire(ctx, c.key, c.store.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}
