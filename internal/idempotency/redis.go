package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *RedisCache) Get(ctx context.Context, operation, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(operation, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Set uses SET NX so the first stored response wins.
func (r *RedisCache) Set(ctx context.Context, operation, key string, body []byte) error {
	if err := r.client.SetNX(ctx, redisKey(operation, key), body, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	return nil
}

func redisKey(operation, key string) string {
	return fmt.Sprintf("idem:%s", cacheKey(operation, key))
}
