package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, time.Hour), mr
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), "complete_checkout", "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "complete_checkout", "k1", []byte(`{"orderId":"1"}`)))

	stored, err := mr.Get("idem:complete_checkout:k1")
	require.NoError(t, err)
	assert.Equal(t, `{"orderId":"1"}`, stored)

	body, err := c.Get(ctx, "complete_checkout", "k1")
	require.NoError(t, err)
	assert.Equal(t, `{"orderId":"1"}`, string(body))
}

func TestRedisCache_FirstWriteWins(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "op", "k", []byte("first")))
	require.NoError(t, c.Set(ctx, "op", "k", []byte("second")))

	body, err := c.Get(ctx, "op", "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(body))
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "op", "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("idem:op:k"))

	mr.FastForward(2 * time.Hour)
	_, err := c.Get(ctx, "op", "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), "op", "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
