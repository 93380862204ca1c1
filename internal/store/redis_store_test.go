package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/acp-checkout/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_CreateAndGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	created, err := store.Create(ctx, &domain.Session{
		Items: []domain.CheckoutItem{{SKU: "ABC", Quantity: 2, VariantID: 42, UnitPrice: 1000}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusDraft, created.Status)
	assert.True(t, mr.Exists(sessionKey(created.ID)))

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(42), got.Items[0].VariantID)
}

func TestRedisStore_Get_NotFound(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_Get_InvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(sessionKey("broken"), "{not json"))

	_, err := store.Get(context.Background(), "broken")
	assert.ErrorContains(t, err, "unmarshal session failed")
}

func TestRedisStore_Set_RefreshesTTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	session, err := store.Create(ctx, nil)
	require.NoError(t, err)

	mr.FastForward(50 * time.Minute)
	session.Status = domain.CheckoutStatusAwaitingPayment
	require.NoError(t, store.Set(ctx, session))

	ttl := mr.TTL(sessionKey(session.ID))
	assert.True(t, ttl > 50*time.Minute, "TTL should be reset on write")

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusAwaitingPayment, got.Status)
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	session, err := store.Create(ctx, nil)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_List(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, nil)
		require.NoError(t, err)
	}

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestSessionKey_Format(t *testing.T) {
	assert.Equal(t, "checkout:session:abc", sessionKey("abc"))
}
