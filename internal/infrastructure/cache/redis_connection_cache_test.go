package cache

import (
	"context"
	"testing"
	"time"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisConnectionCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisConnectionCache(client, ttl).(*RedisConnectionCache)
}

func TestRedisConnectionCache_Miss(t *testing.T) {
	_, c := newTestCache(t, time.Minute)

	conns, ok, err := c.Get(context.Background(), "u1")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, conns)
}

func TestRedisConnectionCache_RoundTripOmitsSecrets(t *testing.T) {
	mr, c := newTestCache(t, time.Minute)
	ctx := context.Background()
	fetched := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, c.Set(ctx, "u1", []*domain.ShopConnection{{
		UserID:       "u1",
		ShopID:       "demo",
		ShopType:     domain.ShopTypeIkas,
		Verified:     true,
		AccessToken:  "tok",
		ClientID:     "cid",
		ClientSecret: "csecret",
		FetchedAt:    &fetched,
	}}))

	raw, err := mr.Get("shop_connections:u1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "csecret")
	assert.NotContains(t, raw, "tok\"")

	conns, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, conns, 1)
	assert.Equal(t, "demo", conns[0].ShopID)
	assert.True(t, conns[0].Verified)
	assert.Empty(t, conns[0].ClientSecret)
	assert.True(t, conns[0].FetchedAt.Equal(fetched))
}

func TestRedisConnectionCache_EmptySnapshotIsAHit(t *testing.T) {
	_, c := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", nil))

	conns, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, conns)
}

func TestRedisConnectionCache_TTL(t *testing.T) {
	mr, c := newTestCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "u1", []*domain.ShopConnection{}))

	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisConnectionCache_Invalidate(t *testing.T) {
	_, c := newTestCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "u1", []*domain.ShopConnection{}))

	require.NoError(t, c.Invalidate(ctx, "u1"))

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisConnectionCache_ServerDown(t *testing.T) {
	mr, c := newTestCache(t, time.Minute)
	mr.Close()

	_, _, err := c.Get(context.Background(), "u1")

	assert.Error(t, err)
}
