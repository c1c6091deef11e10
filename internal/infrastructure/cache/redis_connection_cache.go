package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shop_connections:"

// RedisConnectionCache stores per-user connection snapshots in Redis.
// Platform secrets are never written to the cache.
type RedisConnectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisConnectionCache creates a snapshot cache; ttl bounds how stale a missed listener update can get
func NewRedisConnectionCache(client *redis.Client, ttl time.Duration) ports.ConnectionCache {
	return &RedisConnectionCache{
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(userID string) string {
	return keyPrefix + userID
}

// Get returns the cached snapshot
func (c *RedisConnectionCache) Get(ctx context.Context, userID string) ([]*domain.ShopConnection, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get connection snapshot: %w", err)
	}

	var conns []*domain.ShopConnection
	if err := json.Unmarshal(raw, &conns); err != nil {
		return nil, false, fmt.Errorf("failed to decode connection snapshot: %w", err)
	}
	return conns, true, nil
}

// Set replaces the snapshot
func (c *RedisConnectionCache) Set(ctx context.Context, userID string, conns []*domain.ShopConnection) error {
	if conns == nil {
		conns = []*domain.ShopConnection{}
	}
	raw, err := json.Marshal(conns)
	if err != nil {
		return fmt.Errorf("failed to encode connection snapshot: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set connection snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot so the next read primes from the store
func (c *RedisConnectionCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate connection snapshot: %w", err)
	}
	return nil
}
