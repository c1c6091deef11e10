package ports

import (
	"context"

	"archie-core-merchant-onboarding/internal/domain"
)

// ConnectionCache holds the last observed connection snapshot per user.
// Snapshots may be stale or arrive out of order.
type ConnectionCache interface {
	// Get returns the snapshot and whether one was cached
	Get(ctx context.Context, userID string) ([]*domain.ShopConnection, bool, error)
	Set(ctx context.Context, userID string, conns []*domain.ShopConnection) error
	Invalidate(ctx context.Context, userID string) error
}

// ShopConnectionReader exposes the two read paths the access engine chooses between
type ShopConnectionReader interface {
	// CachedRead may serve a stale snapshot
	CachedRead(ctx context.Context, userID string) ([]*domain.ShopConnection, error)

	// AuthoritativeRead bypasses every cache
	AuthoritativeRead(ctx context.Context, userID string) ([]*domain.ShopConnection, error)
}

// ConnectionEventPublisher notifies listeners that a user's connections changed
type ConnectionEventPublisher interface {
	Publish(event *domain.ConnectionEvent)
}
