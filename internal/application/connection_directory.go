package application

import (
	"context"
	"fmt"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
)

// ConnectionDirectory serves a user's shop connections through two explicit read paths:
// the listener-fed cache and an authoritative store read.
type ConnectionDirectory struct {
	repo   ports.ShopConnectionRepository
	cache  ports.ConnectionCache
	events ports.ConnectionEventPublisher
	logger zerolog.Logger
}

// NewConnectionDirectory creates a new connection directory. events may be nil.
func NewConnectionDirectory(
	repo ports.ShopConnectionRepository,
	cache ports.ConnectionCache,
	events ports.ConnectionEventPublisher,
	logger zerolog.Logger,
) *ConnectionDirectory {
	return &ConnectionDirectory{
		repo:   repo,
		cache:  cache,
		events: events,
		logger: logger,
	}
}

// CachedRead returns the cached snapshot. A cold cache is primed from the store once.
func (d *ConnectionDirectory) CachedRead(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	conns, ok, err := d.cache.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection cache: %w", err)
	}
	if ok {
		d.logger.Debug().Str("userId", userID).Int("connections", len(conns)).Msg("Connection cache hit")
		return conns, nil
	}

	conns, err = d.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to prime connection cache: %w", err)
	}
	if err := d.cache.Set(ctx, userID, conns); err != nil {
		d.logger.Warn().Err(err).Str("userId", userID).Msg("Failed to store connection snapshot")
	}
	return conns, nil
}

// AuthoritativeRead reads the store directly and repairs the cached snapshot
func (d *ConnectionDirectory) AuthoritativeRead(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	conns, err := d.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	if err := d.cache.Set(ctx, userID, conns); err != nil {
		d.logger.Warn().Err(err).Str("userId", userID).Msg("Failed to repair connection snapshot")
	}
	return conns, nil
}

// Refresh re-reads the user's connections after a write and notifies listeners
func (d *ConnectionDirectory) Refresh(ctx context.Context, userID string, reason string) {
	if _, err := d.AuthoritativeRead(ctx, userID); err != nil {
		d.logger.Warn().Err(err).Str("userId", userID).Msg("Failed to refresh connections, invalidating cache")
		if err := d.cache.Invalidate(ctx, userID); err != nil {
			d.logger.Warn().Err(err).Str("userId", userID).Msg("Failed to invalidate connection cache")
		}
	}
	if d.events != nil {
		d.events.Publish(&domain.ConnectionEvent{UserID: userID, Reason: reason})
	}
}

// VerifiedConnections returns the user's verified connections from the cached path
func (d *ConnectionDirectory) VerifiedConnections(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	conns, err := d.CachedRead(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.VerifiedConnections(conns), nil
}
