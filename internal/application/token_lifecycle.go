package application

import (
	"context"
	"errors"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/metrics"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// TokenStalenessWindow is how long an Ikas access token is assumed valid
const TokenStalenessWindow = 4 * time.Hour

var errMissingClientCredentials = errors.New("stored connection has no client credentials")

// IsStale reports whether a token issued at fetchedAt must be refreshed.
// A missing issuance time counts as stale.
func IsStale(fetchedAt *time.Time, now time.Time) bool {
	if fetchedAt == nil || fetchedAt.IsZero() {
		return true
	}
	return now.Sub(*fetchedAt) > TokenStalenessWindow
}

// TokenLifecycleManager refreshes Ikas access tokens on demand before privileged calls
type TokenLifecycleManager struct {
	tokens ports.IkasTokenClient
	repo   ports.ShopConnectionRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewTokenLifecycleManager creates a new token lifecycle manager
func NewTokenLifecycleManager(tokens ports.IkasTokenClient, repo ports.ShopConnectionRepository, logger zerolog.Logger) *TokenLifecycleManager {
	return &TokenLifecycleManager{
		tokens: tokens,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureFreshToken returns a usable access token for the connection.
// A fresh stored token is returned without any network call. After a failed
// refresh the caller must abort; the stale token is never handed out.
func (m *TokenLifecycleManager) EnsureFreshToken(ctx context.Context, conn *domain.ShopConnection) (string, error) {
	if conn.ShopType != domain.ShopTypeIkas {
		return conn.AccessToken, nil
	}

	now := m.now()
	if conn.AccessToken != "" && !IsStale(conn.FetchedAt, now) {
		metrics.RecordTokenRefresh("fresh")
		return conn.AccessToken, nil
	}

	ctx, span := tracer.Start(ctx, "tokens.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("shop.name", conn.ShopID))

	if conn.ClientID == "" || conn.ClientSecret == "" {
		metrics.RecordTokenRefresh("failed")
		return "", &domain.TokenRefreshError{ShopID: conn.ShopID, Err: errMissingClientCredentials}
	}

	token, err := m.tokens.FetchToken(ctx, conn.ShopID, conn.ClientID, conn.ClientSecret)
	if err != nil {
		metrics.RecordTokenRefresh("failed")
		span.RecordError(err)
		m.logger.Error().Err(err).Str("userId", conn.UserID).Str("shop", conn.ShopID).Msg("Ikas token refresh failed")
		return "", &domain.TokenRefreshError{ShopID: conn.ShopID, Err: err}
	}

	fetchedAt := m.now()
	if err := m.repo.UpdateToken(ctx, conn.UserID, conn.ShopID, token, fetchedAt); err != nil {
		// the new token is valid; the next call refreshes again
		m.logger.Warn().Err(err).Str("userId", conn.UserID).Str("shop", conn.ShopID).Msg("Failed to persist refreshed Ikas token")
	}
	conn.AccessToken = token
	conn.FetchedAt = &fetchedAt

	metrics.RecordTokenRefresh("refreshed")
	m.logger.Info().Str("userId", conn.UserID).Str("shop", conn.ShopID).Msg("Refreshed Ikas access token")
	return token, nil
}
