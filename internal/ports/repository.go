package ports

import (
	"context"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
)

// OnboardingRepository persists the single onboarding application of each user
type OnboardingRepository interface {
	// Get returns the application or nil when the user has not started
	Get(ctx context.Context, userID string) (*domain.OnboardingApplication, error)

	// MergeDraft upserts the given sections, leaving absent ones untouched
	MergeDraft(ctx context.Context, userID string, patch domain.ApplicationPatch, status domain.ApplicationStatus, currentStep int, now time.Time) error

	// Save upserts the whole application
	Save(ctx context.Context, app *domain.OnboardingApplication) error
}

// ShopConnectionRepository persists shop connections keyed by (user, shop)
type ShopConnectionRepository interface {
	// Get returns the connection or nil when absent
	Get(ctx context.Context, userID string, shopID string) (*domain.ShopConnection, error)

	// ListByUser returns every connection of a user, verified or not
	ListByUser(ctx context.Context, userID string) ([]*domain.ShopConnection, error)

	// Upsert merges the connection into the record with the same key
	Upsert(ctx context.Context, conn *domain.ShopConnection) error

	// UpdateToken replaces the access token and its issuance time only
	UpdateToken(ctx context.Context, userID string, shopID string, accessToken string, fetchedAt time.Time) error

	// MarkUnverifiedByShop clears the verified flag on every connection to a shop and returns the affected users
	MarkUnverifiedByShop(ctx context.Context, shopType domain.ShopType, shopID string) ([]string, error)
}
