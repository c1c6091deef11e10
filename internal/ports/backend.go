package ports

import (
	"context"

	"archie-core-merchant-onboarding/internal/domain"
)

// ConnectionBackend is the trusted Token/OAuth backend.
// Every call is made under the caller's bearer credential.
type ConnectionBackend interface {
	StartOAuth(ctx context.Context, bearer string, shopDomain string) (*domain.OAuthStart, error)
	FinalizeOAuth(ctx context.Context, bearer string, state string) (*domain.OAuthFinalize, error)
	ConnectCredentials(ctx context.Context, bearer string, shopName string, clientID string, clientSecret string) error

	StartSync(ctx context.Context, bearer string, shopID string, accessToken string) (*domain.SyncJob, error)
	GetSync(ctx context.Context, bearer string, jobID string) (*domain.SyncJob, error)
}

// CredentialSource yields the caller's bearer credential
type CredentialSource interface {
	BearerToken(ctx context.Context) (string, error)
}
