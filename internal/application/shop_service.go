package application

import (
	"context"
	"strings"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
)

// ShopService performs privileged calls against the user's active shop
type ShopService struct {
	directory   *ConnectionDirectory
	repo        ports.ShopConnectionRepository
	tokens      *TokenLifecycleManager
	shopify     ports.ShopifyClient
	ikas        ports.IkasAdminClient
	backend     ports.ConnectionBackend
	credentials ports.CredentialSource
	logger      zerolog.Logger
}

// NewShopService creates a new shop service
func NewShopService(
	directory *ConnectionDirectory,
	repo ports.ShopConnectionRepository,
	tokens *TokenLifecycleManager,
	shopify ports.ShopifyClient,
	ikas ports.IkasAdminClient,
	backend ports.ConnectionBackend,
	credentials ports.CredentialSource,
	logger zerolog.Logger,
) *ShopService {
	return &ShopService{
		directory:   directory,
		repo:        repo,
		tokens:      tokens,
		shopify:     shopify,
		ikas:        ikas,
		backend:     backend,
		credentials: credentials,
		logger:      logger,
	}
}

// ActiveShop returns the first verified connection in snapshot order.
// TODO: let merchants with several verified shops pick one once product defines the choice.
func (s *ShopService) ActiveShop(ctx context.Context, userID string) (*domain.ShopConnection, error) {
	conns, err := s.directory.CachedRead(ctx, userID)
	if err == nil {
		if shop := domain.FirstVerified(conns); shop != nil {
			return shop, nil
		}
	}
	conns, err = s.directory.AuthoritativeRead(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("list shop connections", err)
	}
	if shop := domain.FirstVerified(conns); shop != nil {
		return shop, nil
	}
	return nil, domain.ErrNotFound
}

// activeCredentials loads the full stored record of the active shop.
// Cached snapshots never carry platform secrets.
func (s *ShopService) activeCredentials(ctx context.Context, userID string) (*domain.ShopConnection, error) {
	shop, err := s.ActiveShop(ctx, userID)
	if err != nil {
		return nil, err
	}
	conn, err := s.repo.Get(ctx, userID, shop.ShopID)
	if err != nil {
		return nil, domain.NewPersistenceError("load shop connection", err)
	}
	if conn == nil || !conn.Verified {
		return nil, domain.ErrNotFound
	}
	return conn, nil
}

// ShopInfo fetches live data for the active shop with a fresh platform credential
func (s *ShopService) ShopInfo(ctx context.Context, userID string) (*domain.ShopInfo, error) {
	shop, err := s.activeCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch shop.ShopType {
	case domain.ShopTypeShopify:
		info, err := s.shopify.GetShop(ctx, shop.ShopID, shop.AccessToken)
		if err != nil {
			return nil, domain.NewConnectionError("failed to reach Shopify", err)
		}
		return info, nil
	case domain.ShopTypeIkas:
		token, err := s.tokens.EnsureFreshToken(ctx, shop)
		if err != nil {
			return nil, err
		}
		info, err := s.ikas.GetMerchant(ctx, token)
		if err != nil {
			return nil, domain.NewConnectionError("failed to reach Ikas", err)
		}
		info.ShopID = shop.ShopID
		return info, nil
	default:
		return &domain.ShopInfo{
			ShopID:   shop.ShopID,
			ShopType: shop.ShopType,
			Name:     feedName(shop.SourceURL),
		}, nil
	}
}

// StartSync starts the remote catalog sync job for the active shop
func (s *ShopService) StartSync(ctx context.Context, userID string) (*domain.SyncJob, error) {
	shop, err := s.activeCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.EnsureFreshToken(ctx, shop)
	if err != nil {
		return nil, err
	}

	bearer, err := s.credentials.BearerToken(ctx)
	if err != nil {
		return nil, domain.NewConnectionError("missing bearer credential", err)
	}

	job, err := s.backend.StartSync(ctx, bearer, shop.ShopID, token)
	if err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Str("shop", shop.ShopID).Msg("Failed to start catalog sync")
		return nil, asConnectionError("failed to start catalog sync", err)
	}

	s.logger.Info().Str("userId", userID).Str("shop", shop.ShopID).Str("jobId", job.ID).Msg("Catalog sync started")
	return job, nil
}

// SyncStatus polls a catalog sync job
func (s *ShopService) SyncStatus(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	bearer, err := s.credentials.BearerToken(ctx)
	if err != nil {
		return nil, domain.NewConnectionError("missing bearer credential", err)
	}
	job, err := s.backend.GetSync(ctx, bearer, jobID)
	if err != nil {
		return nil, asConnectionError("failed to poll catalog sync", err)
	}
	return job, nil
}

func feedName(sourceURL string) string {
	if i := strings.LastIndex(sourceURL, "/"); i >= 0 && i < len(sourceURL)-1 {
		return sourceURL[i+1:]
	}
	return sourceURL
}
