package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/metrics"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultTagCheckTimeout = 10 * time.Second

// ConnectionOptions configures the connection orchestrator
type ConnectionOptions struct {
	// StorefrontURL builds the public storefront address of an Ikas shop
	StorefrontURL   func(shopName string) string
	TagCheckTimeout time.Duration
}

// ConnectionService runs the shop connection protocols and normalizes their
// outcome into verified connection records
type ConnectionService struct {
	backend         ports.ConnectionBackend
	credentials     ports.CredentialSource
	repo            ports.ShopConnectionRepository
	directory       *ConnectionDirectory
	tags            ports.TagInspector
	logger          zerolog.Logger
	storefrontURL   func(shopName string) string
	tagCheckTimeout time.Duration
	sideTasks       sync.WaitGroup
	now             func() time.Time
}

// NewConnectionService creates a new connection orchestrator. tags may be nil.
func NewConnectionService(
	backend ports.ConnectionBackend,
	credentials ports.CredentialSource,
	repo ports.ShopConnectionRepository,
	directory *ConnectionDirectory,
	tags ports.TagInspector,
	logger zerolog.Logger,
	opts ConnectionOptions,
) *ConnectionService {
	timeout := opts.TagCheckTimeout
	if timeout <= 0 {
		timeout = defaultTagCheckTimeout
	}
	storefront := opts.StorefrontURL
	if storefront == nil {
		storefront = func(shopName string) string {
			return fmt.Sprintf("https://%s.myikas.com", shopName)
		}
	}
	return &ConnectionService{
		backend:         backend,
		credentials:     credentials,
		repo:            repo,
		directory:       directory,
		tags:            tags,
		logger:          logger,
		storefrontURL:   storefront,
		tagCheckTimeout: timeout,
		now:             time.Now,
	}
}

// InitiateShopify starts the redirect handshake for a Shopify shop
func (s *ConnectionService) InitiateShopify(ctx context.Context, userID string, rawDomain string) (*domain.ConnectResult, error) {
	ctx, span := tracer.Start(ctx, "connections.InitiateShopify")
	defer span.End()

	shopDomain := NormalizeShopDomain(rawDomain)
	if !IsValidShopDomain(shopDomain) {
		return nil, domain.NewValidationError("domain", "Enter a valid Shopify store name, e.g. my-store or my-store.myshopify.com")
	}
	span.SetAttributes(attribute.String("shop.domain", shopDomain))

	bearer, err := s.credentials.BearerToken(ctx)
	if err != nil {
		return nil, domain.NewConnectionError("missing bearer credential", err)
	}

	start, err := s.backend.StartOAuth(ctx, bearer, shopDomain)
	if err != nil {
		metrics.RecordConnectionAttempt(string(domain.ShopTypeShopify), "initiate", false)
		s.logger.Error().Err(err).Str("userId", userID).Str("shop", shopDomain).Msg("Failed to start Shopify OAuth")
		return nil, asConnectionError("failed to start Shopify connection", err)
	}
	metrics.RecordConnectionAttempt(string(domain.ShopTypeShopify), "initiate", true)

	if start.AlreadyVerified {
		s.logger.Info().Str("userId", userID).Str("shop", shopDomain).Msg("Shopify shop already verified")
		s.directory.Refresh(ctx, userID, "shopify_already_verified")
		return &domain.ConnectResult{Success: true, ShopID: shopDomain}, nil
	}

	s.logger.Info().Str("userId", userID).Str("shop", shopDomain).Msg("Redirecting to Shopify OAuth")
	return &domain.ConnectResult{
		Success:     true,
		ShopID:      shopDomain,
		Redirecting: true,
		RedirectURL: start.RedirectURL,
	}, nil
}

// FinalizeShopify completes the handshake after the provider redirected back.
// Only the echoed state authorizes the finalization; repeating it is harmless.
func (s *ConnectionService) FinalizeShopify(ctx context.Context, userID string, rawDomain string, state string) (*domain.ConnectResult, error) {
	ctx, span := tracer.Start(ctx, "connections.FinalizeShopify", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	shopDomain := NormalizeShopDomain(rawDomain)
	if !IsValidShopDomain(shopDomain) {
		return nil, domain.NewValidationError("shop", "Invalid shop parameter on callback")
	}
	if strings.TrimSpace(state) == "" {
		return nil, domain.NewValidationError("state", "Missing state parameter on callback")
	}

	bearer, err := s.credentials.BearerToken(ctx)
	if err != nil {
		return nil, domain.NewConnectionError("missing bearer credential", err)
	}

	result, err := s.backend.FinalizeOAuth(ctx, bearer, state)
	if err != nil {
		metrics.RecordConnectionAttempt(string(domain.ShopTypeShopify), "finalize", false)
		s.logger.Error().Err(err).Str("userId", userID).Str("shop", shopDomain).Msg("Failed to finalize Shopify OAuth")
		return nil, asConnectionError("failed to complete Shopify connection", err)
	}

	if result.ShopDomain != "" && NormalizeShopDomain(result.ShopDomain) != shopDomain {
		s.logger.Warn().
			Str("userId", userID).
			Str("callbackShop", shopDomain).
			Str("stateShop", result.ShopDomain).
			Msg("Callback shop differs from the shop bound to the state, using the state's shop")
		shopDomain = NormalizeShopDomain(result.ShopDomain)
	}

	if result.AlreadyFinalized {
		return s.confirmFinalized(ctx, userID, shopDomain)
	}

	now := s.now()
	conn := &domain.ShopConnection{
		UserID:      userID,
		ShopID:      shopDomain,
		ShopType:    domain.ShopTypeShopify,
		Verified:    true,
		ConnectedAt: now,
		UpdatedAt:   now,
		AccessToken: result.AccessToken,
		Scope:       result.Scope,
	}
	if err := s.repo.Upsert(ctx, conn); err != nil {
		metrics.RecordConnectionAttempt(string(domain.ShopTypeShopify), "finalize", false)
		return nil, domain.NewPersistenceError("save Shopify connection", err)
	}
	metrics.RecordConnectionAttempt(string(domain.ShopTypeShopify), "finalize", true)

	s.directory.Refresh(ctx, userID, "shopify_finalized")
	s.logger.Info().Str("userId", userID).Str("shop", shopDomain).Msg("Shopify shop connected")
	return &domain.ConnectResult{Success: true, ShopID: shopDomain}, nil
}

// confirmFinalized treats a consumed state as success when the connection exists
func (s *ConnectionService) confirmFinalized(ctx context.Context, userID string, shopDomain string) (*domain.ConnectResult, error) {
	existing, err := s.repo.Get(ctx, userID, shopDomain)
	if err != nil {
		return nil, domain.NewPersistenceError("load Shopify connection", err)
	}
	if existing == nil || !existing.Verified {
		metrics.RecordConnectionAttempt(string(domain.ShopTypeShopify), "finalize", false)
		return nil, domain.NewConnectionError("this connection link was already used, please start the connection again", nil)
	}

	metrics.RecordConnectionAttempt(string(domain.ShopTypeShopify), "finalize", true)
	s.directory.Refresh(ctx, userID, "shopify_already_finalized")
	s.logger.Info().Str("userId", userID).Str("shop", shopDomain).Msg("Shopify OAuth already finalized")
	return &domain.ConnectResult{Success: true, ShopID: shopDomain}, nil
}

// ConnectIkas hands the shop credentials to the backend, which performs the
// platform exchange and writes the connection record
func (s *ConnectionService) ConnectIkas(ctx context.Context, userID string, shopName, clientID, clientSecret string) (*domain.ConnectResult, error) {
	ctx, span := tracer.Start(ctx, "connections.ConnectIkas")
	defer span.End()

	shopName = strings.TrimSpace(shopName)
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	switch {
	case shopName == "":
		return nil, domain.NewValidationError("shopName", "Store name is required")
	case clientID == "":
		return nil, domain.NewValidationError("clientId", "Client ID is required")
	case clientSecret == "":
		return nil, domain.NewValidationError("clientSecret", "Client secret is required")
	}
	span.SetAttributes(attribute.String("shop.name", shopName))

	bearer, err := s.credentials.BearerToken(ctx)
	if err != nil {
		return nil, domain.NewConnectionError("missing bearer credential", err)
	}

	if err := s.backend.ConnectCredentials(ctx, bearer, shopName, clientID, clientSecret); err != nil {
		metrics.RecordConnectionAttempt(string(domain.ShopTypeIkas), "connect", false)
		s.logger.Error().Err(err).Str("userId", userID).Str("shop", shopName).Msg("Failed to connect Ikas shop")
		return nil, asConnectionError("failed to connect Ikas store", err)
	}
	metrics.RecordConnectionAttempt(string(domain.ShopTypeIkas), "connect", true)

	s.directory.Refresh(ctx, userID, "ikas_connected")
	s.checkStorefrontTag(ctx, userID, shopName)

	s.logger.Info().Str("userId", userID).Str("shop", shopName).Msg("Ikas shop connected")
	return &domain.ConnectResult{Success: true, ShopID: shopName}, nil
}

// checkStorefrontTag runs the GTM check in the background; it never affects the connection
func (s *ConnectionService) checkStorefrontTag(ctx context.Context, userID string, shopName string) {
	if s.tags == nil {
		return
	}
	storefront := s.storefrontURL(shopName)
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.tagCheckTimeout)

	s.sideTasks.Add(1)
	go func() {
		defer s.sideTasks.Done()
		defer cancel()

		result, err := s.tags.CheckGTM(checkCtx, storefront)
		if err != nil {
			result = domain.TagIndeterminate
			s.logger.Warn().Err(err).Str("userId", userID).Str("storefront", storefront).Msg("GTM check failed")
		}
		metrics.RecordTagCheck(string(result))
		s.logger.Info().
			Str("userId", userID).
			Str("storefront", storefront).
			Str("result", string(result)).
			Msg("GTM check completed")
	}()
}

// WaitSideTasks blocks until background checks finish. Used on shutdown and in tests.
func (s *ConnectionService) WaitSideTasks() {
	s.sideTasks.Wait()
}

// ConnectXMLFeed records a generic product feed; there is no remote handshake
func (s *ConnectionService) ConnectXMLFeed(ctx context.Context, userID string, sourceURL string) (*domain.ConnectResult, error) {
	feedURL, err := parseFeedURL(sourceURL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	conn := &domain.ShopConnection{
		UserID:      userID,
		ShopID:      strings.ToLower(feedURL.Host),
		ShopType:    domain.ShopTypeOther,
		Verified:    true,
		ConnectedAt: now,
		UpdatedAt:   now,
		SourceURL:   feedURL.String(),
	}
	if err := s.repo.Upsert(ctx, conn); err != nil {
		metrics.RecordConnectionAttempt(string(domain.ShopTypeOther), "connect", false)
		return nil, domain.NewPersistenceError("save XML feed connection", err)
	}
	metrics.RecordConnectionAttempt(string(domain.ShopTypeOther), "connect", true)

	s.directory.Refresh(ctx, userID, "xml_connected")
	s.logger.Info().Str("userId", userID).Str("source", conn.SourceURL).Msg("XML feed connected")
	return &domain.ConnectResult{Success: true, ShopID: conn.ShopID}, nil
}

// ListConnections returns the user's verified connections
func (s *ConnectionService) ListConnections(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	return s.directory.VerifiedConnections(ctx, userID)
}

func parseFeedURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.NewValidationError("sourceUrl", "Feed URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, domain.NewValidationError("sourceUrl", "Feed URL is not a valid URL")
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil, domain.NewValidationError("sourceUrl", "Feed URL must start with http:// or https://")
	}
	if !hasXMLSegment(u.Path) {
		return nil, domain.NewValidationError("sourceUrl", "Feed URL must point to an .xml file")
	}
	return u, nil
}

func hasXMLSegment(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if len(segment) > len(".xml") && strings.HasSuffix(strings.ToLower(segment), ".xml") {
			return true
		}
	}
	return false
}

// asConnectionError keeps backend messages intact for the user
func asConnectionError(message string, err error) error {
	var ce *domain.ConnectionError
	if errors.As(err, &ce) {
		return ce
	}
	return domain.NewConnectionError(message, err)
}
