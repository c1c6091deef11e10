package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"archie-core-merchant-onboarding/internal/application"
	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler unverifies every connection to a shop that removed the app
type AppUninstalledHandler struct {
	logger     zerolog.Logger
	repository ports.ShopConnectionRepository
	directory  *application.ConnectionDirectory
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(
	logger zerolog.Logger,
	repository ports.ShopConnectionRepository,
	directory *application.ConnectionDirectory,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:     logger,
		repository: repository,
		directory:  directory,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

type uninstalledShop struct {
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
}

// Handle processes an app uninstalled webhook event.
// Records are kept for audit; only the verified flag is cleared.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var shop uninstalledShop
		if err := json.Unmarshal(event.Payload, &shop); err != nil {
			return fmt.Errorf("failed to parse app uninstalled webhook payload: %w", err)
		}
		shopDomain = shop.MyshopifyDomain
		if shopDomain == "" {
			shopDomain = shop.Domain
		}
	}
	shopDomain = application.NormalizeShopDomain(shopDomain)
	if shopDomain == "" {
		return fmt.Errorf("app uninstalled webhook carries no shop domain")
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("Processing app uninstalled webhook event")

	users, err := h.repository.MarkUnverifiedByShop(ctx, domain.ShopTypeShopify, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to unverify connections for shop %s: %w", shopDomain, err)
	}

	for _, userID := range users {
		h.directory.Refresh(ctx, userID, "shopify_uninstalled")
	}

	h.logger.Info().
		Str("shop", shopDomain).
		Int("users", len(users)).
		Msg("App uninstalled - connections unverified")
	return nil
}
