package shopify

import (
	"context"
	"fmt"
	"net/http"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	app     goshopify.App
	options []goshopify.Option
	logger  zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string, logger zerolog.Logger, opts ...goshopify.Option) ports.ShopifyClient {
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		options: opts,
		logger:  logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, c.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// GetShop fetches the live shop profile
func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*domain.ShopInfo, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("no access token stored for shop %s", shopDomain)
	}
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	c.logger.Debug().Str("shop", shopDomain).Msg("Fetched Shopify shop")
	return &domain.ShopInfo{
		ShopID:   shopDomain,
		ShopType: domain.ShopTypeShopify,
		Name:     shop.Name,
		Email:    shop.Email,
		Currency: shop.Currency,
	}, nil
}

// WebhookVerifier checks the HMAC signature Shopify puts on webhook requests
type WebhookVerifier struct {
	app goshopify.App
}

// NewWebhookVerifier creates a verifier for the app's shared secret
func NewWebhookVerifier(apiSecret string) *WebhookVerifier {
	return &WebhookVerifier{app: goshopify.App{ApiSecret: apiSecret}}
}

// Verify reports whether the request body matches its X-Shopify-Hmac-Sha256 header.
// The body stays readable afterwards.
func (v *WebhookVerifier) Verify(r *http.Request) bool {
	if v.app.ApiSecret == "" {
		return false
	}
	return v.app.VerifyWebhookRequest(r)
}
