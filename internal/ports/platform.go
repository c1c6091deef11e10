package ports

import (
	"context"

	"archie-core-merchant-onboarding/internal/domain"
)

// IkasTokenClient performs the client-credentials exchange against the shop's token endpoint
type IkasTokenClient interface {
	FetchToken(ctx context.Context, shopName string, clientID string, clientSecret string) (string, error)
}

// IkasAdminClient calls the Ikas admin API with a fresh access token
type IkasAdminClient interface {
	GetMerchant(ctx context.Context, accessToken string) (*domain.ShopInfo, error)
}

// ShopifyClient calls the Shopify admin API
type ShopifyClient interface {
	GetShop(ctx context.Context, shopDomain string, accessToken string) (*domain.ShopInfo, error)
}

// TagInspector checks a storefront for the GTM container tag
type TagInspector interface {
	CheckGTM(ctx context.Context, storefrontURL string) (domain.TagCheckResult, error)
}
