package application

import (
	"regexp"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

var shopifyDomainPattern = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// NormalizeShopDomain turns user input such as "My-Store" or
// "https://my-store.myshopify.com/" into "my-store.myshopify.com"
func NormalizeShopDomain(input string) string {
	shop := strings.ToLower(strings.TrimSpace(input))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	shop = strings.TrimRight(shop, "/")
	if shop == "" {
		return ""
	}
	return goshopify.ShopFullName(shop)
}

// IsValidShopDomain reports whether domain is a *.myshopify.com shop domain
func IsValidShopDomain(domain string) bool {
	return shopifyDomainPattern.MatchString(domain)
}
