package storefront

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	"golang.org/x/net/html"
)

const maxPageBytes = 2 << 20

// GTMInspector looks for the Google Tag Manager container on a storefront page
type GTMInspector struct {
	httpClient *http.Client
}

// NewGTMInspector creates a new storefront inspector
func NewGTMInspector(httpClient *http.Client) ports.TagInspector {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GTMInspector{httpClient: httpClient}
}

// CheckGTM fetches the storefront and reports whether a GTM script or noscript iframe is present.
// Any failure to fetch or parse the page is indeterminate.
func (i *GTMInspector) CheckGTM(ctx context.Context, storefrontURL string) (domain.TagCheckResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, storefrontURL, nil)
	if err != nil {
		return domain.TagIndeterminate, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return domain.TagIndeterminate, fmt.Errorf("failed to fetch storefront: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.TagIndeterminate, fmt.Errorf("storefront returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return domain.TagIndeterminate, fmt.Errorf("failed to parse storefront: %w", err)
	}

	if containsGTM(doc) {
		return domain.TagInstalled, nil
	}
	return domain.TagMissing, nil
}

func containsGTM(n *html.Node) bool {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "noscript":
			if isGTMURL(attr(n, "src")) {
				return true
			}
			if c := n.FirstChild; c != nil && c.Type == html.TextNode && isGTMURL(c.Data) {
				return true
			}
		case "iframe":
			if isGTMURL(attr(n, "src")) {
				return true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsGTM(c) {
			return true
		}
	}
	return false
}

func isGTMURL(s string) bool {
	return strings.Contains(s, "googletagmanager.com/gtm.js") || strings.Contains(s, "googletagmanager.com/ns.html")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
