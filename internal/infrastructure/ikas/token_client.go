package ikas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTokenPath is the platform's client-credentials endpoint
const DefaultTokenPath = "/oauth/token"

// EndpointFunc builds the token endpoint of a shop
type EndpointFunc func(shopName string) string

// ShopEndpoint returns https://{shopName}.{host}{path}
func ShopEndpoint(host, path string) EndpointFunc {
	if path == "" {
		path = DefaultTokenPath
	}
	return func(shopName string) string {
		return fmt.Sprintf("https://%s.%s%s", url.PathEscape(shopName), host, path)
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type tokenClient struct {
	endpoint   EndpointFunc
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewTokenClient creates a client for the per-shop token endpoint.
// Exchanges are rate limited per shop to rps with a burst of one.
func NewTokenClient(endpoint EndpointFunc, timeout time.Duration, rps float64, logger zerolog.Logger) ports.IkasTokenClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &tokenClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
		rps:        limit,
		burst:      1,
	}
}

func (c *tokenClient) limiter(shopName string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, exists := c.limiters[shopName]
	if !exists {
		limiter = rate.NewLimiter(c.rps, c.burst)
		c.limiters[shopName] = limiter
	}
	return limiter
}

// FetchToken performs the client-credentials exchange
func (c *tokenClient) FetchToken(ctx context.Context, shopName string, clientID string, clientSecret string) (string, error) {
	if err := c.limiter(shopName).Wait(ctx); err != nil {
		return "", fmt.Errorf("token exchange rate limited: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shopName), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var tokenErr tokenErrorResponse
		_ = json.Unmarshal(raw, &tokenErr)
		c.logger.Warn().
			Str("shop", shopName).
			Int("status", resp.StatusCode).
			Str("error", tokenErr.Error).
			Msg("Token endpoint rejected the exchange")
		if tokenErr.ErrorDescription != "" {
			return "", fmt.Errorf("token exchange failed: %s", tokenErr.ErrorDescription)
		}
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response carries no access token")
	}

	return token.AccessToken, nil
}
