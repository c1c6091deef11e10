package ikas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultAPIURL is the admin GraphQL endpoint
const DefaultAPIURL = "https://api.myikas.com/api/v1/admin/graphql"

const merchantQuery = `{ getMerchant { id storeName email currencyCode } }`

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type merchantResponse struct {
	Data struct {
		GetMerchant *struct {
			ID           string `json:"id"`
			StoreName    string `json:"storeName"`
			Email        string `json:"email"`
			CurrencyCode string `json:"currencyCode"`
		} `json:"getMerchant"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type adminClient struct {
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAdminClient creates an admin API client
func NewAdminClient(apiURL string, timeout time.Duration, logger zerolog.Logger) ports.IkasAdminClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &adminClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GetMerchant returns the store profile behind the access token
func (c *adminClient) GetMerchant(ctx context.Context, accessToken string) (*domain.ShopInfo, error) {
	payload, err := json.Marshal(graphQLRequest{Query: merchantQuery})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach admin API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read admin API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("admin API returned status %d", resp.StatusCode)
	}

	var out merchantResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode admin API response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("admin API error: %s", out.Errors[0].Message)
	}
	if out.Data.GetMerchant == nil {
		return nil, fmt.Errorf("admin API returned no merchant")
	}

	m := out.Data.GetMerchant
	return &domain.ShopInfo{
		ShopType: domain.ShopTypeIkas,
		Name:     m.StoreName,
		Email:    m.Email,
		Currency: m.CurrencyCode,
	}, nil
}
