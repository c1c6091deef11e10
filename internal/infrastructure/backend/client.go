package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxResponseBytes = 1 << 20

// Backend answer codes with a meaning beyond success/failure
const (
	codeAlreadyVerified = "already_verified"
	codeStateConsumed   = "state_consumed"
)

type client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Token/OAuth backend client
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) ports.ConnectionBackend {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type startOAuthRequest struct {
	Shop string `json:"shop"`
}

type startOAuthResponse struct {
	RedirectURL     string `json:"redirectUrl"`
	AlreadyVerified bool   `json:"alreadyVerified"`
	Code            string `json:"code"`
}

type finalizeOAuthRequest struct {
	State string `json:"state"`
}

type finalizeOAuthResponse struct {
	OK          bool   `json:"ok"`
	Shop        string `json:"shop"`
	AccessToken string `json:"accessToken"`
	Scope       string `json:"scope"`
}

type connectCredentialsRequest struct {
	ShopName     string `json:"shopName"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type connectCredentialsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type startSyncRequest struct {
	ShopID      string `json:"shopId"`
	AccessToken string `json:"accessToken,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Shop    string `json:"shop"`
}

// apiError is a non-2xx backend answer
type apiError struct {
	status int
	body   errorResponse
}

func (e *apiError) Error() string {
	msg := e.body.Message
	if msg == "" {
		msg = e.body.Error
	}
	if msg == "" {
		msg = http.StatusText(e.status)
	}
	return msg
}

func (c *client) StartOAuth(ctx context.Context, bearer string, shopDomain string) (*domain.OAuthStart, error) {
	var resp startOAuthResponse
	err := c.do(ctx, http.MethodPost, "/shopify/oauth/start", bearer, startOAuthRequest{Shop: shopDomain}, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.body.Code == codeAlreadyVerified {
			return &domain.OAuthStart{AlreadyVerified: true}, nil
		}
		return nil, err
	}
	if resp.AlreadyVerified || resp.Code == codeAlreadyVerified {
		return &domain.OAuthStart{AlreadyVerified: true}, nil
	}
	if resp.RedirectURL == "" {
		return nil, domain.NewConnectionError("backend returned no redirect URL", nil)
	}
	return &domain.OAuthStart{RedirectURL: resp.RedirectURL}, nil
}

func (c *client) FinalizeOAuth(ctx context.Context, bearer string, state string) (*domain.OAuthFinalize, error) {
	var resp finalizeOAuthResponse
	err := c.do(ctx, http.MethodPost, "/shopify/oauth/finalize", bearer, finalizeOAuthRequest{State: state}, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.body.Code == codeStateConsumed {
			return &domain.OAuthFinalize{ShopDomain: apiErr.body.Shop, AlreadyFinalized: true}, nil
		}
		return nil, err
	}
	return &domain.OAuthFinalize{
		ShopDomain:  resp.Shop,
		AccessToken: resp.AccessToken,
		Scope:       resp.Scope,
	}, nil
}

func (c *client) ConnectCredentials(ctx context.Context, bearer string, shopName string, clientID string, clientSecret string) error {
	var resp connectCredentialsResponse
	req := connectCredentialsRequest{ShopName: shopName, ClientID: clientID, ClientSecret: clientSecret}
	if err := c.do(ctx, http.MethodPost, "/ikas/connect", bearer, req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "the store rejected the credentials"
		}
		return domain.NewConnectionError(msg, nil)
	}
	return nil
}

func (c *client) StartSync(ctx context.Context, bearer string, shopID string, accessToken string) (*domain.SyncJob, error) {
	var job domain.SyncJob
	if err := c.do(ctx, http.MethodPost, "/sync", bearer, startSyncRequest{ShopID: shopID, AccessToken: accessToken}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *client) GetSync(ctx context.Context, bearer string, jobID string) (*domain.SyncJob, error) {
	var job domain.SyncJob
	if err := c.do(ctx, http.MethodGet, "/sync/"+url.PathEscape(jobID), bearer, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// do sends one JSON request under the caller's bearer credential
func (c *client) do(ctx context.Context, method, path, bearer string, in any, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewConnectionError("backend unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.NewConnectionError("failed to read backend response", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("requestId", requestID).
		Int("status", resp.StatusCode).
		Msg("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{status: resp.StatusCode}
		_ = json.Unmarshal(raw, &apiErr.body)
		if apiErr.body.Code == codeAlreadyVerified || apiErr.body.Code == codeStateConsumed {
			return apiErr
		}
		return domain.NewConnectionError(apiErr.Error(), nil)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewConnectionError("unexpected backend response", err)
	}
	return nil
}
