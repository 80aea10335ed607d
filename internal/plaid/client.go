// Package plaid is a minimal client for the Plaid bank-aggregation API.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Environment selects the Plaid host.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

func (e Environment) baseURL() string {
	switch e {
	case EnvProduction:
		return "https://production.plaid.com"
	default:
		return "https://sandbox.plaid.com"
	}
}

// Config holds Plaid API credentials and link defaults.
type Config struct {
	ClientID     string
	Secret       string
	Environment  Environment
	ClientName   string
	CountryCodes []string
	Products     []string
	Language     string
	Timeout      time.Duration
}

// ConfigFromEnv reads credentials from PLAID_CLIENT_ID / PLAID_SECRET and
// defaults everything else to a US transactions sandbox setup.
func ConfigFromEnv() Config {
	env := EnvSandbox
	if os.Getenv("PLAID_ENV") == "production" {
		env = EnvProduction
	}
	return Config{
		ClientID:     os.Getenv("PLAID_CLIENT_ID"),
		Secret:       os.Getenv("PLAID_SECRET"),
		Environment:  env,
		ClientName:   "Clarity",
		CountryCodes: []string{"US"},
		Products:     []string{"transactions"},
		Language:     "en",
	}
}

// Client talks to the Plaid REST API. All endpoints are POST with the
// credentials injected into the JSON body.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// New creates a Plaid client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		baseURL:    cfg.Environment.baseURL(),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsConfigured reports whether credentials are present.
func (c *Client) IsConfigured() bool {
	return c.cfg.ClientID != "" && c.cfg.Secret != ""
}

// APIError is a structured Plaid error response.
type APIError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	DisplayMsg   string `json:"display_message"`
	RequestID    string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid: %s - %s", e.ErrorCode, e.ErrorMessage)
}

// post sends a request to the given endpoint with credentials added.
func (c *Client) post(ctx context.Context, endpoint string, body, result interface{}) error {
	payload := map[string]interface{}{
		"client_id": c.cfg.ClientID,
		"secret":    c.cfg.Secret,
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("merge body: %w", err)
		}
		payload["client_id"] = c.cfg.ClientID
		payload["secret"] = c.cfg.Secret
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.ErrorCode != "" {
			return &apiErr
		}
		return fmt.Errorf("plaid: status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// LinkTokenResponse from /link/token/create.
type LinkTokenResponse struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
	RequestID  string    `json:"request_id"`
}

// CreateLinkToken creates a token for the Link flow in the client app.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (*LinkTokenResponse, error) {
	req := map[string]interface{}{
		"user":          map[string]string{"client_user_id": userID},
		"client_name":   c.cfg.ClientName,
		"products":      c.cfg.Products,
		"country_codes": c.cfg.CountryCodes,
		"language":      c.cfg.Language,
	}

	var resp LinkTokenResponse
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExchangeResponse from /item/public_token/exchange.
type ExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

// ExchangePublicToken swaps the public token Link produced for a long-lived
// access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error) {
	var resp ExchangeResponse
	err := c.post(ctx, "/item/public_token/exchange",
		map[string]string{"public_token": publicToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccounts retrieves accounts with current balances.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	var resp AccountsResponse
	err := c.post(ctx, "/accounts/get", map[string]string{"access_token": accessToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncTransactions pulls one page of the cursor-based transactions feed.
// Pass an empty cursor on the first call.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncResponse, error) {
	req := map[string]interface{}{
		"access_token": accessToken,
		"options": map[string]interface{}{
			"include_personal_finance_category": true,
		},
	}
	if cursor != "" {
		req["cursor"] = cursor
	}

	var resp SyncResponse
	if err := c.post(ctx, "/transactions/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncAll drains the transactions feed from the given cursor and returns the
// accumulated changes plus the cursor to persist for the next run.
func (c *Client) SyncAll(ctx context.Context, accessToken, cursor string) (*SyncResponse, error) {
	combined := &SyncResponse{NextCursor: cursor}
	for {
		page, err := c.SyncTransactions(ctx, accessToken, combined.NextCursor)
		if err != nil {
			return nil, err
		}
		combined.Added = append(combined.Added, page.Added...)
		combined.Modified = append(combined.Modified, page.Modified...)
		combined.Removed = append(combined.Removed, page.Removed...)
		combined.NextCursor = page.NextCursor
		if !page.HasMore {
			return combined, nil
		}
	}
}

// GetInstitution looks up institution metadata by id.
func (c *Client) GetInstitution(ctx context.Context, institutionID string) (*Institution, error) {
	req := map[string]interface{}{
		"institution_id": institutionID,
		"country_codes":  c.cfg.CountryCodes,
		"options":        map[string]bool{"include_optional_metadata": true},
	}

	var resp struct {
		Institution Institution `json:"institution"`
	}
	if err := c.post(ctx, "/institutions/get_by_id", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Institution, nil
}

// RemoveItem disconnects an institution and invalidates its access token.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/item/remove", map[string]string{"access_token": accessToken}, nil)
}

// CreateSandboxPublicToken mints a test public token. Sandbox only.
func (c *Client) CreateSandboxPublicToken(ctx context.Context, institutionID string) (string, error) {
	if c.cfg.Environment != EnvSandbox {
		return "", fmt.Errorf("plaid: sandbox only endpoint")
	}

	req := map[string]interface{}{
		"institution_id":   institutionID,
		"initial_products": c.cfg.Products,
	}
	var resp struct {
		PublicToken string `json:"public_token"`
	}
	if err := c.post(ctx, "/sandbox/public_token/create", req, &resp); err != nil {
		return "", err
	}
	return resp.PublicToken, nil
}
