// Package gateway implements ramp.Gateway over the provider's HTTP API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	ramp "github.com/openramp/ramp-go"
)

// Client communicates with the remote ramp provider over HTTP.
// Implements ramp.Gateway.
type Client struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
}

// ClientConfig configures the HTTP gateway client
type ClientConfig struct {
	// BaseURL is the base URL of the provider API
	BaseURL string

	// AppID identifies the integrating application
	AppID string

	// APIKey authenticates requests (optional for sandbox endpoints)
	APIKey string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// DefaultBaseURL is the public provider API.
const DefaultBaseURL = "https://api.developer.coinbase.com/onramp/v1"

// NewClient creates a new HTTP gateway client
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &Client{
		baseURL:    baseURL,
		appID:      config.AppID,
		apiKey:     config.APIKey,
		httpClient: httpClient,
	}
}

// GetConfig returns the supported countries and their payment methods.
func (c *Client) GetConfig(ctx context.Context) (*ramp.Config, error) {
	var out struct {
		Data ramp.Config `json:"data"`
	}
	if err := c.get(ctx, "/buy/config", nil, &out); err != nil {
		return nil, fmt.Errorf("fetching config: %w", err)
	}
	return &out.Data, nil
}

// GetBuyOptions returns the purchase-side option set for a region.
func (c *Client) GetBuyOptions(ctx context.Context, country, subdivision string) (*ramp.BuyOptions, error) {
	q := url.Values{}
	q.Set("country", country)
	if subdivision != "" {
		q.Set("subdivision", subdivision)
	}
	var out struct {
		Data ramp.BuyOptions `json:"data"`
	}
	if err := c.get(ctx, "/buy/options", q, &out); err != nil {
		return nil, fmt.Errorf("fetching buy options: %w", err)
	}
	return &out.Data, nil
}

// GetSellOptions returns the sell-side option set for a region. The
// response is schema-validated before decoding.
func (c *Client) GetSellOptions(ctx context.Context, country, subdivision string) (*ramp.SellOptions, error) {
	req := map[string]string{"country": country}
	if subdivision != "" {
		req["subdivision"] = subdivision
	}
	body, err := c.post(ctx, "/sell/options", req)
	if err != nil {
		return nil, fmt.Errorf("fetching sell options: %w", err)
	}
	if err := validateSellOptions(body); err != nil {
		return nil, fmt.Errorf("sell options response: %w", err)
	}
	var wire sellOptionsWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decoding sell options: %w", err)
	}
	return wire.toDomain(), nil
}

// GetBuyQuote prices a pending purchase.
func (c *Client) GetBuyQuote(ctx context.Context, req ramp.BuyQuoteRequest) (*ramp.BuyQuote, error) {
	body, err := c.post(ctx, "/buy/quote", req)
	if err != nil {
		return nil, fmt.Errorf("fetching buy quote: %w", err)
	}
	var out struct {
		Data ramp.BuyQuote `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding buy quote: %w", err)
	}
	return &out.Data, nil
}

// GetSellQuote prices a pending sale. The response is schema-validated
// before decoding.
func (c *Client) GetSellQuote(ctx context.Context, req ramp.SellQuoteRequest) (*ramp.SellQuote, error) {
	body, err := c.post(ctx, "/sell/quote", req)
	if err != nil {
		return nil, fmt.Errorf("fetching sell quote: %w", err)
	}
	if err := validateSellQuote(body); err != nil {
		return nil, fmt.Errorf("sell quote response: %w", err)
	}
	var quote ramp.SellQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("decoding sell quote: %w", err)
	}
	return &quote, nil
}

// GetSecureToken mints a single-use checkout session token.
func (c *Client) GetSecureToken(ctx context.Context, req ramp.SecureTokenRequest) (string, error) {
	body, err := c.post(ctx, "/token", req)
	if err != nil {
		return "", fmt.Errorf("fetching secure token: %w", err)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding secure token: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("secure token response contained no token")
	}
	return out.Token, nil
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// post performs a POST request with a JSON body and returns the raw
// response bytes.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req)
}

// do sends the request with auth headers and returns the response body,
// converting non-2xx statuses into errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Content-Type", "application/json")
	if c.appID != "" {
		req.Header.Set("X-App-Id", c.appID)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// Ensure Client implements ramp.Gateway
var _ ramp.Gateway = (*Client)(nil)
