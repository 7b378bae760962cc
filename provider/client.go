// Package provider builds the read-only payment-provider client used to
// probe an event's pending delivery count. Clients are constructed fresh
// from explicit credentials on every reconciliation run and never cached in
// shared mutable state.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relaywatch/go-relaywatch/core"
)

const (
	defaultBaseURL          = "https://api.stripe.com"
	defaultRequestTimeout   = 10 * time.Second
	maxEventResponseBytes   = 1 << 20 // 1 MiB
	connectedAccountHeader  = "Stripe-Account"
	eventEndpointPathPrefix = "/v1/events/"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// PlatformAPIKey authenticates connected-account probes; tenant-owned
	// keys are carried on the credentials themselves.
	PlatformAPIKey string
	BaseURL        string
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
}

type Option func(*Config)

func WithPlatformAPIKey(key string) Option {
	return func(c *Config) {
		c.PlatformAPIKey = strings.TrimSpace(key)
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// Client probes one tenant's view of the provider events API.
type Client struct {
	httpClient     HTTPDoer
	baseURL        string
	apiKey         string
	accountID      string
	requestTimeout time.Duration
}

// ClientFactory returns a core.ClientFactory bound to shared transport
// settings. The returned factory is pure: every call builds a new Client
// from the credentials it is given.
func ClientFactory(opts ...Option) core.ClientFactory {
	cfg := Config{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return func(creds core.TenantCredentials) (core.ProviderClient, error) {
		return ResolveClient(creds, cfg)
	}
}

// ResolveClient builds a provider client for one tenant: key-scoped when the
// credentials carry a tenant-owned API key, account-scoped through the
// platform key otherwise.
func ResolveClient(creds core.TenantCredentials, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(creds.APIKey)
	accountID := strings.TrimSpace(creds.AccountID)

	client := &Client{
		httpClient:     cfg.HTTPClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		requestTimeout: cfg.RequestTimeout,
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.requestTimeout <= 0 {
		client.requestTimeout = defaultRequestTimeout
	}

	switch {
	case apiKey != "":
		client.apiKey = apiKey
	case accountID != "":
		platformKey := strings.TrimSpace(cfg.PlatformAPIKey)
		if platformKey == "" {
			return nil, fmt.Errorf("provider: platform api key is required for connected account %q", accountID)
		}
		client.apiKey = platformKey
		client.accountID = accountID
	default:
		return nil, fmt.Errorf("provider: credentials carry neither an api key nor an account id")
	}
	return client, nil
}

type eventPayload struct {
	ID              string `json:"id"`
	PendingWebhooks int    `json:"pending_webhooks"`
}

// PendingDeliveries fetches the event and returns its current pending
// delivery count. One synchronous round trip; no internal retry.
func (c *Client) PendingDeliveries(ctx context.Context, eventID string) (int, error) {
	if c == nil || c.httpClient == nil {
		return 0, fmt.Errorf("provider: client is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return 0, fmt.Errorf("provider: event id is required")
	}

	requestCtx := ctx
	cancel := func() {}
	if c.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
	}
	defer cancel()

	endpoint := c.baseURL + eventEndpointPathPrefix + url.PathEscape(eventID)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.accountID != "" {
		req.Header.Set(connectedAccountHeader, c.accountID)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxEventResponseBytes+1))
	if readErr != nil {
		return 0, fmt.Errorf("provider: read event response: %w", readErr)
	}
	if int64(len(body)) > maxEventResponseBytes {
		return 0, fmt.Errorf("provider: event response exceeds %d bytes", maxEventResponseBytes)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("provider: event endpoint returned status %d", res.StatusCode)
	}

	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("provider: decode event response: %w", err)
	}
	if payload.PendingWebhooks < 0 {
		return 0, fmt.Errorf("provider: event %q reported negative pending count", eventID)
	}
	return payload.PendingWebhooks, nil
}

var _ core.ProviderClient = (*Client)(nil)
