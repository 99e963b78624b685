package cluster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ClientConfig configures the template client.
type ClientConfig struct {
	Endpoint Endpoint

	// Timeout for individual requests (default: 30s).
	Timeout time.Duration

	// RateLimit requests per second (default: 10).
	RateLimit float64

	// RateBurst maximum burst size (default: 5).
	RateBurst int

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// Client is a rate-limited HTTP client for the cluster's management surface.
// There is deliberately no retry: every failure is terminal for the run.
type Client struct {
	endpoint    Endpoint
	auth        AuthConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a cluster client.
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 5
	}
	return &Client{
		endpoint: config.Endpoint,
		auth:     config.Endpoint.Auth(),
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// Response carries the pieces callers inspect.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports whether the status is in [200, 299].
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Do sends one request. The returned error covers transport failures only;
// HTTP-level rejection is visible on the Response.
func (c *Client) Do(ctx context.Context, method, path, body string) (*Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.endpoint.BaseURL() + path
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, url, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
