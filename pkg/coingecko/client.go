// Package coingecko provides a client for the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/voxcart/voxcart/internal/resilience"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches live asset prices.
type Client interface {
	// SimplePrice returns the price of asset (CoinGecko id, e.g. "ethereum")
	// denominated in vs (e.g. "usd").
	SimplePrice(ctx context.Context, asset, vs string) (float64, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryPolicy overrides the retry policy. The free tier rate limits
// aggressively, so the default backs off on 429 and 5xx responses.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	retry   resilience.Policy
}

// NewClient creates a CoinGecko client. The simple price endpoint requires
// no API key.
func NewClient(opts ...Option) Client {
	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.LogRetries("coingecko", "simple_price")

	c := &httpClient{
		baseURL: defaultBaseURL,
		retry:   retry,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SimplePrice(ctx context.Context, asset, vs string) (float64, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (float64, error) {
		return c.simplePrice(ctx, asset, vs)
	})
}

func (c *httpClient) simplePrice(ctx context.Context, asset, vs string) (float64, error) {
	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", c.baseURL, asset, vs)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "coingecko: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "coingecko: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "coingecko: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("coingecko: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return 0, resilience.NewUpstreamError(err, resp.StatusCode)
		}
		return 0, err
	}

	// Response shape: {"ethereum": {"usd": 2000.12}}
	var prices map[string]map[string]float64
	if err := json.Unmarshal(body, &prices); err != nil {
		return 0, eris.Wrap(err, "coingecko: unmarshal response")
	}

	price, ok := prices[asset][vs]
	if !ok {
		return 0, eris.Errorf("coingecko: no %s/%s price in response: %s", asset, vs, string(body))
	}
	return price, nil
}
