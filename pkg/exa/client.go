// Package exa provides a client for the Exa neural web search API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.exa.ai"

// Client defines the Exa search operations.
type Client interface {
	// Search performs a neural web search and returns ranked documents.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// searchRequest is the request body for POST /search.
type searchRequest struct {
	Query         string    `json:"query"`
	Type          string    `json:"type"`
	UseAutoprompt bool      `json:"useAutoprompt"`
	NumResults    int       `json:"numResults"`
	Contents      *contents `json:"contents,omitempty"`
}

type contents struct {
	Text bool `json:"text"`
}

// SearchResponse is the parsed Exa search response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is a single ranked document.
type SearchResult struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
	Text  string  `json:"text,omitempty"`
}

// SearchOption configures a search request.
type SearchOption func(*searchRequest)

// WithNumResults sets how many ranked documents to return.
func WithNumResults(n int) SearchOption {
	return func(r *searchRequest) {
		r.NumResults = n
	}
}

// WithText requests the text content of each result document.
func WithText(include bool) SearchOption {
	return func(r *searchRequest) {
		if include {
			r.Contents = &contents{Text: true}
		} else {
			r.Contents = nil
		}
	}
}

// Option configures the Exa client.
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Exa search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	req := &searchRequest{
		Query:         query,
		Type:          "neural",
		UseAutoprompt: true,
		NumResults:    5,
		Contents:      &contents{Text: true},
	}
	for _, opt := range opts {
		opt(req)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "exa: marshal request")
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var respBody []byte
	var statusCode int
	for attempt := 1; ; attempt++ {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
		if reqErr != nil {
			return nil, eris.Wrap(reqErr, "exa: create request")
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)

		resp, doErr := c.http.Do(httpReq)
		if doErr != nil {
			if attempt >= maxAttempts {
				return nil, eris.Wrap(doErr, "exa: send request")
			}
		} else {
			respBody, doErr = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if doErr != nil {
				return nil, eris.Wrap(doErr, "exa: read response")
			}
			statusCode = resp.StatusCode
			if !retryableStatusCode(statusCode) || attempt >= maxAttempts {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("exa: unexpected status %d: %s", statusCode, string(respBody))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "exa: unmarshal response")
	}

	return &result, nil
}
