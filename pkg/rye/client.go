// Package rye provides a client for the Rye marketplace GraphQL API:
// product detail lookups and cart creation with JWT bearer credentials.
package rye

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultEndpoint = "https://staging.graphql.api.rye.com/v1/query"

// ErrProductNotFound is returned when the catalog has no record for an
// identifier.
var ErrProductNotFound = eris.New("rye: product not found")

// ErrNoCart is returned when a createCart response carries no cart id. The
// wrapping error includes the raw upstream response body for diagnosis.
var ErrNoCart = eris.New("rye: response contained no cart")

// Client defines the marketplace operations used by the pipeline.
type Client interface {
	// ProductByID fetches full product detail for a marketplace identifier.
	ProductByID(ctx context.Context, id string) (*Product, error)
	// CreateCart creates a cart holding one unit of the given product with
	// the supplied buyer identity attached.
	CreateCart(ctx context.Context, productID string, buyer BuyerIdentity) (*Cart, error)
}

// Product is the catalog record for a single marketplace item.
type Product struct {
	ID          string  `json:"id"`
	ASIN        string  `json:"ASIN,omitempty"`
	Marketplace string  `json:"marketplace"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Vendor      string  `json:"vendor"`
	URL         string  `json:"url"`
	IsAvailable bool    `json:"isAvailable"`
	Images      []Image `json:"images"`
	Price       Money   `json:"price"`
}

// Image is a product image URL.
type Image struct {
	URL string `json:"url"`
}

// Money is a marketplace price.
type Money struct {
	Currency     string  `json:"currency"`
	DisplayValue string  `json:"displayValue"`
	Value        float64 `json:"value"`
}

// BuyerIdentity is the shipping/contact profile embedded in createCart.
type BuyerIdentity struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Address1     string
	City         string
	ProvinceCode string
	CountryCode  string
	PostalCode   string
}

// Cart is the created marketplace cart with its estimated cost breakdown.
type Cart struct {
	ID     string      `json:"id"`
	Cost   Cost        `json:"cost"`
	Stores []CartStore `json:"stores"`
}

// Cost is the cart-level cost summary. Values are estimates until the
// marketplace confirms settlement.
type Cost struct {
	IsEstimated bool  `json:"isEstimated"`
	Subtotal    Money `json:"subtotal"`
	Shipping    Money `json:"shipping"`
	Total       Money `json:"total"`
}

// CartStore is a per-store view of accepted line items and errors.
type CartStore struct {
	Store     string      `json:"store"`
	CartLines []CartLine  `json:"cartLines"`
	Errors    []CartError `json:"errors"`
}

// CartLine is one accepted line item.
type CartLine struct {
	Quantity int `json:"quantity"`
	Product  struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"product"`
}

// CartError is a per-store rejection from the cart service.
type CartError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Option configures the Rye client.
type Option func(*httpClient)

// WithEndpoint sets a custom GraphQL endpoint (for testing, or production
// instead of staging).
func WithEndpoint(url string) Option {
	return func(c *httpClient) {
		c.endpoint = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for marketplace calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	basicAuth string
	shopperIP string
	issuer    *CredentialIssuer
	endpoint  string
	limiter   *rate.Limiter
	http      *http.Client
}

// NewClient creates a marketplace client. basicAuth authorizes read
// operations; issuer mints the request-scoped bearer credential required by
// cart mutations.
func NewClient(basicAuth, shopperIP string, issuer *CredentialIssuer, opts ...Option) Client {
	c := &httpClient{
		basicAuth: basicAuth,
		shopperIP: shopperIP,
		issuer:    issuer,
		endpoint:  defaultEndpoint,
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

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// graphQLRequest is the wire envelope for POST /v1/query.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// post executes one GraphQL call and returns the raw response body along
// with the decoded data and errors fields.
func (c *httpClient) post(ctx context.Context, authorization string, req graphQLRequest, data any) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "rye: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "rye: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", authorization)
	if c.shopperIP != "" {
		httpReq.Header.Set("Rye-Shopper-IP", c.shopperIP)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "rye: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "rye: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return respBody, eris.Errorf("rye: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return respBody, eris.Wrap(err, "rye: unmarshal envelope")
	}
	if len(envelope.Errors) > 0 {
		return respBody, eris.Errorf("rye: graphql error: %s", envelope.Errors[0].Message)
	}
	if data != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			return respBody, eris.Wrap(err, "rye: unmarshal data")
		}
	}
	return respBody, nil
}

const productByIDQuery = `
query ProductFetch($input: ProductByIDInput!) {
  product: productByID(input: $input) {
    id
    marketplace
    title
    description
    vendor
    url
    isAvailable
    images {
      url
    }
    price {
      currency
      displayValue
      value
    }
    ... on AmazonProduct {
      ASIN
    }
  }
}`

func (c *httpClient) ProductByID(ctx context.Context, id string) (*Product, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rye: rate limit")
	}

	req := graphQLRequest{
		Query: productByIDQuery,
		Variables: map[string]any{
			"input": map[string]any{
				"id":          id,
				"marketplace": "AMAZON",
			},
		},
	}

	var data struct {
		Product *Product `json:"product"`
	}
	if _, err := c.post(ctx, "Basic "+c.basicAuth, req, &data); err != nil {
		return nil, eris.Wrapf(err, "rye: product %s", id)
	}
	if data.Product == nil {
		return nil, eris.Wrapf(ErrProductNotFound, "rye: product %s", id)
	}
	return data.Product, nil
}

/// createCartMutation embeds the buyer identity inline: countryCode is a
// GraphQL enum and cannot travel as a quoted string variable.
const createCartMutation = `
mutation CreateCart($productID: ID!) {
  createCart(
    input: {
      cartSettings: {
        amazonSettings: { fulfilledByAmazon: true }
      }
      items: {
        amazonCartItemsInput: [{
          quantity: 1
          productId: $productID
        }]
      }
      buyerIdentity: {
        firstName: %s
        lastName: %s
        phone: %s
        email: %s
        address1: %s
        city: %s
        countryCode: %s
        provinceCode: %s
        postalCode: %s
      }
    }
  ) {
    cart {
      id
      cost {
        isEstimated
        subtotal { currency displayValue value }
        shipping { currency displayValue value }
        total { currency displayValue value }
      }
      stores {
        ... on AmazonStore {
          store
          cartLines {
            quantity
            product { id title }
          }
          errors { code message }
        }
      }
    }
    errors { code message }
  }
}`

func (c *httpClient) CreateCart(ctx context.Context, productID string, buyer BuyerIdentity) (*Cart, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rye: rate limit")
	}
	if c.issuer == nil {
		return nil, eris.New("rye: credential issuer not configured")
	}

	// Minted fresh per request; the marketplace caps credential lifetime at
	// one hour, so tokens are never reused across calls.
	token, err := c.issuer.Issue()
	if err != nil {
		return nil, err
	}

	mutation := fmt.Sprintf(createCartMutation,
		strconv.Quote(buyer.FirstName),
		strconv.Quote(buyer.LastName),
		strconv.Quote(buyer.Phone),
		strconv.Quote(buyer.Email),
		strconv.Quote(buyer.Address1),
		strconv.Quote(buyer.City),
		buyer.CountryCode,
		strconv.Quote(buyer.ProvinceCode),
		strconv.Quote(buyer.PostalCode),
	)

	req := graphQLRequest{
		Query:     mutation,
		Variables: map[string]any{"productID": productID},
	}

	var data struct {
		CreateCart struct {
			Cart   *Cart       `json:"cart"`
			Errors []CartError `json:"errors"`
		} `json:"createCart"`
	}
	raw, err := c.post(ctx, "Bearer "+token, req, &data)
	if err != nil {
		return nil, eris.Wrapf(err, "rye: create cart %s", productID)
	}
	if data.CreateCart.Cart == nil || data.CreateCart.Cart.ID == "" {
		return nil, eris.Wrapf(ErrNoCart, "rye: create cart %s: %s", productID, string(raw))
	}
	return data.CreateCart.Cart, nil
}
