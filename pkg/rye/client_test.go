package rye

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer(t *testing.T) *CredentialIssuer {
	t.Helper()
	_, pemBytes := testSigningKey(t)
	issuer, err := NewCredentialIssuer(pemBytes, "acct-1", "staging.graphql.api.rye.com", time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestProductByID_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Basic dGVzdC1hdXRo", r.Header.Get("Authorization"))
		assert.Equal(t, "203.0.113.7", r.Header.Get("Rye-Shopper-IP"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "productByID")
		input, ok := req.Variables["input"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "B0BTYCRJSS", input["id"])
		assert.Equal(t, "AMAZON", input["marketplace"])

		w.Write([]byte(`{"data":{"product":{
			"id":"B0BTYCRJSS","ASIN":"B0BTYCRJSS","marketplace":"AMAZON",
			"title":"Soundcore P20i","vendor":"Anker","url":"https://amazon.com/dp/B0BTYCRJSS",
			"isAvailable":true,
			"images":[{"url":"https://m.media-amazon.com/p20i.jpg"}],
			"price":{"currency":"USD","displayValue":"$25.99","value":25.99}
		}}}`))
	}))
	defer srv.Close()

	client := NewClient("dGVzdC1hdXRo", "203.0.113.7", testIssuer(t), WithEndpoint(srv.URL))
	got, err := client.ProductByID(context.Background(), "B0BTYCRJSS")

	require.NoError(t, err)
	assert.Equal(t, "Soundcore P20i", got.Title)
	assert.Equal(t, "B0BTYCRJSS", got.ASIN)
	assert.True(t, got.IsAvailable)
	assert.Equal(t, 25.99, got.Price.Value)
}

func TestProductByID_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"product":null}}`))
	}))
	defer srv.Close()

	client := NewClient("auth", "", testIssuer(t), WithEndpoint(srv.URL))
	_, err := client.ProductByID(context.Background(), "B000000000")

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrProductNotFound))
}

func TestProductByID_GraphQLError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"id is not a valid ASIN"}]}`))
	}))
	defer srv.Close()

	client := NewClient("auth", "", testIssuer(t), WithEndpoint(srv.URL))
	_, err := client.ProductByID(context.Background(), "garbage")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is not a valid ASIN")
}

func TestProductByID_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`unauthorized`))
	}))
	defer srv.Close()

	client := NewClient("bad-auth", "", testIssuer(t), WithEndpoint(srv.URL))
	_, err := client.ProductByID(context.Background(), "B0BTYCRJSS")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCreateCart_Success(t *testing.T) {
	t.Parallel()

	buyer := BuyerIdentity{
		FirstName:    "Jane",
		LastName:     "Smith",
		Email:        "jane@example.com",
		Phone:        "1234567890",
		Address1:     "123 Main St",
		City:         "Seattle",
		ProvinceCode: "WA",
		CountryCode:  "US",
		PostalCode:   "98101",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "Bearer "), "cart mutations use a bearer credential")
		assert.Equal(t, 3, strings.Count(strings.TrimPrefix(auth, "Bearer "), ".")+1, "credential is a JWT")

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "createCart")
		assert.Contains(t, req.Query, `firstName: "Jane"`)
		assert.Contains(t, req.Query, "countryCode: US")
		assert.NotContains(t, req.Query, `countryCode: "US"`, "country code travels as an enum")
		assert.Equal(t, "B0BTYCRJSS", req.Variables["productID"])

		w.Write([]byte(`{"data":{"createCart":{"cart":{
			"id":"cart-123",
			"cost":{
				"isEstimated":true,
				"subtotal":{"currency":"USD","displayValue":"$25.99","value":25.99},
				"shipping":{"currency":"USD","displayValue":"$4.99","value":4.99},
				"total":{"currency":"USD","displayValue":"$30.98","value":30.98}
			},
			"stores":[{"store":"amazon","cartLines":[{"quantity":1,"product":{"id":"B0BTYCRJSS","title":"Soundcore P20i"}}],"errors":[]}]
		},"errors":[]}}}`))
	}))
	defer srv.Close()

	client := NewClient("auth", "203.0.113.7", testIssuer(t), WithEndpoint(srv.URL))
	got, err := client.CreateCart(context.Background(), "B0BTYCRJSS", buyer)

	require.NoError(t, err)
	assert.Equal(t, "cart-123", got.ID)
	assert.True(t, got.Cost.IsEstimated)
	assert.Equal(t, 30.98, got.Cost.Total.Value)
	require.Len(t, got.Stores, 1)
	require.Len(t, got.Stores[0].CartLines, 1)
	assert.Equal(t, "Soundcore P20i", got.Stores[0].CartLines[0].Product.Title)
}

func TestCreateCart_NoCartInResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"createCart":{"cart":null,"errors":[{"code":"PRODUCT_UNAVAILABLE","message":"item cannot ship to address"}]}}}`))
	}))
	defer srv.Close()

	client := NewClient("auth", "", testIssuer(t), WithEndpoint(srv.URL))
	_, err := client.CreateCart(context.Background(), "B0BTYCRJSS", BuyerIdentity{CountryCode: "US"})

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoCart))
	assert.Contains(t, err.Error(), "PRODUCT_UNAVAILABLE", "raw body is preserved for diagnosis")
}

func TestCreateCart_RequiresIssuer(t *testing.T) {
	t.Parallel()

	client := NewClient("auth", "", nil)
	_, err := client.CreateCart(context.Background(), "B0BTYCRJSS", BuyerIdentity{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential issuer")
}

func TestCreateCart_MintsFreshCredentialPerCall(t *testing.T) {
	t.Parallel()

	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"createCart":{"cart":{"id":"cart-1"},"errors":[]}}}`))
	}))
	defer srv.Close()

	issuer := testIssuer(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	issuer.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	client := NewClient("auth", "", issuer, WithEndpoint(srv.URL))
	for i := 0; i < 2; i++ {
		_, err := client.CreateCart(context.Background(), "B0BTYCRJSS", BuyerIdentity{CountryCode: "US"})
		require.NoError(t, err)
	}

	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
}
