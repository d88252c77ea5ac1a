package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/pkg/rye"
)

func testBuyer() model.BuyerIdentity {
	return model.BuyerIdentity{
		FirstName:    "Jane",
		LastName:     "Smith",
		Email:        "jane@example.com",
		Phone:        "5551234567",
		Address1:     "123 Main St",
		City:         "Seattle",
		ProvinceCode: "WA",
		CountryCode:  "US",
		PostalCode:   "98101",
	}
}

func wireCart() *rye.Cart {
	c := &rye.Cart{
		ID: "cart-1",
		Cost: rye.Cost{
			IsEstimated: true,
			Subtotal:    rye.Money{Currency: "USD", DisplayValue: "$24.99", Value: 24.99},
			Shipping:    rye.Money{Currency: "USD", DisplayValue: "$4.99", Value: 4.99},
			Total:       rye.Money{Currency: "USD", DisplayValue: "$29.98", Value: 29.98},
		},
	}
	store := rye.CartStore{Store: "amazon"}
	line := rye.CartLine{Quantity: 1}
	line.Product.ID = "B0A"
	line.Product.Title = "Mouse"
	store.CartLines = append(store.CartLines, line)
	store.Errors = append(store.Errors, rye.CartError{Code: "BACKORDERED", Message: "ships in 3 weeks"})
	c.Stores = append(c.Stores, store)
	return c
}

func TestCheckout_Success(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("CreateCart", mock.Anything, "B0A", mock.MatchedBy(func(b rye.BuyerIdentity) bool {
		return b.FirstName == "Jane" && b.CountryCode == "US" && b.PostalCode == "98101"
	})).Return(wireCart(), nil)

	cart, err := Checkout(context.Background(), market, "B0A", testBuyer())
	require.NoError(t, err)

	assert.Equal(t, "cart-1", cart.ID)
	assert.True(t, cart.Cost.IsEstimated)
	assert.Equal(t, "$29.98", cart.Cost.Total.DisplayValue)
	require.Len(t, cart.Stores, 1)
	require.Len(t, cart.Stores[0].Lines, 1)
	assert.Equal(t, "B0A", cart.Stores[0].Lines[0].ProductID)
	assert.Equal(t, "Mouse", cart.Stores[0].Lines[0].Title)
	require.Len(t, cart.Stores[0].Errors, 1)
	assert.Equal(t, "BACKORDERED", cart.Stores[0].Errors[0].Code)
	market.AssertExpectations(t)
}

func TestCheckout_NoCartBecomesCartCreationError(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("CreateCart", mock.Anything, "B0A", mock.Anything).
		Return(nil, eris.Wrapf(rye.ErrNoCart, "rye: create cart B0A: %s", `{"errors":[{"code":"PRODUCT_UNAVAILABLE"}]}`))

	_, err := Checkout(context.Background(), market, "B0A", testBuyer())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCartCreation))
	assert.Contains(t, err.Error(), "PRODUCT_UNAVAILABLE")
}

func TestCheckout_TransportErrorPassesThrough(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("CreateCart", mock.Anything, "B0A", mock.Anything).
		Return(nil, eris.New("rye: unexpected status 502"))

	_, err := Checkout(context.Background(), market, "B0A", testBuyer())
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrCartCreation))
	assert.Contains(t, err.Error(), "product B0A")
}
