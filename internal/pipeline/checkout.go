package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/pkg/rye"
)

// Checkout creates a marketplace cart for one unit of the given product with
// the configured buyer identity attached. The marketplace client mints a
// fresh request-scoped bearer credential for the mutation. A response with no
// cart identifier surfaces as ErrCartCreation with the raw upstream body in
// the chain.
func Checkout(ctx context.Context, market rye.Client, productID string, buyer model.BuyerIdentity) (*model.Cart, error) {
	created, err := market.CreateCart(ctx, productID, rye.BuyerIdentity{
		FirstName:    buyer.FirstName,
		LastName:     buyer.LastName,
		Email:        buyer.Email,
		Phone:        buyer.Phone,
		Address1:     buyer.Address1,
		City:         buyer.City,
		ProvinceCode: buyer.ProvinceCode,
		CountryCode:  buyer.CountryCode,
		PostalCode:   buyer.PostalCode,
	})
	if err != nil {
		if errors.Is(err, rye.ErrNoCart) {
			return nil, eris.Wrapf(ErrCartCreation, "checkout: %s", err.Error())
		}
		return nil, eris.Wrapf(err, "checkout: product %s", productID)
	}

	cart := cartFromWire(created)
	zap.L().Info("checkout: cart created",
		zap.String("cart_id", cart.ID),
		zap.String("product_id", productID),
		zap.String("total", cart.Cost.Total.DisplayValue),
		zap.Bool("estimated", cart.Cost.IsEstimated),
	)
	return cart, nil
}

func cartFromWire(c *rye.Cart) *model.Cart {
	cart := &model.Cart{
		ID: c.ID,
		Cost: model.CostBreakdown{
			IsEstimated: c.Cost.IsEstimated,
			Subtotal:    moneyFromWire(c.Cost.Subtotal),
			Shipping:    moneyFromWire(c.Cost.Shipping),
			Total:       moneyFromWire(c.Cost.Total),
		},
	}
	for _, s := range c.Stores {
		store := model.CartStore{Store: s.Store}
		for _, line := range s.CartLines {
			store.Lines = append(store.Lines, model.CartLine{
				Quantity:  line.Quantity,
				ProductID: line.Product.ID,
				Title:     line.Product.Title,
			})
		}
		for _, e := range s.Errors {
			store.Errors = append(store.Errors, model.StoreError{Code: e.Code, Message: e.Message})
		}
		cart.Stores = append(cart.Stores, store)
	}
	return cart
}

func moneyFromWire(m rye.Money) model.Money {
	return model.Money{
		Currency:     m.Currency,
		DisplayValue: m.DisplayValue,
		Value:        m.Value,
	}
}
