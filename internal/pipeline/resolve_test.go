package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/pkg/rye"
)

func ryeProduct(id, title string, price float64) *rye.Product {
	return &rye.Product{
		ID:          id,
		ASIN:        id,
		Marketplace: "AMAZON",
		Title:       title,
		Vendor:      "Acme",
		URL:         "https://amazon.com/dp/" + id,
		IsAvailable: true,
		Images:      []rye.Image{{URL: "https://img.example/" + id + ".jpg"}},
		Price:       rye.Money{Currency: "USD", DisplayValue: model.FormatMoney("USD", price), Value: price},
	}
}

func TestResolve_AllSucceed(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("ProductByID", mock.Anything, "B0A").Return(ryeProduct("B0A", "Mouse", 24.99), nil)
	market.On("ProductByID", mock.Anything, "B0B").Return(ryeProduct("B0B", "Keyboard", 59.99), nil)

	records := Resolve(context.Background(), market, model.CandidateSet{"B0A", "B0B"}, 2)
	assert.Len(t, records, 2)

	titles := []string{records[0].Title, records[1].Title}
	assert.ElementsMatch(t, []string{"Mouse", "Keyboard"}, titles)
	market.AssertExpectations(t)
}

func TestResolve_OneFailureDoesNotBlankBatch(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("ProductByID", mock.Anything, "B0A").Return(ryeProduct("B0A", "Mouse", 24.99), nil)
	market.On("ProductByID", mock.Anything, "B0X2").Return(nil, eris.Wrap(rye.ErrProductNotFound, "rye: product B0X2"))
	market.On("ProductByID", mock.Anything, "B0C").Return(ryeProduct("B0C", "Mouse Pad", 9.99), nil)

	records := Resolve(context.Background(), market, model.CandidateSet{"B0A", "B0X2", "B0C"}, 3)
	assert.Len(t, records, 2)
	for _, r := range records {
		assert.NotEqual(t, "B0X2", r.ID)
	}
}

func TestResolve_EmptyInput(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	records := Resolve(context.Background(), market, nil, 4)
	assert.Nil(t, records)
	market.AssertNotCalled(t, "ProductByID", mock.Anything, mock.Anything)
}

func TestResolve_AllFail(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("ProductByID", mock.Anything, mock.Anything).Return(nil, eris.New("rye: unexpected status 500"))

	records := Resolve(context.Background(), market, model.CandidateSet{"B0A", "B0B"}, 2)
	assert.Empty(t, records)
}

func TestResolve_MapsWireFields(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("ProductByID", mock.Anything, "B0A").Return(ryeProduct("B0A", "Mouse", 24.99), nil)

	records := Resolve(context.Background(), market, model.CandidateSet{"B0A"}, 1)
	if assert.Len(t, records, 1) {
		r := records[0]
		assert.Equal(t, "B0A", r.ID)
		assert.Equal(t, "B0A", r.ASIN)
		assert.Equal(t, "AMAZON", r.Marketplace)
		assert.Equal(t, "Acme", r.Vendor)
		assert.True(t, r.IsAvailable)
		assert.Equal(t, "https://img.example/B0A.jpg", r.PrimaryImageURL())
		assert.InDelta(t, 24.99, r.Price.Amount(), 0.001)
	}
}

func TestResolve_DefaultConcurrency(t *testing.T) {
	t.Parallel()

	market := &mockMarketClient{}
	market.On("ProductByID", mock.Anything, "B0A").Return(ryeProduct("B0A", "Mouse", 24.99), nil)

	records := Resolve(context.Background(), market, model.CandidateSet{"B0A"}, 0)
	assert.Len(t, records, 1)
}
