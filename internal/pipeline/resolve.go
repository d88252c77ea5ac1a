package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/pkg/rye"
)

// Resolve fetches full product detail for each candidate identifier
// concurrently. A failure on one identifier is logged and absorbed; it must
// never blank the rest of the batch. The result is appended in completion
// order, so callers must not depend on input order being preserved.
func Resolve(ctx context.Context, market rye.Client, ids model.CandidateSet, concurrency int) []model.ProductRecord {
	if len(ids) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var records []model.ProductRecord

	for _, id := range ids {
		g.Go(func() error {
			product, err := market.ProductByID(gCtx, id)
			if err != nil {
				zap.L().Warn("resolve: identifier failed",
					zap.String("id", id),
					zap.Error(err),
				)
				return nil
			}

			record := productRecord(product)
			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	zap.L().Info("resolve: batch complete",
		zap.Int("requested", len(ids)),
		zap.Int("resolved", len(records)),
	)
	return records
}

// productRecord maps the marketplace wire shape onto the domain record.
func productRecord(p *rye.Product) model.ProductRecord {
	images := make([]model.ProductImage, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, model.ProductImage{URL: img.URL})
	}
	return model.ProductRecord{
		ID:          p.ID,
		ASIN:        p.ASIN,
		Marketplace: p.Marketplace,
		Title:       p.Title,
		Description: p.Description,
		Vendor:      p.Vendor,
		URL:         p.URL,
		IsAvailable: p.IsAvailable,
		Images:      images,
		Price: model.Money{
			Currency:     p.Price.Currency,
			DisplayValue: p.Price.DisplayValue,
			Value:        p.Price.Value,
		},
	}
}
