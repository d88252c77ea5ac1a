package pipeline

import (
	"context"
	"math"
	"math/big"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/pkg/coingecko"
)

// weiDecimals is the native decimal precision of the settlement asset.
const weiDecimals = 18

// CryptoSettings names the settlement asset pair and destination address.
type CryptoSettings struct {
	SettlementAddress string
	Asset             string
	QuoteCurrency     string
}

// QuoteAndTransfer converts the products' fiat total into base-asset minor
// units at the live exchange rate and builds a value-transfer request for the
// external wallet collaborator. It neither signs nor broadcasts. Rate and
// total are validated before the division so Inf/NaN can never become a
// monetary amount, and the conversion truncates toward zero so the transfer
// can never exceed what the user authorized.
func QuoteAndTransfer(ctx context.Context, oracle coingecko.Client, settings CryptoSettings, products []model.ProductRecord) (*model.SettlementQuote, *model.TransferRequest, error) {
	var fiatTotal float64
	for _, p := range products {
		fiatTotal += p.Price.Amount()
	}

	rate, err := oracle.SimplePrice(ctx, settings.Asset, settings.QuoteCurrency)
	if err != nil {
		return nil, nil, eris.Wrap(err, "crypto: fetch exchange rate")
	}

	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, nil, eris.Wrapf(ErrInvalidQuote, "crypto: rate %v", rate)
	}
	if fiatTotal <= 0 || math.IsNaN(fiatTotal) || math.IsInf(fiatTotal, 0) {
		return nil, nil, eris.Wrapf(ErrInvalidQuote, "crypto: fiat total %v", fiatTotal)
	}

	amountWei := toMinorUnits(fiatTotal, rate)

	quote := &model.SettlementQuote{
		BaseAsset:     settings.Asset,
		QuoteCurrency: settings.QuoteCurrency,
		Rate:          rate,
		FiatTotal:     fiatTotal,
		AmountWei:     amountWei,
	}
	transfer := &model.TransferRequest{
		To:        settings.SettlementAddress,
		AmountWei: new(big.Int).Set(amountWei),
	}

	zap.L().Info("crypto: settlement quoted",
		zap.Float64("fiat_total", fiatTotal),
		zap.Float64("rate", rate),
		zap.String("amount_wei", amountWei.String()),
		zap.String("to", settings.SettlementAddress),
	)
	return quote, transfer, nil
}

// toMinorUnits computes total/rate scaled to the asset's minor units with the
// fraction truncated, using rational arithmetic so no intermediate float
// division occurs.
func toMinorUnits(total, rate float64) *big.Int {
	num := new(big.Rat).SetFloat64(total)
	den := new(big.Rat).SetFloat64(rate)

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(weiDecimals), nil)
	amount := new(big.Rat).Quo(num, den)
	amount.Mul(amount, new(big.Rat).SetInt(scale))

	// Quo truncates toward zero.
	return new(big.Int).Quo(amount.Num(), amount.Denom())
}
