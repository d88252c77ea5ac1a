package model

import "math/big"

// SettlementQuote is an exchange-rate snapshot and the derived base-asset
// amount for a fiat total. The rate is quote currency per base asset (e.g.
// USD per ETH). A quote is only ever constructed from a strictly positive
// rate and a finite total; any rate-fetch failure invalidates the quote
// entirely, with no stale fallback.
type SettlementQuote struct {
	BaseAsset     string   `json:"baseAsset"`
	QuoteCurrency string   `json:"quoteCurrency"`
	Rate          float64  `json:"rate"`
	FiatTotal     float64  `json:"fiatTotal"`
	AmountWei     *big.Int `json:"amountWei"`
}

// TransferRequest describes a value transfer for the external wallet
// collaborator to sign and broadcast. The amount is in the asset's minor
// units (wei), truncated — never rounded up — so the transfer can never
// exceed what the user authorized.
type TransferRequest struct {
	To        string   `json:"to"`
	AmountWei *big.Int `json:"amountWei"`
}
