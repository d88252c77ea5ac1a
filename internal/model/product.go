package model

import (
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a marketplace price: ISO currency code, the human-displayable
// string the marketplace renders, and the numeric value in major units.
type Money struct {
	Currency     string  `json:"currency"`
	DisplayValue string  `json:"displayValue"`
	Value        float64 `json:"value"`
}

// Amount returns the numeric value, falling back to a defensive parse of the
// display string when the structured field is absent or non-positive. The
// marketplace's product query does not always populate the numeric field, so
// the display string is the more reliable of the two.
func (m Money) Amount() float64 {
	if m.Value > 0 {
		return m.Value
	}
	return parseDisplayValue(m.DisplayValue)
}

// parseDisplayValue extracts the numeric portion of a display string such as
// "$17.97" or "USD 1,299.00". Returns 0 when nothing numeric remains.
func parseDisplayValue(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatMoney renders a fiat amount the way the marketplace displays it,
// e.g. FormatMoney("USD", 100) -> "$ 100.00". Unknown currency codes fall
// back to USD.
func FormatMoney(code string, value float64) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.NarrowSymbol(unit.Amount(value)))
}

// ProductImage is a single product image URL.
type ProductImage struct {
	URL string `json:"url"`
}

// ProductRecord is a resolved marketplace product held in the session's
// recommendation set until a new turn starts or a purchase completes.
type ProductRecord struct {
	ID          string         `json:"id"`
	ASIN        string         `json:"asin,omitempty"`
	Marketplace string         `json:"marketplace"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Vendor      string         `json:"vendor"`
	URL         string         `json:"url"`
	IsAvailable bool           `json:"isAvailable"`
	Images      []ProductImage `json:"images"`
	Price       Money          `json:"price"`
}

// Identifier returns the marketplace identifier for buy actions, preferring
// the ASIN when present.
func (p ProductRecord) Identifier() string {
	if p.ASIN != "" {
		return p.ASIN
	}
	return p.ID
}

// PrimaryImageURL returns the first image URL, or empty when the record
// carries no images. Images may legitimately be empty and must never be
// indexed unchecked.
func (p ProductRecord) PrimaryImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}
