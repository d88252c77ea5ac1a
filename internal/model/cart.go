package model

// BuyerIdentity is the fixed shipping/contact profile attached to every cart
// creation request. Loaded from configuration at startup; never collected
// per purchase.
type BuyerIdentity struct {
	FirstName    string `yaml:"first_name" mapstructure:"first_name" json:"firstName"`
	LastName     string `yaml:"last_name" mapstructure:"last_name" json:"lastName"`
	Email        string `yaml:"email" mapstructure:"email" json:"email"`
	Phone        string `yaml:"phone" mapstructure:"phone" json:"phone"`
	Address1     string `yaml:"address1" mapstructure:"address1" json:"address1"`
	City         string `yaml:"city" mapstructure:"city" json:"city"`
	ProvinceCode string `yaml:"province_code" mapstructure:"province_code" json:"provinceCode"`
	CountryCode  string `yaml:"country_code" mapstructure:"country_code" json:"countryCode"`
	PostalCode   string `yaml:"postal_code" mapstructure:"postal_code" json:"postalCode"`
}

// CostBreakdown is a cart's cost summary. All fields are estimates until the
// marketplace confirms settlement; IsEstimated stays true until then.
type CostBreakdown struct {
	IsEstimated bool  `json:"isEstimated"`
	Subtotal    Money `json:"subtotal"`
	Shipping    Money `json:"shipping"`
	Total       Money `json:"total"`
}

// CartLine is one accepted line item within a marketplace store.
type CartLine struct {
	Quantity  int    `json:"quantity"`
	ProductID string `json:"productId"`
	Title     string `json:"title,omitempty"`
}

// StoreError is a per-store rejection reported by the cart service.
type StoreError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CartStore lists which underlying marketplace line items were accepted by a
// single store, along with any per-store errors.
type CartStore struct {
	Store  string       `json:"store"`
	Lines  []CartLine   `json:"cartLines"`
	Errors []StoreError `json:"errors,omitempty"`
}

// Cart is a marketplace-side reservation of items with an associated
// (possibly estimated) cost. Created per buy action; not persisted beyond
// the purchase confirmation.
type Cart struct {
	ID     string        `json:"id"`
	Cost   CostBreakdown `json:"cost"`
	Stores []CartStore   `json:"stores"`
}
