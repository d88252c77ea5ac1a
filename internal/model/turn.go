package model

import "time"

// TurnStatus tracks a recorded pipeline turn through its lifetime.
type TurnStatus string

const (
	TurnStatusProcessing    TurnStatus = "processing"
	TurnStatusQuestion      TurnStatus = "question"
	TurnStatusNotUnderstood TurnStatus = "not_understood"
	TurnStatusRecommended   TurnStatus = "recommended"
	TurnStatusFailed        TurnStatus = "failed"
)

// Turn is one utterance's trip through the pipeline, persisted for order
// history and diagnosis.
type Turn struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Utterance string      `json:"utterance"`
	Status    TurnStatus  `json:"status"`
	Result    *TurnRecord `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TurnRecord holds the outcome of a completed turn.
type TurnRecord struct {
	Intent     Intent          `json:"intent"`
	Candidates CandidateSet    `json:"candidates,omitempty"`
	Products   []ProductRecord `json:"products,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// PaymentMethod distinguishes the two settlement paths.
type PaymentMethod string

const (
	PaymentFiat   PaymentMethod = "fiat"
	PaymentCrypto PaymentMethod = "crypto"
)

// Purchase is a confirmed buy action: the cart the marketplace created (fiat
// path) or the settlement quote handed to the wallet (crypto path).
type Purchase struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	TurnID    string        `json:"turn_id,omitempty"`
	Product   ProductRecord `json:"product"`
	Method    PaymentMethod `json:"method"`
	CartID    string        `json:"cart_id,omitempty"`
	Total     Money         `json:"total"`
	TxRef     string        `json:"tx_ref,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
