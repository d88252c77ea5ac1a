// Package store persists turn and purchase history.
package store

import (
	"context"

	"github.com/voxcart/voxcart/internal/model"
)

// TurnFilter specifies criteria for listing turns.
type TurnFilter struct {
	SessionID string           `json:"session_id,omitempty"`
	Status    model.TurnStatus `json:"status,omitempty"`
	Limit     int              `json:"limit,omitempty"`
	Offset    int              `json:"offset,omitempty"`
}

// PurchaseFilter specifies criteria for listing purchases.
type PurchaseFilter struct {
	SessionID string              `json:"session_id,omitempty"`
	Method    model.PaymentMethod `json:"method,omitempty"`
	Limit     int                 `json:"limit,omitempty"`
	Offset    int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the fulfillment pipeline.
type Store interface {
	// Turns
	CreateTurn(ctx context.Context, sessionID, utterance string) (*model.Turn, error)
	UpdateTurnStatus(ctx context.Context, turnID string, status model.TurnStatus) error
	CompleteTurn(ctx context.Context, turnID string, status model.TurnStatus, result *model.TurnRecord) error
	GetTurn(ctx context.Context, turnID string) (*model.Turn, error)
	ListTurns(ctx context.Context, filter TurnFilter) ([]model.Turn, error)

	// Purchases
	RecordPurchase(ctx context.Context, p *model.Purchase) error
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]model.Purchase, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
