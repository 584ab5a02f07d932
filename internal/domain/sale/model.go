// Package sale provides sale intents and their journey from checkout tap to
// validated remote record: in-flight → local pending queue or remote store →
// second-step validation → baked into physical stock.
package sale

import (
	"time"

	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/availability"
)

// Status is the remote sale lifecycle state.
type Status string

const (
	// StatusPendingValidation: durably stored remotely, awaiting the
	// manager's second-step validation. Still deducts availability.
	StatusPendingValidation Status = "pending_validation"
	// StatusValidated: validated; its decrement is now part of the
	// physical stock figure. Terminal.
	StatusValidated Status = "validated"
	// StatusRejected: refused at validation. Terminal, no stock effect.
	StatusRejected Status = "rejected"
)

// Line is one priced line item of a sale.
type Line struct {
	ProductID id.ID       `db:"product_id" json:"productId"`
	Quantity  int         `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
}

// Sale is a remotely stored sale record.
type Sale struct {
	ID             id.ID       `db:"id" json:"id"`
	BarID          id.ID       `db:"bar_id" json:"barId"`
	IdempotencyKey string      `db:"idempotency_key" json:"idempotencyKey"`
	Lines          []Line      `db:"-" json:"items"`
	Total          types.Money `db:"total" json:"total"`
	Seller         string      `db:"seller" json:"seller"`
	BusinessDate   string      `db:"business_date" json:"businessDate"`
	Status         Status      `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	ValidatedAt    *time.Time  `db:"validated_at" json:"validatedAt,omitempty"`
}

// QueuedOperation is one entry of the local durable pending queue.
type QueuedOperation struct {
	ID             id.ID     `db:"id" json:"id"`
	BarID          id.ID     `db:"bar_id" json:"barId"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotencyKey"`
	Lines          []Line    `db:"-" json:"items"`
	Total          types.Money `db:"total" json:"total"`
	Seller         string    `db:"seller" json:"seller"`
	BusinessDate   string    `db:"business_date" json:"businessDate"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Items converts priced lines into the engine's line-item shape.
func Items(lines []Line) []availability.Item {
	items := make([]availability.Item, len(lines))
	for i, l := range lines {
		items[i] = availability.Item{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return items
}

// Operation converts a sale into the engine's deduplication shape.
func (s *Sale) Operation() availability.Operation {
	return availability.Operation{Key: s.IdempotencyKey, Items: Items(s.Lines)}
}

// Operation converts a queued entry into the engine's deduplication shape.
func (q *QueuedOperation) Operation() availability.Operation {
	return availability.Operation{Key: q.IdempotencyKey, Items: Items(q.Lines)}
}

// LinesTotal sums quantity × unit price across lines.
func LinesTotal(lines []Line) types.Money {
	total := types.ZeroMoney()
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(types.NewMoneyFromInt(int64(l.Quantity))))
	}
	return total
}
