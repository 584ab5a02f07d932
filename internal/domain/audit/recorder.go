// Package audit defines the audit trail contract for stock-affecting
// operations. The PostgreSQL implementation lives in infrastructure/storage.
package audit

import (
	"context"
	"time"

	"barstock/internal/core/id"
)

// Action identifies the audited operation kind.
type Action string

const (
	ActionStockAdjust        Action = "stock_adjust"
	ActionConsignmentCreate  Action = "consignment_create"
	ActionConsignmentClaim   Action = "consignment_claim"
	ActionConsignmentForfeit Action = "consignment_forfeit"
	ActionConsignmentExpire  Action = "consignment_expire"
	ActionSaleCreate         Action = "sale_create"
	ActionSaleValidate       Action = "sale_validate"
)

// Entry is a single audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     string
	Changes    any // marshalled to JSON, compressed when large
	CreatedAt  time.Time
}

// Recorder persists audit entries. Recording is best-effort from the
// caller's perspective: failures are logged, never fail the operation.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }
