package sale

import (
	"context"
	"time"

	"barstock/internal/core/id"
)

// Store is the remote sale ledger.
type Store interface {
	// Create durably stores a sale in pending_validation state.
	// Must be idempotent on IdempotencyKey: a retry of an already stored
	// sale returns the existing record, not a duplicate.
	Create(ctx context.Context, s *Sale) error

	// GetByID retrieves one sale.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate retrieves one sale with a row lock for validation.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	// ListUnvalidated returns sales awaiting second-step validation.
	ListUnvalidated(ctx context.Context, barID id.ID) ([]*Sale, error)

	// MarkValidated transitions pending_validation → validated. Guarded:
	// reports false when the stored status already left pending_validation.
	MarkValidated(ctx context.Context, saleID id.ID, validatedAt time.Time) (bool, error)
}

// Queue is the local durable pending-operation queue. Append-only from the
// checkout path; entries leave the pending view only by being marked synced.
type Queue interface {
	// Enqueue appends a not-yet-synchronized operation.
	Enqueue(ctx context.Context, op *QueuedOperation) error

	// ListPending returns unsynced operations of a bar, oldest first.
	ListPending(ctx context.Context, barID id.ID) ([]*QueuedOperation, error)

	// MarkSynced flags an operation as delivered to the remote store.
	MarkSynced(ctx context.Context, idempotencyKey string) error
}
