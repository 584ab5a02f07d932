package consignment

import (
	"context"
	"time"

	"barstock/internal/core/id"
)

// Repository defines persistence operations for the consignment ledger.
type Repository interface {
	// Create inserts a new consignment.
	Create(ctx context.Context, c *Consignment) error

	// GetByID retrieves one consignment.
	GetByID(ctx context.Context, consignmentID id.ID) (*Consignment, error)

	// GetForUpdate retrieves one consignment with a row lock for a
	// state transition.
	GetForUpdate(ctx context.Context, consignmentID id.ID) (*Consignment, error)

	// ListByBar returns consignments of a bar, optionally filtered by status,
	// newest first.
	ListByBar(ctx context.Context, barID id.ID, status *Status) ([]*Consignment, error)

	// ListExpiredActive returns active consignments whose expiry has passed.
	ListExpiredActive(ctx context.Context, barID id.ID, now time.Time) ([]*Consignment, error)

	// UpdateStatus transitions a consignment from one status to another.
	// The update is guarded: it affects zero rows when the stored status is
	// not `from`, which callers must treat as an invalid transition.
	UpdateStatus(ctx context.Context, consignmentID id.ID, from, to Status, claimedAt *time.Time) (bool, error)
}
