// Package availability implements the inventory availability reconciliation
// engine. It merges the authoritative stock snapshot, active consignments,
// locally queued sale operations, in-flight checkout attempts and remote
// unvalidated sales into a single available-to-sell figure per product,
// deduplicating overlapping sources by idempotency key.
package availability

import (
	"context"
	"time"

	"barstock/internal/core/id"
)

// Item is a single line of a sale operation.
type Item struct {
	ProductID id.ID `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Operation is a sale-creation attempt as seen by the engine. The same
// logical operation can surface in the pending queue, the in-flight tracker
// and the unvalidated feed at once; Key is the sole deduplication token.
type Operation struct {
	// Key is the idempotency key. May be empty for legacy operations,
	// in which case the operation is never deduplicated and always applied.
	Key   string `json:"idempotencyKey"`
	Items []Item `json:"items"`
}

// ProductStock is one row of the remote stock snapshot.
type ProductStock struct {
	ProductID     id.ID `db:"product_id" json:"productId"`
	PhysicalStock int   `db:"physical_stock" json:"physicalStock"`
	MinStock      int   `db:"min_stock" json:"minStock"`
}

// Reservation is an active consignment as seen by the engine: a quantity
// earmarked for a sale but still physically on the shelf. Resolved
// consignments (claimed/forfeited/expired) never reach the engine.
type Reservation struct {
	ID        id.ID `json:"id"`
	ProductID id.ID `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Record is the derived availability for one product. It lives for a single
// reconciliation pass and is never persisted.
type Record struct {
	ProductID         id.ID `json:"productId"`
	PhysicalStock     int   `json:"physicalStock"`
	ConsignedStock    int   `json:"consignedStock"`
	PendingDeductions int   `json:"pendingDeductions"`

	// AvailableStock is the true value: physical − consigned − pending.
	// Negative means an oversell happened and must stay inspectable.
	AvailableStock int `json:"availableStock"`

	// LowStock mirrors the catalog alert threshold against the display value.
	LowStock bool `json:"lowStock"`
}

// DisplayStock is the value shown on checkout screens, floored at zero.
func (r Record) DisplayStock() int {
	if r.AvailableStock < 0 {
		return 0
	}
	return r.AvailableStock
}

// Oversold reports whether more units were committed than physically exist.
func (r Record) Oversold() bool {
	return r.AvailableStock < 0
}

// --- Source contracts (consumed collaborators) ---

// StockSource provides the authoritative per-product physical stock.
type StockSource interface {
	FetchStock(ctx context.Context, barID id.ID) ([]ProductStock, error)
}

// ReservationSource provides active consignments.
type ReservationSource interface {
	FetchActive(ctx context.Context, barID id.ID) ([]Reservation, error)
}

// PendingSource lists not-yet-synchronized sale operations from the local
// durable queue, oldest first.
type PendingSource interface {
	FetchPending(ctx context.Context, barID id.ID) ([]Operation, error)
}

// UnvalidatedSource lists sales durably stored remotely but awaiting the
// second-step validation.
type UnvalidatedSource interface {
	FetchUnvalidated(ctx context.Context, barID id.ID) ([]Operation, error)
}

// SourceName identifies one of the refreshed input families.
type SourceName string

const (
	SourceStock        SourceName = "stock"
	SourceReservations SourceName = "consignments"
	SourcePendingQueue SourceName = "pending_queue"
	SourceUnvalidated  SourceName = "unvalidated_sales"
)

// SourceStatus describes the freshness of one input family.
type SourceStatus struct {
	Source     SourceName `json:"source"`
	ObservedAt time.Time  `json:"observedAt"`
	Stale      bool       `json:"stale"`
	LastError  string     `json:"lastError,omitempty"`
}
