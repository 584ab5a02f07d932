package availability

import (
	"context"
	"sync"
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/pkg/logger"
)

// sourceState is the last successfully observed snapshot of one input family.
// A failed refresh flags staleness but never tears the cached data.
type sourceState struct {
	observedAt time.Time
	stale      bool
	lastErr    error
}

func (s *sourceState) observed(at time.Time) {
	s.observedAt = at
	s.stale = false
	s.lastErr = nil
}

func (s *sourceState) failed(err error) {
	s.stale = true
	s.lastErr = err
}

func (s *sourceState) status(name SourceName) SourceStatus {
	st := SourceStatus{
		Source:     name,
		ObservedAt: s.observedAt,
		Stale:      s.stale,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Engine reconciles all availability sources into per-product records.
//
// The computation itself is pure and synchronous; refreshers push observed
// source states in, reads trigger a recompute only when the structural
// fingerprint over all families changed. Two reads over unchanged inputs
// return the identical (reference-equal) result map.
type Engine struct {
	tracker   *InFlightTracker
	confirmed *ConfirmedKeys

	mu           sync.RWMutex
	products     []ProductStock
	reservations []Reservation
	pending      []Operation
	unvalidated  []Operation

	stockState       sourceState
	reservationState sourceState
	pendingState     sourceState
	unvalidatedState sourceState

	lastFP     Fingerprint
	lastResult map[id.ID]Record
	computed   bool
}

// NewEngine creates an engine around the given tracker and confirmed set.
// Both stores are injectable so tests construct isolated instances.
func NewEngine(tracker *InFlightTracker, confirmed *ConfirmedKeys) *Engine {
	return &Engine{
		tracker:   tracker,
		confirmed: confirmed,
	}
}

// Tracker exposes the in-flight tracker for the checkout path.
func (e *Engine) Tracker() *InFlightTracker { return e.tracker }

// Confirmed exposes the recently-confirmed set for the sync hand-off.
func (e *Engine) Confirmed() *ConfirmedKeys { return e.confirmed }

// --- Source state updates (called by refreshers) ---

// SetStock replaces the stock snapshot. refreshStarted is the instant the
// fetch began: every key confirmed before it is now reflected in the
// snapshot, so those keys may leave the recently-confirmed set as long as
// no pending source still shows a stale copy of the operation. This ordering
// is what keeps the hand-off window free of double subtraction.
func (e *Engine) SetStock(ctx context.Context, products []ProductStock, refreshStarted time.Time) {
	e.mu.Lock()
	e.products = products
	e.stockState.observed(time.Now().UTC())
	e.mu.Unlock()

	if evicted := e.confirmed.EvictRefreshedBefore(refreshStarted, e.visibleOperationKeys()); evicted > 0 {
		logger.Debug(ctx, "evicted confirmed keys after stock refresh", "count", evicted)
	}
}

// visibleOperationKeys collects every idempotency key currently visible in
// any of the three operation sources.
func (e *Engine) visibleOperationKeys() map[string]struct{} {
	keys := make(map[string]struct{})

	e.mu.RLock()
	for _, op := range e.pending {
		if op.Key != "" {
			keys[op.Key] = struct{}{}
		}
	}
	for _, op := range e.unvalidated {
		if op.Key != "" {
			keys[op.Key] = struct{}{}
		}
	}
	e.mu.RUnlock()

	for _, op := range e.tracker.Snapshot() {
		if op.Key != "" {
			keys[op.Key] = struct{}{}
		}
	}
	return keys
}

// SetReservations replaces the active consignment view.
func (e *Engine) SetReservations(reservations []Reservation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reservations = reservations
	e.reservationState.observed(time.Now().UTC())
}

// SetPending replaces the local pending-operation view.
func (e *Engine) SetPending(ops []Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = ops
	e.pendingState.observed(time.Now().UTC())
}

// SetUnvalidated replaces the remote unvalidated-sales view.
func (e *Engine) SetUnvalidated(ops []Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unvalidated = ops
	e.unvalidatedState.observed(time.Now().UTC())
}

// MarkSourceFailed flags a source as stale after a failed refresh. The
// cached last-known-good data keeps feeding reconciliation.
func (e *Engine) MarkSourceFailed(source SourceName, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch source {
	case SourceStock:
		e.stockState.failed(err)
	case SourceReservations:
		e.reservationState.failed(err)
	case SourcePendingQueue:
		e.pendingState.failed(err)
	case SourceUnvalidated:
		e.unvalidatedState.failed(err)
	}
}

// SourceStatuses reports freshness of all four refreshed families.
func (e *Engine) SourceStatuses() []SourceStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return []SourceStatus{
		e.stockState.status(SourceStock),
		e.reservationState.status(SourceReservations),
		e.pendingState.status(SourcePendingQueue),
		e.unvalidatedState.status(SourceUnvalidated),
	}
}

// --- Reads ---

// ComputeAll returns availability for every product in the snapshot,
// recomputing only when the combined fingerprint changed since the last
// pass. Callers must not mutate the returned map.
func (e *Engine) ComputeAll(ctx context.Context) map[id.ID]Record {
	in := e.snapshotInputs()
	fp := fingerprint(in)

	e.mu.RLock()
	if e.computed && fp == e.lastFP {
		result := e.lastResult
		e.mu.RUnlock()
		return result
	}
	e.mu.RUnlock()

	started := time.Now()
	result := computeAll(in)

	e.mu.Lock()
	// Another reader may have recomputed concurrently; last writer wins,
	// both computed the same pure function over the same inputs when
	// fingerprints match.
	e.lastFP = fp
	e.lastResult = result
	e.computed = true
	e.mu.Unlock()

	logger.Debug(ctx, "recomputed availability",
		"products", len(result),
		"took_us", time.Since(started).Microseconds(),
	)
	return result
}

// GetAvailability returns the availability record for one product.
// A product absent from the stock snapshot yields PRODUCT_UNKNOWN, never a
// silent zero.
func (e *Engine) GetAvailability(ctx context.Context, productID id.ID) (Record, error) {
	records := e.ComputeAll(ctx)
	rec, ok := records[productID]
	if !ok {
		return Record{}, apperror.NewProductUnknown(productID.String())
	}
	return rec, nil
}

// ValidateLineItems is the checkout-time gate: every line item must
// fit within the current available stock or the whole attempt is rejected,
// naming the first offending product and its available quantity. Advisory
// only; the remote ledger stays the consistency boundary.
func (e *Engine) ValidateLineItems(ctx context.Context, items []Item) error {
	records := e.ComputeAll(ctx)

	for _, item := range items {
		if item.Quantity <= 0 {
			return apperror.NewValidation("line item quantity must be positive").
				WithDetail("product_id", item.ProductID.String())
		}

		rec, ok := records[item.ProductID]
		if !ok {
			return apperror.NewProductUnknown(item.ProductID.String())
		}
		if item.Quantity > rec.AvailableStock {
			return apperror.NewInsufficientStock(item.ProductID.String(), item.Quantity, rec.DisplayStock())
		}
	}
	return nil
}

// snapshotInputs assembles one consistent view over all sources. The
// tracker and confirmed set are snapshotted through their own locks; a
// mutation landing between snapshots shows up one tick later, which is
// acceptable; the dedup walk guarantees it is never counted twice.
func (e *Engine) snapshotInputs() inputs {
	e.mu.RLock()
	in := inputs{
		products:     e.products,
		reservations: e.reservations,
		pending:      e.pending,
		unvalidated:  e.unvalidated,
	}
	e.mu.RUnlock()

	in.inflight = e.tracker.Snapshot()
	in.confirmed = e.confirmed.Snapshot()
	return in
}
