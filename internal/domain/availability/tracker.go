package availability

import (
	"sync"
)

// InFlightTracker records sale operations that have been dispatched by a
// checkout surface but are not yet durably recorded in the local queue or the
// remote system. It covers the narrow race window of a single request.
//
// The checkout path appends concurrently with reconciliation snapshot reads;
// neither blocks the other beyond a short critical section. An operation
// appearing one reconciliation tick late is acceptable, double counting
// across tracker and queue is not: callers must Untrack only after the
// operation is visible in a durable source.
type InFlightTracker struct {
	mu  sync.RWMutex
	ops map[string]Operation
	seq []string // insertion order for stable snapshots
}

// NewInFlightTracker creates an empty tracker. Construct one per engine;
// tests construct isolated instances as needed.
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{
		ops: make(map[string]Operation),
	}
}

// Track registers a dispatched operation. Tracking the same key again
// replaces the previous entry (retry of the same logical attempt).
func (t *InFlightTracker) Track(op Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.ops[op.Key]; !exists {
		t.seq = append(t.seq, op.Key)
	}
	t.ops[op.Key] = op
}

// Untrack removes an operation once it is durably recorded elsewhere.
func (t *InFlightTracker) Untrack(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.ops[key]; !exists {
		return
	}
	delete(t.ops, key)
	for i, k := range t.seq {
		if k == key {
			t.seq = append(t.seq[:i], t.seq[i+1:]...)
			break
		}
	}
}

// Snapshot returns the tracked operations in insertion order.
func (t *InFlightTracker) Snapshot() []Operation {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Operation, 0, len(t.seq))
	for _, k := range t.seq {
		out = append(out, t.ops[k])
	}
	return out
}

// Len returns the number of tracked operations.
func (t *InFlightTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ops)
}
