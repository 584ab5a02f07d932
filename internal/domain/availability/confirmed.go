package availability

import (
	"sync"
	"time"
)

// ConfirmedKeys is the recently-confirmed set: idempotency keys whose effect
// has just been baked into the authoritative physical stock. Operations
// carrying these keys are skipped entirely during deduplication, closing the
// hand-off window between "still visible in a pending source" and "already
// reflected in the snapshot".
//
// Eviction is refresh-based, not timer-based: a key may only leave the set
// once a stock snapshot taken after its confirmation has been observed.
// A fixed TTL would open a gap where neither the set nor the refreshed stock
// number accounts for the operation.
type ConfirmedKeys struct {
	mu   sync.RWMutex
	keys map[string]time.Time // key -> confirmedAt
}

// NewConfirmedKeys creates an empty set. Construct one per engine.
func NewConfirmedKeys() *ConfirmedKeys {
	return &ConfirmedKeys{
		keys: make(map[string]time.Time),
	}
}

// MarkConfirmed records that the operation's effect is now part of the
// authoritative stock count.
func (c *ConfirmedKeys) MarkConfirmed(key string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = time.Now().UTC()
}

// Contains reports whether the key is currently suppressed.
func (c *ConfirmedKeys) Contains(key string) bool {
	if key == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.keys[key]
	return ok
}

// Snapshot returns the current key set.
func (c *ConfirmedKeys) Snapshot() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]struct{}, len(c.keys))
	for k := range c.keys {
		out[k] = struct{}{}
	}
	return out
}

// EvictRefreshedBefore removes keys confirmed strictly before refreshStarted,
// except keys listed in stillVisible. Called after a successful stock
// snapshot refresh: a snapshot whose fetch began at refreshStarted reflects
// every decrement confirmed before that instant, so those keys no longer
// need suppression, unless a stale copy of the operation is still visible
// in some pending source, in which case the key keeps guarding against a
// second subtraction until the copy disappears.
func (c *ConfirmedKeys) EvictRefreshedBefore(refreshStarted time.Time, stillVisible map[string]struct{}) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for k, confirmedAt := range c.keys {
		if !confirmedAt.Before(refreshStarted) {
			continue
		}
		if _, visible := stillVisible[k]; visible {
			continue
		}
		delete(c.keys, k)
		evicted++
	}
	return evicted
}

// Len returns the number of suppressed keys.
func (c *ConfirmedKeys) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}
