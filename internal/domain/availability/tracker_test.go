package availability

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInFlightTracker_TrackUntrack(t *testing.T) {
	tr := NewInFlightTracker()

	op1 := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 1}}}
	op2 := Operation{Key: "k2", Items: []Item{{ProductID: productB, Quantity: 2}}}

	tr.Track(op1)
	tr.Track(op2)
	assert.Equal(t, 2, tr.Len())

	snap := tr.Snapshot()
	assert.Equal(t, []Operation{op1, op2}, snap, "snapshot preserves insertion order")

	tr.Untrack("k1")
	assert.Equal(t, []Operation{op2}, tr.Snapshot())

	tr.Untrack("missing")
	assert.Equal(t, 1, tr.Len())
}

func TestInFlightTracker_RetryReplacesEntry(t *testing.T) {
	tr := NewInFlightTracker()

	tr.Track(Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 1}}})
	tr.Track(Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 3}}})

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 3, tr.Snapshot()[0].Items[0].Quantity)
}

func TestInFlightTracker_ConcurrentAppendAndSnapshot(t *testing.T) {
	tr := NewInFlightTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			tr.Track(Operation{Key: fmt.Sprintf("k%d", n)})
		}(i)
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Len())
}
