package availability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
)

func newTestEngine() *Engine {
	return NewEngine(NewInFlightTracker(), NewConfirmedKeys())
}

func TestEngine_ResultReusedWhileInputsUnchanged(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 10}}, time.Now())

	first := e.ComputeAll(ctx)
	second := e.ComputeAll(ctx)

	// Reference-identical map: downstream consumers can skip work.
	assert.Equal(t, fmt.Sprintf("%p", first), fmt.Sprintf("%p", second))
	assert.Equal(t, first[productA], second[productA])

	e.SetReservations([]Reservation{{ID: productB, ProductID: productA, Quantity: 3}})
	third := e.ComputeAll(ctx)
	assert.Equal(t, 7, third[productA].AvailableStock)
}

func TestEngine_GetAvailability_ProductUnknown(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 10}}, time.Now())

	_, err := e.GetAvailability(ctx, productB)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeProductUnknown, appErr.Code)
}

func TestEngine_ValidateLineItems(t *testing.T) {
	// Requesting 9 against 7 available names the product and 7.
	ctx := context.Background()
	e := newTestEngine()
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 10}}, time.Now())
	e.SetReservations([]Reservation{{ID: productC, ProductID: productA, Quantity: 3}})

	err := e.ValidateLineItems(ctx, []Item{{ProductID: productA, Quantity: 9}})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, productA.String(), appErr.Details["product_id"])
	assert.Equal(t, 7, appErr.Details["available"])

	// Whole attempt rejected on first failure, nothing partial.
	err = e.ValidateLineItems(ctx, []Item{
		{ProductID: productA, Quantity: 2},
		{ProductID: productB, Quantity: 1},
	})
	require.Error(t, err)
	appErr, _ = apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeProductUnknown, appErr.Code)

	assert.NoError(t, e.ValidateLineItems(ctx, []Item{{ProductID: productA, Quantity: 7}}))
}

func TestEngine_InFlightDeductsUntilDurable(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 10}}, time.Now())

	op := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 4}}}
	e.Tracker().Track(op)

	rec, err := e.GetAvailability(ctx, productA)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.AvailableStock)

	// The op lands in the durable queue; tracker entry still present for a
	// moment. Must not double count.
	e.SetPending([]Operation{op})
	rec, err = e.GetAvailability(ctx, productA)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.AvailableStock)

	e.Tracker().Untrack("k1")
	rec, err = e.GetAvailability(ctx, productA)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.AvailableStock)
}

func TestEngine_ConfirmedKeyHandOff(t *testing.T) {
	// Hand-off end-to-end: queued op confirmed, snapshot refreshed to
	// already reflect it. Availability must be 8, not 6.
	ctx := context.Background()
	e := newTestEngine()
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 10}}, time.Now())

	op := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 2}}}
	e.SetPending([]Operation{op})

	rec, err := e.GetAvailability(ctx, productA)
	require.NoError(t, err)
	assert.Equal(t, 8, rec.AvailableStock)

	e.Confirmed().MarkConfirmed("k1")
	refreshStarted := time.Now()
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 8}}, refreshStarted)

	rec, err = e.GetAvailability(ctx, productA)
	require.NoError(t, err)
	assert.Equal(t, 8, rec.AvailableStock, "no double subtraction once confirmed")

	// The queued copy is still visible, so the key must survive eviction.
	assert.Equal(t, 1, e.Confirmed().Len())

	// Once the queue view drops the operation, the next refresh after
	// confirmation finally releases the key.
	e.SetPending(nil)
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 8}}, time.Now())
	assert.Equal(t, 0, e.Confirmed().Len())

	rec, err = e.GetAvailability(ctx, productA)
	require.NoError(t, err)
	assert.Equal(t, 8, rec.AvailableStock)
}

func TestEngine_SourceFailureFlagsStaleKeepsData(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	e.SetStock(ctx, []ProductStock{{ProductID: productA, PhysicalStock: 10}}, time.Now())

	e.MarkSourceFailed(SourceStock, assert.AnError)

	rec, err := e.GetAvailability(ctx, productA)
	require.NoError(t, err, "stale source must not abort reconciliation")
	assert.Equal(t, 10, rec.AvailableStock)

	var stockStatus SourceStatus
	for _, st := range e.SourceStatuses() {
		if st.Source == SourceStock {
			stockStatus = st
		}
	}
	assert.True(t, stockStatus.Stale)
	assert.NotEmpty(t, stockStatus.LastError)
}
