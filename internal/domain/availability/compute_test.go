package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/id"
)

var (
	productA = id.MustParse("018f0000-0000-7000-8000-00000000000a")
	productB = id.MustParse("018f0000-0000-7000-8000-00000000000b")
	productC = id.MustParse("018f0000-0000-7000-8000-00000000000c")
)

func stockOf(t *testing.T, records map[id.ID]Record, pid id.ID) Record {
	t.Helper()
	rec, ok := records[pid]
	require.True(t, ok, "product %s missing from result", pid)
	return rec
}

func TestComputeAll_NoDeductions(t *testing.T) {
	// Bare physical stock passes through untouched.
	records := computeAll(inputs{
		products: []ProductStock{{ProductID: productA, PhysicalStock: 10}},
	})

	rec := stockOf(t, records, productA)
	assert.Equal(t, 10, rec.PhysicalStock)
	assert.Equal(t, 0, rec.ConsignedStock)
	assert.Equal(t, 0, rec.PendingDeductions)
	assert.Equal(t, 10, rec.AvailableStock)
}

func TestComputeAll_ActiveConsignmentReducesAvailability(t *testing.T) {
	// One active consignment of 3 against 10 physical.
	records := computeAll(inputs{
		products:     []ProductStock{{ProductID: productA, PhysicalStock: 10}},
		reservations: []Reservation{{ID: id.New(), ProductID: productA, Quantity: 3}},
	})

	rec := stockOf(t, records, productA)
	assert.Equal(t, 3, rec.ConsignedStock)
	assert.Equal(t, 7, rec.AvailableStock)
}

func TestComputeAll_DuplicateKeyAcrossQueueAndUnvalidated(t *testing.T) {
	// The same key in queue and unvalidated feed deducts once.
	op := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 2}}}

	records := computeAll(inputs{
		products:    []ProductStock{{ProductID: productA, PhysicalStock: 10}},
		pending:     []Operation{op},
		unvalidated: []Operation{op},
	})

	rec := stockOf(t, records, productA)
	assert.Equal(t, 2, rec.PendingDeductions)
	assert.Equal(t, 8, rec.AvailableStock)
}

func TestComputeAll_ConfirmedKeySkippedEverywhere(t *testing.T) {
	// Once k1 is confirmed and the snapshot reflects it (8, not
	// 10), the queued copy must not subtract again.
	op := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 2}}}

	records := computeAll(inputs{
		products:  []ProductStock{{ProductID: productA, PhysicalStock: 8}},
		pending:   []Operation{op},
		confirmed: map[string]struct{}{"k1": {}},
	})

	rec := stockOf(t, records, productA)
	assert.Equal(t, 0, rec.PendingDeductions)
	assert.Equal(t, 8, rec.AvailableStock)
}

func TestComputeAll_NegativeAvailabilityPreserved(t *testing.T) {
	records := computeAll(inputs{
		products: []ProductStock{{ProductID: productA, PhysicalStock: 1}},
		pending: []Operation{
			{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 3}}},
		},
	})

	rec := stockOf(t, records, productA)
	assert.Equal(t, -2, rec.AvailableStock, "true value must stay inspectable")
	assert.Equal(t, 0, rec.DisplayStock(), "display value floors at zero")
	assert.True(t, rec.Oversold())
}

func TestComputeAll_UnknownProductReferencesDropped(t *testing.T) {
	records := computeAll(inputs{
		products:     []ProductStock{{ProductID: productA, PhysicalStock: 5}},
		reservations: []Reservation{{ID: id.New(), ProductID: productB, Quantity: 1}},
		pending: []Operation{
			{Key: "k1", Items: []Item{{ProductID: productC, Quantity: 2}}},
		},
	})

	require.Len(t, records, 1)
	assert.Equal(t, 5, stockOf(t, records, productA).AvailableStock)
}

func TestComputeAll_LowStockFlag(t *testing.T) {
	records := computeAll(inputs{
		products: []ProductStock{
			{ProductID: productA, PhysicalStock: 3, MinStock: 5},
			{ProductID: productB, PhysicalStock: 9, MinStock: 5},
		},
	})

	assert.True(t, stockOf(t, records, productA).LowStock)
	assert.False(t, stockOf(t, records, productB).LowStock)
}

func TestDedupOperations_Order(t *testing.T) {
	queued := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 2}}}
	inflight := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 2}}}
	remote := Operation{Key: "k1", Items: []Item{{ProductID: productA, Quantity: 2}}}

	tests := []struct {
		name        string
		pending     []Operation
		inflight    []Operation
		unvalidated []Operation
		confirmed   map[string]struct{}
		wantCount   int
	}{
		{
			name:      "key in all three sources counts once",
			pending:   []Operation{queued},
			inflight:  []Operation{inflight},
			wantCount: 1,
		},
		{
			name:        "queue and unvalidated overlap",
			pending:     []Operation{queued},
			unvalidated: []Operation{remote},
			wantCount:   1,
		},
		{
			name:        "inflight and unvalidated overlap",
			inflight:    []Operation{inflight},
			unvalidated: []Operation{remote},
			wantCount:   1,
		},
		{
			name:        "all three overlap",
			pending:     []Operation{queued},
			inflight:    []Operation{inflight},
			unvalidated: []Operation{remote},
			wantCount:   1,
		},
		{
			name:      "confirmed key suppressed entirely",
			pending:   []Operation{queued},
			inflight:  []Operation{inflight},
			confirmed: map[string]struct{}{"k1": {}},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupOperations(tt.pending, tt.inflight, tt.unvalidated, tt.confirmed)
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestDedupOperations_KeylessAlwaysApplied(t *testing.T) {
	keyless := Operation{Items: []Item{{ProductID: productA, Quantity: 1}}}

	got := dedupOperations(
		[]Operation{keyless, keyless},
		[]Operation{keyless},
		nil,
		map[string]struct{}{},
	)

	assert.Len(t, got, 3, "operations without a key are never deduplicated")
}
