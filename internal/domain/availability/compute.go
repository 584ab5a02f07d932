package availability

import (
	"barstock/internal/core/id"
)

// dedupOperations merges the three pending-operation sources into a list
// where every logical sale attempt contributes exactly once.
//
// The walk order is fixed, most durable source first:
//
//  1. local pending queue: skipped entirely when the key is recently
//     confirmed (its effect is already in the physical stock figure);
//  2. in-flight tracker: the race window between dispatch and durable
//     enqueue, skipped when the queue already accounted for the key;
//  3. remote unvalidated feed: skipped when any earlier source accounted
//     for the key.
//
// Operations without a key cannot be deduplicated against anything and are
// always applied.
func dedupOperations(pending, inflight, unvalidated []Operation, confirmed map[string]struct{}) []Operation {
	accounted := make(map[string]struct{})
	out := make([]Operation, 0, len(pending)+len(inflight)+len(unvalidated))

	walk := func(ops []Operation) {
		for _, op := range ops {
			if op.Key != "" {
				if _, done := confirmed[op.Key]; done {
					continue
				}
				if _, seen := accounted[op.Key]; seen {
					continue
				}
				accounted[op.Key] = struct{}{}
			}
			out = append(out, op)
		}
	}

	walk(pending)
	walk(inflight)
	walk(unvalidated)
	return out
}

// computeAll derives the availability record for every product in the stock
// snapshot. Pure and synchronous: all I/O happened upstream in the source
// refreshers. Products absent from the snapshot are not invented: pending
// deductions and reservations referencing unknown products are dropped, and
// lookups for them must answer "product unknown", not zero.
func computeAll(in inputs) map[id.ID]Record {
	records := make(map[id.ID]Record, len(in.products))

	for _, p := range in.products {
		records[p.ProductID] = Record{
			ProductID:     p.ProductID,
			PhysicalStock: p.PhysicalStock,
		}
	}

	for _, r := range in.reservations {
		rec, ok := records[r.ProductID]
		if !ok {
			continue
		}
		rec.ConsignedStock += r.Quantity
		records[r.ProductID] = rec
	}

	for _, op := range dedupOperations(in.pending, in.inflight, in.unvalidated, in.confirmed) {
		for _, item := range op.Items {
			rec, ok := records[item.ProductID]
			if !ok {
				continue
			}
			rec.PendingDeductions += item.Quantity
			records[item.ProductID] = rec
		}
	}

	minStock := make(map[id.ID]int, len(in.products))
	for _, p := range in.products {
		minStock[p.ProductID] = p.MinStock
	}

	for pid, rec := range records {
		rec.AvailableStock = rec.PhysicalStock - rec.ConsignedStock - rec.PendingDeductions
		rec.LowStock = rec.DisplayStock() <= minStock[pid]
		records[pid] = rec
	}

	return records
}
