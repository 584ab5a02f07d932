package availability

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"sort"
)

// Fingerprint is a structural digest over every input family the
// reconciliation consumes. Equal fingerprints guarantee an identical
// computation result, so the engine reuses the previous pass untouched.
type Fingerprint [sha256.Size]byte

// inputs is one consistent view over all reconciliation sources.
type inputs struct {
	products     []ProductStock
	reservations []Reservation
	pending      []Operation
	inflight     []Operation
	unvalidated  []Operation
	confirmed    map[string]struct{}
}

// fingerprint digests the input families in a fixed order. Products and
// reservations are hashed sorted by id so that source ordering differences
// do not force a recompute; operation lists keep their source order because
// the dedup walk is order-sensitive. The confirmed key set participates
// because membership alone changes which operations are counted.
func fingerprint(in inputs) Fingerprint {
	h := sha256.New()

	writeTag(h, 'p')
	products := make([]ProductStock, len(in.products))
	copy(products, in.products)
	sort.Slice(products, func(i, j int) bool {
		return lessID(products[i].ProductID[:], products[j].ProductID[:])
	})
	for _, p := range products {
		h.Write(p.ProductID[:])
		writeInt(h, p.PhysicalStock)
	}

	writeTag(h, 'c')
	reservations := make([]Reservation, len(in.reservations))
	copy(reservations, in.reservations)
	sort.Slice(reservations, func(i, j int) bool {
		return lessID(reservations[i].ID[:], reservations[j].ID[:])
	})
	for _, r := range reservations {
		h.Write(r.ID[:])
		writeInt(h, r.Quantity)
	}

	writeTag(h, 'q')
	writeOps(h, in.pending)
	writeTag(h, 'f')
	writeOps(h, in.inflight)
	writeTag(h, 'u')
	writeOps(h, in.unvalidated)

	writeTag(h, 'k')
	keys := make([]string, 0, len(in.confirmed))
	for k := range in.confirmed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeStr(h, k)
	}

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// writeOps digests operations in source order. A keyless operation gets a
// stable synthetic identifier derived from its line items and position.
func writeOps(h hash.Hash, ops []Operation) {
	for i, op := range ops {
		if op.Key != "" {
			writeStr(h, op.Key)
			continue
		}
		writeInt(h, i)
		for _, it := range op.Items {
			h.Write(it.ProductID[:])
			writeInt(h, it.Quantity)
		}
	}
}

func writeTag(h hash.Hash, tag byte) {
	h.Write([]byte{0, tag})
}

func writeInt(h hash.Hash, v int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(int64(v)))
	h.Write(buf[:])
}

func writeStr(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func lessID(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
