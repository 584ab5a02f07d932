// Package product provides the product catalog: the sellable items of a bar
// together with their authoritative physical stock count.
package product

import (
	"time"

	"barstock/internal/core/id"
	"barstock/internal/core/types"
)

// Product is a sellable catalog item.
type Product struct {
	ID    id.ID `db:"id" json:"id"`
	BarID id.ID `db:"bar_id" json:"barId"`

	Name string `db:"name" json:"name"`

	// Volume is the serving description ("33cl", "75cl bottle").
	Volume *string `db:"volume" json:"volume,omitempty"`

	Price types.Money `db:"price" json:"price"`

	// PhysicalStock is the authoritative on-shelf count. Owned by the
	// stock ledger; the reconciliation engine only reads it.
	PhysicalStock int `db:"physical_stock" json:"physicalStock"`

	// MinStock is the low-stock alert threshold.
	MinStock int `db:"min_stock" json:"minStock"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsLowStock reports whether current stock is at or below the threshold.
func (p *Product) IsLowStock() bool {
	return p.PhysicalStock <= p.MinStock
}

// StockAdjustment describes a manual stock movement with its reason,
// e.g. "restock", "breakage", "consignment_create", "consignment_claim".
type StockAdjustment struct {
	ProductID id.ID  `json:"productId"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
}
