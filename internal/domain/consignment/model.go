// Package consignment provides the consignment ledger: quantities sold but
// left on-premises pending customer claim. An active consignment earmarks
// units without removing them from the physical count.
package consignment

import (
	"time"

	"barstock/internal/core/id"
	"barstock/internal/core/types"
)

// Status is the consignment lifecycle state.
type Status string

const (
	// StatusActive: reservation in force, reduces availability.
	StatusActive Status = "active"
	// StatusClaimed: customer picked the units up. Terminal.
	StatusClaimed Status = "claimed"
	// StatusForfeited: manually released by staff. Terminal.
	StatusForfeited Status = "forfeited"
	// StatusExpired: released by the periodic sweep. Terminal.
	StatusExpired Status = "expired"
)

// DefaultExpirationDays applies when a consignment is created without an
// explicit expiry.
const DefaultExpirationDays = 7

// Consignment ties a reserved quantity of one product to a specific sale.
type Consignment struct {
	ID     id.ID `db:"id" json:"id"`
	BarID  id.ID `db:"bar_id" json:"barId"`
	SaleID id.ID `db:"sale_id" json:"saleId"`

	ProductID   id.ID   `db:"product_id" json:"productId"`
	ProductName string  `db:"product_name" json:"productName"`
	Volume      *string `db:"volume" json:"volume,omitempty"`

	Quantity    int         `db:"quantity" json:"quantity"`
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	CustomerName  *string `db:"customer_name" json:"customerName,omitempty"`
	CustomerPhone *string `db:"customer_phone" json:"customerPhone,omitempty"`
	Notes         *string `db:"notes" json:"notes,omitempty"`

	// OriginalSeller records who rang the originating sale.
	OriginalSeller string `db:"original_seller" json:"originalSeller"`

	// BusinessDate is the accounting day the sale belongs to (YYYY-MM-DD).
	BusinessDate string `db:"business_date" json:"businessDate"`

	Status    Status     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt time.Time  `db:"expires_at" json:"expiresAt"`
	ClaimedAt *time.Time `db:"claimed_at" json:"claimedAt,omitempty"`
}

// IsActive reports whether the consignment still reduces availability.
func (c *Consignment) IsActive() bool {
	return c.Status == StatusActive
}

// IsExpired reports whether an active consignment has passed its expiry.
func (c *Consignment) IsExpired(now time.Time) bool {
	return c.Status == StatusActive && c.ExpiresAt.Before(now)
}

// CanTransition reports whether moving to target is legal. All transitions
// start from active; claimed, forfeited and expired are terminal.
func (c *Consignment) CanTransition(target Status) bool {
	if c.Status != StatusActive {
		return false
	}
	switch target {
	case StatusClaimed, StatusForfeited, StatusExpired:
		return true
	default:
		return false
	}
}
