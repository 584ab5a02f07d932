package dto

import (
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/availability"
	"barstock/internal/domain/sale"
)

// --- Request DTOs ---

// SaleLineRequest is one priced line of a checkout.
type SaleLineRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice string `json:"unitPrice" binding:"required"`
}

// CreateSaleRequest for ringing a sale.
type CreateSaleRequest struct {
	Items        []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
	Seller       string            `json:"seller" binding:"required"`
	BusinessDate string            `json:"businessDate" binding:"required"`
}

// ToLines converts request lines into domain lines.
func (r *CreateSaleRequest) ToLines() ([]sale.Line, error) {
	lines := make([]sale.Line, len(r.Items))
	for i, item := range r.Items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid productId format").
				WithDetail("productId", item.ProductID)
		}
		price, err := types.NewMoneyFromString(item.UnitPrice)
		if err != nil {
			return nil, apperror.NewValidation("invalid unitPrice").
				WithDetail("unitPrice", item.UnitPrice)
		}
		lines[i] = sale.Line{
			ProductID: productID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		}
	}
	return lines, nil
}

// ValidateItemRequest is one unpriced line of a dry-run gate check.
type ValidateItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// ValidateItemsRequest for the checkout-time gate.
type ValidateItemsRequest struct {
	Items []ValidateItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToItems converts request items into engine line items.
func (r *ValidateItemsRequest) ToItems() ([]availability.Item, error) {
	items := make([]availability.Item, len(r.Items))
	for i, item := range r.Items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid productId format").
				WithDetail("productId", item.ProductID)
		}
		items[i] = availability.Item{ProductID: productID, Quantity: item.Quantity}
	}
	return items, nil
}

// --- Response DTOs ---

// ValidateItemsResponse reports a passed gate check.
type ValidateItemsResponse struct {
	Valid bool `json:"valid"`
}

// SaleLineResponse is one priced line of a stored sale.
type SaleLineResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// SaleResponse represents a sale in API responses.
type SaleResponse struct {
	ID             string             `json:"id"`
	BarID          string             `json:"barId"`
	IdempotencyKey string             `json:"idempotencyKey"`
	Items          []SaleLineResponse `json:"items"`
	Total          string             `json:"total"`
	Seller         string             `json:"seller"`
	BusinessDate   string             `json:"businessDate"`
	Status         string             `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
	ValidatedAt    *time.Time         `json:"validatedAt,omitempty"`
}

// FromSale converts entity to response DTO.
func FromSale(s *sale.Sale) SaleResponse {
	items := make([]SaleLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		items[i] = SaleLineResponse{
			ProductID: l.ProductID.String(),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
		}
	}

	return SaleResponse{
		ID:             s.ID.String(),
		BarID:          s.BarID.String(),
		IdempotencyKey: s.IdempotencyKey,
		Items:          items,
		Total:          s.Total.String(),
		Seller:         s.Seller,
		BusinessDate:   s.BusinessDate,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		ValidatedAt:    s.ValidatedAt,
	}
}

// CreateSaleResponse reports where the created sale landed.
type CreateSaleResponse struct {
	SaleResponse
	// Queued is true when the remote store was unreachable and the
	// operation went to the local durable queue instead.
	Queued bool `json:"queued"`
}

// SaleListResponse represents a list of sales.
type SaleListResponse struct {
	Items []SaleResponse `json:"items"`
}

// SyncResponse reports a pending-queue drain.
type SyncResponse struct {
	Synced int `json:"synced"`
}
