package dto

import (
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/consignment"
)

// --- Request DTOs ---

// CreateConsignmentRequest for opening a consignment alongside a sale.
type CreateConsignmentRequest struct {
	SaleID        string     `json:"saleId" binding:"required,uuid"`
	ProductID     string     `json:"productId" binding:"required,uuid"`
	Quantity      int        `json:"quantity" binding:"required,gt=0"`
	TotalAmount   string     `json:"totalAmount" binding:"required"`
	CustomerName  *string    `json:"customerName"`
	CustomerPhone *string    `json:"customerPhone"`
	Notes         *string    `json:"notes"`
	Seller        string     `json:"seller" binding:"required"`
	BusinessDate  string     `json:"businessDate" binding:"required"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

// ToInput converts the request into domain create input.
func (r *CreateConsignmentRequest) ToInput(barID id.ID) (consignment.CreateInput, error) {
	saleID, err := id.Parse(r.SaleID)
	if err != nil {
		return consignment.CreateInput{}, apperror.NewValidation("invalid saleId format")
	}
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return consignment.CreateInput{}, apperror.NewValidation("invalid productId format")
	}
	total, err := types.NewMoneyFromString(r.TotalAmount)
	if err != nil {
		return consignment.CreateInput{}, apperror.NewValidation("invalid totalAmount").
			WithDetail("totalAmount", r.TotalAmount)
	}

	return consignment.CreateInput{
		BarID:          barID,
		SaleID:         saleID,
		ProductID:      productID,
		Quantity:       r.Quantity,
		TotalAmount:    total,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		Notes:          r.Notes,
		OriginalSeller: r.Seller,
		BusinessDate:   r.BusinessDate,
		ExpiresAt:      r.ExpiresAt,
	}, nil
}

// --- Response DTOs ---

// ConsignmentResponse represents a consignment in API responses.
type ConsignmentResponse struct {
	ID            string     `json:"id"`
	BarID         string     `json:"barId"`
	SaleID        string     `json:"saleId"`
	ProductID     string     `json:"productId"`
	ProductName   string     `json:"productName"`
	Volume        *string    `json:"volume,omitempty"`
	Quantity      int        `json:"quantity"`
	TotalAmount   string     `json:"totalAmount"`
	CustomerName  *string    `json:"customerName,omitempty"`
	CustomerPhone *string    `json:"customerPhone,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Seller        string     `json:"seller"`
	BusinessDate  string     `json:"businessDate"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	ClaimedAt     *time.Time `json:"claimedAt,omitempty"`
}

// FromConsignment converts entity to response DTO.
func FromConsignment(c *consignment.Consignment) ConsignmentResponse {
	return ConsignmentResponse{
		ID:            c.ID.String(),
		BarID:         c.BarID.String(),
		SaleID:        c.SaleID.String(),
		ProductID:     c.ProductID.String(),
		ProductName:   c.ProductName,
		Volume:        c.Volume,
		Quantity:      c.Quantity,
		TotalAmount:   c.TotalAmount.String(),
		CustomerName:  c.CustomerName,
		CustomerPhone: c.CustomerPhone,
		Notes:         c.Notes,
		Seller:        c.OriginalSeller,
		BusinessDate:  c.BusinessDate,
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
		ExpiresAt:     c.ExpiresAt,
		ClaimedAt:     c.ClaimedAt,
	}
}

// ConsignmentListResponse represents a list of consignments.
type ConsignmentListResponse struct {
	Items []ConsignmentResponse `json:"items"`
}

// ExpireResponse lists consignments released by a batch expiry sweep.
type ExpireResponse struct {
	Expired []string `json:"expired"`
}

// NewExpireResponse creates an expire response from swept ids.
func NewExpireResponse(ids []id.ID) ExpireResponse {
	expired := make([]string, len(ids))
	for i, cid := range ids {
		expired[i] = cid.String()
	}
	return ExpireResponse{Expired: expired}
}
