package dto

import (
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/types"
	"barstock/internal/domain/catalog/product"
)

// --- Request DTOs ---

// CreateProductRequest for adding a catalog item.
type CreateProductRequest struct {
	Name          string  `json:"name" binding:"required"`
	Volume        *string `json:"volume"`
	Price         string  `json:"price" binding:"required"`
	PhysicalStock int     `json:"physicalStock" binding:"min=0"`
	MinStock      int     `json:"minStock" binding:"min=0"`
}

// ToProduct converts the request into a domain product.
func (r *CreateProductRequest) ToProduct() (*product.Product, error) {
	price, err := types.NewMoneyFromString(r.Price)
	if err != nil {
		return nil, apperror.NewValidation("invalid price").WithDetail("price", r.Price)
	}

	return &product.Product{
		Name:          r.Name,
		Volume:        r.Volume,
		Price:         price,
		PhysicalStock: r.PhysicalStock,
		MinStock:      r.MinStock,
	}, nil
}

// AdjustStockRequest for manual stock movements.
type AdjustStockRequest struct {
	// Delta is the signed movement: positive restocks, negative writes off.
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// --- Response DTOs ---

// ProductResponse represents a catalog item in API responses.
type ProductResponse struct {
	ID            string    `json:"id"`
	BarID         string    `json:"barId"`
	Name          string    `json:"name"`
	Volume        *string   `json:"volume,omitempty"`
	Price         string    `json:"price"`
	PhysicalStock int       `json:"physicalStock"`
	MinStock      int       `json:"minStock"`
	LowStock      bool      `json:"lowStock"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromProduct converts entity to response DTO.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID.String(),
		BarID:         p.BarID.String(),
		Name:          p.Name,
		Volume:        p.Volume,
		Price:         p.Price.String(),
		PhysicalStock: p.PhysicalStock,
		MinStock:      p.MinStock,
		LowStock:      p.IsLowStock(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ProductListResponse represents a list of catalog items.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
}
