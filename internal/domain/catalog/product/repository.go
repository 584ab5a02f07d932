package product

import (
	"context"

	"barstock/internal/core/id"
)

// Repository defines persistence operations for the product catalog.
type Repository interface {
	// Create inserts a new product.
	Create(ctx context.Context, p *Product) error

	// GetByID retrieves a product.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetForUpdate retrieves a product with a row lock for stock mutation.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	// ListByBar returns all products of a bar ordered by name.
	ListByBar(ctx context.Context, barID id.ID) ([]*Product, error)

	// UpdateStock sets the physical stock of a product.
	UpdateStock(ctx context.Context, productID id.ID, newStock int) error
}
