package product

import (
	"context"
	"fmt"
	"time"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/domain/audit"
	"barstock/pkg/logger"
)

// Service provides business operations on the product catalog, including the
// only sanctioned way to mutate physical stock.
type Service struct {
	repo  Repository
	txm   tx.Manager
	audit audit.Recorder
}

// NewService creates a new product service.
func NewService(repo Repository, txm tx.Manager, auditRec audit.Recorder) *Service {
	return &Service{
		repo:  repo,
		txm:   txm,
		audit: auditRec,
	}
}

// Create inserts a new product after basic validation.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if p.Name == "" {
		return apperror.NewValidation("product name is required")
	}
	if p.PhysicalStock < 0 {
		return apperror.NewValidation("physical stock cannot be negative")
	}

	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return nil
}

// Get retrieves one product.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns all products of a bar.
func (s *Service) List(ctx context.Context, barID id.ID) ([]*Product, error) {
	return s.repo.ListByBar(ctx, barID)
}

// AdjustStock applies a signed delta to a product's physical stock under a
// row lock. The resulting count must stay non-negative; the physical ledger
// never goes below what a human could count on the shelf.
func (s *Service) AdjustStock(ctx context.Context, adj StockAdjustment) (*Product, error) {
	if adj.Delta == 0 {
		return nil, apperror.NewValidation("stock adjustment delta cannot be zero")
	}
	if adj.Reason == "" {
		return nil, apperror.NewValidation("stock adjustment reason is required")
	}

	var updated *Product
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, adj.ProductID)
		if err != nil {
			return fmt.Errorf("lock product %s: %w", adj.ProductID, err)
		}

		newStock := p.PhysicalStock + adj.Delta
		if newStock < 0 {
			return apperror.NewInsufficientStock(adj.ProductID.String(), -adj.Delta, p.PhysicalStock)
		}

		if err := s.repo.UpdateStock(ctx, adj.ProductID, newStock); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		p.PhysicalStock = newStock
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: "product",
		EntityID:   adj.ProductID,
		Action:     audit.ActionStockAdjust,
		UserID:     appctx.GetUserID(ctx),
		Changes:    adj,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "error", err)
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", adj.ProductID,
		"delta", adj.Delta,
		"reason", adj.Reason,
		"new_stock", updated.PhysicalStock,
	)
	return updated, nil
}
