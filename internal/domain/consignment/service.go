package consignment

import (
	"context"
	"fmt"
	"time"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/core/types"
	"barstock/internal/domain/audit"
	"barstock/internal/domain/catalog/product"
	"barstock/pkg/logger"
)

// CreateInput carries everything needed to open a consignment alongside a sale.
type CreateInput struct {
	BarID          id.ID
	SaleID         id.ID
	ProductID      id.ID
	Quantity       int
	TotalAmount    types.Money
	CustomerName   *string
	CustomerPhone  *string
	Notes          *string
	OriginalSeller string
	BusinessDate   string
	ExpiresAt      *time.Time // nil -> DefaultExpirationDays from now
}

// Service implements the consignment state machine with its stock side
// effects. Creation compensates the sale's decrement (+qty, the units stay
// on the shelf); claiming removes them (−qty, the units leave); forfeit and
// expiry move no stock at all.
type Service struct {
	repo     Repository
	products *product.Service
	txm      tx.Manager
	audit    audit.Recorder
}

// NewService creates a new consignment service.
func NewService(repo Repository, products *product.Service, txm tx.Manager, auditRec audit.Recorder) *Service {
	return &Service{
		repo:     repo,
		products: products,
		txm:      txm,
		audit:    auditRec,
	}
}

// Create opens an active consignment and restores the product's physical
// stock by the consigned quantity. Fails when the product does not exist.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Consignment, error) {
	if in.Quantity <= 0 {
		return nil, apperror.NewValidation("consignment quantity must be positive")
	}

	p, err := s.products.Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.AddDate(0, 0, DefaultExpirationDays)
	if in.ExpiresAt != nil {
		expiresAt = in.ExpiresAt.UTC()
	}

	c := &Consignment{
		ID:             id.New(),
		BarID:          in.BarID,
		SaleID:         in.SaleID,
		ProductID:      in.ProductID,
		ProductName:    p.Name,
		Volume:         p.Volume,
		Quantity:       in.Quantity,
		TotalAmount:    in.TotalAmount,
		CustomerName:   in.CustomerName,
		CustomerPhone:  in.CustomerPhone,
		Notes:          in.Notes,
		OriginalSeller: in.OriginalSeller,
		BusinessDate:   in.BusinessDate,
		Status:         StatusActive,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("insert consignment: %w", err)
		}
		// The sale already deducted the units; they physically stay here.
		_, err := s.products.AdjustStock(ctx, product.StockAdjustment{
			ProductID: in.ProductID,
			Delta:     in.Quantity,
			Reason:    "consignment_create",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, c, audit.ActionConsignmentCreate)
	logger.Info(ctx, "consignment created",
		"consignment_id", c.ID,
		"product_id", c.ProductID,
		"quantity", c.Quantity,
		"expires_at", c.ExpiresAt,
	)
	return c, nil
}

// Claim hands the units to the customer: active → claimed, stock −quantity.
func (s *Service) Claim(ctx context.Context, consignmentID id.ID) (*Consignment, error) {
	var claimed *Consignment

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, consignmentID)
		if err != nil {
			return err
		}
		if !c.CanTransition(StatusClaimed) {
			return apperror.NewInvalidTransition(c.ID.String(), string(c.Status), string(StatusClaimed))
		}

		now := time.Now().UTC()
		ok, err := s.repo.UpdateStatus(ctx, c.ID, StatusActive, StatusClaimed, &now)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return apperror.NewInvalidTransition(c.ID.String(), string(c.Status), string(StatusClaimed))
		}

		if _, err := s.products.AdjustStock(ctx, product.StockAdjustment{
			ProductID: c.ProductID,
			Delta:     -c.Quantity,
			Reason:    "consignment_claim",
		}); err != nil {
			return err
		}

		c.Status = StatusClaimed
		c.ClaimedAt = &now
		claimed = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, claimed, audit.ActionConsignmentClaim)
	logger.Info(ctx, "consignment claimed", "consignment_id", claimed.ID, "quantity", claimed.Quantity)
	return claimed, nil
}

// Forfeit releases an active consignment manually. No stock movement: the
// units never left the shelf and creation already restored the count.
func (s *Service) Forfeit(ctx context.Context, consignmentID id.ID) (*Consignment, error) {
	var forfeited *Consignment

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, consignmentID)
		if err != nil {
			return err
		}
		if !c.CanTransition(StatusForfeited) {
			return apperror.NewInvalidTransition(c.ID.String(), string(c.Status), string(StatusForfeited))
		}

		ok, err := s.repo.UpdateStatus(ctx, c.ID, StatusActive, StatusForfeited, nil)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return apperror.NewInvalidTransition(c.ID.String(), string(c.Status), string(StatusForfeited))
		}

		c.Status = StatusForfeited
		forfeited = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, forfeited, audit.ActionConsignmentForfeit)
	logger.Info(ctx, "consignment forfeited", "consignment_id", forfeited.ID)
	return forfeited, nil
}

// Expire batch-transitions active consignments whose expiry has passed.
// Invoked by the periodic sweep, never by the reconciliation read path.
// Returns the ids actually expired; non-active or not-yet-due records are
// skipped, not errors.
func (s *Service) Expire(ctx context.Context, ids []id.ID, now time.Time) ([]id.ID, error) {
	expired := make([]id.ID, 0, len(ids))

	for _, cid := range ids {
		err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			c, err := s.repo.GetForUpdate(ctx, cid)
			if err != nil {
				return err
			}
			if !c.IsExpired(now) {
				return nil
			}

			ok, err := s.repo.UpdateStatus(ctx, c.ID, StatusActive, StatusExpired, nil)
			if err != nil {
				return fmt.Errorf("update status: %w", err)
			}
			if ok {
				expired = append(expired, c.ID)
				s.record(ctx, c, audit.ActionConsignmentExpire)
			}
			return nil
		})
		if err != nil {
			return expired, err
		}
	}

	if len(expired) > 0 {
		logger.Info(ctx, "consignments expired", "count", len(expired))
	}
	return expired, nil
}

// SweepExpired finds and expires all overdue consignments of a bar.
func (s *Service) SweepExpired(ctx context.Context, barID id.ID, now time.Time) ([]id.ID, error) {
	overdue, err := s.repo.ListExpiredActive(ctx, barID, now)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	if len(overdue) == 0 {
		return nil, nil
	}

	ids := make([]id.ID, len(overdue))
	for i, c := range overdue {
		ids[i] = c.ID
	}
	return s.Expire(ctx, ids, now)
}

// Get retrieves one consignment.
func (s *Service) Get(ctx context.Context, consignmentID id.ID) (*Consignment, error) {
	return s.repo.GetByID(ctx, consignmentID)
}

// List returns consignments of a bar, optionally filtered by status.
func (s *Service) List(ctx context.Context, barID id.ID, status *Status) ([]*Consignment, error) {
	return s.repo.ListByBar(ctx, barID, status)
}

func (s *Service) record(ctx context.Context, c *Consignment, action audit.Action) {
	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: "consignment",
		EntityID:   c.ID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    c,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "error", err)
	}
}
