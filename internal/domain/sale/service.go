package sale

import (
	"context"
	"fmt"
	"time"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/domain/audit"
	"barstock/internal/domain/availability"
	"barstock/internal/domain/catalog/product"
	"barstock/pkg/logger"
)

// CreateInput carries a checkout attempt.
type CreateInput struct {
	BarID id.ID
	// IdempotencyKey is generated when empty. Callers retrying a failed
	// attempt must resend the original key.
	IdempotencyKey string
	Lines          []Line
	Seller         string
	BusinessDate   string
}

// Result reports where a created sale landed.
type Result struct {
	Sale *Sale
	// Queued is true when the remote store was unreachable and the
	// operation went to the local durable queue instead.
	Queued bool
}

// Service drives sale operations through their lifecycle while keeping the
// reconciliation engine's views current at every hand-off point.
type Service struct {
	store    Store
	queue    Queue
	engine   *availability.Engine
	products *product.Service
	txm      tx.Manager
	audit    audit.Recorder
}

// NewService creates a new sale service.
func NewService(store Store, queue Queue, engine *availability.Engine, products *product.Service, txm tx.Manager, auditRec audit.Recorder) *Service {
	return &Service{
		store:    store,
		queue:    queue,
		engine:   engine,
		products: products,
		txm:      txm,
		audit:    auditRec,
	}
}

// Create runs the checkout flow: validation gate, in-flight tracking, then
// the durable write, remote when reachable, local queue otherwise. The
// in-flight entry is released only after the durable location has been
// pushed into the engine, so the deduction is visible in at least one source
// at every instant.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	if len(in.Lines) == 0 {
		return nil, apperror.NewValidation("sale must contain at least one line item")
	}
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return nil, apperror.NewValidation("line item quantity must be positive").
				WithDetail("product_id", l.ProductID.String())
		}
	}

	if err := s.engine.ValidateLineItems(ctx, Items(in.Lines)); err != nil {
		return nil, err
	}

	key := in.IdempotencyKey
	if key == "" {
		key = id.NewKey()
	}

	op := availability.Operation{Key: key, Items: Items(in.Lines)}
	s.engine.Tracker().Track(op)
	defer s.engine.Tracker().Untrack(key)

	now := time.Now().UTC()
	sl := &Sale{
		ID:             id.New(),
		BarID:          in.BarID,
		IdempotencyKey: key,
		Lines:          in.Lines,
		Total:          LinesTotal(in.Lines),
		Seller:         in.Seller,
		BusinessDate:   in.BusinessDate,
		Status:         StatusPendingValidation,
		CreatedAt:      now,
	}

	if err := s.store.Create(ctx, sl); err != nil {
		logger.Warn(ctx, "remote sale store unreachable, queuing locally",
			"idempotency_key", key, "error", err)

		qop := &QueuedOperation{
			ID:             id.New(),
			BarID:          in.BarID,
			IdempotencyKey: key,
			Lines:          in.Lines,
			Total:          sl.Total,
			Seller:         in.Seller,
			BusinessDate:   in.BusinessDate,
			CreatedAt:      now,
		}
		if err := s.queue.Enqueue(ctx, qop); err != nil {
			return nil, fmt.Errorf("enqueue sale operation: %w", err)
		}

		s.refreshPendingView(ctx, in.BarID)
		s.recordSale(ctx, sl, audit.ActionSaleCreate)
		return &Result{Sale: sl, Queued: true}, nil
	}

	s.refreshUnvalidatedView(ctx, in.BarID)
	s.recordSale(ctx, sl, audit.ActionSaleCreate)
	logger.Info(ctx, "sale created",
		"sale_id", sl.ID,
		"idempotency_key", key,
		"lines", len(sl.Lines),
	)
	return &Result{Sale: sl}, nil
}

// Validate performs the second-step validation: the sale's decrement becomes
// part of the physical stock and its idempotency key enters the
// recently-confirmed set until a later snapshot refresh covers it.
func (s *Service) Validate(ctx context.Context, saleID id.ID) (*Sale, error) {
	var validated *Sale

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sl, err := s.store.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sl.Status != StatusPendingValidation {
			return apperror.NewInvalidTransition(sl.ID.String(), string(sl.Status), string(StatusValidated))
		}

		now := time.Now().UTC()
		ok, err := s.store.MarkValidated(ctx, sl.ID, now)
		if err != nil {
			return fmt.Errorf("mark validated: %w", err)
		}
		if !ok {
			return apperror.NewInvalidTransition(sl.ID.String(), string(sl.Status), string(StatusValidated))
		}

		for _, line := range sl.Lines {
			if _, err := s.products.AdjustStock(ctx, product.StockAdjustment{
				ProductID: line.ProductID,
				Delta:     -line.Quantity,
				Reason:    "sale_validate",
			}); err != nil {
				return err
			}
		}

		sl.Status = StatusValidated
		sl.ValidatedAt = &now
		validated = sl
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Confirm before refreshing the feed view: from this instant the
	// decrement lives in physical stock, and any stale copy of the
	// operation must be suppressed, not counted.
	s.engine.Confirmed().MarkConfirmed(validated.IdempotencyKey)
	s.refreshUnvalidatedView(ctx, validated.BarID)

	s.recordSale(ctx, validated, audit.ActionSaleValidate)
	logger.Info(ctx, "sale validated",
		"sale_id", validated.ID,
		"idempotency_key", validated.IdempotencyKey,
	)
	return validated, nil
}

// SyncPending flushes locally queued operations to the remote store.
// Called by the refresh loop whenever connectivity allows. Each delivered
// operation is marked synced; its deduction moves from the pending-queue
// family to the unvalidated-sales family, overlapping copies deduplicated
// by key in between.
func (s *Service) SyncPending(ctx context.Context, barID id.ID) (int, error) {
	ops, err := s.queue.ListPending(ctx, barID)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	if len(ops) == 0 {
		return 0, nil
	}

	synced := 0
	for _, op := range ops {
		sl := &Sale{
			ID:             id.New(),
			BarID:          op.BarID,
			IdempotencyKey: op.IdempotencyKey,
			Lines:          op.Lines,
			Total:          op.Total,
			Seller:         op.Seller,
			BusinessDate:   op.BusinessDate,
			Status:         StatusPendingValidation,
			CreatedAt:      op.CreatedAt,
		}
		if err := s.store.Create(ctx, sl); err != nil {
			// Connectivity dropped again; the rest stays queued.
			logger.Warn(ctx, "sync interrupted", "synced", synced, "error", err)
			break
		}
		if err := s.queue.MarkSynced(ctx, op.IdempotencyKey); err != nil {
			return synced, fmt.Errorf("mark synced %s: %w", op.IdempotencyKey, err)
		}
		synced++
	}

	if synced > 0 {
		s.refreshPendingView(ctx, barID)
		s.refreshUnvalidatedView(ctx, barID)
		logger.Info(ctx, "pending operations synced", "count", synced)
	}
	return synced, nil
}

// Get retrieves one sale.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.store.GetByID(ctx, saleID)
}

// refreshPendingView pushes the current local queue into the engine.
// On failure the poller's last-known-good view keeps serving; the source is
// flagged stale.
func (s *Service) refreshPendingView(ctx context.Context, barID id.ID) {
	ops, err := s.queue.ListPending(ctx, barID)
	if err != nil {
		s.engine.MarkSourceFailed(availability.SourcePendingQueue, err)
		return
	}
	converted := make([]availability.Operation, len(ops))
	for i, op := range ops {
		converted[i] = op.Operation()
	}
	s.engine.SetPending(converted)
}

// refreshUnvalidatedView pushes the current unvalidated feed into the engine.
func (s *Service) refreshUnvalidatedView(ctx context.Context, barID id.ID) {
	sales, err := s.store.ListUnvalidated(ctx, barID)
	if err != nil {
		s.engine.MarkSourceFailed(availability.SourceUnvalidated, err)
		return
	}
	converted := make([]availability.Operation, len(sales))
	for i, sl := range sales {
		converted[i] = sl.Operation()
	}
	s.engine.SetUnvalidated(converted)
}

func (s *Service) recordSale(ctx context.Context, sl *Sale, action audit.Action) {
	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: "sale",
		EntityID:   sl.ID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    sl,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "error", err)
	}
}
