// Package main is the entry point for the barstock sweeper: the periodic
// maintenance process that expires overdue consignments, prunes delivered
// queue entries and drops stale idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barstock/internal/core/config"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog/product"
	"barstock/internal/domain/consignment"
	"barstock/internal/infrastructure/storage/postgres"
	"barstock/pkg/logger"
)

// queueRetention is how long delivered pending-queue rows are kept for
// inspection before pruning.
const queueRetention = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	barID, err := id.Parse(cfg.App.BarID)
	if err != nil {
		log.Fatalw("invalid or missing bar id (BARSTOCK_APP_BAR_ID)", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting barstock sweeper", "bar_id", barID, "interval", cfg.Sweep.Interval)

	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFromApp(cfg.DB))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	productRepo := postgres.NewProductRepo(txm)
	consignmentRepo := postgres.NewConsignmentRepo(txm)
	pendingQueue := postgres.NewPendingQueue(txm)
	idempotencyStore := postgres.NewIdempotencyStore(txm, cfg.Sweep.IdempotencyTTL)

	auditStore, err := postgres.NewAuditStore(txm)
	if err != nil {
		log.Fatalw("failed to create audit store", "error", err)
	}

	productService := product.NewService(productRepo, txm, auditStore)
	consignmentService := consignment.NewService(consignmentRepo, productService, txm, auditStore)

	sweeper := &sweeper{
		barID:        barID,
		consignments: consignmentService,
		queue:        pendingQueue,
		idempotency:  idempotencyStore,
		log:          log.WithComponent("sweeper"),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.run(ctx, cfg.Sweep.Interval)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down sweeper...")
	cancel()
	<-done
	log.Info("sweeper stopped")
}

type sweeper struct {
	barID        id.ID
	consignments *consignment.Service
	queue        *postgres.PendingQueue
	idempotency  *postgres.IdempotencyStore
	log          *logger.Logger
}

func (s *sweeper) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	expired, err := s.consignments.SweepExpired(ctx, s.barID, now)
	if err != nil {
		s.log.Errorw("consignment sweep failed", "error", err)
	} else if len(expired) > 0 {
		s.log.Infow("expired consignments", "count", len(expired))
	}

	pruned, err := s.queue.PruneSynced(ctx, now.Add(-queueRetention))
	if err != nil {
		s.log.Errorw("queue prune failed", "error", err)
	} else if pruned > 0 {
		s.log.Infow("pruned delivered queue entries", "count", pruned)
	}

	cleaned, err := s.idempotency.CleanupExpired(ctx)
	if err != nil {
		s.log.Errorw("idempotency cleanup failed", "error", err)
	} else if cleaned > 0 {
		s.log.Infow("cleaned up idempotency keys", "count", cleaned)
	}
}
