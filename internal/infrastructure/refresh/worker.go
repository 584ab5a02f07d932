// Package refresh runs the background pollers that keep the availability
// engine's source views current. Each input family refreshes on its own
// interval; a failing source backs off exponentially while the engine keeps
// serving its last-known-good view.
package refresh

import (
	"context"
	"sync"
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/config"
	"barstock/internal/core/id"
	"barstock/internal/domain/availability"
	"barstock/pkg/logger"
)

// Config bounds the polling loops.
type Config struct {
	BarID id.ID

	StockInterval       time.Duration
	ConsignmentInterval time.Duration
	SalesInterval       time.Duration
	QueueInterval       time.Duration

	// FetchTimeout caps a single source fetch.
	FetchTimeout time.Duration

	// MaxBackoff caps the delay growth of a failing loop.
	MaxBackoff time.Duration
}

// ConfigFromApp maps application refresh settings onto worker config.
func ConfigFromApp(barID id.ID, rc config.RefreshConfig) Config {
	return Config{
		BarID:               barID,
		StockInterval:       rc.StockInterval,
		ConsignmentInterval: rc.ConsignmentInterval,
		SalesInterval:       rc.SalesInterval,
		QueueInterval:       rc.QueueInterval,
		FetchTimeout:        rc.FetchTimeout,
		MaxBackoff:          rc.MaxBackoff,
	}
}

// Syncer drains the local pending queue to the remote store.
type Syncer interface {
	SyncPending(ctx context.Context, barID id.ID) (int, error)
}

// Worker owns the background refresh loops of one bar node.
type Worker struct {
	cfg    Config
	engine *availability.Engine

	stock        availability.StockSource
	reservations availability.ReservationSource
	pending      availability.PendingSource
	unvalidated  availability.UnvalidatedSource
	syncer       Syncer

	log *logger.Logger
}

// NewWorker creates a refresh worker.
func NewWorker(
	cfg Config,
	engine *availability.Engine,
	stock availability.StockSource,
	reservations availability.ReservationSource,
	pending availability.PendingSource,
	unvalidated availability.UnvalidatedSource,
	syncer Syncer,
	log *logger.Logger,
) *Worker {
	return &Worker{
		cfg:          cfg,
		engine:       engine,
		stock:        stock,
		reservations: reservations,
		pending:      pending,
		unvalidated:  unvalidated,
		syncer:       syncer,
		log:          log.WithComponent("refresh"),
	}
}

// Run starts all refresh loops and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	loops := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context) error
	}{
		{"stock", w.cfg.StockInterval, w.refreshStock},
		{"consignments", w.cfg.ConsignmentInterval, w.refreshReservations},
		{"pending_queue", w.cfg.QueueInterval, w.refreshPending},
		{"unvalidated_sales", w.cfg.SalesInterval, w.refreshUnvalidated},
		{"queue_flush", w.cfg.QueueInterval, w.flushQueue},
	}

	for _, l := range loops {
		wg.Add(1)
		go func(name string, interval time.Duration, fn func(context.Context) error) {
			defer wg.Done()
			w.loop(ctx, name, interval, fn)
		}(l.name, l.interval, l.fn)
	}

	wg.Wait()
}

// loop runs fn on interval. Consecutive failures double the delay up to
// MaxBackoff; a success resets it.
func (w *Worker) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	delay := interval

	// Prime the view before the first tick.
	if err := fn(ctx); err != nil {
		w.log.Warnw("initial refresh failed", "loop", name, "error", err)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			w.log.Warnw("refresh failed", "loop", name, "delay", delay, "error", err)
			delay *= 2
			if delay > w.cfg.MaxBackoff {
				delay = w.cfg.MaxBackoff
			}
		} else {
			delay = interval
		}
		timer.Reset(delay)
	}
}

func (w *Worker) fetchCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, w.cfg.FetchTimeout)
}

func (w *Worker) refreshStock(ctx context.Context) error {
	started := time.Now()

	fctx, cancel := w.fetchCtx(ctx)
	defer cancel()

	products, err := w.stock.FetchStock(fctx, w.cfg.BarID)
	if err != nil {
		w.engine.MarkSourceFailed(availability.SourceStock, err)
		return apperror.NewSourceUnavailable(string(availability.SourceStock), err)
	}

	w.engine.SetStock(ctx, products, started)
	return nil
}

func (w *Worker) refreshReservations(ctx context.Context) error {
	fctx, cancel := w.fetchCtx(ctx)
	defer cancel()

	reservations, err := w.reservations.FetchActive(fctx, w.cfg.BarID)
	if err != nil {
		w.engine.MarkSourceFailed(availability.SourceReservations, err)
		return apperror.NewSourceUnavailable(string(availability.SourceReservations), err)
	}

	w.engine.SetReservations(reservations)
	return nil
}

func (w *Worker) refreshPending(ctx context.Context) error {
	fctx, cancel := w.fetchCtx(ctx)
	defer cancel()

	ops, err := w.pending.FetchPending(fctx, w.cfg.BarID)
	if err != nil {
		w.engine.MarkSourceFailed(availability.SourcePendingQueue, err)
		return apperror.NewSourceUnavailable(string(availability.SourcePendingQueue), err)
	}

	w.engine.SetPending(ops)
	return nil
}

func (w *Worker) refreshUnvalidated(ctx context.Context) error {
	fctx, cancel := w.fetchCtx(ctx)
	defer cancel()

	ops, err := w.unvalidated.FetchUnvalidated(fctx, w.cfg.BarID)
	if err != nil {
		w.engine.MarkSourceFailed(availability.SourceUnvalidated, err)
		return apperror.NewSourceUnavailable(string(availability.SourceUnvalidated), err)
	}

	w.engine.SetUnvalidated(ops)
	return nil
}

// flushQueue pushes queued operations to the remote store. Failure here is
// the normal offline case; the loop's backoff keeps retry pressure low.
func (w *Worker) flushQueue(ctx context.Context) error {
	synced, err := w.syncer.SyncPending(ctx, w.cfg.BarID)
	if err != nil {
		return err
	}
	if synced > 0 {
		w.log.Infow("drained pending queue", "synced", synced)
	}
	return nil
}
