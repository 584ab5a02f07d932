package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/availability"
	"barstock/internal/domain/sale"
)

var (
	_ sale.Queue                 = (*PendingQueue)(nil)
	_ availability.PendingSource = (*PendingQueue)(nil)
)

// PendingQueue is the durable local queue of sale operations awaiting
// delivery to the remote store. Append-only from the checkout path; rows
// leave the pending view by being marked synced, never deleted in place, so
// a crashed sync can always be replayed.
type PendingQueue struct {
	txm  *TxManager
	cols []string
}

// queueRow mirrors sale.QueuedOperation with raw jsonb lines for scanning.
type queueRow struct {
	ID             id.ID       `db:"id"`
	BarID          id.ID       `db:"bar_id"`
	IdempotencyKey string      `db:"idempotency_key"`
	Lines          []byte      `db:"lines"`
	Total          types.Money `db:"total"`
	Seller         string      `db:"seller"`
	BusinessDate   string      `db:"business_date"`
	CreatedAt      time.Time   `db:"created_at"`
}

func (row *queueRow) toOperation() (*sale.QueuedOperation, error) {
	var lines []sale.Line
	if len(row.Lines) > 0 {
		if err := json.Unmarshal(row.Lines, &lines); err != nil {
			return nil, fmt.Errorf("unmarshal queued lines: %w", err)
		}
	}

	return &sale.QueuedOperation{
		ID:             row.ID,
		BarID:          row.BarID,
		IdempotencyKey: row.IdempotencyKey,
		Lines:          lines,
		Total:          row.Total,
		Seller:         row.Seller,
		BusinessDate:   row.BusinessDate,
		CreatedAt:      row.CreatedAt,
	}, nil
}

// NewPendingQueue creates a new pending operation queue.
func NewPendingQueue(txm *TxManager) *PendingQueue {
	return &PendingQueue{
		txm:  txm,
		cols: ExtractDBColumns[queueRow](),
	}
}

func (q *PendingQueue) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Enqueue appends a not-yet-synchronized operation. Re-enqueueing the same
// idempotency key is a no-op, a retried checkout must not double the entry.
func (q *PendingQueue) Enqueue(ctx context.Context, op *sale.QueuedOperation) error {
	linesJSON, err := json.Marshal(op.Lines)
	if err != nil {
		return fmt.Errorf("marshal queued lines: %w", err)
	}

	sql, args, err := q.builder().
		Insert("pending_operations").
		SetMap(map[string]any{
			"id":              op.ID,
			"bar_id":          op.BarID,
			"idempotency_key": op.IdempotencyKey,
			"lines":           linesJSON,
			"total":           op.Total,
			"seller":          op.Seller,
			"business_date":   op.BusinessDate,
			"created_at":      op.CreatedAt,
		}).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := q.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("enqueue operation: %w", err)
	}
	return nil
}

// ListPending returns unsynced operations of a bar, oldest first.
func (q *PendingQueue) ListPending(ctx context.Context, barID id.ID) ([]*sale.QueuedOperation, error) {
	sql, args, err := q.builder().
		Select(q.cols...).
		From("pending_operations").
		Where(squirrel.Eq{"bar_id": barID, "synced": false}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*queueRow
	if err := pgxscan.Select(ctx, q.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list pending operations: %w", err)
	}

	ops := make([]*sale.QueuedOperation, 0, len(rows))
	for _, row := range rows {
		op, err := row.toOperation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// MarkSynced flags an operation as delivered to the remote store.
func (q *PendingQueue) MarkSynced(ctx context.Context, idempotencyKey string) error {
	sql, args, err := q.builder().
		Update("pending_operations").
		Set("synced", true).
		Set("synced_at", time.Now().UTC()).
		Where(squirrel.Eq{"idempotency_key": idempotencyKey, "synced": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := q.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("pending operation", idempotencyKey)
	}
	return nil
}

// FetchPending projects unsynced operations into the engine's shape.
func (q *PendingQueue) FetchPending(ctx context.Context, barID id.ID) ([]availability.Operation, error) {
	queued, err := q.ListPending(ctx, barID)
	if err != nil {
		return nil, err
	}

	ops := make([]availability.Operation, len(queued))
	for i, op := range queued {
		ops[i] = op.Operation()
	}
	return ops, nil
}

// PruneSynced deletes synced rows older than the retention window. Called
// by the sweeper, keeps the queue table from growing unbounded.
func (q *PendingQueue) PruneSynced(ctx context.Context, olderThan time.Time) (int64, error) {
	sql, args, err := q.builder().
		Delete("pending_operations").
		Where(squirrel.Eq{"synced": true}).
		Where(squirrel.Lt{"synced_at": olderThan}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	res, err := q.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("prune synced operations: %w", err)
	}
	return res.RowsAffected(), nil
}
