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
	_ sale.Store                     = (*SaleRepo)(nil)
	_ availability.UnvalidatedSource = (*SaleRepo)(nil)
)

// SaleRepo is the PostgreSQL sale ledger repository. Line items live in a
// jsonb column: they are written once at creation, read as a unit and never
// queried individually.
type SaleRepo struct {
	txm  *TxManager
	cols []string
}

// saleRow mirrors sale.Sale with raw jsonb lines for scanning.
type saleRow struct {
	ID             id.ID      `db:"id"`
	BarID          id.ID      `db:"bar_id"`
	IdempotencyKey string      `db:"idempotency_key"`
	Lines          []byte      `db:"lines"`
	Total          types.Money `db:"total"`
	Seller         string     `db:"seller"`
	BusinessDate   string     `db:"business_date"`
	Status         string     `db:"status"`
	CreatedAt      time.Time  `db:"created_at"`
	ValidatedAt    *time.Time `db:"validated_at"`
}

func (row *saleRow) toSale() (*sale.Sale, error) {
	var lines []sale.Line
	if len(row.Lines) > 0 {
		if err := json.Unmarshal(row.Lines, &lines); err != nil {
			return nil, fmt.Errorf("unmarshal sale lines: %w", err)
		}
	}

	return &sale.Sale{
		ID:             row.ID,
		BarID:          row.BarID,
		IdempotencyKey: row.IdempotencyKey,
		Lines:          lines,
		Total:          row.Total,
		Seller:         row.Seller,
		BusinessDate:   row.BusinessDate,
		Status:         sale.Status(row.Status),
		CreatedAt:      row.CreatedAt,
		ValidatedAt:    row.ValidatedAt,
	}, nil
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *TxManager) *SaleRepo {
	return &SaleRepo{
		txm:  txm,
		cols: ExtractDBColumns[saleRow](),
	}
}

func (r *SaleRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create durably stores a sale. Idempotent on the key: a retry carrying an
// already stored key loads the existing record into s instead of inserting
// a duplicate.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	linesJSON, err := json.Marshal(s.Lines)
	if err != nil {
		return fmt.Errorf("marshal sale lines: %w", err)
	}

	sql, args, err := r.builder().
		Insert("sales").
		SetMap(map[string]any{
			"id":              s.ID,
			"bar_id":          s.BarID,
			"idempotency_key": s.IdempotencyKey,
			"lines":           linesJSON,
			"total":           s.Total,
			"seller":          s.Seller,
			"business_date":   s.BusinessDate,
			"status":          s.Status,
			"created_at":      s.CreatedAt,
		}).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	if res.RowsAffected() == 0 {
		existing, err := r.getByKey(ctx, s.IdempotencyKey)
		if err != nil {
			return err
		}
		*s = *existing
	}
	return nil
}

func (r *SaleRepo) get(ctx context.Context, pred squirrel.Eq, forUpdate bool) (*sale.Sale, error) {
	q := r.builder().
		Select(r.cols...).
		From("sales").
		Where(pred)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row saleRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", fmt.Sprintf("%v", pred))
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return row.toSale()
}

func (r *SaleRepo) getByKey(ctx context.Context, key string) (*sale.Sale, error) {
	return r.get(ctx, squirrel.Eq{"idempotency_key": key}, false)
}

// GetByID retrieves one sale.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, squirrel.Eq{"id": saleID}, false)
}

// GetForUpdate retrieves one sale with a row lock for validation.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, squirrel.Eq{"id": saleID}, true)
}

// ListUnvalidated returns sales awaiting second-step validation, oldest first.
func (r *SaleRepo) ListUnvalidated(ctx context.Context, barID id.ID) ([]*sale.Sale, error) {
	sql, args, err := r.builder().
		Select(r.cols...).
		From("sales").
		Where(squirrel.Eq{"bar_id": barID, "status": sale.StatusPendingValidation}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*saleRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list unvalidated sales: %w", err)
	}

	sales := make([]*sale.Sale, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSale()
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, nil
}

// MarkValidated transitions a sale out of pending_validation. Guarded: zero
// affected rows means the sale already left that state.
func (r *SaleRepo) MarkValidated(ctx context.Context, saleID id.ID, validatedAt time.Time) (bool, error) {
	sql, args, err := r.builder().
		Update("sales").
		Set("status", sale.StatusValidated).
		Set("validated_at", validatedAt).
		Where(squirrel.Eq{"id": saleID, "status": sale.StatusPendingValidation}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("mark validated: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// FetchUnvalidated projects pending-validation sales into the engine's
// operation shape.
func (r *SaleRepo) FetchUnvalidated(ctx context.Context, barID id.ID) ([]availability.Operation, error) {
	sales, err := r.ListUnvalidated(ctx, barID)
	if err != nil {
		return nil, err
	}

	ops := make([]availability.Operation, len(sales))
	for i, s := range sales {
		ops[i] = s.Operation()
	}
	return ops, nil
}
