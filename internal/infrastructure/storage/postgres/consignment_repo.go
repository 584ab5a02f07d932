package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/availability"
	"barstock/internal/domain/consignment"
)

var (
	_ consignment.Repository         = (*ConsignmentRepo)(nil)
	_ availability.ReservationSource = (*ConsignmentRepo)(nil)
)

// ConsignmentRepo is the PostgreSQL consignment ledger repository.
type ConsignmentRepo struct {
	txm  *TxManager
	cols []string
}

// NewConsignmentRepo creates a new consignment repository.
func NewConsignmentRepo(txm *TxManager) *ConsignmentRepo {
	return &ConsignmentRepo{
		txm:  txm,
		cols: ExtractDBColumns[consignment.Consignment](),
	}
}

func (r *ConsignmentRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new consignment.
func (r *ConsignmentRepo) Create(ctx context.Context, c *consignment.Consignment) error {
	sql, args, err := r.builder().
		Insert("consignments").
		SetMap(StructToMap(c)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert consignment: %w", err)
	}
	return nil
}

func (r *ConsignmentRepo) get(ctx context.Context, consignmentID id.ID, forUpdate bool) (*consignment.Consignment, error) {
	q := r.builder().
		Select(r.cols...).
		From("consignments").
		Where(squirrel.Eq{"id": consignmentID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c consignment.Consignment
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("consignment", consignmentID.String())
		}
		return nil, fmt.Errorf("get consignment: %w", err)
	}
	return &c, nil
}

// GetByID retrieves one consignment.
func (r *ConsignmentRepo) GetByID(ctx context.Context, consignmentID id.ID) (*consignment.Consignment, error) {
	return r.get(ctx, consignmentID, false)
}

// GetForUpdate retrieves one consignment with a row lock.
func (r *ConsignmentRepo) GetForUpdate(ctx context.Context, consignmentID id.ID) (*consignment.Consignment, error) {
	return r.get(ctx, consignmentID, true)
}

// ListByBar returns consignments of a bar, optionally filtered by status,
// newest first.
func (r *ConsignmentRepo) ListByBar(ctx context.Context, barID id.ID, status *consignment.Status) ([]*consignment.Consignment, error) {
	q := r.builder().
		Select(r.cols...).
		From("consignments").
		Where(squirrel.Eq{"bar_id": barID}).
		OrderBy("created_at DESC")
	if status != nil {
		q = q.Where(squirrel.Eq{"status": *status})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*consignment.Consignment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list consignments: %w", err)
	}
	return out, nil
}

// ListExpiredActive returns active consignments whose expiry has passed.
func (r *ConsignmentRepo) ListExpiredActive(ctx context.Context, barID id.ID, now time.Time) ([]*consignment.Consignment, error) {
	sql, args, err := r.builder().
		Select(r.cols...).
		From("consignments").
		Where(squirrel.Eq{"bar_id": barID, "status": consignment.StatusActive}).
		Where(squirrel.Lt{"expires_at": now}).
		OrderBy("expires_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*consignment.Consignment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list expired consignments: %w", err)
	}
	return out, nil
}

// UpdateStatus transitions a consignment between states. The WHERE clause
// carries the expected current status; zero affected rows means the stored
// record already moved on.
func (r *ConsignmentRepo) UpdateStatus(ctx context.Context, consignmentID id.ID, from, to consignment.Status, claimedAt *time.Time) (bool, error) {
	q := r.builder().
		Update("consignments").
		Set("status", to).
		Where(squirrel.Eq{"id": consignmentID, "status": from})
	if claimedAt != nil {
		q = q.Set("claimed_at", *claimedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update consignment status: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// FetchActive returns the reservation view the engine refreshes from: one
// row per active consignment, resolved ones never appear.
func (r *ConsignmentRepo) FetchActive(ctx context.Context, barID id.ID) ([]availability.Reservation, error) {
	sql, args, err := r.builder().
		Select("id", "product_id", "quantity").
		From("consignments").
		Where(squirrel.Eq{"bar_id": barID, "status": consignment.StatusActive}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch active consignments: %w", err)
	}
	defer rows.Close()

	var reservations []availability.Reservation
	for rows.Next() {
		var rv availability.Reservation
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.Quantity); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, rv)
	}
	return reservations, rows.Err()
}
