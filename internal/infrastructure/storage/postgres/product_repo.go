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
	"barstock/internal/domain/catalog/product"
)

// Compile-time checks: the repo serves both the catalog service and the
// availability engine's stock source.
var (
	_ product.Repository       = (*ProductRepo)(nil)
	_ availability.StockSource = (*ProductRepo)(nil)
)

// ProductRepo is the PostgreSQL product catalog repository.
type ProductRepo struct {
	txm  *TxManager
	cols []string
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *TxManager) *ProductRepo {
	return &ProductRepo{
		txm:  txm,
		cols: ExtractDBColumns[product.Product](),
	}
}

func (r *ProductRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	sql, args, err := r.builder().
		Insert("products").
		SetMap(StructToMap(p)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) get(ctx context.Context, productID id.ID, forUpdate bool) (*product.Product, error) {
	q := r.builder().
		Select(r.cols...).
		From("products").
		Where(squirrel.Eq{"id": productID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewProductUnknown(productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a product.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.get(ctx, productID, false)
}

// GetForUpdate retrieves a product with a row lock for stock mutation.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.get(ctx, productID, true)
}

// ListByBar returns all products of a bar ordered by name.
func (r *ProductRepo) ListByBar(ctx context.Context, barID id.ID) ([]*product.Product, error) {
	sql, args, err := r.builder().
		Select(r.cols...).
		From("products").
		Where(squirrel.Eq{"bar_id": barID}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []*product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// UpdateStock sets the physical stock of a product.
func (r *ProductRepo) UpdateStock(ctx context.Context, productID id.ID, newStock int) error {
	sql, args, err := r.builder().
		Update("products").
		Set("physical_stock", newStock).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewProductUnknown(productID.String())
	}
	return nil
}

// FetchStock returns the stock snapshot the reconciliation engine refreshes
// from. Projection only, never locks.
func (r *ProductRepo) FetchStock(ctx context.Context, barID id.ID) ([]availability.ProductStock, error) {
	sql, args, err := r.builder().
		Select("id", "physical_stock", "min_stock").
		From("products").
		Where(squirrel.Eq{"bar_id": barID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch stock: %w", err)
	}
	defer rows.Close()

	var snapshot []availability.ProductStock
	for rows.Next() {
		var ps availability.ProductStock
		if err := rows.Scan(&ps.ProductID, &ps.PhysicalStock, &ps.MinStock); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		snapshot = append(snapshot, ps)
	}
	return snapshot, rows.Err()
}
