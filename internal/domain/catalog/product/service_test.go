package product

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/audit"
)

// Mock objects

type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	mu       sync.Mutex
	products map[id.ID]*Product
}

func newMemRepo() *memRepo {
	return &memRepo{products: make(map[id.ID]*Product)}
}

func (r *memRepo) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, productID id.ID) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, productID id.ID) (*Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *memRepo) ListByBar(_ context.Context, barID id.ID) ([]*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Product
	for _, p := range r.products {
		if p.BarID == barID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateStock(_ context.Context, productID id.ID, newStock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return apperror.NewNotFound("product", productID)
	}
	p.PhysicalStock = newStock
	return nil
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, nopTx{}, audit.NopRecorder{})
}

func seedProduct(t *testing.T, repo *memRepo, stock int) *Product {
	t.Helper()
	p := &Product{
		ID:            id.New(),
		BarID:         id.New(),
		Name:          "Negroni Batch",
		PhysicalStock: stock,
		MinStock:      2,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestService_Create_Validation(t *testing.T) {
	svc := newTestService(newMemRepo())

	err := svc.Create(context.Background(), &Product{Name: ""})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	err = svc.Create(context.Background(), &Product{Name: "Gin", PhysicalStock: -1})
	require.Error(t, err)
}

func TestService_Create_AssignsID(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	p := &Product{Name: "Gin", BarID: id.New(), PhysicalStock: 4}
	require.NoError(t, svc.Create(context.Background(), p))

	assert.False(t, id.IsNil(p.ID))
	assert.False(t, p.CreatedAt.IsZero())

	stored, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.PhysicalStock)
}

func TestService_AdjustStock(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	p := seedProduct(t, repo, 10)

	updated, err := svc.AdjustStock(context.Background(), StockAdjustment{
		ProductID: p.ID, Delta: -3, Reason: "sale_validate",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.PhysicalStock)

	updated, err = svc.AdjustStock(context.Background(), StockAdjustment{
		ProductID: p.ID, Delta: 2, Reason: "consignment_create",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.PhysicalStock)
}

func TestService_AdjustStock_NeverBelowZero(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	p := seedProduct(t, repo, 2)

	_, err := svc.AdjustStock(context.Background(), StockAdjustment{
		ProductID: p.ID, Delta: -3, Reason: "sale_validate",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The failed adjustment must not leak into the stored count.
	stored, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.PhysicalStock)
}

func TestService_AdjustStock_RequiresDeltaAndReason(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	p := seedProduct(t, repo, 5)

	_, err := svc.AdjustStock(context.Background(), StockAdjustment{ProductID: p.ID, Delta: 0, Reason: "x"})
	require.Error(t, err)

	_, err = svc.AdjustStock(context.Background(), StockAdjustment{ProductID: p.ID, Delta: 1})
	require.Error(t, err)
}

func TestProduct_IsLowStock(t *testing.T) {
	p := &Product{PhysicalStock: 2, MinStock: 2}
	assert.True(t, p.IsLowStock())

	p.PhysicalStock = 3
	assert.False(t, p.IsLowStock())
}
