package consignment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/audit"
	"barstock/internal/domain/catalog/product"
)

// Mock objects

type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memConsignmentRepo struct {
	mu    sync.Mutex
	items map[id.ID]*Consignment
}

func newMemConsignmentRepo() *memConsignmentRepo {
	return &memConsignmentRepo{items: make(map[id.ID]*Consignment)}
}

func (r *memConsignmentRepo) Create(_ context.Context, c *Consignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *memConsignmentRepo) GetByID(_ context.Context, cid id.ID) (*Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[cid]
	if !ok {
		return nil, apperror.NewNotFound("consignment", cid)
	}
	cp := *c
	return &cp, nil
}

func (r *memConsignmentRepo) GetForUpdate(ctx context.Context, cid id.ID) (*Consignment, error) {
	return r.GetByID(ctx, cid)
}

func (r *memConsignmentRepo) ListByBar(_ context.Context, barID id.ID, status *Status) ([]*Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Consignment
	for _, c := range r.items {
		if c.BarID != barID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memConsignmentRepo) ListExpiredActive(_ context.Context, barID id.ID, now time.Time) ([]*Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Consignment
	for _, c := range r.items {
		if c.BarID == barID && c.Status == StatusActive && c.ExpiresAt.Before(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memConsignmentRepo) UpdateStatus(_ context.Context, cid id.ID, from, to Status, claimedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[cid]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.ClaimedAt = claimedAt
	return true, nil
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[id.ID]*product.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[id.ID]*product.Product)}
}

func (r *memProductRepo) Create(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memProductRepo) GetByID(_ context.Context, pid id.ID) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[pid]
	if !ok {
		return nil, apperror.NewNotFound("product", pid)
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetForUpdate(ctx context.Context, pid id.ID) (*product.Product, error) {
	return r.GetByID(ctx, pid)
}

func (r *memProductRepo) ListByBar(_ context.Context, _ id.ID) ([]*product.Product, error) {
	return nil, nil
}

func (r *memProductRepo) UpdateStock(_ context.Context, pid id.ID, newStock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[pid]
	if !ok {
		return apperror.NewNotFound("product", pid)
	}
	p.PhysicalStock = newStock
	return nil
}

type fixture struct {
	svc      *Service
	products *memProductRepo
	repo     *memConsignmentRepo
	barID    id.ID
	product  *product.Product
}

func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()

	productRepo := newMemProductRepo()
	productSvc := product.NewService(productRepo, nopTx{}, audit.NopRecorder{})

	vol := "0.7L"
	p := &product.Product{
		ID:            id.New(),
		BarID:         id.New(),
		Name:          "Islay Single Malt",
		Volume:        &vol,
		Price:         types.MustMoney("89.90"),
		PhysicalStock: stock,
	}
	require.NoError(t, productRepo.Create(context.Background(), p))

	repo := newMemConsignmentRepo()
	return &fixture{
		svc:      NewService(repo, productSvc, nopTx{}, audit.NopRecorder{}),
		products: productRepo,
		repo:     repo,
		barID:    p.BarID,
		product:  p,
	}
}

func (f *fixture) create(t *testing.T, qty int) *Consignment {
	t.Helper()
	c, err := f.svc.Create(context.Background(), CreateInput{
		BarID:          f.barID,
		SaleID:         id.New(),
		ProductID:      f.product.ID,
		Quantity:       qty,
		TotalAmount:    types.MustMoney("89.90"),
		OriginalSeller: "mara",
		BusinessDate:   "2026-08-28",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), f.product.ID)
	require.NoError(t, err)
	return p.PhysicalStock
}

func TestService_Create_RestoresStock(t *testing.T) {
	// The originating sale already removed the units; opening the
	// consignment puts them back because they never left the shelf.
	f := newFixture(t, 7)

	c := f.create(t, 3)

	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, f.product.Name, c.ProductName)
	assert.Equal(t, 10, f.stock(t))

	// Default expiry lands about a week out.
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, DefaultExpirationDays), c.ExpiresAt, time.Minute)
}

func TestService_Create_RejectsBadInput(t *testing.T) {
	f := newFixture(t, 5)

	_, err := f.svc.Create(context.Background(), CreateInput{
		BarID: f.barID, ProductID: f.product.ID, Quantity: 0,
	})
	require.Error(t, err)

	_, err = f.svc.Create(context.Background(), CreateInput{
		BarID: f.barID, ProductID: id.New(), Quantity: 1,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_Claim_RemovesStock(t *testing.T) {
	f := newFixture(t, 7)
	c := f.create(t, 3) // stock 10

	claimed, err := f.svc.Claim(context.Background(), c.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusClaimed, claimed.Status)
	require.NotNil(t, claimed.ClaimedAt)
	assert.Equal(t, 7, f.stock(t))
}

func TestService_Claim_Twice(t *testing.T) {
	f := newFixture(t, 7)
	c := f.create(t, 3)

	_, err := f.svc.Claim(context.Background(), c.ID)
	require.NoError(t, err)

	_, err = f.svc.Claim(context.Background(), c.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))

	// The double tap must not move stock a second time.
	assert.Equal(t, 7, f.stock(t))
}

func TestService_Forfeit_NoStockMovement(t *testing.T) {
	f := newFixture(t, 7)
	c := f.create(t, 3) // stock 10

	forfeited, err := f.svc.Forfeit(context.Background(), c.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusForfeited, forfeited.Status)
	assert.Equal(t, 10, f.stock(t))

	// Terminal: claiming a forfeited consignment is refused.
	_, err = f.svc.Claim(context.Background(), c.ID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestService_Expire_SkipsNotYetDue(t *testing.T) {
	f := newFixture(t, 7)
	due := f.create(t, 1)
	fresh := f.create(t, 1)

	// Backdate one expiry.
	f.repo.mu.Lock()
	f.repo.items[due.ID].ExpiresAt = time.Now().UTC().Add(-time.Hour)
	f.repo.mu.Unlock()

	expired, err := f.svc.Expire(context.Background(), []id.ID{due.ID, fresh.ID}, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, due.ID, expired[0])

	stored, err := f.svc.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.Status)

	// Expiry never moves stock.
	assert.Equal(t, 9, f.stock(t))
}

func TestService_SweepExpired(t *testing.T) {
	f := newFixture(t, 7)
	c := f.create(t, 2)

	f.repo.mu.Lock()
	f.repo.items[c.ID].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	f.repo.mu.Unlock()

	expired, err := f.svc.SweepExpired(context.Background(), f.barID, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, expired, 1)

	stored, err := f.svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, stored.Status)
}

func TestConsignment_CanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusActive, StatusClaimed, true},
		{StatusActive, StatusForfeited, true},
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusActive, false},
		{StatusClaimed, StatusForfeited, false},
		{StatusClaimed, StatusExpired, false},
		{StatusForfeited, StatusClaimed, false},
		{StatusExpired, StatusClaimed, false},
	}

	for _, tc := range cases {
		c := &Consignment{Status: tc.from}
		assert.Equal(t, tc.ok, c.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}
