package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/audit"
	"barstock/internal/domain/catalog/product"
	"barstock/internal/domain/consignment"
	"barstock/internal/infrastructure/http/v1/middleware"
)

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memProductRepo struct {
	mu   sync.Mutex
	byID map[id.ID]*product.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{byID: make(map[id.ID]*product.Product)}
}

func (r *memProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[productID]
	if !ok {
		return nil, apperror.NewProductUnknown(productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *memProductRepo) ListByBar(ctx context.Context, barID id.ID) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*product.Product
	for _, p := range r.byID {
		if p.BarID == barID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProductRepo) UpdateStock(ctx context.Context, productID id.ID, newStock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[productID]
	if !ok {
		return apperror.NewProductUnknown(productID.String())
	}
	p.PhysicalStock = newStock
	return nil
}

type memConsignmentRepo struct {
	mu   sync.Mutex
	byID map[id.ID]*consignment.Consignment
}

func newMemConsignmentRepo() *memConsignmentRepo {
	return &memConsignmentRepo{byID: make(map[id.ID]*consignment.Consignment)}
}

func (r *memConsignmentRepo) Create(ctx context.Context, c *consignment.Consignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *memConsignmentRepo) GetByID(ctx context.Context, consignmentID id.ID) (*consignment.Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[consignmentID]
	if !ok {
		return nil, apperror.NewNotFound("consignment", consignmentID)
	}
	cp := *c
	return &cp, nil
}

func (r *memConsignmentRepo) GetForUpdate(ctx context.Context, consignmentID id.ID) (*consignment.Consignment, error) {
	return r.GetByID(ctx, consignmentID)
}

func (r *memConsignmentRepo) ListByBar(ctx context.Context, barID id.ID, status *consignment.Status) ([]*consignment.Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*consignment.Consignment
	for _, c := range r.byID {
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

func (r *memConsignmentRepo) ListExpiredActive(ctx context.Context, barID id.ID, now time.Time) ([]*consignment.Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*consignment.Consignment
	for _, c := range r.byID {
		if c.BarID == barID && c.IsExpired(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memConsignmentRepo) UpdateStatus(ctx context.Context, consignmentID id.ID, from, to consignment.Status, claimedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[consignmentID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.ClaimedAt = claimedAt
	return true, nil
}

func newExpireRouter(barID id.ID, repo *memConsignmentRepo) *gin.Engine {
	products := product.NewService(newMemProductRepo(), nopTxManager{}, audit.NopRecorder{})
	service := consignment.NewService(repo, products, nopTxManager{}, audit.NopRecorder{})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.BarContext(barID))
	r.Use(middleware.ErrorHandler())

	h := NewConsignmentHandler(NewBaseHandler(), service)
	r.POST("/consignments/expire", h.Expire)
	return r
}

func seedConsignment(t *testing.T, repo *memConsignmentRepo, barID id.ID, expiresAt time.Time) id.ID {
	t.Helper()
	c := &consignment.Consignment{
		ID:          id.New(),
		BarID:       barID,
		SaleID:      id.New(),
		ProductID:   id.New(),
		ProductName: "Mezcal Joven",
		Quantity:    2,
		TotalAmount: types.MustMoney("54.00"),
		Status:      consignment.StatusActive,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c.ID
}

func TestConsignmentHandler_Expire_ReleasesOnlyOverdue(t *testing.T) {
	barID := id.New()
	repo := newMemConsignmentRepo()
	now := time.Now().UTC()

	overdueID := seedConsignment(t, repo, barID, now.Add(-time.Hour))
	freshID := seedConsignment(t, repo, barID, now.Add(time.Hour))

	router := newExpireRouter(barID, repo)
	w := postJSON(t, router, "/consignments/expire", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Expired []string `json:"expired"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{overdueID.String()}, resp.Expired)

	swept, err := repo.GetByID(context.Background(), overdueID)
	require.NoError(t, err)
	assert.Equal(t, consignment.StatusExpired, swept.Status)

	fresh, err := repo.GetByID(context.Background(), freshID)
	require.NoError(t, err)
	assert.Equal(t, consignment.StatusActive, fresh.Status)
}

func TestConsignmentHandler_Expire_NothingOverdue(t *testing.T) {
	barID := id.New()
	repo := newMemConsignmentRepo()
	seedConsignment(t, repo, barID, time.Now().UTC().Add(time.Hour))

	router := newExpireRouter(barID, repo)
	w := postJSON(t, router, "/consignments/expire", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Expired []string `json:"expired"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Expired)
}
