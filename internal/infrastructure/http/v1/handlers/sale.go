package handlers

import (
	"github.com/gin-gonic/gin"

	"barstock/internal/domain/availability"
	"barstock/internal/domain/sale"
	"barstock/internal/infrastructure/http/v1/dto"
	"barstock/internal/infrastructure/http/v1/middleware"
)

// SaleHandler handles HTTP requests for sales.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
	engine  *availability.Engine
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service, engine *availability.Engine) *SaleHandler {
	return &SaleHandler{
		BaseHandler: base,
		service:     service,
		engine:      engine,
	}
}

// ValidateItems handles POST /sales/validate, the dry-run checkout gate.
// Checks the requested quantities against current availability without
// creating anything; a rejection names the first offending product and its
// available quantity. Advisory only, the create path re-runs the gate.
func (h *SaleHandler) ValidateItems(c *gin.Context) {
	var req dto.ValidateItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items, err := req.ToItems()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.engine.ValidateLineItems(c.Request.Context(), items); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ValidateItemsResponse{Valid: true})
}

// Create handles POST /sales
//
// The X-Idempotency-Key header doubles as the sale's deduplication key, so
// an HTTP-level replay and an engine-level dedup agree on identity. Without
// the header a fresh key is generated per attempt.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), sale.CreateInput{
		BarID:          h.GetBarID(c),
		IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
		Lines:          lines,
		Seller:         req.Seller,
		BusinessDate:   req.BusinessDate,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.CreateSaleResponse{
		SaleResponse: dto.FromSale(result.Sale),
		Queued:       result.Queued,
	})
}

// Get handles GET /sales/:saleId
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "saleId")
	if !ok {
		return
	}

	s, err := h.service.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSale(s))
}

// Validate handles POST /sales/:saleId/validate
func (h *SaleHandler) Validate(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "saleId")
	if !ok {
		return
	}

	s, err := h.service.Validate(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSale(s))
}

// Sync handles POST /sales/sync. Drains the local pending queue to the
// remote store immediately instead of waiting for the background flusher.
func (h *SaleHandler) Sync(c *gin.Context) {
	synced, err := h.service.SyncPending(c.Request.Context(), h.GetBarID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SyncResponse{Synced: synced})
}
