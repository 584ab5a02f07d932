package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"barstock/internal/domain/availability"
	"barstock/internal/infrastructure/http/v1/dto"
)

// AvailabilityHandler serves the derived available-to-sell figures.
type AvailabilityHandler struct {
	*BaseHandler
	engine *availability.Engine
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(base *BaseHandler, engine *availability.Engine) *AvailabilityHandler {
	return &AvailabilityHandler{
		BaseHandler: base,
		engine:      engine,
	}
}

// List handles GET /availability
func (h *AvailabilityHandler) List(c *gin.Context) {
	records := h.engine.ComputeAll(c.Request.Context())

	items := make([]dto.AvailabilityResponse, 0, len(records))
	for _, r := range records {
		items = append(items, dto.FromRecord(r))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID < items[j].ProductID
	})

	h.OK(c, dto.AvailabilityListResponse{
		Items:   items,
		Sources: dto.FromSourceStatuses(h.engine.SourceStatuses()),
	})
}

// Get handles GET /availability/:productId
func (h *AvailabilityHandler) Get(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "productId")
	if !ok {
		return
	}

	record, err := h.engine.GetAvailability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRecord(record))
}

// Sources handles GET /availability/sources
func (h *AvailabilityHandler) Sources(c *gin.Context) {
	h.OK(c, dto.FromSourceStatuses(h.engine.SourceStatuses()))
}
