package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/consignment"
	"barstock/internal/infrastructure/http/v1/dto"
)

// ConsignmentHandler handles HTTP requests for the consignment lifecycle.
type ConsignmentHandler struct {
	*BaseHandler
	service *consignment.Service
}

// NewConsignmentHandler creates a new consignment handler.
func NewConsignmentHandler(base *BaseHandler, service *consignment.Service) *ConsignmentHandler {
	return &ConsignmentHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /consignments
func (h *ConsignmentHandler) Create(c *gin.Context) {
	var req dto.CreateConsignmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput(h.GetBarID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromConsignment(created))
}

// List handles GET /consignments?status=active
func (h *ConsignmentHandler) List(c *gin.Context) {
	var status *consignment.Status
	if raw := c.Query("status"); raw != "" {
		s := consignment.Status(raw)
		switch s {
		case consignment.StatusActive, consignment.StatusClaimed,
			consignment.StatusForfeited, consignment.StatusExpired:
			status = &s
		default:
			h.Error(c, apperror.NewValidation("unknown status").WithDetail("status", raw))
			return
		}
	}

	consignments, err := h.service.List(c.Request.Context(), h.GetBarID(c), status)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ConsignmentResponse, len(consignments))
	for i, cons := range consignments {
		items[i] = dto.FromConsignment(cons)
	}
	h.OK(c, dto.ConsignmentListResponse{Items: items})
}

// Get handles GET /consignments/:consignmentId
func (h *ConsignmentHandler) Get(c *gin.Context) {
	consignmentID, ok := h.ParseIDParam(c, "consignmentId")
	if !ok {
		return
	}

	cons, err := h.service.Get(c.Request.Context(), consignmentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromConsignment(cons))
}

// Expire handles POST /consignments/expire. Releases every active
// consignment of the bar whose expiry has passed, the same path the
// background sweeper takes on its interval.
func (h *ConsignmentHandler) Expire(c *gin.Context) {
	ids, err := h.service.SweepExpired(c.Request.Context(), h.GetBarID(c), time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewExpireResponse(ids))
}

// Claim handles POST /consignments/:consignmentId/claim
func (h *ConsignmentHandler) Claim(c *gin.Context) {
	h.transition(c, h.service.Claim)
}

// Forfeit handles POST /consignments/:consignmentId/forfeit
func (h *ConsignmentHandler) Forfeit(c *gin.Context) {
	h.transition(c, h.service.Forfeit)
}

func (h *ConsignmentHandler) transition(c *gin.Context, op func(context.Context, id.ID) (*consignment.Consignment, error)) {
	consignmentID, ok := h.ParseIDParam(c, "consignmentId")
	if !ok {
		return
	}

	cons, err := op(c.Request.Context(), consignmentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromConsignment(cons))
}
