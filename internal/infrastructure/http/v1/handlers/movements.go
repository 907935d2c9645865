package handlers

import (
	"github.com/gin-gonic/gin"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/infrastructure/http/v1/dto"
)

// MovementsHandler serves the read side of the movement audit log.
type MovementsHandler struct {
	*BaseHandler
	movements inventory.MovementRepository
}

func NewMovementsHandler(base *BaseHandler, movements inventory.MovementRepository) *MovementsHandler {
	return &MovementsHandler{BaseHandler: base, movements: movements}
}

// List handles GET /movements.
func (h *MovementsHandler) List(c *gin.Context) {
	var req dto.MovementListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	filter := inventory.MovementFilter{
		FromDate: req.From,
		ToDate:   req.To,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if req.ProductID != "" {
		productID, err := id.Parse(req.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id"))
			return
		}
		filter.ProductID = &productID
	}
	if req.BatchID != "" {
		batchID, err := id.Parse(req.BatchID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid batch id"))
			return
		}
		filter.BatchID = &batchID
	}
	if req.Type != "" {
		t := inventory.MovementType(req.Type)
		filter.Type = &t
	}

	movements, err := h.movements.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: movements, Count: len(movements), Limit: req.Limit, Offset: req.Offset})
}
