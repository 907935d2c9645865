package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/domain/sales"
	"stockcore/internal/infrastructure/http/v1/dto"
)

// SalesHandler serves sale transaction endpoints.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
}

func NewSalesHandler(base *BaseHandler, service *sales.Service) *SalesHandler {
	return &SalesHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales.
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input := sales.CreateInput{
		Discount:      req.Discount,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  req.CustomerName,
		Note:          req.Note,
	}
	for i, line := range req.Lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("line", i))
			return
		}
		input.Lines = append(input.Lines, sales.LineInput{
			ProductID: productID,
			Quantity:  line.Quantity,
		})
	}

	sale, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", sale)
	c.JSON(http.StatusCreated, sale)
}

// Undo handles POST /sales/:id/undo.
func (h *SalesHandler) Undo(c *gin.Context) {
	txID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid transaction id"))
		return
	}

	var req dto.UndoSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Undo(c.Request.Context(), txID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /sales/:id.
func (h *SalesHandler) Get(c *gin.Context) {
	txID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid transaction id"))
		return
	}

	sale, err := h.service.Get(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// List handles GET /sales.
func (h *SalesHandler) List(c *gin.Context) {
	var req dto.SaleListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	txs, err := h.service.List(c.Request.Context(), req.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: txs, Count: len(txs), Limit: req.Limit, Offset: req.Offset})
}

// Summary handles GET /sales/summary?date=2026-08-28.
func (h *SalesHandler) Summary(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid date, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	summary, err := h.service.DailySummary(c.Request.Context(), day)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}
