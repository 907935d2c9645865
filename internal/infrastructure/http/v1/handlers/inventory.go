package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/infrastructure/http/v1/dto"
)

// InventoryHandler serves batch and stock endpoints.
type InventoryHandler struct {
	*BaseHandler
	manager *inventory.Manager
	ledger  *inventory.Ledger
	health  *inventory.Health
}

func NewInventoryHandler(base *BaseHandler, manager *inventory.Manager, ledger *inventory.Ledger, health *inventory.Health) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, manager: manager, ledger: ledger, health: health}
}

// AddBatch handles POST /batches.
func (h *InventoryHandler) AddBatch(c *gin.Context) {
	var req dto.AddBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	receipt, err := h.manager.AddBatch(c.Request.Context(), inventory.AddBatchInput{
		ProductID: productID,
		Quantity:  req.Quantity,
		Label:     req.Label,
		Expiry:    req.Expiry,
		Supplier:  req.Supplier,
		UnitCost:  req.UnitCost,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", receipt)
	c.JSON(http.StatusCreated, receipt)
}

// ListBatches handles GET /products/:id/batches.
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	batches, err := h.manager.ListBatches(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: batches, Count: len(batches)})
}

// AdjustBatch handles POST /batches/:id/adjust.
func (h *InventoryHandler) AdjustBatch(c *gin.Context) {
	batchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid batch id"))
		return
	}
	var req dto.AdjustBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	aggregate, err := h.manager.AdjustBatch(c.Request.Context(), inventory.AdjustBatchInput{
		BatchID: batchID,
		Delta:   req.Delta,
		Note:    req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"aggregate": aggregate})
}

// Quarantine handles POST /batches/:id/quarantine.
func (h *InventoryHandler) Quarantine(c *gin.Context) {
	h.batchStatusChange(c, h.manager.QuarantineBatch)
}

// Release handles POST /batches/:id/release.
func (h *InventoryHandler) Release(c *gin.Context) {
	h.batchStatusChange(c, h.manager.ReleaseBatch)
}

func (h *InventoryHandler) batchStatusChange(c *gin.Context, fn func(ctx context.Context, batchID id.ID, note string) error) {
	batchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid batch id"))
		return
	}
	var req dto.BatchStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := fn(c.Request.Context(), batchID, req.Note); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "batch status updated")
}

// AdjustStock handles POST /stock/adjust for aggregate-mode products.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	if err := h.ledger.AdjustAggregate(c.Request.Context(), productID, req.Delta, req.Note); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "stock adjusted")
}

// Recompute handles POST /products/:id/recompute.
func (h *InventoryHandler) Recompute(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	aggregate, err := h.manager.RecomputeAggregate(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"aggregate": aggregate})
}

// LowStock handles GET /stock/low.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 100)
	products, err := h.health.LowStockProducts(c.Request.Context(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: products, Count: len(products), Limit: limit})
}

// Expiring handles GET /batches/expiring.
func (h *InventoryHandler) Expiring(c *gin.Context) {
	var req dto.ExpiringBatchesRequest
	if !h.BindQuery(c, &req) {
		return
	}

	window := time.Duration(req.WindowDays) * 24 * time.Hour
	batches, err := h.health.ExpiringBatches(c.Request.Context(), window, req.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: batches, Count: len(batches), Limit: req.Limit})
}
