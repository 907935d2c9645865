package dto

import (
	"time"

	"stockcore/internal/core/types"
)

// AddBatchRequest is the POST /batches body.
type AddBatchRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	Label     string         `json:"label"`
	Expiry    *time.Time     `json:"expiry"`
	Supplier  string         `json:"supplier"`
	UnitCost  types.Money    `json:"unitCost"`
}

// AdjustBatchRequest is the POST /batches/:id/adjust body.
type AdjustBatchRequest struct {
	Delta types.Quantity `json:"delta" binding:"required"`
	Note  string         `json:"note" binding:"required"`
}

// AdjustStockRequest is the POST /stock/adjust body for aggregate products.
type AdjustStockRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	Delta     types.Quantity `json:"delta" binding:"required"`
	Note      string         `json:"note" binding:"required"`
}

// BatchStatusRequest carries the note for quarantine and release.
type BatchStatusRequest struct {
	Note string `json:"note"`
}

// MovementListRequest filters GET /movements.
type MovementListRequest struct {
	PaginationRequest
	DateRangeFilter
	ProductID string `form:"productId" binding:"omitempty,uuid"`
	BatchID   string `form:"batchId" binding:"omitempty,uuid"`
	Type      string `form:"type" binding:"omitempty,oneof=in out adjustment expired quarantined"`
}

// ExpiringBatchesRequest filters GET /batches/expiring.
type ExpiringBatchesRequest struct {
	WindowDays int `form:"windowDays" binding:"omitempty,min=1,max=365"`
	Limit      int `form:"limit" binding:"omitempty,min=1,max=1000"`
}
