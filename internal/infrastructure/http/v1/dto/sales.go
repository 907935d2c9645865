package dto

import (
	"stockcore/internal/core/types"
	"stockcore/internal/domain/sales"
)

// CreateSaleRequest is the POST /sales body.
type CreateSaleRequest struct {
	Lines         []SaleLineRequest `json:"lines" binding:"required,min=1"`
	Discount      types.Money       `json:"discount"`
	PaymentMethod string            `json:"paymentMethod"`
	CustomerName  string            `json:"customerName"`
	Note          string            `json:"note"`
}

// SaleLineRequest is one requested position.
type SaleLineRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
}

// UndoSaleRequest is the POST /sales/:id/undo body.
type UndoSaleRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// SaleListRequest filters GET /sales.
type SaleListRequest struct {
	PaginationRequest
	DateRangeFilter
	Status string `form:"status" binding:"omitempty,oneof=completed cancelled"`
}

// Filter converts the request to a domain filter.
func (r *SaleListRequest) Filter() sales.ListFilter {
	r.Defaults()
	return sales.ListFilter{
		Status:   sales.Status(r.Status),
		DateFrom: r.From,
		DateTo:   r.To,
		Limit:    r.Limit,
		Offset:   r.Offset,
	}
}
