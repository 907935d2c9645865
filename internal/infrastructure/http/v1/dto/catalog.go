package dto

import (
	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
)

// ProductListRequest narrows GET /products.
type ProductListRequest struct {
	PaginationRequest
	Search       string `form:"search"`
	ActiveOnly   bool   `form:"active"`
	TrackingMode string `form:"mode" binding:"omitempty,oneof=aggregate batch"`
}

// ProductResponse pairs a catalog row with its derived availability.
type ProductResponse struct {
	Product   *catalog.Product `json:"product"`
	Available types.Quantity   `json:"available"`
}

// AvailabilityResponse answers the sellable-stock question for one product.
type AvailabilityResponse struct {
	ProductID string         `json:"productId"`
	Available types.Quantity `json:"available"`
	LowStock  bool           `json:"lowStock"`
}
