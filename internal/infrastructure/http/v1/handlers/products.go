package handlers

import (
	"github.com/gin-gonic/gin"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/infrastructure/http/v1/dto"
)

// ProductsHandler serves the read-only catalog view of this core:
// what exists, whether it is sellable and how much of it is available.
type ProductsHandler struct {
	*BaseHandler
	catalog *catalog.Service
	health  *inventory.Health
}

func NewProductsHandler(base *BaseHandler, catalogSvc *catalog.Service, health *inventory.Health) *ProductsHandler {
	return &ProductsHandler{BaseHandler: base, catalog: catalogSvc, health: health}
}

// List handles GET /products.
func (h *ProductsHandler) List(c *gin.Context) {
	var req dto.ProductListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	filter := catalog.ListFilter{
		ActiveOnly: req.ActiveOnly,
		Search:     req.Search,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if req.TrackingMode != "" {
		mode := catalog.TrackingMode(req.TrackingMode)
		filter.TrackingMode = &mode
	}

	products, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: products, Count: len(products), Limit: req.Limit, Offset: req.Offset})
}

// Get handles GET /products/:id. The response pairs the catalog row with
// the derived availability, since the cached counter can trail the batches.
func (h *ProductsHandler) Get(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	p, err := h.catalog.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	available, err := h.health.ProductAvailability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ProductResponse{Product: p, Available: available})
}

// Availability handles GET /products/:id/availability.
func (h *ProductsHandler) Availability(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	available, err := h.health.ProductAvailability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	low, err := h.health.IsLowStock(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AvailabilityResponse{ProductID: productID.String(), Available: available, LowStock: low})
}
