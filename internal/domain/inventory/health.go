package inventory

import (
	"context"
	"time"

	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
)

// HealthConfig tunes the stock health predicates.
type HealthConfig struct {
	// DefaultReorderThreshold applies to products without their own
	// reorder threshold.
	DefaultReorderThreshold types.Quantity
	// ExpiryWindow is the default look-ahead for ExpiringBatches.
	ExpiryWindow time.Duration
}

// LowStockProduct pairs a product with the availability that put it under
// its threshold.
type LowStockProduct struct {
	Product   catalog.Product `json:"product"`
	Available types.Quantity  `json:"available"`
	Threshold types.Quantity  `json:"threshold"`
}

// Health answers read-only stock questions. It never mutates state and is
// safe to call outside a transaction.
type Health struct {
	products catalog.Repository
	batches  BatchRepository
	cfg      HealthConfig
}

func NewHealth(products catalog.Repository, batches BatchRepository, cfg HealthConfig) *Health {
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = 7 * 24 * time.Hour
	}
	return &Health{products: products, batches: batches, cfg: cfg}
}

// thresholdFor resolves a product's effective reorder threshold.
func (h *Health) thresholdFor(p *catalog.Product) types.Quantity {
	if p.ReorderThreshold != nil {
		return *p.ReorderThreshold
	}
	return h.cfg.DefaultReorderThreshold
}

// IsLowStock reports whether the product's available stock is at or below
// its reorder threshold. Zero stock is always low, whatever the threshold.
func (h *Health) IsLowStock(ctx context.Context, productID id.ID) (bool, error) {
	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		return false, err
	}
	avail, err := Availability(ctx, p, h.batches)
	if err != nil {
		return false, err
	}
	return isLow(avail, h.thresholdFor(p)), nil
}

func isLow(available, threshold types.Quantity) bool {
	if !available.IsPositive() {
		return true
	}
	return available <= threshold
}

// LowStockProducts scans active products and returns those at or below
// their reorder threshold, using the same predicate as IsLowStock.
func (h *Health) LowStockProducts(ctx context.Context, limit int) ([]LowStockProduct, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	products, err := h.products.List(ctx, catalog.ListFilter{ActiveOnly: true, Limit: limit * 4})
	if err != nil {
		return nil, err
	}

	out := make([]LowStockProduct, 0)
	for i := range products {
		p := &products[i]
		avail, err := Availability(ctx, p, h.batches)
		if err != nil {
			return nil, err
		}
		threshold := h.thresholdFor(p)
		if isLow(avail, threshold) {
			out = append(out, LowStockProduct{Product: *p, Available: avail, Threshold: threshold})
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// ExpiringBatches returns active batches whose expiry falls inside the
// window from now. A non-positive window uses the configured default.
func (h *Health) ExpiringBatches(ctx context.Context, window time.Duration, limit int) ([]Batch, error) {
	if window <= 0 {
		window = h.cfg.ExpiryWindow
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	now := time.Now().UTC()
	return h.batches.ListExpiring(ctx, now, now.Add(window), limit)
}

// ProductAvailability reports sellable stock for one product.
func (h *Health) ProductAvailability(ctx context.Context, productID id.ID) (types.Quantity, error) {
	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return Availability(ctx, p, h.batches)
}
