// Package catalog provides read-side access to the externally owned product
// catalog. Product lifecycle (create/edit/archive/delete) belongs to the
// catalog collaborator; this core reads existence, active flag, price and
// thresholds, and writes only the stock projection.
package catalog

import (
	"time"

	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
)

// TrackingMode selects how stock for a product is kept.
// The two modes are mutually exclusive per product: an aggregate-only
// product never has batches, and a batch-tracked product's stock field
// is a cached projection of its active batches.
type TrackingMode string

const (
	// TrackingAggregate keeps a single authoritative stock counter.
	TrackingAggregate TrackingMode = "aggregate"
	// TrackingBatch derives stock from discrete receipts with expiry dates.
	TrackingBatch TrackingMode = "batch"
)

// Product is a catalog item as this core sees it.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	TrackingMode TrackingMode `db:"tracking_mode" json:"trackingMode"`

	// StockQty is in smallest units. Authoritative in aggregate mode,
	// a projection of active batch quantities in batch mode.
	StockQty types.Quantity `db:"stock_qty" json:"stockQty"`

	// ReorderThreshold is in smallest units; nil means the configured
	// default applies.
	ReorderThreshold *types.Quantity `db:"reorder_threshold" json:"reorderThreshold,omitempty"`

	// SalePrice is the current catalog price per sale unit. Line items
	// capture it at sale time and never read it back.
	SalePrice types.Money `db:"sale_price" json:"salePrice"`

	// UnitFactor converts one sale unit into smallest units
	// (e.g. a box of 12 pieces has factor 12).
	UnitFactor int64 `db:"unit_factor" json:"unitFactor"`

	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Version for optimistic locking on the stock projection.
	Version int `db:"version" json:"version"`
}

// IsSellable reports whether the product can appear on a new sale.
func (p *Product) IsSellable() bool {
	return p.Active
}

// Factor returns the unit conversion factor, defaulting to 1.
func (p *Product) Factor() int64 {
	if p.UnitFactor <= 0 {
		return 1
	}
	return p.UnitFactor
}
