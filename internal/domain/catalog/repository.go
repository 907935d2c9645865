package catalog

import (
	"context"

	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
)

// Repository defines catalog access for the stock core.
//
// All references into the catalog are weak: a product can be deleted by the
// catalog collaborator at any time, so Get methods return NotFound rather
// than guaranteeing existence, and every caller handles that case.
type Repository interface {
	// GetByID returns the product or a NotFound AppError.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetForUpdate returns the product with a row lock. Every batch-mode
	// stock mutation takes this lock first so that concurrent mutations
	// against the same product serialize their check-then-write step.
	// Must be called within a transaction.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	// List returns products matching the filter, name-ordered.
	List(ctx context.Context, filter ListFilter) ([]Product, error)

	// ListBatchTracked returns active products in batch tracking mode.
	// Used by the reconciliation worker.
	ListBatchTracked(ctx context.Context) ([]Product, error)

	// Stock projection writes. These are the only writes this core
	// performs against the catalog's table.

	// DeductStock atomically checks availability and decrements the stock
	// counter in a single statement. Returns InsufficientStock when the
	// counter would go negative, NotFound when the product is gone.
	DeductStock(ctx context.Context, productID id.ID, qty types.Quantity) error

	// RestoreStock increments the stock counter. The bool is false when
	// the product no longer exists (missing target, not an error).
	RestoreStock(ctx context.Context, productID id.ID, qty types.Quantity) (bool, error)

	// SetStock overwrites the cached projection (batch mode recompute).
	// Must run in the same transaction as the batch mutation it reflects.
	SetStock(ctx context.Context, productID id.ID, qty types.Quantity) error
}

// ListFilter narrows product listings.
type ListFilter struct {
	ActiveOnly   bool
	TrackingMode *TrackingMode
	Search       string
	Limit        int
	Offset       int
}
