package inventory

import (
	"context"
	"time"

	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
)

// BatchRepository defines storage operations for stock batches.
type BatchRepository interface {
	// Create inserts a new batch.
	Create(ctx context.Context, batch *Batch) error

	// GetByID returns the batch or a NotFound AppError.
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetForUpdate returns the batch with a row lock. Must be called
	// within a transaction.
	GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)

	// ListAllocatableForUpdate returns lockable batches for allocation:
	// status active, unexpired as of asOf, quantity > 0, ordered by
	// expiry date ascending (nulls last) then received time ascending.
	// Must be called within a transaction; rows come back locked.
	ListAllocatableForUpdate(ctx context.Context, productID id.ID, asOf time.Time) ([]Batch, error)

	// ListByProduct returns all batches for a product, newest receipt first.
	ListByProduct(ctx context.Context, productID id.ID) ([]Batch, error)

	// UpdateQuantity sets remaining quantity and status on a batch.
	UpdateQuantity(ctx context.Context, batchID id.ID, qty types.Quantity, status BatchStatus) error

	// SetStatus updates only the status.
	SetStatus(ctx context.Context, batchID id.ID, status BatchStatus) error

	// SumActive returns the total active unexpired quantity for a product.
	SumActive(ctx context.Context, productID id.ID, asOf time.Time) (types.Quantity, error)

	// ListExpiring returns active batches expiring within [asOf, until),
	// nearest expiry first.
	ListExpiring(ctx context.Context, asOf, until time.Time, limit int) ([]Batch, error)

	// ListExpired returns active batches whose expiry has passed as of asOf.
	ListExpired(ctx context.Context, asOf time.Time) ([]Batch, error)
}

// MovementRepository defines the append-only movement log.
// There are deliberately no update or delete operations.
type MovementRepository interface {
	// Create batch-inserts movements. Must run inside the same
	// transaction as the stock mutation that caused them.
	Create(ctx context.Context, movements []Movement) error

	// List returns movements matching the filter, newest first.
	List(ctx context.Context, filter MovementFilter) ([]Movement, error)

	// ListByReference returns movements caused by one operation,
	// oldest first.
	ListByReference(ctx context.Context, refType string, refID id.ID) ([]Movement, error)
}
