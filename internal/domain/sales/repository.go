package sales

import (
	"context"
	"time"

	"stockcore/internal/core/id"
)

// Repository persists sale transactions.
type Repository interface {
	// Create inserts the header, its lines and their batch allocations.
	// Must be called within a transaction.
	Create(ctx context.Context, tx *SaleTransaction) error

	// GetByID loads a transaction with lines and allocations.
	GetByID(ctx context.Context, txID id.ID) (*SaleTransaction, error)

	// GetForUpdate loads the header with a row lock, without lines.
	// Must be called within a transaction.
	GetForUpdate(ctx context.Context, txID id.ID) (*SaleTransaction, error)

	// GetLines loads lines with their allocations.
	GetLines(ctx context.Context, txID id.ID) ([]LineItem, error)

	// UpdateStatus transitions the header using its version for optimistic
	// locking; a stale version yields CONCURRENT_MODIFICATION.
	UpdateStatus(ctx context.Context, txID id.ID, status Status, isEdited bool, editReason string, version int) error

	List(ctx context.Context, filter ListFilter) ([]SaleTransaction, error)

	// DailySummary aggregates completed sales for the day containing `day`.
	DailySummary(ctx context.Context, day time.Time) (*DailySummary, error)
}

// AuditLogger records business-level audit entries alongside sale state
// changes. Implemented by the postgres audit service.
type AuditLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}
