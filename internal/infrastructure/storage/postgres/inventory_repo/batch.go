// Package inventory_repo provides PostgreSQL implementations of the batch
// and movement repositories.
package inventory_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/infrastructure/storage/postgres"
)

const batchesTable = "stock_batches"

var batchColumns = postgres.ExtractDBColumns[inventory.Batch]()

// BatchRepo implements inventory.BatchRepository.
type BatchRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ inventory.BatchRepository = (*BatchRepo)(nil)

func NewBatchRepo(txManager *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BatchRepo) Create(ctx context.Context, batch *inventory.Batch) error {
	q := r.builder.Insert(batchesTable).
		Columns(batchColumns...).
		Values(
			batch.ID, batch.ProductID, batch.Label,
			batch.QtyRemaining, batch.QtyOriginal,
			batch.ExpiryDate, batch.UnitCost, batch.Supplier,
			batch.Status, batch.ReceivedAt, batch.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	return r.get(ctx, batchID, false)
}

func (r *BatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetForUpdate requires transaction context")
	}
	return r.get(ctx, batchID, true)
}

func (r *BatchRepo) get(ctx context.Context, batchID id.ID, forUpdate bool) (*inventory.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b inventory.Batch
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &b, sql, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// ListAllocatableForUpdate locks and returns the batches a sale may consume,
// in consumption order: soonest expiry first, null expiry last, ties broken
// by receipt time. The locks serialize concurrent allocations per product.
func (r *BatchRepo) ListAllocatableForUpdate(ctx context.Context, productID id.ID, asOf time.Time) ([]inventory.Batch, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("ListAllocatableForUpdate requires transaction context")
	}

	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID, "status": inventory.BatchActive}).
		Where(squirrel.Gt{"qty_remaining": 0}).
		Where(squirrel.Or{
			squirrel.Eq{"expiry_date": nil},
			squirrel.GtOrEq{"expiry_date": asOf},
		}).
		OrderBy("expiry_date ASC NULLS LAST", "received_at ASC").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []inventory.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list allocatable batches: %w", err)
	}
	return batches, nil
}

func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]inventory.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("received_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []inventory.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

func (r *BatchRepo) UpdateQuantity(ctx context.Context, batchID id.ID, qty types.Quantity, status inventory.BatchStatus) error {
	const sql = `
		UPDATE stock_batches
		SET qty_remaining = $2, status = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, batchID, qty, status)
	if err != nil {
		return fmt.Errorf("update batch quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

func (r *BatchRepo) SetStatus(ctx context.Context, batchID id.ID, status inventory.BatchStatus) error {
	const sql = `
		UPDATE stock_batches
		SET status = $2, updated_at = now()
		WHERE id = $1`

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, batchID, status)
	if err != nil {
		return fmt.Errorf("set batch status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

// SumActive totals what the product can actually sell: active, unexpired,
// non-empty batches. COALESCE keeps a batchless product at zero rather
// than NULL.
func (r *BatchRepo) SumActive(ctx context.Context, productID id.ID, asOf time.Time) (types.Quantity, error) {
	const sql = `
		SELECT COALESCE(SUM(qty_remaining), 0)
		FROM stock_batches
		WHERE product_id = $1
		  AND status = $2
		  AND (expiry_date IS NULL OR expiry_date >= $3)`

	var total int64
	err := r.txManager.GetQuerier(ctx).
		QueryRow(ctx, sql, productID, inventory.BatchActive, asOf).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum active batches: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(total), nil
}

func (r *BatchRepo) ListExpiring(ctx context.Context, asOf, until time.Time, limit int) ([]inventory.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"status": inventory.BatchActive}).
		Where(squirrel.Gt{"qty_remaining": 0}).
		Where(squirrel.GtOrEq{"expiry_date": asOf}).
		Where(squirrel.Lt{"expiry_date": until}).
		OrderBy("expiry_date ASC").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []inventory.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list expiring batches: %w", err)
	}
	return batches, nil
}

func (r *BatchRepo) ListExpired(ctx context.Context, asOf time.Time) ([]inventory.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"status": inventory.BatchActive}).
		Where(squirrel.Lt{"expiry_date": asOf}).
		OrderBy("expiry_date ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []inventory.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list expired batches: %w", err)
	}
	return batches, nil
}
