package inventory

import (
	"context"
	"fmt"
	"time"

	"stockcore/internal/core/apperror"
	appctx "stockcore/internal/core/context"
	"stockcore/internal/core/id"
	"stockcore/internal/core/tx"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
	"stockcore/pkg/logger"
	"stockcore/pkg/numerator"
)

// Manager owns batch receipts and allocation for batch-tracked products.
type Manager struct {
	products  catalog.Repository
	batches   BatchRepository
	movements MovementRepository
	txManager tx.Manager
	numerator *numerator.Service
}

// NewManager creates a batch inventory manager.
func NewManager(
	products catalog.Repository,
	batches BatchRepository,
	movements MovementRepository,
	txManager tx.Manager,
	num *numerator.Service,
) *Manager {
	return &Manager{
		products:  products,
		batches:   batches,
		movements: movements,
		txManager: txManager,
		numerator: num,
	}
}

// AddBatchInput describes a stock receipt.
type AddBatchInput struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
	Label     string         `json:"label,omitempty"`
	Expiry    *time.Time     `json:"expiry,omitempty"`
	Supplier  string         `json:"supplier,omitempty"`
	UnitCost  types.Money    `json:"unitCost"`
}

// BatchReceipt is the result of AddBatch.
type BatchReceipt struct {
	BatchID   id.ID          `json:"batchId"`
	Label     string         `json:"label"`
	Aggregate types.Quantity `json:"aggregate"`
}

// AddBatch records a stock receipt: creates the batch, recomputes the
// product's cached aggregate and writes one `in` movement, all in one
// transaction.
func (m *Manager) AddBatch(ctx context.Context, in AddBatchInput) (*BatchReceipt, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	now := time.Now().UTC()
	if in.Expiry != nil && in.Expiry.Before(now) {
		return nil, apperror.NewValidation("expiry date is in the past").
			WithDetail("field", "expiry")
	}

	label := in.Label
	if label == "" {
		var err error
		label, err = m.numerator.GetNextNumber(ctx, numerator.DefaultConfig("BATCH"),
			&numerator.Options{Strategy: numerator.StrategyCached}, now)
		if err != nil {
			return nil, fmt.Errorf("generate batch label: %w", err)
		}
	}

	var receipt *BatchReceipt
	err := m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := m.products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !p.Active {
			return apperror.NewValidation("product is not active").
				WithDetail("product_id", p.ID.String())
		}
		if p.TrackingMode != catalog.TrackingBatch {
			return apperror.NewBusinessRule(apperror.CodeBatchNotAllocatable,
				"product is not batch-tracked").
				WithDetail("product_id", p.ID.String())
		}

		batch := &Batch{
			ID:           id.New(),
			ProductID:    in.ProductID,
			Label:        label,
			QtyRemaining: in.Quantity,
			QtyOriginal:  in.Quantity,
			ExpiryDate:   in.Expiry,
			UnitCost:     in.UnitCost,
			Supplier:     in.Supplier,
			Status:       BatchActive,
			ReceivedAt:   now,
			UpdatedAt:    now,
		}
		if err := batch.Validate(ctx); err != nil {
			return err
		}
		if err := m.batches.Create(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		agg, err := m.recomputeLocked(ctx, in.ProductID, now)
		if err != nil {
			return err
		}

		mv := NewMovement(in.ProductID, &batch.ID, MovementIn,
			in.Quantity, agg-in.Quantity, agg,
			RefReceipt, batch.ID, appctx.GetActorID(ctx), "stock receipt")
		if err := m.movements.Create(ctx, []Movement{mv}); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}

		receipt = &BatchReceipt{BatchID: batch.ID, Label: label, Aggregate: agg}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch received",
		"batch_id", receipt.BatchID,
		"product_id", in.ProductID,
		"quantity", in.Quantity,
	)
	return receipt, nil
}

// AllocateForSale deducts quantityNeeded across the product's batches,
// earliest expiry first. Must be called within a transaction that already
// holds the product row lock. If total available is insufficient nothing is
// deducted: the error aborts the caller's transaction.
func (m *Manager) AllocateForSale(ctx context.Context, productID id.ID, quantityNeeded types.Quantity) ([]Allocation, error) {
	if !quantityNeeded.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}

	now := time.Now().UTC()
	batches, err := m.batches.ListAllocatableForUpdate(ctx, productID, now)
	if err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}

	var available types.Quantity
	for _, b := range batches {
		available += b.QtyRemaining
	}
	if available < quantityNeeded {
		return nil, apperror.NewInsufficientStock(
			productID.String(), quantityNeeded.Float64(), available.Float64())
	}

	allocations := make([]Allocation, 0, 1)
	remaining := quantityNeeded
	for _, b := range batches {
		if remaining.IsZero() {
			break
		}
		take := b.QtyRemaining
		if take > remaining {
			take = remaining
		}

		newQty := b.QtyRemaining - take
		status := BatchActive
		if newQty.IsZero() {
			status = BatchDepleted
		}
		if err := m.batches.UpdateQuantity(ctx, b.ID, newQty, status); err != nil {
			return nil, fmt.Errorf("deduct batch %s: %w", b.ID, err)
		}

		allocations = append(allocations, Allocation{BatchID: b.ID, Quantity: take})
		remaining -= take
	}

	return allocations, nil
}

// DeductForSale allocates qty across batches (earliest expiry first),
// refreshes the product's cached aggregate and writes one `out` movement per
// touched batch, all against refID. Must be called within a transaction that
// already holds the product row lock.
func (m *Manager) DeductForSale(ctx context.Context, productID id.ID, qty types.Quantity, refID id.ID, note string) ([]Allocation, error) {
	allocations, err := m.AllocateForSale(ctx, productID, qty)
	if err != nil {
		return nil, err
	}

	agg, err := m.recomputeLocked(ctx, productID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	actor := appctx.GetActorID(ctx)
	movements := make([]Movement, 0, len(allocations))
	running := agg + qty
	for _, a := range allocations {
		before := running
		running -= a.Quantity
		movements = append(movements, NewMovement(productID, &a.BatchID, MovementOut,
			a.Quantity.Neg(), before, running,
			RefSale, refID, actor, note))
	}
	if err := m.movements.Create(ctx, movements); err != nil {
		return nil, fmt.Errorf("record movements: %w", err)
	}

	return allocations, nil
}

// RestoreFromSale puts allocated quantities back on their batches. A batch or
// product that no longer exists becomes a missing-target outcome instead of
// aborting; remaining tuples are still processed. This is the one deliberately
// partial-tolerant operation of the core.
//
// Must be called within a transaction.
func (m *Manager) RestoreFromSale(ctx context.Context, allocations []Allocation, refID id.ID, note string) (RestoreOutcome, error) {
	outcome := RestoreOutcome{}
	now := time.Now().UTC()
	actor := appctx.GetActorID(ctx)

	for _, alloc := range allocations {
		b, err := m.batches.GetForUpdate(ctx, alloc.BatchID)
		if err != nil {
			if apperror.IsNotFound(err) {
				outcome.Missing = append(outcome.Missing, MissingTarget{Kind: MissingBatch, ID: alloc.BatchID})
				continue
			}
			return outcome, fmt.Errorf("lock batch %s: %w", alloc.BatchID, err)
		}

		p, err := m.products.GetForUpdate(ctx, b.ProductID)
		if err != nil {
			if apperror.IsNotFound(err) {
				outcome.Missing = append(outcome.Missing, MissingTarget{Kind: MissingProduct, ID: b.ProductID})
				continue
			}
			return outcome, fmt.Errorf("lock product %s: %w", b.ProductID, err)
		}

		// Cap at original quantity: a batch can never hold more than it
		// was received with.
		newQty := b.QtyRemaining + alloc.Quantity
		if newQty > b.QtyOriginal {
			newQty = b.QtyOriginal
		}
		status := b.Status
		if status == BatchDepleted && newQty.IsPositive() {
			status = BatchActive
		}
		if err := m.batches.UpdateQuantity(ctx, b.ID, newQty, status); err != nil {
			return outcome, fmt.Errorf("restore batch %s: %w", b.ID, err)
		}

		agg, err := m.recomputeLocked(ctx, p.ID, now)
		if err != nil {
			return outcome, err
		}

		restored := newQty - b.QtyRemaining
		mv := NewMovement(p.ID, &b.ID, MovementIn,
			restored, agg-restored, agg,
			RefUndo, refID, actor, note)
		if err := m.movements.Create(ctx, []Movement{mv}); err != nil {
			return outcome, fmt.Errorf("record movement: %w", err)
		}

		outcome.Restored++
	}

	return outcome, nil
}

// RecomputeAggregate re-derives the product's cached stock from its batches.
// Exposed as a self-healing reconciliation call; any detected drift is
// recorded as an adjustment movement, never as an edit to history.
func (m *Manager) RecomputeAggregate(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var result types.Quantity
	err := m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := m.products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		sum, err := m.recomputeLocked(ctx, productID, now)
		if err != nil {
			return err
		}

		if sum != p.StockQty {
			logger.Warn(ctx, "aggregate drift corrected",
				"product_id", productID,
				"cached", p.StockQty,
				"derived", sum,
			)
			mv := NewMovement(productID, nil, MovementAdjustment,
				sum-p.StockQty, p.StockQty, sum,
				RefAdjustment, productID, appctx.GetActorID(ctx),
				"aggregate reconciliation")
			if err := m.movements.Create(ctx, []Movement{mv}); err != nil {
				return fmt.Errorf("record movement: %w", err)
			}
		}

		result = sum
		return nil
	})
	return result, err
}

// recomputeLocked re-derives and stores the aggregate. The caller must hold
// the product row lock.
func (m *Manager) recomputeLocked(ctx context.Context, productID id.ID, asOf time.Time) (types.Quantity, error) {
	sum, err := m.batches.SumActive(ctx, productID, asOf)
	if err != nil {
		return 0, fmt.Errorf("sum batches: %w", err)
	}
	if err := m.products.SetStock(ctx, productID, sum); err != nil {
		return 0, fmt.Errorf("set stock: %w", err)
	}
	return sum, nil
}

// AdjustBatchInput describes a manual batch-level correction.
type AdjustBatchInput struct {
	BatchID id.ID          `json:"batchId"`
	Delta   types.Quantity `json:"delta"`
	Note    string         `json:"note"`
}

// AdjustBatch applies a signed manual correction to a batch (damage,
// count correction) with an adjustment movement.
func (m *Manager) AdjustBatch(ctx context.Context, in AdjustBatchInput) (types.Quantity, error) {
	if in.Delta.IsZero() {
		return 0, apperror.NewValidation("delta must be non-zero").
			WithDetail("field", "delta")
	}

	var agg types.Quantity
	err := m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := m.batches.GetForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if _, err := m.products.GetForUpdate(ctx, b.ProductID); err != nil {
			return err
		}

		newQty := b.QtyRemaining + in.Delta
		if newQty.IsNegative() {
			return apperror.NewValidation("adjustment would make quantity negative").
				WithDetail("batch_id", b.ID.String())
		}
		if newQty > b.QtyOriginal {
			return apperror.NewValidation("adjustment would exceed original quantity").
				WithDetail("batch_id", b.ID.String())
		}

		status := b.Status
		switch {
		case status == BatchDepleted && newQty.IsPositive():
			status = BatchActive
		case status == BatchActive && newQty.IsZero():
			status = BatchDepleted
		}
		if err := m.batches.UpdateQuantity(ctx, b.ID, newQty, status); err != nil {
			return fmt.Errorf("adjust batch: %w", err)
		}

		now := time.Now().UTC()
		agg, err = m.recomputeLocked(ctx, b.ProductID, now)
		if err != nil {
			return err
		}

		mv := NewMovement(b.ProductID, &b.ID, MovementAdjustment,
			in.Delta, agg-in.Delta, agg,
			RefAdjustment, b.ID, appctx.GetActorID(ctx), in.Note)
		return m.movements.Create(ctx, []Movement{mv})
	})
	return agg, err
}

// QuarantineBatch removes a batch from sellable stock pending inspection.
func (m *Manager) QuarantineBatch(ctx context.Context, batchID id.ID, note string) error {
	return m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := m.batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status != BatchActive {
			return apperror.NewBusinessRule(apperror.CodeBatchNotAllocatable,
				"only active batches can be quarantined").
				WithDetail("status", string(b.Status))
		}
		if _, err := m.products.GetForUpdate(ctx, b.ProductID); err != nil {
			return err
		}

		if err := m.batches.SetStatus(ctx, batchID, BatchQuarantined); err != nil {
			return fmt.Errorf("quarantine batch: %w", err)
		}

		now := time.Now().UTC()
		agg, err := m.recomputeLocked(ctx, b.ProductID, now)
		if err != nil {
			return err
		}

		mv := NewMovement(b.ProductID, &b.ID, MovementQuarantined,
			b.QtyRemaining.Neg(), agg+b.QtyRemaining, agg,
			RefQuarantine, b.ID, appctx.GetActorID(ctx), note)
		return m.movements.Create(ctx, []Movement{mv})
	})
}

// ReleaseBatch returns a quarantined batch to sellable stock, unless its
// expiry has since passed.
func (m *Manager) ReleaseBatch(ctx context.Context, batchID id.ID, note string) error {
	return m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := m.batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status != BatchQuarantined {
			return apperror.NewBusinessRule(apperror.CodeBatchNotAllocatable,
				"only quarantined batches can be released").
				WithDetail("status", string(b.Status))
		}
		now := time.Now().UTC()
		if b.IsExpired(now) {
			return apperror.NewBusinessRule(apperror.CodeBatchNotAllocatable,
				"batch has expired while quarantined").
				WithDetail("batch_id", b.ID.String())
		}
		if _, err := m.products.GetForUpdate(ctx, b.ProductID); err != nil {
			return err
		}

		status := BatchActive
		if b.QtyRemaining.IsZero() {
			status = BatchDepleted
		}
		if err := m.batches.SetStatus(ctx, batchID, status); err != nil {
			return fmt.Errorf("release batch: %w", err)
		}

		agg, err := m.recomputeLocked(ctx, b.ProductID, now)
		if err != nil {
			return err
		}

		mv := NewMovement(b.ProductID, &b.ID, MovementAdjustment,
			b.QtyRemaining, agg-b.QtyRemaining, agg,
			RefQuarantine, b.ID, appctx.GetActorID(ctx), note)
		return m.movements.Create(ctx, []Movement{mv})
	})
}

// SweepExpired transitions active batches past their expiry date to expired
// and writes the write-off movements. Each batch is processed in its own
// transaction so one failure does not block the rest of the sweep.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := m.batches.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	swept := 0
	for _, candidate := range expired {
		err := m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			b, err := m.batches.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check under lock: a concurrent sweep or release may
			// have transitioned it already.
			if b.Status != BatchActive || !b.IsExpired(now) {
				return nil
			}

			if err := m.batches.SetStatus(ctx, b.ID, BatchExpired); err != nil {
				return fmt.Errorf("mark expired: %w", err)
			}

			// The owning product may have been deleted since the
			// receipt; the write-off movement is still recorded.
			var before, after types.Quantity
			if _, perr := m.products.GetForUpdate(ctx, b.ProductID); perr == nil {
				after, err = m.recomputeLocked(ctx, b.ProductID, now)
				if err != nil {
					return err
				}
				before = after + b.QtyRemaining
			} else if !apperror.IsNotFound(perr) {
				return perr
			}

			mv := NewMovement(b.ProductID, &b.ID, MovementExpired,
				b.QtyRemaining.Neg(), before, after,
				RefExpiry, b.ID, appctx.GetActorID(ctx), "expiry write-off")
			return m.movements.Create(ctx, []Movement{mv})
		})
		if err != nil {
			logger.Error(ctx, "expiry sweep failed for batch",
				"batch_id", candidate.ID, "error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		logger.Info(ctx, "expired batches swept", "count", swept)
	}
	return swept, nil
}

// ListBatches returns all batches for a product.
func (m *Manager) ListBatches(ctx context.Context, productID id.ID) ([]Batch, error) {
	return m.batches.ListByProduct(ctx, productID)
}
