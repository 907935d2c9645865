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
)

// Ledger deducts and restores stock for aggregate-mode products.
//
// The availability check and the decrement execute as one conditional
// UPDATE against the product row, so two concurrent callers can never both
// pass a stale check and jointly oversell.
type Ledger struct {
	products  catalog.Repository
	movements MovementRepository
	txManager tx.Manager
}

// NewLedger creates an aggregate stock ledger.
func NewLedger(products catalog.Repository, movements MovementRepository, txManager tx.Manager) *Ledger {
	return &Ledger{products: products, movements: movements, txManager: txManager}
}

// Deduct removes qty from the product's stock counter.
// Must be called within a transaction; the caller writes the movement.
func (l *Ledger) Deduct(ctx context.Context, productID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive")
	}
	return l.products.DeductStock(ctx, productID, qty)
}

// Restore puts qty back on the product's stock counter. Returns false when
// the product no longer exists — a missing target, not a failure.
// Must be called within a transaction; the caller writes the movement.
func (l *Ledger) Restore(ctx context.Context, productID id.ID, qty types.Quantity) (bool, error) {
	if !qty.IsPositive() {
		return false, apperror.NewValidation("quantity must be positive")
	}
	return l.products.RestoreStock(ctx, productID, qty)
}

// DeductForSale removes qty from an aggregate-mode product and writes the
// `out` movement against refID. The product must be loaded under FOR UPDATE
// in the current transaction so its StockQty snapshot is consistent.
func (l *Ledger) DeductForSale(ctx context.Context, p *catalog.Product, qty types.Quantity, refID id.ID, note string) error {
	if err := l.Deduct(ctx, p.ID, qty); err != nil {
		return err
	}
	mv := NewMovement(p.ID, nil, MovementOut,
		qty.Neg(), p.StockQty, p.StockQty-qty,
		RefSale, refID, appctx.GetActorID(ctx), note)
	if err := l.movements.Create(ctx, []Movement{mv}); err != nil {
		return fmt.Errorf("record movement: %w", err)
	}
	return nil
}

// RestoreForUndo puts qty back on an aggregate-mode product and writes the
// compensating `in` movement. Returns false without error when the product no
// longer exists. Must be called within a transaction.
func (l *Ledger) RestoreForUndo(ctx context.Context, productID id.ID, qty types.Quantity, refID id.ID, note string) (bool, error) {
	p, err := l.products.GetForUpdate(ctx, productID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	ok, err := l.Restore(ctx, productID, qty)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	mv := NewMovement(productID, nil, MovementIn,
		qty, p.StockQty, p.StockQty+qty,
		RefUndo, refID, appctx.GetActorID(ctx), note)
	if err := l.movements.Create(ctx, []Movement{mv}); err != nil {
		return false, fmt.Errorf("record movement: %w", err)
	}
	return true, nil
}

// Availability returns sellable stock for a product by its tracking mode:
// the counter itself in aggregate mode, the allocatable batch sum in batch
// mode. Read-only; tolerates a slightly stale snapshot.
func Availability(ctx context.Context, p *catalog.Product, batches BatchRepository) (types.Quantity, error) {
	if p.TrackingMode == catalog.TrackingBatch {
		return batches.SumActive(ctx, p.ID, time.Now().UTC())
	}
	return p.StockQty, nil
}

// AdjustAggregate applies a signed manual correction to an aggregate-mode
// product, with the same atomicity as a sale deduction.
func (l *Ledger) AdjustAggregate(ctx context.Context, productID id.ID, delta types.Quantity, note string) error {
	if delta.IsZero() {
		return apperror.NewValidation("delta must be non-zero").
			WithDetail("field", "delta")
	}

	return l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := l.products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.TrackingMode != catalog.TrackingAggregate {
			return apperror.NewValidation("product is batch-tracked; adjust its batches instead").
				WithDetail("product_id", productID.String())
		}

		if delta.IsNegative() {
			if err := l.products.DeductStock(ctx, productID, delta.Neg()); err != nil {
				return err
			}
		} else {
			ok, err := l.products.RestoreStock(ctx, productID, delta)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NewNotFound("product", productID.String())
			}
		}

		mv := NewMovement(productID, nil, MovementAdjustment,
			delta, p.StockQty, p.StockQty+delta,
			RefAdjustment, productID, appctx.GetActorID(ctx), note)
		if err := l.movements.Create(ctx, []Movement{mv}); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}
		return nil
	})
}
