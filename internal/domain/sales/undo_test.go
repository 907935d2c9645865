package sales_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/domain/sales"
)

func TestUndo_AggregateRoundTrip(t *testing.T) {
	f := newFixture()
	p := f.aggregateProduct("BAG-PAPER", 100, "0.15")
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, sales.CreateInput{
		Lines: []sales.LineInput{{ProductID: p.ID, Quantity: qty(30)}},
	})
	require.NoError(t, err)
	require.Equal(t, qty(70), f.store.Product(p.ID).StockQty)

	result, err := f.svc.Undo(ctx, sale.ID, "customer changed mind")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RestoredCount)
	assert.Zero(t, result.MissingCount)
	assert.Empty(t, result.Warning)

	assert.Equal(t, qty(100), f.store.Product(p.ID).StockQty)

	undone, err := f.svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCancelled, undone.Status)
	assert.True(t, undone.IsEdited)
	assert.Equal(t, "customer changed mind", undone.EditReason)

	ins, err := f.store.MovementRepo().ListByReference(ctx, inventory.RefUndo, sale.ID)
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, qty(30), ins[0].QtyDelta)
}

func TestUndo_BatchRoundTrip(t *testing.T) {
	f := newFixture()
	p := f.batchProduct(t, "MILK-1L", []int64{3, 10}, "1.89")
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, sales.CreateInput{
		Lines: []sales.LineInput{{ProductID: p.ID, Quantity: qty(5)}},
	})
	require.NoError(t, err)
	require.Equal(t, qty(8), f.store.Product(p.ID).StockQty)

	result, err := f.svc.Undo(ctx, sale.ID, "mis-scan")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RestoredCount, "one restore per touched batch")
	assert.Zero(t, result.MissingCount)

	// Exactly the batches that supplied the sale got their stock back.
	assert.Equal(t, qty(13), f.store.Product(p.ID).StockQty)
	for _, a := range sale.Lines[0].Allocations {
		b := f.store.Batch(a.BatchID)
		require.NotNil(t, b)
		assert.Equal(t, b.QtyOriginal, b.QtyRemaining)
		assert.Equal(t, inventory.BatchActive, b.Status)
	}
}

func TestUndo_MissingProductTolerated(t *testing.T) {
	f := newFixture()
	gone := f.aggregateProduct("GONE", 50, "1.00")
	stays := f.aggregateProduct("STAYS", 50, "1.00")
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, sales.CreateInput{
		Lines: []sales.LineInput{
			{ProductID: gone.ID, Quantity: qty(5)},
			{ProductID: stays.ID, Quantity: qty(5)},
		},
	})
	require.NoError(t, err)

	f.store.DeleteProduct(gone.ID)

	result, err := f.svc.Undo(ctx, sale.ID, "order error")
	require.NoError(t, err)
	assert.True(t, result.Success, "undo succeeds despite the vanished product")
	assert.Equal(t, 1, result.RestoredCount)
	assert.Equal(t, 1, result.MissingCount)
	require.Len(t, result.Missing, 1)
	assert.Equal(t, inventory.MissingProduct, result.Missing[0].Kind)
	assert.Equal(t, gone.ID, result.Missing[0].ID)
	assert.NotEmpty(t, result.Warning)

	assert.Equal(t, qty(50), f.store.Product(stays.ID).StockQty)

	undone, err := f.svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCancelled, undone.Status)
}

func TestUndo_MissingBatchTolerated(t *testing.T) {
	f := newFixture()
	p := f.batchProduct(t, "MILK-1L", []int64{3, 10}, "1.89")
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, sales.CreateInput{
		Lines: []sales.LineInput{{ProductID: p.ID, Quantity: qty(5)}},
	})
	require.NoError(t, err)

	firstBatch := sale.Lines[0].Allocations[0].BatchID
	f.store.DeleteBatch(firstBatch)

	result, err := f.svc.Undo(ctx, sale.ID, "damaged on handover")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RestoredCount)
	assert.Equal(t, 1, result.MissingCount)
	assert.Equal(t, inventory.MissingBatch, result.Missing[0].Kind)

	// Only the surviving batch's 2 units came back: 8 + 2.
	assert.Equal(t, qty(10), f.store.Product(p.ID).StockQty)
}

func TestUndo_RequiresReason(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Undo(context.Background(), id.New(), "")
	require.Error(t, err)
	assert.True(t, apperror.IsAppError(err))
}

func TestUndo_RejectsMissingTransaction(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Undo(context.Background(), id.New(), "typo")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTransactionNotCompleted, appErr.Code)
}

func TestUndo_RejectsDoubleUndo(t *testing.T) {
	f := newFixture()
	p := f.aggregateProduct("A", 100, "1.00")
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, sales.CreateInput{
		Lines: []sales.LineInput{{ProductID: p.ID, Quantity: qty(10)}},
	})
	require.NoError(t, err)

	_, err = f.svc.Undo(ctx, sale.ID, "first")
	require.NoError(t, err)

	_, err = f.svc.Undo(ctx, sale.ID, "second")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTransactionNotCompleted, appErr.Code)

	// Stock was not restored twice.
	assert.Equal(t, qty(100), f.store.Product(p.ID).StockQty)
}

func TestUndo_AuditTrail(t *testing.T) {
	f := newFixture()
	p := f.aggregateProduct("A", 100, "1.00")
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, sales.CreateInput{
		Lines: []sales.LineInput{{ProductID: p.ID, Quantity: qty(10)}},
	})
	require.NoError(t, err)

	_, err = f.svc.Undo(ctx, sale.ID, "return")
	require.NoError(t, err)

	require.Len(t, f.audit.entries, 2)
	assert.Equal(t, "create", f.audit.entries[0].action)
	assert.Equal(t, "undo", f.audit.entries[1].action)
	assert.Equal(t, sale.ID, f.audit.entries[1].entityID)
}
