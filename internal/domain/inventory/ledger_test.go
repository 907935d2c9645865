package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/domain/inventory/inventorytest"
)

func newAggregateProduct(stock int64) catalog.Product {
	now := time.Now().UTC()
	return catalog.Product{
		ID:           id.New(),
		SKU:          "BAG-PAPER",
		Name:         "Paper Bag",
		TrackingMode: catalog.TrackingAggregate,
		StockQty:     types.NewQuantityFromInt(stock),
		SalePrice:    types.MustMoney("0.15"),
		UnitFactor:   1,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

func newLedger(store *inventorytest.Store) *inventory.Ledger {
	return inventory.NewLedger(store.ProductRepo(), store.MovementRepo(), store.TxManager())
}

func TestLedgerDeductForSale(t *testing.T) {
	store := inventorytest.NewStore()
	p := newAggregateProduct(100)
	store.PutProduct(p)
	l := newLedger(store)

	saleID := id.New()
	err := l.DeductForSale(context.Background(), &p, qty(30), saleID, "sale SALE-1")
	require.NoError(t, err)
	assert.Equal(t, qty(70), store.Product(p.ID).StockQty)

	outs, err := store.MovementRepo().ListByReference(context.Background(), inventory.RefSale, saleID)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, inventory.MovementOut, outs[0].Type)
	assert.Equal(t, qty(30).Neg(), outs[0].QtyDelta)
	assert.Equal(t, qty(100), outs[0].QtyBefore)
	assert.Equal(t, qty(70), outs[0].QtyAfter)
	assert.Nil(t, outs[0].BatchID)
}

func TestLedgerDeductForSale_Insufficient(t *testing.T) {
	store := inventorytest.NewStore()
	p := newAggregateProduct(10)
	store.PutProduct(p)
	l := newLedger(store)

	err := l.DeductForSale(context.Background(), &p, qty(80), id.New(), "sale")
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The counter is untouched and no movement was written.
	assert.Equal(t, qty(10), store.Product(p.ID).StockQty)
	assert.Empty(t, store.Movements())
}

func TestLedgerRestoreForUndo(t *testing.T) {
	store := inventorytest.NewStore()
	p := newAggregateProduct(70)
	store.PutProduct(p)
	l := newLedger(store)

	undoID := id.New()
	restored, err := l.RestoreForUndo(context.Background(), p.ID, qty(30), undoID, "undo")
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, qty(100), store.Product(p.ID).StockQty)

	ins, err := store.MovementRepo().ListByReference(context.Background(), inventory.RefUndo, undoID)
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, inventory.MovementIn, ins[0].Type)
	assert.Equal(t, qty(70), ins[0].QtyBefore)
	assert.Equal(t, qty(100), ins[0].QtyAfter)
}

func TestLedgerRestoreForUndo_MissingProduct(t *testing.T) {
	store := inventorytest.NewStore()
	l := newLedger(store)

	restored, err := l.RestoreForUndo(context.Background(), id.New(), qty(5), id.New(), "undo")
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Empty(t, store.Movements())
}

func TestLedgerAdjustAggregate(t *testing.T) {
	store := inventorytest.NewStore()
	p := newAggregateProduct(50)
	store.PutProduct(p)
	l := newLedger(store)
	ctx := context.Background()

	require.NoError(t, l.AdjustAggregate(ctx, p.ID, qty(5).Neg(), "shrinkage"))
	assert.Equal(t, qty(45), store.Product(p.ID).StockQty)

	require.NoError(t, l.AdjustAggregate(ctx, p.ID, qty(10), "found in backroom"))
	assert.Equal(t, qty(55), store.Product(p.ID).StockQty)

	movements := store.Movements()
	require.Len(t, movements, 2)
	assert.Equal(t, inventory.MovementAdjustment, movements[0].Type)
	assert.Equal(t, inventory.MovementAdjustment, movements[1].Type)
}

func TestLedgerAdjustAggregate_Rejections(t *testing.T) {
	store := inventorytest.NewStore()
	p := newAggregateProduct(50)
	store.PutProduct(p)
	batchTracked := newBatchProduct()
	store.PutProduct(batchTracked)
	l := newLedger(store)
	ctx := context.Background()

	err := l.AdjustAggregate(ctx, p.ID, qty(0), "noop")
	assert.True(t, apperror.IsAppError(err))

	err = l.AdjustAggregate(ctx, batchTracked.ID, qty(5), "wrong mode")
	assert.True(t, apperror.IsAppError(err))

	// A decrement below zero fails and rolls back.
	err = l.AdjustAggregate(ctx, p.ID, qty(60).Neg(), "too much")
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, qty(50), store.Product(p.ID).StockQty)
	assert.Empty(t, store.Movements())
}

// Two deductions race for 5 units with 3 requested each. The conditional
// decrement admits exactly one; the loser sees InsufficientStock and the
// counter never goes negative.
func TestDeductStock_AtomicUnderContention(t *testing.T) {
	store := inventorytest.NewStore()
	p := newAggregateProduct(5)
	store.PutProduct(p)
	repo := store.ProductRepo()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.DeductStock(context.Background(), p.ID, qty(3))
		}()
	}
	wg.Wait()
	close(errs)

	var failed int
	for err := range errs {
		if err != nil {
			failed++
			assert.True(t, apperror.IsInsufficientStock(err))
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, qty(2), store.Product(p.ID).StockQty)
}

func TestAvailability_ByTrackingMode(t *testing.T) {
	store := inventorytest.NewStore()
	ctx := context.Background()

	agg := newAggregateProduct(42)
	store.PutProduct(agg)

	avail, err := inventory.Availability(ctx, &agg, store.BatchRepo())
	require.NoError(t, err)
	assert.Equal(t, qty(42), avail)

	batchP := newBatchProduct()
	store.PutProduct(batchP)
	m := newManager(store)
	addBatch(t, m, batchP.ID, 7, daysFromNow(10))
	addBatch(t, m, batchP.ID, 3, nil)

	// The cached counter is ignored in batch mode; the sum is derived.
	stale := *store.Product(batchP.ID)
	stale.StockQty = qty(999)
	store.PutProduct(stale)

	avail, err = inventory.Availability(ctx, &stale, store.BatchRepo())
	require.NoError(t, err)
	assert.Equal(t, qty(10), avail)
}
