package inventory_test

import (
	"context"
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
	"stockcore/pkg/numerator"
)

func qty(n int64) types.Quantity { return types.NewQuantityFromInt(n) }

func newBatchProduct() catalog.Product {
	now := time.Now().UTC()
	return catalog.Product{
		ID:           id.New(),
		SKU:          "MILK-1L",
		Name:         "Whole Milk 1L",
		TrackingMode: catalog.TrackingBatch,
		SalePrice:    types.MustMoney("1.89"),
		UnitFactor:   1,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

func newManager(store *inventorytest.Store) *inventory.Manager {
	return inventory.NewManager(
		store.ProductRepo(),
		store.BatchRepo(),
		store.MovementRepo(),
		store.TxManager(),
		numerator.New(&inventorytest.SequenceQuerier{}),
	)
}

func addBatch(t *testing.T, m *inventory.Manager, productID id.ID, n int64, expiry *time.Time) id.ID {
	t.Helper()
	receipt, err := m.AddBatch(context.Background(), inventory.AddBatchInput{
		ProductID: productID,
		Quantity:  qty(n),
		Expiry:    expiry,
		UnitCost:  types.MustMoney("1.00"),
	})
	require.NoError(t, err)
	return receipt.BatchID
}

func daysFromNow(d int) *time.Time {
	t := time.Now().UTC().AddDate(0, 0, d)
	return &t
}

func TestAddBatch_RecordsReceipt(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	receipt, err := m.AddBatch(context.Background(), inventory.AddBatchInput{
		ProductID: p.ID,
		Quantity:  qty(100),
		Supplier:  "Acme Dairy",
		UnitCost:  types.MustMoney("0.80"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Label)
	assert.Equal(t, qty(100), receipt.Aggregate)

	b := store.Batch(receipt.BatchID)
	require.NotNil(t, b)
	assert.Equal(t, inventory.BatchActive, b.Status)
	assert.Equal(t, qty(100), b.QtyRemaining)
	assert.Equal(t, qty(100), b.QtyOriginal)

	// The cached aggregate follows the batch sum.
	assert.Equal(t, qty(100), store.Product(p.ID).StockQty)

	movements := store.Movements()
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.MovementIn, movements[0].Type)
	assert.Equal(t, qty(100), movements[0].QtyDelta)
	assert.Equal(t, qty(0), movements[0].QtyBefore)
	assert.Equal(t, qty(100), movements[0].QtyAfter)
	assert.Equal(t, inventory.RefReceipt, movements[0].ReferenceType)
	assert.Equal(t, "system", movements[0].ActorID)
}

func TestAddBatch_RejectsBadInput(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)
	ctx := context.Background()

	_, err := m.AddBatch(ctx, inventory.AddBatchInput{ProductID: p.ID, Quantity: qty(0)})
	assert.True(t, apperror.IsAppError(err))

	past := time.Now().UTC().Add(-time.Hour)
	_, err = m.AddBatch(ctx, inventory.AddBatchInput{ProductID: p.ID, Quantity: qty(5), Expiry: &past})
	assert.True(t, apperror.IsAppError(err))
}

func TestAddBatch_RejectsAggregateProduct(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	p.TrackingMode = catalog.TrackingAggregate
	store.PutProduct(p)
	m := newManager(store)

	_, err := m.AddBatch(context.Background(), inventory.AddBatchInput{
		ProductID: p.ID,
		Quantity:  qty(10),
	})
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBatchNotAllocatable, appErr.Code)
}

func TestAllocateForSale_EarliestExpiryFirst(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	soon := addBatch(t, m, p.ID, 3, daysFromNow(2))
	later := addBatch(t, m, p.ID, 10, daysFromNow(30))

	allocations, err := m.AllocateForSale(context.Background(), p.ID, qty(5))
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	// 3 from the soonest-expiring batch, the remaining 2 from the next.
	assert.Equal(t, soon, allocations[0].BatchID)
	assert.Equal(t, qty(3), allocations[0].Quantity)
	assert.Equal(t, later, allocations[1].BatchID)
	assert.Equal(t, qty(2), allocations[1].Quantity)

	assert.Equal(t, inventory.BatchDepleted, store.Batch(soon).Status)
	assert.Equal(t, qty(0), store.Batch(soon).QtyRemaining)
	assert.Equal(t, inventory.BatchActive, store.Batch(later).Status)
	assert.Equal(t, qty(8), store.Batch(later).QtyRemaining)
}

func TestAllocateForSale_NilExpiryComesLast(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	noExpiry := addBatch(t, m, p.ID, 10, nil)
	dated := addBatch(t, m, p.ID, 10, daysFromNow(5))

	allocations, err := m.AllocateForSale(context.Background(), p.ID, qty(12))
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, dated, allocations[0].BatchID)
	assert.Equal(t, noExpiry, allocations[1].BatchID)
}

func TestAllocateForSale_Insufficient(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	b1 := addBatch(t, m, p.ID, 3, daysFromNow(2))
	b2 := addBatch(t, m, p.ID, 10, daysFromNow(30))

	_, err := m.AllocateForSale(context.Background(), p.ID, qty(20))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Nothing was deducted.
	assert.Equal(t, qty(3), store.Batch(b1).QtyRemaining)
	assert.Equal(t, qty(10), store.Batch(b2).QtyRemaining)
}

func TestAllocateForSale_SkipsExpiredAndQuarantined(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	sellable := addBatch(t, m, p.ID, 5, daysFromNow(10))
	quarantined := addBatch(t, m, p.ID, 5, daysFromNow(10))
	require.NoError(t, m.QuarantineBatch(context.Background(), quarantined, "damaged pallet"))

	expired := *store.Batch(sellable)
	expired.ID = id.New()
	past := time.Now().UTC().Add(-time.Hour)
	expired.ExpiryDate = &past
	store.PutBatch(expired)

	_, err := m.AllocateForSale(context.Background(), p.ID, qty(6))
	assert.True(t, apperror.IsInsufficientStock(err))

	allocations, err := m.AllocateForSale(context.Background(), p.ID, qty(5))
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, sellable, allocations[0].BatchID)
}

func TestDeductForSale_WritesMovementChain(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	soon := addBatch(t, m, p.ID, 3, daysFromNow(2))
	later := addBatch(t, m, p.ID, 10, daysFromNow(30))

	saleID := id.New()
	allocations, err := m.DeductForSale(context.Background(), p.ID, qty(5), saleID, "sale SALE-1")
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	assert.Equal(t, qty(8), store.Product(p.ID).StockQty)

	outs, err := store.MovementRepo().ListByReference(context.Background(), inventory.RefSale, saleID)
	require.NoError(t, err)
	require.Len(t, outs, 2)

	// Snapshots chain: 13 -> 10 -> 8.
	assert.Equal(t, qty(3).Neg(), outs[0].QtyDelta)
	assert.Equal(t, qty(13), outs[0].QtyBefore)
	assert.Equal(t, qty(10), outs[0].QtyAfter)
	assert.Equal(t, &soon, outs[0].BatchID)

	assert.Equal(t, qty(2).Neg(), outs[1].QtyDelta)
	assert.Equal(t, qty(10), outs[1].QtyBefore)
	assert.Equal(t, qty(8), outs[1].QtyAfter)
	assert.Equal(t, &later, outs[1].BatchID)
}

func TestRestoreFromSale_RoundTrip(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	soon := addBatch(t, m, p.ID, 3, daysFromNow(2))
	addBatch(t, m, p.ID, 10, daysFromNow(30))

	saleID := id.New()
	allocations, err := m.DeductForSale(context.Background(), p.ID, qty(5), saleID, "sale")
	require.NoError(t, err)

	outcome, err := m.RestoreFromSale(context.Background(), allocations, saleID, "undo")
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Restored)
	assert.Empty(t, outcome.Missing)

	assert.Equal(t, qty(13), store.Product(p.ID).StockQty)
	assert.Equal(t, qty(3), store.Batch(soon).QtyRemaining)
	assert.Equal(t, inventory.BatchActive, store.Batch(soon).Status)
}

func TestRestoreFromSale_MissingBatchTolerated(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	soon := addBatch(t, m, p.ID, 3, daysFromNow(2))
	later := addBatch(t, m, p.ID, 10, daysFromNow(30))

	saleID := id.New()
	allocations, err := m.DeductForSale(context.Background(), p.ID, qty(5), saleID, "sale")
	require.NoError(t, err)

	store.DeleteBatch(soon)

	outcome, err := m.RestoreFromSale(context.Background(), allocations, saleID, "undo")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Restored)
	require.Len(t, outcome.Missing, 1)
	assert.Equal(t, inventory.MissingBatch, outcome.Missing[0].Kind)
	assert.Equal(t, soon, outcome.Missing[0].ID)

	// The surviving batch got its 2 back.
	assert.Equal(t, qty(10), store.Batch(later).QtyRemaining)
}

func TestRestoreFromSale_CapsAtOriginalQuantity(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	batchID := addBatch(t, m, p.ID, 10, daysFromNow(30))

	// A manual correction shrank the batch after the sale was made.
	_, err := m.AdjustBatch(context.Background(), inventory.AdjustBatchInput{
		BatchID: batchID,
		Delta:   qty(2).Neg(),
		Note:    "count correction",
	})
	require.NoError(t, err)

	outcome, err := m.RestoreFromSale(context.Background(),
		[]inventory.Allocation{{BatchID: batchID, Quantity: qty(5)}}, id.New(), "undo")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Restored)
	assert.Equal(t, qty(10), store.Batch(batchID).QtyRemaining)
}

func TestAdjustBatch_Bounds(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)
	ctx := context.Background()

	batchID := addBatch(t, m, p.ID, 10, daysFromNow(30))

	_, err := m.AdjustBatch(ctx, inventory.AdjustBatchInput{BatchID: batchID, Delta: qty(0)})
	assert.True(t, apperror.IsAppError(err))

	_, err = m.AdjustBatch(ctx, inventory.AdjustBatchInput{BatchID: batchID, Delta: qty(11).Neg()})
	assert.True(t, apperror.IsAppError(err))

	_, err = m.AdjustBatch(ctx, inventory.AdjustBatchInput{BatchID: batchID, Delta: qty(1)})
	assert.True(t, apperror.IsAppError(err), "cannot exceed original quantity")

	agg, err := m.AdjustBatch(ctx, inventory.AdjustBatchInput{BatchID: batchID, Delta: qty(4).Neg(), Note: "damage"})
	require.NoError(t, err)
	assert.Equal(t, qty(6), agg)
	assert.Equal(t, qty(6), store.Batch(batchID).QtyRemaining)
}

func TestQuarantineAndRelease(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)
	ctx := context.Background()

	batchID := addBatch(t, m, p.ID, 10, daysFromNow(30))

	require.NoError(t, m.QuarantineBatch(ctx, batchID, "inspection"))
	assert.Equal(t, inventory.BatchQuarantined, store.Batch(batchID).Status)
	assert.Equal(t, qty(0), store.Product(p.ID).StockQty)

	// Double quarantine is rejected.
	err := m.QuarantineBatch(ctx, batchID, "again")
	assert.True(t, apperror.IsAppError(err))

	require.NoError(t, m.ReleaseBatch(ctx, batchID, "passed inspection"))
	assert.Equal(t, inventory.BatchActive, store.Batch(batchID).Status)
	assert.Equal(t, qty(10), store.Product(p.ID).StockQty)
}

func TestReleaseBatch_RejectsExpired(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)
	ctx := context.Background()

	batchID := addBatch(t, m, p.ID, 10, daysFromNow(1))
	require.NoError(t, m.QuarantineBatch(ctx, batchID, "inspection"))

	b := *store.Batch(batchID)
	past := time.Now().UTC().Add(-time.Hour)
	b.ExpiryDate = &past
	store.PutBatch(b)

	err := m.ReleaseBatch(ctx, batchID, "passed")
	require.Error(t, err)
	assert.True(t, apperror.IsAppError(err))
	assert.Equal(t, inventory.BatchQuarantined, store.Batch(batchID).Status)
}

func TestRecomputeAggregate_CorrectsDrift(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	addBatch(t, m, p.ID, 10, daysFromNow(30))

	// Introduce drift in the cached projection.
	drifted := *store.Product(p.ID)
	drifted.StockQty = qty(7)
	store.PutProduct(drifted)

	sum, err := m.RecomputeAggregate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(10), sum)
	assert.Equal(t, qty(10), store.Product(p.ID).StockQty)

	movements := store.Movements()
	last := movements[len(movements)-1]
	assert.Equal(t, inventory.MovementAdjustment, last.Type)
	assert.Equal(t, qty(3), last.QtyDelta)
	assert.Equal(t, qty(7), last.QtyBefore)
	assert.Equal(t, qty(10), last.QtyAfter)
}

func TestRecomputeAggregate_NoDriftNoMovement(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	addBatch(t, m, p.ID, 10, daysFromNow(30))
	before := len(store.Movements())

	_, err := m.RecomputeAggregate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, store.Movements(), before)
}

func TestSweepExpired(t *testing.T) {
	store := inventorytest.NewStore()
	p := newBatchProduct()
	store.PutProduct(p)
	m := newManager(store)

	fresh := addBatch(t, m, p.ID, 10, daysFromNow(30))
	stale := addBatch(t, m, p.ID, 5, daysFromNow(10))

	b := *store.Batch(stale)
	past := time.Now().UTC().Add(-time.Hour)
	b.ExpiryDate = &past
	store.PutBatch(b)

	swept, err := m.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	assert.Equal(t, inventory.BatchExpired, store.Batch(stale).Status)
	assert.Equal(t, inventory.BatchActive, store.Batch(fresh).Status)
	assert.Equal(t, qty(10), store.Product(p.ID).StockQty)

	movements := store.Movements()
	last := movements[len(movements)-1]
	assert.Equal(t, inventory.MovementExpired, last.Type)
	assert.Equal(t, qty(5).Neg(), last.QtyDelta)

	// A second sweep finds nothing.
	swept, err = m.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}
