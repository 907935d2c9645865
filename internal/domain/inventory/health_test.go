package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcore/internal/domain/inventory"
	"stockcore/internal/domain/inventory/inventorytest"
)

func newHealth(store *inventorytest.Store, defaultThreshold int64) *inventory.Health {
	return inventory.NewHealth(store.ProductRepo(), store.BatchRepo(), inventory.HealthConfig{
		DefaultReorderThreshold: qty(defaultThreshold),
	})
}

func TestIsLowStock_ZeroIsAlwaysLow(t *testing.T) {
	store := inventorytest.NewStore()
	p := newAggregateProduct(0)
	zero := qty(0)
	p.ReorderThreshold = &zero
	store.PutProduct(p)

	low, err := newHealth(store, 0).IsLowStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, low, "zero stock is low even with a zero threshold")
}

func TestIsLowStock_ThresholdBoundary(t *testing.T) {
	store := inventorytest.NewStore()
	h := newHealth(store, 10)
	ctx := context.Background()

	at := newAggregateProduct(10)
	store.PutProduct(at)
	low, err := h.IsLowStock(ctx, at.ID)
	require.NoError(t, err)
	assert.True(t, low, "stock at the threshold is low")

	above := newAggregateProduct(11)
	store.PutProduct(above)
	low, err = h.IsLowStock(ctx, above.ID)
	require.NoError(t, err)
	assert.False(t, low)
}

func TestIsLowStock_ProductThresholdOverridesDefault(t *testing.T) {
	store := inventorytest.NewStore()
	h := newHealth(store, 10)

	p := newAggregateProduct(15)
	own := qty(20)
	p.ReorderThreshold = &own
	store.PutProduct(p)

	low, err := h.IsLowStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, low)
}

func TestIsLowStock_BatchModeUsesDerivedSum(t *testing.T) {
	store := inventorytest.NewStore()
	h := newHealth(store, 10)
	m := newManager(store)

	p := newBatchProduct()
	store.PutProduct(p)
	addBatch(t, m, p.ID, 5, daysFromNow(30))

	low, err := h.IsLowStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, low)
}

func TestLowStockProducts(t *testing.T) {
	store := inventorytest.NewStore()
	h := newHealth(store, 10)

	short := newAggregateProduct(3)
	short.SKU = "A"
	store.PutProduct(short)

	healthy := newAggregateProduct(100)
	healthy.SKU = "B"
	store.PutProduct(healthy)

	inactive := newAggregateProduct(0)
	inactive.SKU = "C"
	inactive.Active = false
	store.PutProduct(inactive)

	out, err := h.LowStockProducts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, short.ID, out[0].Product.ID)
	assert.Equal(t, qty(3), out[0].Available)
	assert.Equal(t, qty(10), out[0].Threshold)
}

func TestExpiringBatches(t *testing.T) {
	store := inventorytest.NewStore()
	h := newHealth(store, 10)
	m := newManager(store)

	p := newBatchProduct()
	store.PutProduct(p)

	inside := addBatch(t, m, p.ID, 5, daysFromNow(3))
	addBatch(t, m, p.ID, 5, daysFromNow(60))
	addBatch(t, m, p.ID, 5, nil)

	out, err := h.ExpiringBatches(context.Background(), 7*24*time.Hour, 50)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, inside, out[0].ID)
}

func TestProductAvailability(t *testing.T) {
	store := inventorytest.NewStore()
	h := newHealth(store, 10)

	p := newAggregateProduct(42)
	store.PutProduct(p)

	avail, err := h.ProductAvailability(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(42), avail)
}
