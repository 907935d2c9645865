package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockcore/internal/core/id"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
)

func TestBatchAllocatable(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name  string
		batch inventory.Batch
		want  bool
	}{
		{"active with stock", inventory.Batch{Status: inventory.BatchActive, QtyRemaining: qty(5)}, true},
		{"active unexpired", inventory.Batch{Status: inventory.BatchActive, QtyRemaining: qty(5), ExpiryDate: &future}, true},
		{"expired", inventory.Batch{Status: inventory.BatchActive, QtyRemaining: qty(5), ExpiryDate: &past}, false},
		{"empty", inventory.Batch{Status: inventory.BatchActive, QtyRemaining: qty(0)}, false},
		{"quarantined", inventory.Batch{Status: inventory.BatchQuarantined, QtyRemaining: qty(5)}, false},
		{"depleted", inventory.Batch{Status: inventory.BatchDepleted, QtyRemaining: qty(0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.batch.Allocatable(now))
		})
	}
}

func TestBatchValidate(t *testing.T) {
	ctx := context.Background()

	b := inventory.Batch{ProductID: id.New(), QtyRemaining: qty(5), QtyOriginal: qty(10)}
	assert.NoError(t, b.Validate(ctx))

	b.ProductID = id.Nil()
	assert.Error(t, b.Validate(ctx))

	b = inventory.Batch{ProductID: id.New(), QtyRemaining: qty(11), QtyOriginal: qty(10)}
	assert.Error(t, b.Validate(ctx))

	b = inventory.Batch{ProductID: id.New(), QtyRemaining: qty(1).Neg(), QtyOriginal: qty(10)}
	assert.Error(t, b.Validate(ctx))
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, inventory.StrategyEarliestExpiryFirst,
		inventory.StrategyFor(&catalog.Product{TrackingMode: catalog.TrackingBatch}))
	assert.Equal(t, inventory.StrategyAggregateOnly,
		inventory.StrategyFor(&catalog.Product{TrackingMode: catalog.TrackingAggregate}))
	assert.Equal(t, inventory.StrategyAggregateOnly,
		inventory.StrategyFor(&catalog.Product{}))
}
