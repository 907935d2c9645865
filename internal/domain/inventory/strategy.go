package inventory

import (
	"stockcore/internal/domain/catalog"
)

// Strategy is the deduction discipline for a product. The system's history
// had both approaches competing in parallel code paths; here they are one
// explicit variant set selected per product by its tracking mode.
type Strategy string

const (
	// StrategyAggregateOnly decrements the product's stock counter directly.
	StrategyAggregateOnly Strategy = "aggregateOnly"

	// StrategyEarliestExpiryFirst allocates across batches, consuming
	// soonest-to-expire stock first.
	StrategyEarliestExpiryFirst Strategy = "earliestExpiryFirst"
)

// StrategyFor selects the deduction strategy for a product.
func StrategyFor(p *catalog.Product) Strategy {
	if p.TrackingMode == catalog.TrackingBatch {
		return StrategyEarliestExpiryFirst
	}
	return StrategyAggregateOnly
}
