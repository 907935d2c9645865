// Package inventorytest provides in-memory repository fakes for unit tests.
// The store behaves like the PostgreSQL implementation for the operations
// the domain services exercise, including the conditional aggregate
// decrement and transaction rollback.
package inventorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
)

// Store holds products, batches and movements in memory.
type Store struct {
	mu        sync.Mutex
	products  map[id.ID]catalog.Product
	batches   map[id.ID]inventory.Batch
	movements []inventory.Movement
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[id.ID]catalog.Product),
		batches:  make(map[id.ID]inventory.Batch),
	}
}

// PutProduct adds or replaces a product.
func (s *Store) PutProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// DeleteProduct removes a product, simulating a catalog-side deletion.
func (s *Store) DeleteProduct(productID id.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, productID)
}

// PutBatch adds or replaces a batch.
func (s *Store) PutBatch(b inventory.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
}

// DeleteBatch removes a batch.
func (s *Store) DeleteBatch(batchID id.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, batchID)
}

// Product returns a copy of the stored product, or nil.
func (s *Store) Product(productID id.ID) *catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		return &p
	}
	return nil
}

// Batch returns a copy of the stored batch, or nil.
func (s *Store) Batch(batchID id.ID) *inventory.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.batches[batchID]; ok {
		return &b
	}
	return nil
}

// Movements returns a copy of all recorded movements in insertion order.
func (s *Store) Movements() []inventory.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inventory.Movement, len(s.movements))
	copy(out, s.movements)
	return out
}

// ProductRepo returns a catalog.Repository view of the store.
func (s *Store) ProductRepo() catalog.Repository { return &productRepo{s} }

// BatchRepo returns an inventory.BatchRepository view of the store.
func (s *Store) BatchRepo() inventory.BatchRepository { return &batchRepo{s} }

// MovementRepo returns an inventory.MovementRepository view of the store.
func (s *Store) MovementRepo() inventory.MovementRepository { return &movementRepo{s} }

// TxManager returns a tx.Manager that snapshots the store before running fn
// and restores it when fn fails, mirroring a database rollback.
func (s *Store) TxManager() *TxManager { return &TxManager{store: s} }

type snapshot struct {
	products  map[id.ID]catalog.Product
	batches   map[id.ID]inventory.Batch
	movements []inventory.Movement
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		products:  make(map[id.ID]catalog.Product, len(s.products)),
		batches:   make(map[id.ID]inventory.Batch, len(s.batches)),
		movements: make([]inventory.Movement, len(s.movements)),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.batches {
		snap.batches[k] = v
	}
	copy(snap.movements, s.movements)
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = snap.products
	s.batches = snap.batches
	s.movements = snap.movements
}

// TxManager implements tx.Manager over the store.
type TxManager struct {
	store *Store
	// Commits counts successfully completed top-level transactions.
	Commits int
	// Rollbacks counts failed top-level transactions.
	Rollbacks int
	depth     int
}

// RunInTransaction snapshots on entry and restores on error. Nested calls
// join the outer transaction, as the real manager does.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		m.depth++
		err := fn(ctx)
		m.depth--
		return err
	}

	snap := m.store.snapshot()
	m.depth++
	err := fn(ctx)
	m.depth--
	if err != nil {
		m.store.restore(snap)
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}

type productRepo struct{ s *Store }

func (r *productRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return &p, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *productRepo) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]catalog.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.TrackingMode != nil && p.TrackingMode != *filter.TrackingMode {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(p.SKU), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *productRepo) ListBatchTracked(ctx context.Context) ([]catalog.Product, error) {
	mode := catalog.TrackingBatch
	return r.List(ctx, catalog.ListFilter{ActiveOnly: true, TrackingMode: &mode})
}

func (r *productRepo) DeductStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	if p.StockQty < qty {
		return apperror.NewInsufficientStock(productID.String(), qty.Float64(), p.StockQty.Float64())
	}
	p.StockQty -= qty
	p.Version++
	r.s.products[productID] = p
	return nil
}

func (r *productRepo) RestoreStock(ctx context.Context, productID id.ID, qty types.Quantity) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return false, nil
	}
	p.StockQty += qty
	p.Version++
	r.s.products[productID] = p
	return true, nil
}

func (r *productRepo) SetStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	p.StockQty = qty
	p.Version++
	r.s.products[productID] = p
	return nil
}

type batchRepo struct{ s *Store }

func (r *batchRepo) Create(ctx context.Context, batch *inventory.Batch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.batches[batch.ID] = *batch
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	return &b, nil
}

func (r *batchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	return r.GetByID(ctx, batchID)
}

func (r *batchRepo) ListAllocatableForUpdate(ctx context.Context, productID id.ID, asOf time.Time) ([]inventory.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]inventory.Batch, 0)
	for _, b := range r.s.batches {
		if b.ProductID != productID {
			continue
		}
		if !b.Allocatable(asOf) {
			continue
		}
		out = append(out, b)
	}
	sortForAllocation(out)
	return out, nil
}

// sortForAllocation orders earliest expiry first, nil expiry last, ties
// broken by receipt time.
func sortForAllocation(batches []inventory.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		bi, bj := batches[i], batches[j]
		switch {
		case bi.ExpiryDate == nil && bj.ExpiryDate == nil:
			return bi.ReceivedAt.Before(bj.ReceivedAt)
		case bi.ExpiryDate == nil:
			return false
		case bj.ExpiryDate == nil:
			return true
		case bi.ExpiryDate.Equal(*bj.ExpiryDate):
			return bi.ReceivedAt.Before(bj.ReceivedAt)
		default:
			return bi.ExpiryDate.Before(*bj.ExpiryDate)
		}
	})
}

func (r *batchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]inventory.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]inventory.Batch, 0)
	for _, b := range r.s.batches {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return out, nil
}

func (r *batchRepo) UpdateQuantity(ctx context.Context, batchID id.ID, qty types.Quantity, status inventory.BatchStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	b.QtyRemaining = qty
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	r.s.batches[batchID] = b
	return nil
}

func (r *batchRepo) SetStatus(ctx context.Context, batchID id.ID, status inventory.BatchStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	r.s.batches[batchID] = b
	return nil
}

func (r *batchRepo) SumActive(ctx context.Context, productID id.ID, asOf time.Time) (types.Quantity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum types.Quantity
	for _, b := range r.s.batches {
		if b.ProductID == productID && b.Status == inventory.BatchActive && !b.IsExpired(asOf) {
			sum += b.QtyRemaining
		}
	}
	return sum, nil
}

func (r *batchRepo) ListExpiring(ctx context.Context, asOf, until time.Time, limit int) ([]inventory.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]inventory.Batch, 0)
	for _, b := range r.s.batches {
		if b.Status != inventory.BatchActive || !b.QtyRemaining.IsPositive() || b.ExpiryDate == nil {
			continue
		}
		if b.ExpiryDate.Before(asOf) || !b.ExpiryDate.Before(until) {
			continue
		}
		out = append(out, b)
	}
	sortForAllocation(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *batchRepo) ListExpired(ctx context.Context, asOf time.Time) ([]inventory.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]inventory.Batch, 0)
	for _, b := range r.s.batches {
		if b.Status == inventory.BatchActive && b.IsExpired(asOf) {
			out = append(out, b)
		}
	}
	sortForAllocation(out)
	return out, nil
}

type movementRepo struct{ s *Store }

func (r *movementRepo) Create(ctx context.Context, movements []inventory.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements = append(r.s.movements, movements...)
	return nil
}

func (r *movementRepo) List(ctx context.Context, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]inventory.Movement, 0)
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.BatchID != nil && (m.BatchID == nil || *m.BatchID != *filter.BatchID) {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.FromDate != nil && m.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && !m.CreatedAt.Before(*filter.ToDate) {
			continue
		}
		out = append(out, m)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *movementRepo) ListByReference(ctx context.Context, refType string, refID id.ID) ([]inventory.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]inventory.Movement, 0)
	for _, m := range r.s.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}
