package catalog

import (
	"context"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
)

// Service provides read-side product lookups.
type Service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetSellable returns the product if it exists and is active.
func (s *Service) GetSellable(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsSellable() {
		return nil, apperror.NewValidation("product is not active").
			WithDetail("product_id", productID.String())
	}
	return p, nil
}

// List returns products matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}
