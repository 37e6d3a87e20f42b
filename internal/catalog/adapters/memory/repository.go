package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ports"
)

// Repository provides an in-memory product store useful for local development and tests.
type Repository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{products: make(map[string]domain.Product)}
}

// Seed inserts or replaces a product.
func (r *Repository) Seed(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
}

// GetByID fetches a single product by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := product
	return &copy, nil
}

// UpdateStock sets the stock quantity and availability status for a product.
func (r *Repository) UpdateStock(_ context.Context, id string, stock int, status domain.ProductStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return ports.ErrNotFound
	}

	product.Stock = stock
	product.Status = status
	r.products[id] = product
	return nil
}
