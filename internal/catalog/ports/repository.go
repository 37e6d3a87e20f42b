package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/storefront/internal/catalog/domain"
)

// ProductRepository exposes the catalog reads and the stock writes the order
// engine is allowed to make. Stock and status mutations go through the ledger.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateStock(ctx context.Context, id string, stock int, status domain.ProductStatus) error
}

var (
	// ErrNotFound is returned when the requested product does not exist.
	ErrNotFound = errors.New("product not found")
)
