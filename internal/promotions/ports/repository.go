package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/storefront/internal/promotions/domain"
)

// PromotionRepository exposes promotion lookups and the serialized usage
// counters the checkout commit relies on.
type PromotionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Promotion, error)
	// GetByCode resolves a voucher by its code, case-insensitively.
	GetByCode(ctx context.Context, code string) (*domain.Promotion, error)
	// ListAutomaticFor returns the automatic promotions scoped to the product,
	// its category or its brand. Active-window filtering is the caller's job.
	ListAutomaticFor(ctx context.Context, productID, categoryID, brandID string) ([]domain.Promotion, error)
	// IncrementUsage bumps the usage counter by one, re-validating the max
	// usage ceiling under the store's serialization. Returns
	// domain.ErrUsageLimitReached when the ceiling is hit.
	IncrementUsage(ctx context.Context, id string) error
	// DecrementUsage lowers the usage counter by one, never below zero.
	DecrementUsage(ctx context.Context, id string) error
}

var (
	// ErrNotFound is returned when the requested promotion does not exist.
	ErrNotFound = errors.New("promotion not found")
)
