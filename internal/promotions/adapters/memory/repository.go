package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/storefront/internal/promotions/domain"
	"github.com/dejobratic/storefront/internal/promotions/ports"
)

// Repository provides an in-memory promotion store. Usage counters are
// guarded by the store mutex, so increment re-validation is serialized the
// same way the SQL adapter serializes it.
type Repository struct {
	mu         sync.RWMutex
	promotions map[string]domain.Promotion
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{promotions: make(map[string]domain.Promotion)}
}

// Seed inserts or replaces a promotion.
func (r *Repository) Seed(promotion domain.Promotion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promotions[promotion.ID] = promotion
}

// GetByID fetches a promotion by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	promo, ok := r.promotions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := promo
	return &copy, nil
}

// GetByCode resolves a voucher by code, case-insensitively.
func (r *Repository) GetByCode(_ context.Context, code string) (*domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, promo := range r.promotions {
		if promo.MatchesCode(code) {
			copy := promo
			return &copy, nil
		}
	}
	return nil, ports.ErrNotFound
}

// ListAutomaticFor returns the automatic promotions scoped to the product.
func (r *Repository) ListAutomaticFor(_ context.Context, productID, categoryID, brandID string) ([]domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Promotion
	for _, promo := range r.promotions {
		if promo.IsVoucher() {
			continue
		}
		if promo.AppliesTo(productID, categoryID, brandID) {
			result = append(result, promo)
		}
	}
	return result, nil
}

// IncrementUsage bumps usage by one, re-checking the ceiling under the lock.
func (r *Repository) IncrementUsage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo, ok := r.promotions[id]
	if !ok {
		return ports.ErrNotFound
	}
	if promo.ExhaustedAt(promo.Usage) {
		return domain.ErrUsageLimitReached
	}

	promo.Usage++
	r.promotions[id] = promo
	return nil
}

// DecrementUsage lowers usage by one, never below zero.
func (r *Repository) DecrementUsage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo, ok := r.promotions[id]
	if !ok {
		return ports.ErrNotFound
	}
	if promo.Usage > 0 {
		promo.Usage--
	}
	r.promotions[id] = promo
	return nil
}
