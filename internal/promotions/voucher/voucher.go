package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/promotions/domain"
	"github.com/dejobratic/storefront/internal/promotions/ports"
	"github.com/shopspring/decimal"
)

// Resolver validates order-level voucher codes against a subtotal.
type Resolver struct {
	promotions ports.PromotionRepository
	now        func() time.Time
}

// NewResolver constructs a Resolver. The clock is injectable for tests.
func NewResolver(promotions ports.PromotionRepository, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{promotions: promotions, now: now}
}

// Validate looks up an active voucher by code and returns the promotion and
// the discount it grants on the subtotal. It has no side effects; usage is
// committed separately at checkout. A blank code yields a zero discount.
func (r *Resolver) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*domain.Promotion, decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, decimal.Zero, nil
	}

	promo, err := r.promotions.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrVoucherNotFound, code)
		}
		return nil, decimal.Zero, fmt.Errorf("look up voucher: %w", err)
	}

	if !promo.CurrentlyActive(r.now()) {
		return nil, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrVoucherExpired, code)
	}

	if promo.ExhaustedAt(promo.Usage) {
		return nil, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUsageLimitReached, code)
	}

	if promo.MinOrder != nil && subtotal.LessThan(*promo.MinOrder) {
		return nil, decimal.Zero, fmt.Errorf("%w: minimum %s, subtotal %s",
			domain.ErrVoucherMinimumNotMet, promo.MinOrder.StringFixed(2), subtotal.StringFixed(2))
	}

	return promo, promo.DiscountOn(subtotal), nil
}
