package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type distinguishes how a promotion computes its discount.
type Type string

const (
	TypePercentage  Type = "percentage_discount"
	TypeFixedAmount Type = "fixed_amount_discount"
	TypeBuyXGetY    Type = "buy_x_get_y"
)

var (
	ErrVoucherNotFound      = errors.New("voucher not found")
	ErrVoucherExpired       = errors.New("voucher expired or inactive")
	ErrVoucherMinimumNotMet = errors.New("order subtotal below voucher minimum")
	ErrUsageLimitReached    = errors.New("promotion usage limit reached")
)

// Promotion is either an automatic discount scoped to products/categories or,
// when Code is set, an order-level voucher redeemed at checkout.
type Promotion struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        Type             `json:"type"`
	Percentage  decimal.Decimal  `json:"percentage"`
	Amount      decimal.Decimal  `json:"amount"`
	Code        string           `json:"code,omitempty"`
	ProductIDs  []string         `json:"product_ids,omitempty"`
	CategoryIDs []string         `json:"category_ids,omitempty"`
	BrandIDs    []string         `json:"brand_ids,omitempty"`
	Active      bool             `json:"active"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	MinOrder    *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxUsage    *int             `json:"max_usage,omitempty"`
	Usage       int              `json:"current_usage"`
	Priority    int              `json:"priority"`
	BuyQty      int              `json:"buy_qty,omitempty"`
	FreeQty     int              `json:"free_qty,omitempty"`
}

// CurrentlyActive reports whether the promotion may be applied at the given time.
func (p Promotion) CurrentlyActive(now time.Time) bool {
	if !p.Active {
		return false
	}
	if now.Before(p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	return true
}

// IsVoucher reports whether the promotion is redeemed by code.
func (p Promotion) IsVoucher() bool {
	return p.Code != ""
}

// MatchesCode compares voucher codes case-insensitively.
func (p Promotion) MatchesCode(code string) bool {
	return p.Code != "" && strings.EqualFold(p.Code, code)
}

// AppliesTo reports whether an automatic promotion is scoped to the product,
// directly or via its category or brand.
func (p Promotion) AppliesTo(productID, categoryID, brandID string) bool {
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	for _, id := range p.CategoryIDs {
		if id != "" && id == categoryID {
			return true
		}
	}
	for _, id := range p.BrandIDs {
		if id != "" && id == brandID {
			return true
		}
	}
	return false
}

// DiscountOn computes the discount this promotion grants on a flat amount.
// Buy-X-get-Y promotions are quantity-tiered and yield nothing here.
func (p Promotion) DiscountOn(amount decimal.Decimal) decimal.Decimal {
	switch p.Type {
	case TypePercentage:
		return amount.Mul(p.Percentage).Div(decimal.NewFromInt(100)).Round(2)
	case TypeFixedAmount:
		if p.Amount.GreaterThan(amount) {
			return amount
		}
		return p.Amount
	default:
		return decimal.Zero
	}
}

// UnitPrice computes the discounted per-unit price for a base price. For
// quantity-tiered promotions the unit price is unchanged.
func (p Promotion) UnitPrice(basePrice decimal.Decimal) decimal.Decimal {
	discounted := basePrice.Sub(p.DiscountOn(basePrice))
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}

// ExhaustedAt reports whether usage has reached the configured ceiling.
func (p Promotion) ExhaustedAt(usage int) bool {
	return p.MaxUsage != nil && usage >= *p.MaxUsage
}
