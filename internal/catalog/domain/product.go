package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductStatus captures a product's availability on the storefront.
type ProductStatus string

const (
	StatusActive   ProductStatus = "active"
	StatusInactive ProductStatus = "inactive"
	StatusDraft    ProductStatus = "draft"
	StatusSoldOut  ProductStatus = "sold_out"
)

var (
	// ErrInsufficientStock is returned when a decrement asks for more units than available.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for zero or negative stock adjustments.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Product is the catalog's view of a sellable item. The order engine reads
// price, category and promotion attachment, and owns stock via the ledger.
type Product struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	CategoryID      string           `json:"category_id"`
	BrandID         string           `json:"brand_id"`
	BasePrice       decimal.Decimal  `json:"base_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Stock           int              `json:"stock"`
	Status          ProductStatus    `json:"status"`
	PromotionID     string           `json:"promotion_id,omitempty"`
}

// DecreaseStock subtracts quantity, flipping an active product to sold_out on
// reaching zero. Manual statuses (inactive/draft) are never overridden.
func (p *Product) DecreaseStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return fmt.Errorf("%w: product %s has %d, requested %d", ErrInsufficientStock, p.ID, p.Stock, quantity)
	}

	p.Stock -= quantity
	if p.Stock == 0 && p.Status == StatusActive {
		p.Status = StatusSoldOut
	}
	return nil
}

// IncreaseStock adds quantity, flipping sold_out back to active on the
// zero-to-positive edge only.
func (p *Product) IncreaseStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	prior := p.Stock
	p.Stock += quantity
	if prior == 0 && p.Status == StatusSoldOut {
		p.Status = StatusActive
	}
	return nil
}

// Purchasable reports whether the product can appear on a new order.
func (p Product) Purchasable() bool {
	return p.Status == StatusActive && p.Stock > 0
}
