package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/storefront/internal/catalog/ports"
	orderports "github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/shopspring/decimal"
)

// Cart is an in-memory cart bound to one session or user.
type Cart struct {
	products ports.ProductRepository

	mu    sync.Mutex
	lines []orderports.CartLine
}

// NewCart constructs an empty cart over the product store.
func NewCart(products ports.ProductRepository) *Cart {
	return &Cart{products: products}
}

// Add puts quantity of a product into the cart, merging with an existing line.
func (c *Cart) Add(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, line := range c.lines {
		if line.ProductID == productID {
			c.lines[i].Quantity += quantity
			return
		}
	}
	c.lines = append(c.lines, orderports.CartLine{ProductID: productID, Quantity: quantity})
}

// Lines returns a snapshot of the cart's contents.
func (c *Cart) Lines(_ context.Context) ([]orderports.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]orderports.CartLine, len(c.lines))
	copy(snapshot, c.lines)
	return snapshot, nil
}

// Total sums base prices across the cart, before any discounts.
func (c *Cart) Total(ctx context.Context) (decimal.Decimal, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, line := range lines {
		product, err := c.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(product.BasePrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}

// Clear empties the cart.
func (c *Cart) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	return nil
}
