package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartLine is one product/quantity pair read from the pre-checkout cart.
type CartLine struct {
	ProductID string
	Quantity  int
}

// CartProvider abstracts the session-scoped guest cart and the persistent
// user cart behind one contract; the orchestrator never knows which is active.
type CartProvider interface {
	Lines(ctx context.Context) ([]CartLine, error)
	Total(ctx context.Context) (decimal.Decimal, error)
	Clear(ctx context.Context) error
}
