package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dejobratic/storefront/internal/catalog/ports"
)

// Ledger owns authoritative stock quantities. Every adjustment runs under a
// per-product lock so the read-check-write of a decrement is a single atomic
// unit and concurrent checkouts cannot drive stock negative.
type Ledger struct {
	products ports.ProductRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a Ledger over the given product store.
func New(products ports.ProductRepository) *Ledger {
	return &Ledger{
		products: products,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Decrease subtracts quantity from the product's stock. It fails with
// domain.ErrInsufficientStock when quantity exceeds the current stock, leaving
// the stock untouched. Reaching zero flips an active product to sold_out.
func (l *Ledger) Decrease(ctx context.Context, productID string, quantity int) error {
	lock := l.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	product, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product for stock decrease: %w", err)
	}

	if err := product.DecreaseStock(quantity); err != nil {
		return err
	}

	if err := l.products.UpdateStock(ctx, productID, product.Stock, product.Status); err != nil {
		return fmt.Errorf("persist stock decrease: %w", err)
	}
	return nil
}

// Increase adds quantity to the product's stock. Leaving zero flips a
// sold_out product back to active; manual statuses are preserved.
func (l *Ledger) Increase(ctx context.Context, productID string, quantity int) error {
	lock := l.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	product, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product for stock increase: %w", err)
	}

	if err := product.IncreaseStock(quantity); err != nil {
		return err
	}

	if err := l.products.UpdateStock(ctx, productID, product.Stock, product.Status); err != nil {
		return fmt.Errorf("persist stock increase: %w", err)
	}
	return nil
}

func (l *Ledger) lockFor(productID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[productID] = lock
	}
	return lock
}
