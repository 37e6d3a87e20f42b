package ports

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/shopspring/decimal"
)

// OrderRepository exposes persistence operations required by the application layer.
// Create persists the order with its items atomically; Update covers the
// status-machine and admin-edit mutations (items are immutable after commit).
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	Search(ctx context.Context, term string, filter ListFilter) ([]domain.Order, error)
	Update(ctx context.Context, order domain.Order) error

	RevenueSummary(ctx context.Context, from, to time.Time) (RevenueSummary, error)
	TopCustomers(ctx context.Context, limit int) ([]CustomerSales, error)
	CategorySales(ctx context.Context) ([]CategorySales, error)
}

// ListFilter narrows list queries by status and pagination.
type ListFilter struct {
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// RevenueSummary aggregates committed revenue over a period. Cancelled and
// failed orders are excluded.
type RevenueSummary struct {
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
	Discount decimal.Decimal `json:"discount"`
}

// CustomerSales ranks a customer by their total spend.
type CustomerSales struct {
	CustomerEmail string          `json:"customer_email"`
	Orders        int             `json:"orders"`
	Spent         decimal.Decimal `json:"spent"`
}

// CategorySales aggregates item revenue per product category.
type CategorySales struct {
	CategoryID string          `json:"category_id"`
	Units      int             `json:"units"`
	Revenue    decimal.Decimal `json:"revenue"`
}

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrNotAuthorized is returned when the actor may not touch the order.
	ErrNotAuthorized = errors.New("not authorized for this order")
)

// Actor identifies who is asking for an operation.
type Actor struct {
	UserID string
	Admin  bool
}
