package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/shopspring/decimal"
)

// Repository provides an in-memory store useful for local development and tests.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

// Create stores a new order instance.
func (r *Repository) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

// GetByID fetches a single order by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := order
	return &copy, nil
}

// List returns orders respecting the provided filter. Pagination is 1-based.
func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paginate(r.filtered(filter, ""), filter), nil
}

// Search matches the term against order number, customer email and tracking
// number, case-insensitively.
func (r *Repository) Search(_ context.Context, term string, filter ports.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paginate(r.filtered(filter, term), filter), nil
}

// Update replaces the stored order.
func (r *Repository) Update(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return ports.ErrNotFound
	}
	r.orders[order.ID] = order
	return nil
}

// RevenueSummary aggregates revenue over the period, skipping cancelled and
// failed orders.
func (r *Repository) RevenueSummary(_ context.Context, from, to time.Time) (ports.RevenueSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := ports.RevenueSummary{
		Revenue:  decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, order := range r.orders {
		if !countsAsRevenue(order) {
			continue
		}
		if order.CreatedAt.Before(from) || order.CreatedAt.After(to) {
			continue
		}
		summary.Orders++
		summary.Revenue = summary.Revenue.Add(order.Total)
		summary.Discount = summary.Discount.Add(order.DiscountAmount)
	}
	return summary, nil
}

// TopCustomers ranks customers by total spend.
func (r *Repository) TopCustomers(_ context.Context, limit int) ([]ports.CustomerSales, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byEmail := make(map[string]*ports.CustomerSales)
	for _, order := range r.orders {
		if !countsAsRevenue(order) {
			continue
		}
		entry, ok := byEmail[order.Customer.Email]
		if !ok {
			entry = &ports.CustomerSales{CustomerEmail: order.Customer.Email, Spent: decimal.Zero}
			byEmail[order.Customer.Email] = entry
		}
		entry.Orders++
		entry.Spent = entry.Spent.Add(order.Total)
	}

	result := make([]ports.CustomerSales, 0, len(byEmail))
	for _, entry := range byEmail {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Spent.GreaterThan(result[j].Spent)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CategorySales aggregates item revenue per product category.
func (r *Repository) CategorySales(_ context.Context) ([]ports.CategorySales, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCategory := make(map[string]*ports.CategorySales)
	for _, order := range r.orders {
		if !countsAsRevenue(order) {
			continue
		}
		for _, item := range order.Items {
			entry, ok := byCategory[item.CategoryID]
			if !ok {
				entry = &ports.CategorySales{CategoryID: item.CategoryID, Revenue: decimal.Zero}
				byCategory[item.CategoryID] = entry
			}
			entry.Units += item.Quantity
			entry.Revenue = entry.Revenue.Add(item.LineTotal)
		}
	}

	result := make([]ports.CategorySales, 0, len(byCategory))
	for _, entry := range byCategory {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Revenue.GreaterThan(result[j].Revenue)
	})
	return result, nil
}

func (r *Repository) filtered(filter ports.ListFilter, term string) []domain.Order {
	term = strings.ToLower(strings.TrimSpace(term))

	var result []domain.Order
	for _, order := range r.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if term != "" && !matches(order, term) {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func matches(order domain.Order, term string) bool {
	return strings.Contains(strings.ToLower(order.Number), term) ||
		strings.Contains(strings.ToLower(order.Customer.Email), term) ||
		strings.Contains(strings.ToLower(order.TrackingNumber), term)
}

func paginate(result []domain.Order, filter ports.ListFilter) []domain.Order {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Order{}
	}

	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}

	slice := make([]domain.Order, end-start)
	copy(slice, result[start:end])
	return slice
}

func countsAsRevenue(order domain.Order) bool {
	switch order.Status {
	case domain.StatusCancelled, domain.StatusFailed, domain.StatusRefunded:
		return false
	}
	return true
}
