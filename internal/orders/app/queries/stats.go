package queries

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/storefront/internal/orders/ports"
)

const defaultTopCustomers = 10

// RevenueSummaryQuery asks for committed revenue over a closed date range.
type RevenueSummaryQuery struct {
	From  time.Time
	To    time.Time
	Actor ports.Actor
}

// StatsQueryHandler serves the admin reporting queries.
type StatsQueryHandler struct {
	repo ports.OrderRepository
}

// NewStatsQueryHandler constructs a StatsQueryHandler.
func NewStatsQueryHandler(repo ports.OrderRepository) *StatsQueryHandler {
	return &StatsQueryHandler{repo: repo}
}

// RevenueSummary aggregates order count, revenue and granted discounts over
// the period. Cancelled and failed orders never count.
func (h *StatsQueryHandler) RevenueSummary(ctx context.Context, query RevenueSummaryQuery) (ports.RevenueSummary, error) {
	if !query.Actor.Admin {
		return ports.RevenueSummary{}, ports.ErrNotAuthorized
	}
	if query.To.Before(query.From) {
		return ports.RevenueSummary{}, errors.New("date range end precedes start")
	}
	return h.repo.RevenueSummary(ctx, query.From, query.To)
}

// TopCustomers ranks customers by total spend.
func (h *StatsQueryHandler) TopCustomers(ctx context.Context, limit int, actor ports.Actor) ([]ports.CustomerSales, error) {
	if !actor.Admin {
		return nil, ports.ErrNotAuthorized
	}
	if limit < 1 {
		limit = defaultTopCustomers
	}
	return h.repo.TopCustomers(ctx, limit)
}

// CategorySales aggregates item revenue per product category.
func (h *StatsQueryHandler) CategorySales(ctx context.Context, actor ports.Actor) ([]ports.CategorySales, error) {
	if !actor.Admin {
		return nil, ports.ErrNotAuthorized
	}
	return h.repo.CategorySales(ctx)
}
