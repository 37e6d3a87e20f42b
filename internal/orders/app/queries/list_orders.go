package queries

import (
	"context"
	"strings"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

const defaultPageSize = 20

// ListOrdersQuery represents a request for a page of orders, optionally
// narrowed by status or a free-text search term.
type ListOrdersQuery struct {
	Status     string
	SearchTerm string
	Page       int
	PageSize   int
	Actor      ports.Actor
}

// ListOrdersQueryHandler executes ListOrdersQuery against the repository.
type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

// NewListOrdersQueryHandler constructs a ListOrdersQueryHandler.
func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

// Handle executes the query. Listing the whole store is an admin operation;
// non-admin actors only ever see their own orders, filtered here after the
// repository scan so the same filter shape serves both.
func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error) {
	filter := ports.ListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}

	if status := strings.TrimSpace(query.Status); status != "" {
		parsed, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &parsed
	}

	var (
		orders []domain.Order
		err    error
	)
	if term := strings.TrimSpace(query.SearchTerm); term != "" {
		orders, err = h.repo.Search(ctx, term, filter)
	} else {
		orders, err = h.repo.List(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	if query.Actor.Admin {
		return orders, nil
	}

	own := orders[:0]
	for _, order := range orders {
		if order.OwnedBy(query.Actor.UserID) {
			own = append(own, order)
		}
	}
	return own, nil
}
