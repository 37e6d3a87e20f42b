package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/google/uuid"
)

// TrackingHandler assigns carrier tracking numbers. Assignment ships the
// order as a side effect and is guarded against overwriting.
type TrackingHandler struct {
	orders   ports.OrderRepository
	notifier ports.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewTrackingHandler constructs a TrackingHandler.
func NewTrackingHandler(orders ports.OrderRepository, notifier ports.Notifier, logger *slog.Logger, now func() time.Time) *TrackingHandler {
	if now == nil {
		now = time.Now
	}
	return &TrackingHandler{orders: orders, notifier: notifier, logger: logger, now: now}
}

// Assign sets the given tracking number on the order.
func (h *TrackingHandler) Assign(ctx context.Context, orderID, number string, actor ports.Actor) (*domain.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("tracking number is required")
	}
	return h.assign(ctx, orderID, number, actor)
}

// Generate derives a fresh tracking number and assigns it.
func (h *TrackingHandler) Generate(ctx context.Context, orderID string, actor ports.Actor) (*domain.Order, error) {
	number := "TRK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return h.assign(ctx, orderID, number, actor)
}

func (h *TrackingHandler) assign(ctx context.Context, orderID, number string, actor ports.Actor) (*domain.Order, error) {
	if !actor.Admin {
		return nil, ports.ErrNotAuthorized
	}

	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.AssignTracking(number, h.now().UTC()); err != nil {
		return nil, err
	}

	if err := h.orders.Update(ctx, *order); err != nil {
		return nil, fmt.Errorf("persist tracking assignment: %w", err)
	}

	if err := h.notifier.SendShippingNotice(ctx, *order); err != nil {
		h.logger.WarnContext(ctx, "failed to send shipping notice", "order_id", order.ID, "error", err)
	}

	return order, nil
}
