package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// ErrCancelViaStatusChange is returned when a status update asks for
// cancelled. Cancellation restores stock and releases voucher usage, so it
// must run through the cancel operation, never the generic status path.
var ErrCancelViaStatusChange = errors.New("cancellation must use the cancel operation")

// UpdateStatusHandler drives admin status transitions and schedules the
// deferred confirmed-to-processing move after payment confirmation.
type UpdateStatusHandler struct {
	orders   ports.OrderRepository
	events   ports.EventBus
	notifier ports.Notifier
	logger   *slog.Logger

	processingDelay time.Duration
	now             func() time.Time
	schedule        func(d time.Duration, fn func())
}

// NewUpdateStatusHandler constructs an UpdateStatusHandler. The scheduler is
// injectable for tests; nil falls back to time.AfterFunc.
func NewUpdateStatusHandler(
	orders ports.OrderRepository,
	events ports.EventBus,
	notifier ports.Notifier,
	logger *slog.Logger,
	processingDelay time.Duration,
	now func() time.Time,
	schedule func(d time.Duration, fn func()),
) *UpdateStatusHandler {
	if now == nil {
		now = time.Now
	}
	if schedule == nil {
		schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	return &UpdateStatusHandler{
		orders:          orders,
		events:          events,
		notifier:        notifier,
		logger:          logger,
		processingDelay: processingDelay,
		now:             now,
		schedule:        schedule,
	}
}

// Handle applies a status transition requested by an administrator.
func (h *UpdateStatusHandler) Handle(ctx context.Context, orderID string, newStatus domain.OrderStatus, actor ports.Actor) (*domain.Order, error) {
	if !actor.Admin {
		return nil, ports.ErrNotAuthorized
	}

	if newStatus == domain.StatusCancelled {
		return nil, ErrCancelViaStatusChange
	}

	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.ChangeStatus(newStatus, h.now().UTC()); err != nil {
		return nil, err
	}

	if err := h.orders.Update(ctx, *order); err != nil {
		return nil, fmt.Errorf("persist status change: %w", err)
	}

	if err := h.events.PublishOrderStatusChanged(ctx, order.ID, newStatus); err != nil {
		h.logger.WarnContext(ctx, "failed to publish status change event", "order_id", order.ID, "error", err)
	}

	switch newStatus {
	case domain.StatusConfirmed:
		if h.processingDelay > 0 {
			h.scheduleProcessing(order.ID)
		}
	case domain.StatusShipped:
		if err := h.notifier.SendShippingNotice(ctx, *order); err != nil {
			h.logger.WarnContext(ctx, "failed to send shipping notice", "order_id", order.ID, "error", err)
		}
	}

	return order, nil
}

func (h *UpdateStatusHandler) scheduleProcessing(orderID string) {
	h.schedule(h.processingDelay, func() {
		if err := h.PromoteIfStillConfirmed(context.Background(), orderID); err != nil {
			h.logger.Error("deferred processing transition failed", "order_id", orderID, "error", err)
		}
	})
}

// PromoteIfStillConfirmed moves a confirmed order to processing. It is a
// no-op when the order has moved on in the meantime: the guard against a
// stale deferred transition.
func (h *UpdateStatusHandler) PromoteIfStillConfirmed(ctx context.Context, orderID string) error {
	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Status != domain.StatusConfirmed {
		return nil
	}

	if err := order.ChangeStatus(domain.StatusProcessing, h.now().UTC()); err != nil {
		return err
	}

	if err := h.orders.Update(ctx, *order); err != nil {
		return fmt.Errorf("persist deferred processing transition: %w", err)
	}

	if err := h.events.PublishOrderStatusChanged(ctx, order.ID, domain.StatusProcessing); err != nil {
		h.logger.Warn("failed to publish status change event", "order_id", order.ID, "error", err)
	}

	return nil
}
