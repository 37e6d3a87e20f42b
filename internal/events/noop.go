package events

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// NoopEventBus logs events without sending them to a broker. Useful for local
// dev before wiring a real transport.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishOrderPlaced(_ context.Context, orderID string) error {
	slog.Debug("event::order_placed", "order_id", orderID)
	return nil
}

func (n *NoopEventBus) PublishOrderStatusChanged(_ context.Context, orderID string, status domain.OrderStatus) error {
	slog.Debug("event::order_status_changed", "order_id", orderID, "status", string(status))
	return nil
}

func (n *NoopEventBus) PublishOrderCancelled(_ context.Context, orderID string, reason string) error {
	slog.Debug("event::order_cancelled", "order_id", orderID, "reason", reason)
	return nil
}
