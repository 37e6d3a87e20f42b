package adapters

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// LogNotifier writes customer notifications to the log instead of sending
// them. Useful for local dev before wiring a mail provider.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a log-only notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, order domain.Order) error {
	n.logger.InfoContext(ctx, "notification::order_confirmation",
		"order_number", order.Number,
		"email", order.Customer.Email,
		"total", order.Total.String(),
	)
	return nil
}

func (n *LogNotifier) SendShippingNotice(ctx context.Context, order domain.Order) error {
	n.logger.InfoContext(ctx, "notification::shipping_notice",
		"order_number", order.Number,
		"email", order.Customer.Email,
		"tracking_number", order.TrackingNumber,
	)
	return nil
}
