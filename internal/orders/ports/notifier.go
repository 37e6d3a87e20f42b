package ports

import (
	"context"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// Notifier sends customer-facing messages. Calls are fire-and-forget:
// failures are logged by callers and never fail the triggering operation.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order domain.Order) error
	SendShippingNotice(ctx context.Context, order domain.Order) error
}
