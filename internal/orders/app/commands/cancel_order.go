package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/catalog/ledger"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	promoports "github.com/dejobratic/storefront/internal/promotions/ports"
)

// CancelOrderHandler cancels an order and compensates its side effects:
// stock goes back to the ledger and a redeemed voucher's usage is released.
type CancelOrderHandler struct {
	orders     ports.OrderRepository
	stock      *ledger.Ledger
	promotions promoports.PromotionRepository
	events     ports.EventBus
	logger     *slog.Logger

	window time.Duration
	now    func() time.Time
}

// NewCancelOrderHandler constructs a CancelOrderHandler with the self-service
// cancellation window.
func NewCancelOrderHandler(
	orders ports.OrderRepository,
	stock *ledger.Ledger,
	promotions promoports.PromotionRepository,
	events ports.EventBus,
	logger *slog.Logger,
	window time.Duration,
	now func() time.Time,
) *CancelOrderHandler {
	if now == nil {
		now = time.Now
	}
	return &CancelOrderHandler{
		orders:     orders,
		stock:      stock,
		promotions: promotions,
		events:     events,
		logger:     logger,
		window:     window,
		now:        now,
	}
}

// Handle cancels the order on behalf of the actor. Owners may cancel within
// the window; administrators may cancel regardless of it, status permitting.
func (h *CancelOrderHandler) Handle(ctx context.Context, orderID, reason string, actor ports.Actor) (*domain.Order, error) {
	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !actor.Admin && !order.OwnedBy(actor.UserID) {
		return nil, ports.ErrNotAuthorized
	}

	now := h.now().UTC()

	if order.Status == domain.StatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	if !actor.Admin && !order.CanBeCancelled(now, h.window) {
		switch order.Status {
		case domain.StatusDelivered, domain.StatusReturned:
			return nil, domain.ErrNotCancellable
		}
		return nil, domain.ErrCancellationWindowClosed
	}

	if err := order.Cancel(reason, now); err != nil {
		return nil, err
	}

	if err := h.orders.Update(ctx, *order); err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}

	// Compensations after the cancellation is durable. Failures are logged;
	// the cancellation itself stands.
	for _, item := range order.Items {
		if err := h.stock.Increase(ctx, item.ProductID, item.Quantity); err != nil {
			h.logger.ErrorContext(ctx, "failed to restore stock on cancellation",
				"order_id", order.ID, "product_id", item.ProductID, "error", err)
		}
	}

	if order.PromotionID != "" {
		if err := h.promotions.DecrementUsage(ctx, order.PromotionID); err != nil {
			h.logger.ErrorContext(ctx, "failed to release voucher usage on cancellation",
				"order_id", order.ID, "promotion_id", order.PromotionID, "error", err)
		}
	}

	if err := h.events.PublishOrderCancelled(ctx, order.ID, reason); err != nil {
		h.logger.WarnContext(ctx, "failed to publish order cancelled event", "order_id", order.ID, "error", err)
	}

	return order, nil
}
