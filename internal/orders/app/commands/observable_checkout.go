package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCheckoutHandler struct {
	handler CheckoutHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCheckoutHandler(handler CheckoutHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCheckoutHandler {
	return &ObservableCheckoutHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCheckoutHandler) Handle(ctx context.Context, cmd CheckoutCommand, cart ports.CartProvider, actor ports.Actor) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		duration := time.Since(start).Seconds()
		o.metrics.RecordCheckoutDuration(ctx, duration)
		o.metrics.RecordCheckout(ctx, success)
	}()

	o.logger.InfoContext(ctx, "processing checkout",
		"user_id", actor.UserID,
		"delivery_method", cmd.DeliveryMethod,
		"payment_method", cmd.PaymentMethod,
		"has_voucher", cmd.VoucherCode != "",
	)

	order, err := o.handler.Handle(ctx, cmd, cart, actor)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "checkout failed",
			"error", err,
			"user_id", actor.UserID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.number", order.Number),
		attribute.String("order.status", string(order.Status)),
		attribute.String("order.total", order.Total.String()),
	)

	o.logger.InfoContext(ctx, "checkout completed",
		"order_id", order.ID,
		"order_number", order.Number,
		"total", order.Total.String(),
	)

	total, _ := order.Total.Float64()
	o.metrics.RecordOrderTotal(ctx, total)

	success = true
	telemetry.SetSpanSuccess(span)

	return order, nil
}
