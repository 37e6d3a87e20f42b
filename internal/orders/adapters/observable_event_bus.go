package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/storefront/internal/events"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *events.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *events.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderPlaced(ctx context.Context, orderID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderPlaced")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("event.type", "order.placed"),
		attribute.String("topic", "order.placed"),
	)

	start := time.Now()
	err := e.bus.PublishOrderPlaced(ctx, orderID)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "order.placed", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, status domain.OrderStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderStatusChanged")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("event.type", "order.status_changed"),
		attribute.String("topic", "order.status_changed"),
		attribute.String("order.new_status", string(status)),
	)

	start := time.Now()
	err := e.bus.PublishOrderStatusChanged(ctx, orderID, status)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "order.status_changed", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishOrderCancelled(ctx context.Context, orderID string, reason string) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderCancelled")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("event.type", "order.cancelled"),
		attribute.String("topic", "order.cancelled"),
		attribute.String("cancel.reason", reason),
	)

	start := time.Now()
	err := e.bus.PublishOrderCancelled(ctx, orderID, reason)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "order.cancelled", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
