package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	checkoutsTotal      metric.Int64Counter
	checkoutDuration    metric.Float64Histogram
	cancellationsTotal  metric.Int64Counter
	statusChangesTotal  metric.Int64Counter
	checkoutOrderTotals metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.checkoutsTotal, err = meter.Int64Counter(
		"checkouts_total",
		metric.WithDescription("Total number of checkout attempts"),
		metric.WithUnit("{checkout}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkouts_total counter: %w", err)
	}

	m.checkoutDuration, err = meter.Float64Histogram(
		"checkout_duration_seconds",
		metric.WithDescription("Duration of checkout operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_duration histogram: %w", err)
	}

	m.cancellationsTotal, err = meter.Int64Counter(
		"order_cancellations_total",
		metric.WithDescription("Total number of order cancellations"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_cancellations_total counter: %w", err)
	}

	m.statusChangesTotal, err = meter.Int64Counter(
		"order_status_changes_total",
		metric.WithDescription("Total number of order status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_status_changes_total counter: %w", err)
	}

	m.checkoutOrderTotals, err = meter.Float64Histogram(
		"checkout_order_total",
		metric.WithDescription("Grand total of successfully placed orders"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_order_total histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordCheckout(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.checkoutsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordCheckoutDuration(ctx context.Context, durationSeconds float64) {
	m.checkoutDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordOrderTotal(ctx context.Context, total float64) {
	m.checkoutOrderTotals.Record(ctx, total)
}

func (m *Metrics) RecordCancellation(ctx context.Context, byAdmin bool) {
	actor := "customer"
	if byAdmin {
		actor = "admin"
	}
	m.cancellationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("actor", actor),
	))
}

func (m *Metrics) RecordStatusChange(ctx context.Context, status string) {
	m.statusChangesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to_status", status),
	))
}
