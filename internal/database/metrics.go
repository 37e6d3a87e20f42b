package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-operation query telemetry for the repositories.
type Metrics struct {
	queryDuration metric.Float64Histogram
	queriesTotal  metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.queriesTotal, err = meter.Int64Counter(
		"db_queries_total",
		metric.WithDescription("Total database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_queries_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, operation string, durationSeconds float64) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.queriesTotal.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, durationSeconds, attrs)
}
