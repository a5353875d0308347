package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// RegisterDBPoolMetrics reports sql.DB pool statistics as observable gauges.
// The returned registration must be unregistered before the pool is closed.
func RegisterDBPoolMetrics(meter metric.Meter, db *sql.DB) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if db == nil {
		return nil, fmt.Errorf("telemetry: sql.DB is nil")
	}

	connections, err := meter.Int64ObservableGauge("portal_db_pool_connections",
		metric.WithDescription("Database pool connections by state"),
		metric.WithUnit("{connections}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool connections gauge: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge("portal_db_pool_max_open",
		metric.WithDescription("Maximum open database connections"),
		metric.WithUnit("{connections}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool max gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("portal_db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{waits}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool wait counter: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := db.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBPool.String("in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBPool.String("idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, connections, maxOpen, waits)
}
