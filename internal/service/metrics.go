package service

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "inventory-service"

type serviceMetrics struct {
	created         metric.Int64Counter
	rejected        metric.Int64Counter
	released        metric.Int64Counter
	expired         metric.Int64Counter
	consumed        metric.Int64Counter
	reserveDuration metric.Float64Histogram
}

func newServiceMetrics(meter metric.Meter) (*serviceMetrics, error) {
	var (
		m   serviceMetrics
		err error
	)
	if m.created, err = meter.Int64Counter("inventory.reservations.created",
		metric.WithDescription("Reservations granted")); err != nil {
		return nil, fmt.Errorf("created counter: %w", err)
	}
	if m.rejected, err = meter.Int64Counter("inventory.reservations.rejected",
		metric.WithDescription("Operations rejected by the engine, by error kind")); err != nil {
		return nil, fmt.Errorf("rejected counter: %w", err)
	}
	if m.released, err = meter.Int64Counter("inventory.reservations.released",
		metric.WithDescription("Reservations released by their owner")); err != nil {
		return nil, fmt.Errorf("released counter: %w", err)
	}
	if m.expired, err = meter.Int64Counter("inventory.reservations.expired",
		metric.WithDescription("Reservations retired after their TTL")); err != nil {
		return nil, fmt.Errorf("expired counter: %w", err)
	}
	if m.consumed, err = meter.Int64Counter("inventory.reservations.consumed",
		metric.WithDescription("Reservations turned into orders")); err != nil {
		return nil, fmt.Errorf("consumed counter: %w", err)
	}
	if m.reserveDuration, err = meter.Float64Histogram("inventory.reserve.duration",
		metric.WithDescription("Reserve latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("reserve histogram: %w", err)
	}
	return &m, nil
}
