package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CountFunc reports the number of jobs per status.
type CountFunc func(ctx context.Context) (map[string]int64, error)

// RegisterQueueDepth exposes productory_jobs{status=...} as an observable gauge,
// sampled from count on every collection.
func RegisterQueueDepth(count CountFunc) (metric.Registration, error) {
	meter := otel.Meter("productory/queue")

	gauge, err := meter.Int64ObservableGauge("productory_jobs",
		metric.WithDescription("Number of jobs in each status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create queue depth gauge: %w", err)
	}

	reg, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		counts, err := count(ctx)
		if err != nil {
			return err
		}
		for status, n := range counts {
			o.ObserveInt64(gauge, n, metric.WithAttributes(attribute.String("status", status)))
		}
		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("failed to register queue depth callback: %w", err)
	}
	return reg, nil
}
