package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status label values.
const (
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusRejected   = "rejected"
	StatusRetry      = "retry"
	StatusPropagated = "propagated"
	StatusEvicted    = "evicted"
	StatusDropped    = "dropped"
)

// BusinessMetrics records what the hub does: commands per namespace, capability
// checks and outbound deliveries.
type BusinessMetrics interface {
	// RecordOperation counts one operation. domain is the subsystem ("mission",
	// "checklist", "capability", "outbound"), operation the command type or action.
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration observes how long an operation took.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordDeliveryAttempts observes the send attempts of an outbound payload that
	// reached a terminal outcome (success, propagated or dropped).
	RecordDeliveryAttempts(ctx context.Context, outcome string, attempts int)
}

type otelBusinessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
	attempts   metric.Int64Histogram
}

// NewBusinessMetrics creates the instruments on a meter named after namespace. Every
// metric name is prefixed with namespace.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operations, err := meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Hub operations by domain, operation and status"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durations, err := meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Hub operation latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	attempts, err := meter.Int64Histogram(
		namespace+"_outbound_delivery_attempts",
		metric.WithDescription("Send attempts per settled outbound payload"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 8),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery attempts histogram: %w", err)
	}

	return &otelBusinessMetrics{
		operations: operations,
		durations:  durations,
		attempts:   attempts,
	}, nil
}

func operationAttributes(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *otelBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, operationAttributes(domain, operation, status))
}

func (b *otelBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), operationAttributes(domain, operation, status))
}

func (b *otelBusinessMetrics) RecordDeliveryAttempts(ctx context.Context, outcome string, attempts int) {
	b.attempts.Record(ctx, int64(attempts), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// NoOpBusinessMetrics discards everything. It is used when METRICS_ENABLED is false.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a BusinessMetrics that records nothing.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return NoOpBusinessMetrics{}
}

func (NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (NoOpBusinessMetrics) RecordDeliveryAttempts(context.Context, string, int) {}
