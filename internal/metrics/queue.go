package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueueDepth is a point-in-time view of the outbound queue.
type QueueDepth struct {
	Queued   int
	InFlight int
}

// RegisterQueueGauges exports the outbound queue depth, read from observe at each
// collection, as <namespace>_outbound_queue_payloads{state="queued"|"in_flight"}.
func RegisterQueueGauges(meterProvider metric.MeterProvider, namespace string, observe func() QueueDepth) error {
	meter := meterProvider.Meter(namespace)

	queuedAttrs := metric.WithAttributes(attribute.String("state", "queued"))
	inFlightAttrs := metric.WithAttributes(attribute.String("state", "in_flight"))

	_, err := meter.Int64ObservableGauge(
		namespace+"_outbound_queue_payloads",
		metric.WithDescription("Outbound payloads waiting or being sent"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			depth := observe()
			o.Observe(int64(depth.Queued), queuedAttrs)
			o.Observe(int64(depth.InFlight), inFlightAttrs)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbound queue gauge: %w", err)
	}
	return nil
}
