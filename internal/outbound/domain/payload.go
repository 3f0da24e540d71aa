// Package domain defines the outbound delivery entities: payloads owned by the queue
// from enqueue until they are delivered, propagated or dropped.
package domain

import (
	"time"

	"github.com/allisson/missionhub/internal/errors"
)

// Queue errors.
var (
	// ErrQueueFull is returned by Enqueue when the new payload could not be admitted.
	ErrQueueFull = errors.New("outbound queue is full")

	// ErrQueueStopped is returned by Enqueue after Stop.
	ErrQueueStopped = errors.New("outbound queue is stopped")

	// ErrEvicted is reported to OnFailed when a queued payload makes room for a newer one.
	ErrEvicted = errors.New("payload evicted by a newer payload")

	// ErrStopTimeout is returned by Stop when workers did not exit in time.
	ErrStopTimeout = errors.New("outbound workers did not stop in time")
)

// Payload is one message awaiting delivery. The queue owns it from Enqueue onwards;
// callers must not modify it afterwards.
type Payload struct {
	ID string
	// Connection is an opaque transport handle, e.g. an established link.
	Connection any
	// Destination is the identity the payload is addressed to.
	Destination string
	// Fields are the structured message fields; Body is the encoded form when the
	// emitter already serialized it.
	Fields map[string]any
	Body   []byte
	// Attempts counts failed send attempts.
	Attempts int
	// NextAttemptAt is the earliest time of the next send attempt. Zero means now.
	NextAttemptAt time.Time
	EnqueuedAt    time.Time

	OnDelivered  func(p *Payload)
	OnFailed     func(p *Payload, err error)
	OnPropagated func(p *Payload)
}

// Ready reports whether the payload may be attempted at now.
func (p *Payload) Ready(now time.Time) bool {
	return !p.NextAttemptAt.After(now)
}

// Stats is a point-in-time view of the queue counters.
type Stats struct {
	Queued     int    `json:"queued"`
	InFlight   int    `json:"in_flight"`
	Delivered  uint64 `json:"delivered"`
	Retried    uint64 `json:"retried"`
	Evicted    uint64 `json:"evicted"`
	Dropped    uint64 `json:"dropped"`
	Propagated uint64 `json:"propagated"`
}
