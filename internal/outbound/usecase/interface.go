// Package usecase implements the outbound message queue: a bounded queue drained by a
// fixed worker pool with per-attempt timeouts, linear backoff, oldest-first eviction
// and a store-and-forward fallback once the attempts are exhausted.
package usecase

import (
	"context"
	"time"

	"github.com/allisson/missionhub/internal/outbound/domain"
)

// Transport sends one payload. Send must honor ctx or be wrapped with Watchdog.
type Transport interface {
	Send(ctx context.Context, p *domain.Payload) error
}

// PropagationStore hands a payload to a store-and-forward path for later pickup.
// A Transport that also implements PropagationStore is used as the fallback.
type PropagationStore interface {
	Propagate(ctx context.Context, p *domain.Payload) error
}

// Config holds outbound queue configuration.
type Config struct {
	Capacity    int
	Workers     int
	SendTimeout time.Duration
	MaxAttempts int
	// Backoff is the linear retry unit: the n-th failure waits n*Backoff.
	Backoff     time.Duration
	StopTimeout time.Duration
	// PollInterval bounds WaitForFlush polling. Defaults to 10ms.
	PollInterval time.Duration
}

// UseCase defines the outbound queue operations.
type UseCase interface {
	Start(ctx context.Context) error
	Enqueue(p *domain.Payload) error
	WaitForFlush(timeout time.Duration) bool
	Stop() error
	Stats() domain.Stats
}
