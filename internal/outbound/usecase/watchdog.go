package usecase

import (
	"context"

	"github.com/allisson/missionhub/internal/outbound/domain"
)

// Watchdog wraps a transport whose Send ignores context cancellation. Each send runs on
// a disposable goroutine and the attempt fails as soon as ctx is done; the goroutine
// is abandoned until the underlying call returns. The propagation path, when present,
// is wrapped the same way.
func Watchdog(t Transport) Transport {
	w := &watchdog{next: t}
	if store, ok := t.(PropagationStore); ok {
		return &propagatingWatchdog{watchdog: w, store: store}
	}
	return w
}

type watchdog struct {
	next Transport
}

func (w *watchdog) Send(ctx context.Context, p *domain.Payload) error {
	return guard(ctx, func() error { return w.next.Send(ctx, p) })
}

type propagatingWatchdog struct {
	*watchdog
	store PropagationStore
}

func (w *propagatingWatchdog) Propagate(ctx context.Context, p *domain.Payload) error {
	return guard(ctx, func() error { return w.store.Propagate(ctx, p) })
}

func guard(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- call()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
