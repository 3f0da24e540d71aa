package usecase

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/missionhub/internal/errors"
	"github.com/allisson/missionhub/internal/metrics"
	"github.com/allisson/missionhub/internal/outbound/domain"
)

const (
	metricsDomain       = "outbound"
	defaultPollInterval = 10 * time.Millisecond
	idleWait            = time.Second
)

// Queue implements UseCase.
type Queue struct {
	config      Config
	transport   Transport
	propagation PropagationStore
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	pending  []*domain.Payload
	inFlight int
	started  bool
	stopped  bool
	stats    domain.Stats

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a Queue. When transport also implements PropagationStore it is used
// as the fallback after MaxAttempts failures.
func NewQueue(
	config Config,
	transport Transport,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Queue {
	if config.Capacity < 1 {
		config.Capacity = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	q := &Queue{
		config:    config,
		transport: transport,
		metrics:   businessMetrics,
		logger:    logger,
		now:       time.Now,
		wake:      make(chan struct{}, config.Workers),
	}
	if store, ok := transport.(PropagationStore); ok {
		q.propagation = store
	}
	return q
}

// Start launches the worker pool. Payloads enqueued before Start are kept.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return domain.ErrQueueStopped
	}
	if q.started {
		return nil
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))

	q.logger.Info("starting outbound queue",
		slog.Int("workers", q.config.Workers),
		slog.Int("capacity", q.config.Capacity),
		slog.Int("max_attempts", q.config.MaxAttempts),
	)
	for range q.config.Workers {
		q.wg.Add(1)
		go q.work()
	}
	q.signal(len(q.pending))
	return nil
}

// Enqueue admits p. On a full queue the oldest queued payload is evicted first; if the
// queue is still full p is dropped and ErrQueueFull returned.
func (q *Queue) Enqueue(p *domain.Payload) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return domain.ErrQueueStopped
	}
	if p.ID == "" {
		p.ID = uuid.Must(uuid.NewV7()).String()
	}
	if p.EnqueuedAt.IsZero() {
		p.EnqueuedAt = q.now()
	}
	evicted, admitted := q.admit(p)
	q.signal(1)
	q.mu.Unlock()

	if evicted != nil {
		q.evicted(evicted)
	}
	if !admitted {
		q.dropped(p, domain.ErrQueueFull)
		return domain.ErrQueueFull
	}
	return nil
}

// admit appends p, evicting the oldest queued payload when full. Caller holds mu.
func (q *Queue) admit(p *domain.Payload) (evicted *domain.Payload, admitted bool) {
	if len(q.pending) >= q.config.Capacity {
		evicted = q.pending[0]
		q.pending = slices.Delete(q.pending, 0, 1)
		q.stats.Evicted++
	}
	if len(q.pending) >= q.config.Capacity {
		q.stats.Dropped++
		return evicted, false
	}
	q.pending = append(q.pending, p)
	return evicted, true
}

// signal wakes up to n idle workers. Caller holds mu.
func (q *Queue) signal(n int) {
	for range min(n, cap(q.wake)) {
		select {
		case q.wake <- struct{}{}:
		default:
			return
		}
	}
}

// WaitForFlush polls until nothing is queued or in flight, or timeout elapses.
func (q *Queue) WaitForFlush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		idle := len(q.pending) == 0 && q.inFlight == 0
		q.mu.Unlock()
		if idle {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(q.config.PollInterval)
	}
}

// Stop signals the workers and waits up to StopTimeout for them to exit. Sends still
// blocked in a transport are not interrupted beyond the cancellation of their context.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	started := q.started
	remaining := len(q.pending)
	q.mu.Unlock()

	if !started {
		return nil
	}
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("outbound queue stopped", slog.Int("queued", remaining))
		return nil
	case <-time.After(q.config.StopTimeout):
		q.logger.Warn("outbound queue stop timed out", slog.Duration("stop_timeout", q.config.StopTimeout))
		return domain.ErrStopTimeout
	}
}

// Stats returns the current counters.
func (q *Queue) Stats() domain.Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.Queued = len(q.pending)
	stats.InFlight = q.inFlight
	return stats
}

func (q *Queue) work() {
	defer q.wg.Done()

	for {
		p, wait, ok := q.next()
		if !ok {
			return
		}
		if p == nil {
			timer := time.NewTimer(wait)
			select {
			case <-q.ctx.Done():
				timer.Stop()
				return
			case <-q.wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}
		q.deliver(p)
	}
}

// next takes the oldest ready payload. When none is ready it returns how long to wait
// for the earliest scheduled retry.
func (q *Queue) next() (*domain.Payload, time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return nil, 0, false
	}

	now := q.now()
	wait := idleWait
	for idx, p := range q.pending {
		if p.Ready(now) {
			q.pending = slices.Delete(q.pending, idx, idx+1)
			q.inFlight++
			q.signal(q.readyCount(now))
			return p, 0, true
		}
		wait = min(wait, p.NextAttemptAt.Sub(now))
	}
	return nil, wait, true
}

// readyCount counts queued payloads that may be attempted at now. Caller holds mu.
func (q *Queue) readyCount(now time.Time) int {
	count := 0
	for _, p := range q.pending {
		if p.Ready(now) {
			count++
		}
	}
	return count
}

func (q *Queue) deliver(p *domain.Payload) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(q.ctx, q.config.SendTimeout)
	err := q.transport.Send(ctx, p)
	cancel()

	if err == nil {
		q.metrics.RecordDuration(q.ctx, metricsDomain, "send", time.Since(start), metrics.StatusSuccess)
		q.finish(func(stats *domain.Stats) { stats.Delivered++ })
		q.metrics.RecordOperation(q.ctx, metricsDomain, "deliver", metrics.StatusSuccess)
		q.metrics.RecordDeliveryAttempts(q.ctx, metrics.StatusSuccess, p.Attempts+1)
		q.logger.Debug("payload delivered",
			slog.String("payload_id", p.ID),
			slog.String("destination", p.Destination),
			slog.Int("attempts", p.Attempts+1),
		)
		if p.OnDelivered != nil {
			p.OnDelivered(p)
		}
		return
	}
	q.metrics.RecordDuration(q.ctx, metricsDomain, "send", time.Since(start), metrics.StatusError)

	p.Attempts++
	if p.Attempts < q.config.MaxAttempts {
		q.retry(p, err)
		return
	}

	q.logger.Warn("payload delivery attempts exhausted",
		slog.String("payload_id", p.ID),
		slog.String("destination", p.Destination),
		slog.Int("attempts", p.Attempts),
		slog.Any("error", err),
	)
	q.fallback(p, err)
}

// retry requeues p after a linear backoff.
func (q *Queue) retry(p *domain.Payload, cause error) {
	p.NextAttemptAt = q.now().Add(time.Duration(p.Attempts) * q.config.Backoff)

	q.mu.Lock()
	evicted, admitted := q.admit(p)
	q.stats.Retried++
	q.inFlight--
	q.signal(1)
	q.mu.Unlock()

	q.metrics.RecordOperation(q.ctx, metricsDomain, "deliver", metrics.StatusRetry)
	q.logger.Debug("payload send failed, retrying",
		slog.String("payload_id", p.ID),
		slog.Int("attempts", p.Attempts),
		slog.Time("next_attempt_at", p.NextAttemptAt),
		slog.Any("error", cause),
	)

	if evicted != nil {
		q.evicted(evicted)
	}
	if !admitted {
		q.dropped(p, apperrors.Join(domain.ErrQueueFull, cause))
	}
}

// fallback hands p to the propagation store, or drops it when there is none.
func (q *Queue) fallback(p *domain.Payload, cause error) {
	if q.propagation == nil {
		q.finish(func(stats *domain.Stats) { stats.Dropped++ })
		q.metrics.RecordDeliveryAttempts(q.ctx, metrics.StatusDropped, p.Attempts)
		q.dropped(p, cause)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.SendTimeout)
	err := q.propagation.Propagate(ctx, p)
	cancel()

	if err != nil {
		q.finish(func(stats *domain.Stats) { stats.Dropped++ })
		q.metrics.RecordDeliveryAttempts(q.ctx, metrics.StatusDropped, p.Attempts)
		q.dropped(p, apperrors.Join(cause, apperrors.Wrap(err, "propagation failed")))
		return
	}

	q.finish(func(stats *domain.Stats) { stats.Propagated++ })
	q.metrics.RecordOperation(q.ctx, metricsDomain, "deliver", metrics.StatusPropagated)
	q.metrics.RecordDeliveryAttempts(q.ctx, metrics.StatusPropagated, p.Attempts)
	q.logger.Info("payload handed to propagation",
		slog.String("payload_id", p.ID),
		slog.String("destination", p.Destination),
	)
	if p.OnPropagated != nil {
		p.OnPropagated(p)
	}
}

// finish releases the in-flight slot of a payload that reached a terminal state.
func (q *Queue) finish(update func(stats *domain.Stats)) {
	q.mu.Lock()
	q.inFlight--
	update(&q.stats)
	q.mu.Unlock()
}

func (q *Queue) evicted(p *domain.Payload) {
	q.metrics.RecordOperation(context.Background(), metricsDomain, "deliver", metrics.StatusEvicted)
	q.logger.Warn("outbound queue full, evicted oldest payload",
		slog.String("payload_id", p.ID),
		slog.String("destination", p.Destination),
	)
	if p.OnFailed != nil {
		p.OnFailed(p, domain.ErrEvicted)
	}
}

func (q *Queue) dropped(p *domain.Payload, err error) {
	q.metrics.RecordOperation(context.Background(), metricsDomain, "deliver", metrics.StatusDropped)
	q.logger.Warn("payload dropped",
		slog.String("payload_id", p.ID),
		slog.String("destination", p.Destination),
		slog.Int("attempts", p.Attempts),
		slog.Any("error", err),
	)
	if p.OnFailed != nil {
		p.OnFailed(p, err)
	}
}
