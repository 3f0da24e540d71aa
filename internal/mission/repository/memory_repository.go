package repository

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"

	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
)

// MemoryEventRepository keeps domain events in process memory.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []missionDomain.DomainEvent
}

// Append stores a copy of the event.
func (r *MemoryEventRepository) Append(_ context.Context, event *missionDomain.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	stored.Payload = maps.Clone(event.Payload)
	r.events = append(r.events, stored)
	return nil
}

// List returns events matching filter, newest first.
func (r *MemoryEventRepository) List(
	_ context.Context,
	filter missionDomain.EventFilter,
) ([]*missionDomain.DomainEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*missionDomain.DomainEvent, 0)
	for i := len(r.events) - 1; i >= 0; i-- {
		event := r.events[i]
		if filter.AggregateType != "" && event.AggregateType != filter.AggregateType {
			continue
		}
		if filter.AggregateUID != "" && event.AggregateUID != filter.AggregateUID {
			continue
		}
		event.Payload = maps.Clone(event.Payload)
		events = append(events, &event)
		if filter.Limit > 0 && len(events) == filter.Limit {
			break
		}
	}
	return events, nil
}

// DeleteBefore removes events created before cutoff.
func (r *MemoryEventRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.events)
	r.events = slices.DeleteFunc(r.events, func(e missionDomain.DomainEvent) bool {
		return e.CreatedAt.Before(cutoff)
	})
	return int64(before - len(r.events)), nil
}

// Checkpoint captures the stored events and returns a function restoring them.
func (r *MemoryEventRepository) Checkpoint() func() {
	r.mu.RLock()
	events := slices.Clone(r.events)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.events = events
		r.mu.Unlock()
	}
}

// NewMemoryEventRepository creates an empty in-memory event repository.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

// MemorySnapshotRepository keeps aggregate snapshots in process memory.
type MemorySnapshotRepository struct {
	mu        sync.RWMutex
	snapshots []missionDomain.DomainSnapshot
}

// Create stores a copy of the snapshot.
func (r *MemorySnapshotRepository) Create(_ context.Context, snapshot *missionDomain.DomainSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *snapshot
	stored.State = slices.Clone(snapshot.State)
	r.snapshots = append(r.snapshots, stored)
	return nil
}

// LatestVersion returns the highest stored version of an aggregate, or 0 when none exists.
func (r *MemorySnapshotRepository) LatestVersion(
	_ context.Context,
	domain, aggregateType, aggregateUID string,
) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := 0
	for _, s := range r.snapshots {
		if s.Domain == domain && s.AggregateType == aggregateType && s.AggregateUID == aggregateUID {
			latest = max(latest, s.Version)
		}
	}
	return latest, nil
}

// ListByAggregate returns the snapshots of an aggregate ordered by version.
func (r *MemorySnapshotRepository) ListByAggregate(
	_ context.Context,
	aggregateType, aggregateUID string,
) ([]*missionDomain.DomainSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]*missionDomain.DomainSnapshot, 0)
	for _, s := range r.snapshots {
		if s.AggregateType == aggregateType && s.AggregateUID == aggregateUID {
			s.State = json.RawMessage(slices.Clone(s.State))
			snapshots = append(snapshots, &s)
		}
	}
	slices.SortStableFunc(snapshots, func(a, b *missionDomain.DomainSnapshot) int {
		return a.Version - b.Version
	})
	return snapshots, nil
}

// DeleteBefore removes snapshots created before cutoff.
func (r *MemorySnapshotRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.snapshots)
	r.snapshots = slices.DeleteFunc(r.snapshots, func(s missionDomain.DomainSnapshot) bool {
		return s.CreatedAt.Before(cutoff)
	})
	return int64(before - len(r.snapshots)), nil
}

// Checkpoint captures the stored snapshots and returns a function restoring them.
func (r *MemorySnapshotRepository) Checkpoint() func() {
	r.mu.RLock()
	snapshots := slices.Clone(r.snapshots)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.snapshots = snapshots
		r.mu.Unlock()
	}
}

// NewMemorySnapshotRepository creates an empty in-memory snapshot repository.
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{}
}
