// Package eventlog keeps a bounded, in-memory operational audit trail.
//
// The log is independent of the mission domain's event sourcing: it records what the
// hub did (commands accepted, rejected or failed, grants revoked, payloads dropped) so
// operators can inspect recent activity and listeners can react to it.
package eventlog

import (
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 1000

// Entry is one audit record.
type Entry struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Listener is notified after every Add.
type Listener func(Entry)

// EventLog is a fixed-size ring of entries. Once full, each Add overwrites the oldest entry.
// It is safe for concurrent use.
type EventLog struct {
	mu        sync.RWMutex
	entries   []Entry
	next      int
	size      int
	listeners map[uint64]Listener
	nextID    uint64
	now       func() time.Time
}

// New creates an EventLog holding at most capacity entries.
func New(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventLog{
		entries:   make([]Entry, capacity),
		listeners: make(map[uint64]Listener),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Add appends an entry and notifies listeners. Listeners run synchronously on the
// caller's goroutine after the log lock has been released, so they may call back into the log.
func (l *EventLog) Add(eventType, message string, metadata map[string]any) Entry {
	entry := Entry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      eventType,
		Message:   message,
		Metadata:  maps.Clone(metadata),
		Timestamp: l.now(),
	}

	l.mu.Lock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.size < len(l.entries) {
		l.size++
	}
	listeners := make([]Listener, 0, len(l.listeners))
	for _, listener := range l.listeners {
		listeners = append(listeners, listener)
	}
	l.mu.Unlock()

	for _, listener := range listeners {
		listener(entry)
	}
	return entry
}

// Record is Add without the returned entry.
func (l *EventLog) Record(eventType, message string, metadata map[string]any) {
	l.Add(eventType, message, metadata)
}

// Subscribe registers listener and returns a function that removes it.
func (l *EventLog) Subscribe(listener Listener) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = listener
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.listeners, id)
			l.mu.Unlock()
		})
	}
}

// Recent returns up to limit entries, newest first. A non-positive limit returns all entries.
func (l *EventLog) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > l.size {
		limit = l.size
	}

	result := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		result = append(result, l.entries[idx])
	}
	return result
}

// Len returns the number of retained entries.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Capacity returns the maximum number of retained entries.
func (l *EventLog) Capacity() int {
	return len(l.entries)
}
