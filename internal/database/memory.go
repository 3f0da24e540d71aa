package database

import (
	"context"
	"sync"
)

// Checkpointer is implemented by in-memory repositories taking part in a MemoryTxManager
// transaction. Checkpoint captures the current state and returns a function restoring it.
type Checkpointer interface {
	Checkpoint() (restore func())
}

type memoryTxKey struct{}

// MemoryTxManager gives in-memory repositories the same per-call atomicity as a SQL
// transaction: calls are serialized and every participant is restored when fn fails.
type MemoryTxManager struct {
	mu           sync.Mutex
	participants []Checkpointer
}

// NewMemoryTxManager creates a MemoryTxManager over the given participants.
func NewMemoryTxManager(participants ...Checkpointer) *MemoryTxManager {
	return &MemoryTxManager{participants: participants}
}

// Register adds participants after construction.
func (m *MemoryTxManager) Register(participants ...Checkpointer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants = append(m.participants, participants...)
}

// WithTx runs fn while holding the manager lock, restoring all participants on error
// or panic.
func (m *MemoryTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) == m {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), 0, len(m.participants))
	for _, p := range m.participants {
		restores = append(restores, p.Checkpoint())
	}
	rollback := func() {
		for _, restore := range restores {
			restore()
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, m)); err != nil {
		rollback()
		return err
	}

	return nil
}
