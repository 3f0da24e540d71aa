package repository

import (
	"context"
	"maps"
	"sort"
	"sync"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
)

type grantKey struct {
	identity   string
	capability capabilityDomain.Capability
}

// MemoryGrantRepository keeps grants in process memory. It takes part in
// database.MemoryTxManager transactions through Checkpoint.
type MemoryGrantRepository struct {
	mu     sync.RWMutex
	grants map[grantKey]capabilityDomain.Grant
}

// Upsert stores a copy of the grant.
func (r *MemoryGrantRepository) Upsert(_ context.Context, grant *capabilityDomain.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.grants[grantKey{grant.Identity, grant.Capability}] = *grant
	return nil
}

// Delete removes the grant.
func (r *MemoryGrantRepository) Delete(
	_ context.Context,
	identity string,
	capability capabilityDomain.Capability,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := grantKey{identity, capability}
	if _, ok := r.grants[key]; !ok {
		return capabilityDomain.ErrGrantNotFound
	}
	delete(r.grants, key)
	return nil
}

// ListByIdentity returns copies of the grants of identity ordered by capability.
func (r *MemoryGrantRepository) ListByIdentity(
	_ context.Context,
	identity string,
) ([]*capabilityDomain.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grants := make([]*capabilityDomain.Grant, 0)
	for key, grant := range r.grants {
		if key.identity == identity {
			g := grant
			grants = append(grants, &g)
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Capability < grants[j].Capability })
	return grants, nil
}

// Checkpoint captures the current grants and returns a function restoring them.
func (r *MemoryGrantRepository) Checkpoint() func() {
	r.mu.RLock()
	saved := maps.Clone(r.grants)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.grants = saved
		r.mu.Unlock()
	}
}

// NewMemoryGrantRepository creates an empty in-memory grant repository.
func NewMemoryGrantRepository() *MemoryGrantRepository {
	return &MemoryGrantRepository{grants: make(map[grantKey]capabilityDomain.Grant)}
}
