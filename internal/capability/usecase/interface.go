// Package usecase implements capability grant management and evaluation.
package usecase

import (
	"context"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
)

// GrantRepository defines persistence operations for capability grants.
// Implementations must support transaction-aware operations via context propagation.
type GrantRepository interface {
	// Upsert stores the grant keyed by (identity, capability), replacing any existing row.
	Upsert(ctx context.Context, grant *capabilityDomain.Grant) error

	// Delete removes the grant. Returns ErrGrantNotFound if the row does not exist.
	Delete(ctx context.Context, identity string, capability capabilityDomain.Capability) error

	// ListByIdentity returns every grant held by identity, expired ones included,
	// ordered by capability.
	ListByIdentity(ctx context.Context, identity string) ([]*capabilityDomain.Grant, error)
}

// AuditTrail receives operational audit entries.
type AuditTrail interface {
	Record(eventType, message string, metadata map[string]any)
}

// AuthorizerUseCase answers capability questions for identities and manages grants.
// Expiry is evaluated on every call; nothing is cached between calls.
type AuthorizerUseCase interface {
	// Grant upserts a capability grant for an identity.
	Grant(ctx context.Context, input *capabilityDomain.GrantInput) (*capabilityDomain.Grant, error)

	// Revoke removes the grant row. Returns ErrGrantNotFound when the identity does not hold it.
	Revoke(ctx context.Context, identity string, capability capabilityDomain.Capability) error

	// EffectiveCapabilities lists the capabilities whose grants have not expired.
	EffectiveCapabilities(ctx context.Context, identity string) ([]capabilityDomain.Capability, error)

	// HasCapability reports whether identity currently holds capability, directly or via "*".
	HasCapability(ctx context.Context, identity string, capability capabilityDomain.Capability) (bool, error)

	// ListGrants returns every grant row for identity, including expired ones.
	ListGrants(ctx context.Context, identity string) ([]*capabilityDomain.Grant, error)
}
