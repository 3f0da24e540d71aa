package usecase

import (
	"context"
	"time"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
)

// authorizerUseCase implements AuthorizerUseCase.
type authorizerUseCase struct {
	grantRepo GrantRepository
	audit     AuditTrail
	now       func() time.Time
}

// Grant validates the input and upserts the grant with a fresh granted_at.
func (a *authorizerUseCase) Grant(
	ctx context.Context,
	input *capabilityDomain.GrantInput,
) (*capabilityDomain.Grant, error) {
	now := a.now()
	if err := input.Validate(now); err != nil {
		return nil, err
	}

	grant := &capabilityDomain.Grant{
		Identity:   capabilityDomain.NormalizeIdentity(input.Identity),
		Capability: input.Capability,
		GrantedBy:  input.GrantedBy,
		GrantedAt:  now,
		ExpiresAt:  input.ExpiresAt,
	}

	if err := a.grantRepo.Upsert(ctx, grant); err != nil {
		return nil, err
	}

	a.record("capability_granted", "capability granted", grant.Identity, grant.Capability)
	return grant, nil
}

// Revoke hard-deletes the grant row. The audit trail keeps the record of the revocation.
func (a *authorizerUseCase) Revoke(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) error {
	identity = capabilityDomain.NormalizeIdentity(identity)
	if err := a.grantRepo.Delete(ctx, identity, capability); err != nil {
		return err
	}

	a.record("capability_revoked", "capability revoked", identity, capability)
	return nil
}

// EffectiveCapabilities evaluates expiry against the current instant.
func (a *authorizerUseCase) EffectiveCapabilities(
	ctx context.Context,
	identity string,
) ([]capabilityDomain.Capability, error) {
	grants, err := a.grantRepo.ListByIdentity(ctx, capabilityDomain.NormalizeIdentity(identity))
	if err != nil {
		return nil, err
	}

	now := a.now()
	capabilities := make([]capabilityDomain.Capability, 0, len(grants))
	for _, grant := range grants {
		if grant.IsEffective(now) {
			capabilities = append(capabilities, grant.Capability)
		}
	}
	return capabilities, nil
}

// HasCapability checks the effective grants of identity for capability.
func (a *authorizerUseCase) HasCapability(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) (bool, error) {
	grants, err := a.grantRepo.ListByIdentity(ctx, capabilityDomain.NormalizeIdentity(identity))
	if err != nil {
		return false, err
	}

	now := a.now()
	for _, grant := range grants {
		if grant.IsEffective(now) && grant.Satisfies(capability) {
			return true, nil
		}
	}
	return false, nil
}

// ListGrants returns all grant rows for identity.
func (a *authorizerUseCase) ListGrants(
	ctx context.Context,
	identity string,
) ([]*capabilityDomain.Grant, error) {
	return a.grantRepo.ListByIdentity(ctx, capabilityDomain.NormalizeIdentity(identity))
}

func (a *authorizerUseCase) record(
	eventType, message, identity string,
	capability capabilityDomain.Capability,
) {
	if a.audit == nil {
		return
	}
	a.audit.Record(eventType, message, map[string]any{
		"identity":   identity,
		"capability": string(capability),
	})
}

// NewAuthorizerUseCase creates an AuthorizerUseCase. audit may be nil.
func NewAuthorizerUseCase(
	grantRepo GrantRepository,
	audit AuditTrail,
) AuthorizerUseCase {
	return &authorizerUseCase{
		grantRepo: grantRepo,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}
