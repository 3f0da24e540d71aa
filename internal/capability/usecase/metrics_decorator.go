package usecase

import (
	"context"
	"time"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/metrics"
)

// authorizerUseCaseWithMetrics decorates AuthorizerUseCase with metrics instrumentation.
type authorizerUseCaseWithMetrics struct {
	next    AuthorizerUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthorizerUseCaseWithMetrics wraps an AuthorizerUseCase with metrics recording.
func NewAuthorizerUseCaseWithMetrics(useCase AuthorizerUseCase, m metrics.BusinessMetrics) AuthorizerUseCase {
	return &authorizerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *authorizerUseCaseWithMetrics) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	a.metrics.RecordOperation(ctx, "capability", operation, status)
	a.metrics.RecordDuration(ctx, "capability", operation, time.Since(start), status)
}

// Grant records metrics for grant operations.
func (a *authorizerUseCaseWithMetrics) Grant(
	ctx context.Context,
	input *capabilityDomain.GrantInput,
) (*capabilityDomain.Grant, error) {
	start := time.Now()
	grant, err := a.next.Grant(ctx, input)
	a.observe(ctx, "grant", start, err)
	return grant, err
}

// Revoke records metrics for revoke operations.
func (a *authorizerUseCaseWithMetrics) Revoke(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) error {
	start := time.Now()
	err := a.next.Revoke(ctx, identity, capability)
	a.observe(ctx, "revoke", start, err)
	return err
}

// EffectiveCapabilities records metrics for capability listing.
func (a *authorizerUseCaseWithMetrics) EffectiveCapabilities(
	ctx context.Context,
	identity string,
) ([]capabilityDomain.Capability, error) {
	start := time.Now()
	capabilities, err := a.next.EffectiveCapabilities(ctx, identity)
	a.observe(ctx, "effective_capabilities", start, err)
	return capabilities, err
}

// HasCapability records metrics for authorization checks.
func (a *authorizerUseCaseWithMetrics) HasCapability(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) (bool, error) {
	start := time.Now()
	ok, err := a.next.HasCapability(ctx, identity, capability)
	a.observe(ctx, "check", start, err)
	return ok, err
}

// ListGrants records metrics for grant listing.
func (a *authorizerUseCaseWithMetrics) ListGrants(
	ctx context.Context,
	identity string,
) ([]*capabilityDomain.Grant, error) {
	start := time.Now()
	grants, err := a.next.ListGrants(ctx, identity)
	a.observe(ctx, "list_grants", start, err)
	return grants, err
}
