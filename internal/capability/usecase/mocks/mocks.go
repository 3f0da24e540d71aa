// Package mocks provides mock implementations of the capability use case interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
)

// MockGrantRepository is a mock implementation of GrantRepository.
type MockGrantRepository struct {
	mock.Mock
}

// Upsert mocks the Upsert method.
func (m *MockGrantRepository) Upsert(ctx context.Context, grant *capabilityDomain.Grant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

// Delete mocks the Delete method.
func (m *MockGrantRepository) Delete(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) error {
	args := m.Called(ctx, identity, capability)
	return args.Error(0)
}

// ListByIdentity mocks the ListByIdentity method.
func (m *MockGrantRepository) ListByIdentity(
	ctx context.Context,
	identity string,
) ([]*capabilityDomain.Grant, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*capabilityDomain.Grant), args.Error(1)
}

// MockAuthorizerUseCase is a mock implementation of AuthorizerUseCase.
type MockAuthorizerUseCase struct {
	mock.Mock
}

// Grant mocks the Grant method.
func (m *MockAuthorizerUseCase) Grant(
	ctx context.Context,
	input *capabilityDomain.GrantInput,
) (*capabilityDomain.Grant, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capabilityDomain.Grant), args.Error(1)
}

// Revoke mocks the Revoke method.
func (m *MockAuthorizerUseCase) Revoke(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) error {
	args := m.Called(ctx, identity, capability)
	return args.Error(0)
}

// EffectiveCapabilities mocks the EffectiveCapabilities method.
func (m *MockAuthorizerUseCase) EffectiveCapabilities(
	ctx context.Context,
	identity string,
) ([]capabilityDomain.Capability, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]capabilityDomain.Capability), args.Error(1)
}

// HasCapability mocks the HasCapability method.
func (m *MockAuthorizerUseCase) HasCapability(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) (bool, error) {
	args := m.Called(ctx, identity, capability)
	return args.Bool(0), args.Error(1)
}

// ListGrants mocks the ListGrants method.
func (m *MockAuthorizerUseCase) ListGrants(
	ctx context.Context,
	identity string,
) ([]*capabilityDomain.Grant, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*capabilityDomain.Grant), args.Error(1)
}
