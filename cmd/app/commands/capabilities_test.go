package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/capability/usecase/mocks"
)

func TestRunGrantCapability(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("text-output", func(t *testing.T) {
		authorizer := &mocks.MockAuthorizerUseCase{}
		authorizer.On("Grant", ctx, mock.MatchedBy(func(input *capabilityDomain.GrantInput) bool {
			return input.Identity == "A3F1C09E" && input.Capability == "mission.write" && input.ExpiresAt == nil
		})).Return(&capabilityDomain.Grant{
			Identity:   "a3f1c09e",
			Capability: "mission.write",
			GrantedBy:  "cli",
			GrantedAt:  time.Now().UTC(),
		}, nil).Once()

		var out bytes.Buffer
		err := RunGrantCapability(ctx, authorizer, logger, &out, "A3F1C09E", "mission.write", "cli", 0, "text")

		require.NoError(t, err)
		assert.Equal(t, "Granted mission.write to a3f1c09e\n", out.String())
		authorizer.AssertExpectations(t)
	})

	t.Run("json-output-with-expiry", func(t *testing.T) {
		authorizer := &mocks.MockAuthorizerUseCase{}
		expiresAt := time.Now().UTC().Add(time.Hour)
		authorizer.On("Grant", ctx, mock.MatchedBy(func(input *capabilityDomain.GrantInput) bool {
			return input.ExpiresAt != nil && input.ExpiresAt.After(time.Now())
		})).Return(&capabilityDomain.Grant{
			Identity:   "a3f1c09e",
			Capability: "checklist.write",
			GrantedBy:  "cli",
			GrantedAt:  time.Now().UTC(),
			ExpiresAt:  &expiresAt,
		}, nil).Once()

		var out bytes.Buffer
		err := RunGrantCapability(ctx, authorizer, logger, &out, "a3f1c09e", "checklist.write", "cli", time.Hour, "json")

		require.NoError(t, err)
		assert.Contains(t, out.String(), `"capability": "checklist.write"`)
		assert.Contains(t, out.String(), `"effective": true`)
		authorizer.AssertExpectations(t)
	})

	t.Run("negative-expiry", func(t *testing.T) {
		authorizer := &mocks.MockAuthorizerUseCase{}
		err := RunGrantCapability(ctx, authorizer, logger, &bytes.Buffer{}, "a3f1c09e", "mission.write", "cli", -time.Hour, "text")

		require.Error(t, err)
		authorizer.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	})

	t.Run("invalid-format", func(t *testing.T) {
		authorizer := &mocks.MockAuthorizerUseCase{}
		err := RunGrantCapability(ctx, authorizer, logger, &bytes.Buffer{}, "a3f1c09e", "mission.write", "cli", 0, "yaml")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid format")
	})
}

func TestRunRevokeCapability(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success", func(t *testing.T) {
		authorizer := &mocks.MockAuthorizerUseCase{}
		authorizer.On("Revoke", ctx, "a3f1c09e", capabilityDomain.Capability("mission.write")).Return(nil).Once()

		var out bytes.Buffer
		err := RunRevokeCapability(ctx, authorizer, logger, &out, "A3F1C09E", "mission.write", "text")

		require.NoError(t, err)
		assert.Equal(t, "Revoked mission.write from a3f1c09e\n", out.String())
		authorizer.AssertExpectations(t)
	})

	t.Run("not-found", func(t *testing.T) {
		authorizer := &mocks.MockAuthorizerUseCase{}
		authorizer.On("Revoke", ctx, "a3f1c09e", capabilityDomain.Capability("mission.write")).
			Return(capabilityDomain.ErrGrantNotFound).Once()

		err := RunRevokeCapability(ctx, authorizer, logger, &bytes.Buffer{}, "a3f1c09e", "mission.write", "text")

		require.ErrorIs(t, err, capabilityDomain.ErrGrantNotFound)
	})
}

func TestRunListCapabilities(t *testing.T) {
	ctx := context.Background()
	expired := time.Now().UTC().Add(-time.Hour)

	authorizer := &mocks.MockAuthorizerUseCase{}
	authorizer.On("ListGrants", ctx, "a3f1c09e").Return([]*capabilityDomain.Grant{
		{Identity: "a3f1c09e", Capability: "checklist.write", GrantedBy: "ops", GrantedAt: expired.Add(-time.Hour), ExpiresAt: &expired},
		{Identity: "a3f1c09e", Capability: "mission.read", GrantedBy: "ops", GrantedAt: expired},
	}, nil)

	t.Run("text-output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunListCapabilities(ctx, authorizer, &out, "a3f1c09e", "text"))

		assert.Contains(t, out.String(), "checklist.write")
		assert.Contains(t, out.String(), "expired")
		assert.Contains(t, out.String(), "effective")
	})

	t.Run("json-output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunListCapabilities(ctx, authorizer, &out, "a3f1c09e", "json"))

		assert.Contains(t, out.String(), `"effective_capabilities": [
    "mission.read"
  ]`)
	})

	t.Run("empty", func(t *testing.T) {
		empty := &mocks.MockAuthorizerUseCase{}
		empty.On("ListGrants", ctx, "b0b0").Return([]*capabilityDomain.Grant{}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListCapabilities(ctx, empty, &out, "b0b0", "text"))
		assert.Equal(t, "No capabilities granted to b0b0\n", out.String())
	})
}
