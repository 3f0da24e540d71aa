package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/missionhub/internal/errors"
)

func TestGrant_IsEffective(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Grant{}).IsEffective(now), "grant without expiry never expires")
	assert.True(t, (&Grant{ExpiresAt: &future}).IsEffective(now))
	assert.False(t, (&Grant{ExpiresAt: &past}).IsEffective(now))
	assert.False(t, (&Grant{ExpiresAt: &now}).IsEffective(now), "expiry instant is exclusive")
}

func TestGrant_Satisfies(t *testing.T) {
	write := &Grant{Capability: "checklist.write"}
	assert.True(t, write.Satisfies("checklist.write"))
	assert.False(t, write.Satisfies("checklist.read"))

	admin := &Grant{Capability: WildcardCapability}
	assert.True(t, admin.Satisfies("mission.zone.delete"))
}

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "a3f1c09e", NormalizeIdentity("  A3F1C09E "))
}

func TestGrantInput_Validate(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		input   GrantInput
		wantErr bool
	}{
		{
			name:  "Success_NoExpiry",
			input: GrantInput{Identity: "a3f1c09e", Capability: "checklist.write"},
		},
		{
			name:  "Success_FutureExpiry",
			input: GrantInput{Identity: "a3f1c09e", Capability: "checklist.write", ExpiresAt: &future},
		},
		{
			name:  "Success_Wildcard",
			input: GrantInput{Identity: "a3f1c09e", Capability: WildcardCapability},
		},
		{
			name:    "Error_MissingIdentity",
			input:   GrantInput{Capability: "checklist.write"},
			wantErr: true,
		},
		{
			name:    "Error_MalformedCapability",
			input:   GrantInput{Identity: "a3f1c09e", Capability: "Checklist Write"},
			wantErr: true,
		},
		{
			name:    "Error_PastExpiry",
			input:   GrantInput{Identity: "a3f1c09e", Capability: "checklist.write", ExpiresAt: &past},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate(now)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
