// Package domain defines capability grants and the rules for evaluating them.
//
// A capability is a string permission (e.g. "checklist.write") required to execute a
// command type. Grants are held per identity, are purely additive, and may carry an
// expiry after which they no longer count towards the identity's effective capabilities.
package domain

import (
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/missionhub/internal/validation"
)

// Capability is a named permission checked before a command is dispatched.
type Capability string

// WildcardCapability satisfies every capability check.
const WildcardCapability Capability = "*"

// Grant gives an identity a capability, optionally until ExpiresAt.
// The pair (Identity, Capability) is unique.
type Grant struct {
	Identity   string     `json:"identity"`
	Capability Capability `json:"capability"`
	GrantedBy  string     `json:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// IsEffective reports whether the grant counts at the given instant.
func (g *Grant) IsEffective(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// Satisfies reports whether holding this grant's capability satisfies required.
func (g *Grant) Satisfies(required Capability) bool {
	return g.Capability == WildcardCapability || g.Capability == required
}

// NormalizeIdentity returns the canonical form used for grant keys and identity comparisons.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// GrantInput contains the parameters for granting a capability.
type GrantInput struct {
	Identity   string
	Capability Capability
	GrantedBy  string
	ExpiresAt  *time.Time
}

// Validate checks the grant input. now is the instant an expiry must lie after.
func (i *GrantInput) Validate(now time.Time) error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Identity,
			validation.Required,
			customValidation.NotBlank,
			customValidation.Identity,
		),
		validation.Field(&i.Capability,
			validation.Required,
			validation.By(validateCapability),
		),
		validation.Field(&i.ExpiresAt,
			validation.By(func(value any) error {
				expiresAt, _ := value.(*time.Time)
				if expiresAt != nil && !expiresAt.After(now) {
					return validation.NewError("validation_expires_at", "must be in the future")
				}
				return nil
			}),
		),
	)
	return customValidation.WrapValidationError(err)
}

func validateCapability(value any) error {
	capability, _ := value.(Capability)
	if capability == WildcardCapability {
		return nil
	}
	return customValidation.DottedName.Validate(string(capability))
}
