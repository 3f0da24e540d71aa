// Package dto provides data transfer objects for capability HTTP requests and responses.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	customValidation "github.com/allisson/missionhub/internal/validation"
)

// GrantCapabilityRequest is the body of PUT /v1/identities/:identity/capabilities/:capability.
type GrantCapabilityRequest struct {
	GrantedBy string  `json:"granted_by"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

// Validate checks the request body.
func (r *GrantCapabilityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.GrantedBy, customValidation.NoWhitespace),
		validation.Field(&r.ExpiresAt, validation.NilOrNotEmpty, customValidation.RFC3339),
	)
}

// ParsedExpiresAt returns the expiry as a UTC time, or nil when unset.
// Validate must have succeeded first.
func (r *GrantCapabilityRequest) ParsedExpiresAt() *time.Time {
	if r.ExpiresAt == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *r.ExpiresAt)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// GrantResponse represents a capability grant in API responses.
type GrantResponse struct {
	Identity   string     `json:"identity"`
	Capability string     `json:"capability"`
	GrantedBy  string     `json:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Effective  bool       `json:"effective"`
}

// ListGrantsResponse lists the grants of one identity.
type ListGrantsResponse struct {
	Identity              string          `json:"identity"`
	Grants                []GrantResponse `json:"grants"`
	EffectiveCapabilities []string        `json:"effective_capabilities"`
}

// MapGrantToResponse converts a domain grant to its API representation.
func MapGrantToResponse(grant *capabilityDomain.Grant, now time.Time) GrantResponse {
	return GrantResponse{
		Identity:   grant.Identity,
		Capability: string(grant.Capability),
		GrantedBy:  grant.GrantedBy,
		GrantedAt:  grant.GrantedAt,
		ExpiresAt:  grant.ExpiresAt,
		Effective:  grant.IsEffective(now),
	}
}

// MapGrantsToListResponse builds the list response, deriving effective capabilities at now.
func MapGrantsToListResponse(identity string, grants []*capabilityDomain.Grant, now time.Time) ListGrantsResponse {
	response := ListGrantsResponse{
		Identity:              identity,
		Grants:                make([]GrantResponse, 0, len(grants)),
		EffectiveCapabilities: make([]string, 0, len(grants)),
	}
	for _, grant := range grants {
		item := MapGrantToResponse(grant, now)
		response.Grants = append(response.Grants, item)
		if item.Effective {
			response.EffectiveCapabilities = append(response.EffectiveCapabilities, item.Capability)
		}
	}
	return response
}
