// Package http provides HTTP handlers for capability grant administration.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/capability/http/dto"
	capabilityUseCase "github.com/allisson/missionhub/internal/capability/usecase"
	"github.com/allisson/missionhub/internal/httputil"
	customValidation "github.com/allisson/missionhub/internal/validation"
)

// defaultGrantedBy is recorded when an admin request does not name the granter.
const defaultGrantedBy = "admin-api"

// GrantHandler handles HTTP requests for capability grants.
type GrantHandler struct {
	authorizer capabilityUseCase.AuthorizerUseCase
	logger     *slog.Logger
}

// NewGrantHandler creates a new grant handler.
func NewGrantHandler(authorizer capabilityUseCase.AuthorizerUseCase, logger *slog.Logger) *GrantHandler {
	return &GrantHandler{
		authorizer: authorizer,
		logger:     logger,
	}
}

// ListHandler lists every grant of an identity, including expired ones.
// GET /v1/identities/:identity/capabilities
func (h *GrantHandler) ListHandler(c *gin.Context) {
	identity := capabilityDomain.NormalizeIdentity(c.Param("identity"))

	grants, err := h.authorizer.ListGrants(c.Request.Context(), identity)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapGrantsToListResponse(identity, grants, time.Now().UTC()))
}

// GrantCapabilityHandler grants a capability to an identity.
// PUT /v1/identities/:identity/capabilities/:capability
func (h *GrantHandler) GrantCapabilityHandler(c *gin.Context) {
	var req dto.GrantCapabilityRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	grantedBy := req.GrantedBy
	if grantedBy == "" {
		grantedBy = defaultGrantedBy
	}

	grant, err := h.authorizer.Grant(c.Request.Context(), &capabilityDomain.GrantInput{
		Identity:   c.Param("identity"),
		Capability: capabilityDomain.Capability(c.Param("capability")),
		GrantedBy:  grantedBy,
		ExpiresAt:  req.ParsedExpiresAt(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapGrantToResponse(grant, time.Now().UTC()))
}

// RevokeCapabilityHandler removes a capability grant.
// DELETE /v1/identities/:identity/capabilities/:capability
func (h *GrantHandler) RevokeCapabilityHandler(c *gin.Context) {
	err := h.authorizer.Revoke(
		c.Request.Context(),
		c.Param("identity"),
		capabilityDomain.Capability(c.Param("capability")),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
