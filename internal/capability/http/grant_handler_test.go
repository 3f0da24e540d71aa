package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/capability/http/dto"
	"github.com/allisson/missionhub/internal/capability/usecase/mocks"
)

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockAuthorizerUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authorizer := &mocks.MockAuthorizerUseCase{}
	handler := NewGrantHandler(authorizer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	router.GET("/v1/identities/:identity/capabilities", handler.ListHandler)
	router.PUT("/v1/identities/:identity/capabilities/:capability", handler.GrantCapabilityHandler)
	router.DELETE("/v1/identities/:identity/capabilities/:capability", handler.RevokeCapabilityHandler)
	return router, authorizer
}

func TestGrantHandler_ListHandler(t *testing.T) {
	router, authorizer := setupRouter(t)
	grantedAt := time.Now().UTC()

	authorizer.On("ListGrants", mock.Anything, "a3f1c09e").Return([]*capabilityDomain.Grant{
		{Identity: "a3f1c09e", Capability: "checklist.write", GrantedBy: "ops", GrantedAt: grantedAt},
	}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/identities/A3F1C09E/capabilities", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response dto.ListGrantsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "a3f1c09e", response.Identity)
	assert.Equal(t, []string{"checklist.write"}, response.EffectiveCapabilities)
	authorizer.AssertExpectations(t)
}

func TestGrantHandler_GrantCapabilityHandler(t *testing.T) {
	t.Run("Success_WithExpiry", func(t *testing.T) {
		router, authorizer := setupRouter(t)
		expiresAt := time.Date(2030, 1, 2, 15, 4, 5, 0, time.UTC)

		authorizer.On("Grant", mock.Anything, mock.MatchedBy(func(input *capabilityDomain.GrantInput) bool {
			return input.Identity == "a3f1c09e" &&
				input.Capability == "checklist.write" &&
				input.GrantedBy == "ops" &&
				input.ExpiresAt != nil && input.ExpiresAt.Equal(expiresAt)
		})).Return(&capabilityDomain.Grant{
			Identity: "a3f1c09e", Capability: "checklist.write", GrantedBy: "ops", ExpiresAt: &expiresAt,
		}, nil).Once()

		body := `{"granted_by":"ops","expires_at":"2030-01-02T15:04:05Z"}`
		req := httptest.NewRequest(http.MethodPut, "/v1/identities/a3f1c09e/capabilities/checklist.write", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		authorizer.AssertExpectations(t)
	})

	t.Run("Success_EmptyBodyUsesDefaultGranter", func(t *testing.T) {
		router, authorizer := setupRouter(t)

		authorizer.On("Grant", mock.Anything, mock.MatchedBy(func(input *capabilityDomain.GrantInput) bool {
			return input.GrantedBy == defaultGrantedBy && input.ExpiresAt == nil
		})).Return(&capabilityDomain.Grant{Identity: "a3f1c09e", Capability: "mission.read"}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/v1/identities/a3f1c09e/capabilities/mission.read", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_InvalidExpiry", func(t *testing.T) {
		router, authorizer := setupRouter(t)

		body := `{"expires_at":"next week"}`
		req := httptest.NewRequest(http.MethodPut, "/v1/identities/a3f1c09e/capabilities/mission.read", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		authorizer.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		router, _ := setupRouter(t)

		req := httptest.NewRequest(http.MethodPut, "/v1/identities/a3f1c09e/capabilities/mission.read", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGrantHandler_RevokeCapabilityHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, authorizer := setupRouter(t)
		authorizer.On("Revoke", mock.Anything, "a3f1c09e", capabilityDomain.Capability("mission.read")).Return(nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/identities/a3f1c09e/capabilities/mission.read", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		router, authorizer := setupRouter(t)
		authorizer.On("Revoke", mock.Anything, "a3f1c09e", capabilityDomain.Capability("mission.read")).
			Return(capabilityDomain.ErrGrantNotFound).
			Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/identities/a3f1c09e/capabilities/mission.read", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
