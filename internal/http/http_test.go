package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	capabilityHTTP "github.com/allisson/missionhub/internal/capability/http"
	capabilityRepository "github.com/allisson/missionhub/internal/capability/repository"
	capabilityUseCase "github.com/allisson/missionhub/internal/capability/usecase"
	"github.com/allisson/missionhub/internal/eventlog"
	"github.com/allisson/missionhub/internal/metrics"
	outboundDomain "github.com/allisson/missionhub/internal/outbound/domain"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestServer() *Server {
	return NewServer(nil, "127.0.0.1", 0, discardLogger())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestProbes(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		w := serve(createAdminServer(t, ""), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decodeBody(t, w)["status"])
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("ready without database", func(t *testing.T) {
		w := serve(createAdminServer(t, ""), http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, map[string]interface{}{"database": "error"}, body["components"])
	})

	t.Run("ready on memory store", func(t *testing.T) {
		server := createTestServer()
		server.UseMemoryStore()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
		server.readinessHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]interface{}{"database": "memory"}, decodeBody(t, w)["components"])
	})

	t.Run("probes bypass the admin token", func(t *testing.T) {
		w := serve(createAdminServer(t, "s3cr3t-admin"), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestID_IsUUIDv7(t *testing.T) {
	w := serve(createAdminServer(t, ""), http.MethodGet, "/v1/event-log", "")
	require.Equal(t, http.StatusOK, w.Code)

	id, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestCustomLoggerMiddleware_RecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/v1/event-log", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { panic("handler bug") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/event-log?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), `"path":"/v1/event-log"`)
	assert.Contains(t, buf.String(), `"query":"limit=5"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_StartRequiresRouter(t *testing.T) {
	err := createTestServer().Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "router not configured")
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := createAdminServer(t, "")

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not return after shutdown")
	}
}

func TestMetricsServer(t *testing.T) {
	provider, err := metrics.NewProvider("missionhub_test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, provider.Shutdown(context.Background())) })

	handler := NewMetricsServer("127.0.0.1", 0, provider.Handler(), discardLogger()).GetHandler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The admin router never exposes the scrape endpoint.
	w = serve(createAdminServer(t, ""), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeQueueStats struct{}

func (fakeQueueStats) Stats() outboundDomain.Stats {
	return outboundDomain.Stats{Queued: 2, Delivered: 7}
}

// createAdminServer builds a server with the full admin router over in-memory collaborators.
func createAdminServer(t *testing.T, token string) *Server {
	t.Helper()
	logger := discardLogger()

	events := eventlog.New(16)
	authorizer := capabilityUseCase.NewAuthorizerUseCase(capabilityRepository.NewMemoryGrantRepository(), events)

	server := createTestServer()
	server.SetupRouter(
		RouterConfig{AdminAPIToken: token},
		capabilityHTTP.NewGrantHandler(authorizer, logger),
		eventlog.NewHandler(events, logger),
		fakeQueueStats{},
	)
	return server
}

func serve(server *Server, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	server.GetHandler().ServeHTTP(w, req)
	return w
}

// TestSetupRouter_WithoutAdminToken verifies grant mutation routes are not registered.
func TestSetupRouter_WithoutAdminToken(t *testing.T) {
	server := createAdminServer(t, "")

	w := serve(server, http.MethodPut, "/v1/identities/a3f1c09e/capabilities/mission.read", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(server, http.MethodGet, "/v1/identities/a3f1c09e/capabilities", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestSetupRouter_WithAdminToken exercises grant, list and revoke through the router.
func TestSetupRouter_WithAdminToken(t *testing.T) {
	const token = "s3cr3t-admin"
	server := createAdminServer(t, token)

	t.Run("Error_MissingToken", func(t *testing.T) {
		w := serve(server, http.MethodPut, "/v1/identities/a3f1c09e/capabilities/mission.read", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_WrongToken", func(t *testing.T) {
		w := serve(server, http.MethodGet, "/v1/event-log", "nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Success_GrantListRevoke", func(t *testing.T) {
		w := serve(server, http.MethodPut, "/v1/identities/A3F1C09E/capabilities/mission.read", token)
		require.Equal(t, http.StatusOK, w.Code)

		w = serve(server, http.MethodGet, "/v1/identities/a3f1c09e/capabilities", token)
		require.Equal(t, http.StatusOK, w.Code)

		var listed map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		assert.Equal(t, []interface{}{"mission.read"}, listed["effective_capabilities"])

		w = serve(server, http.MethodDelete, "/v1/identities/a3f1c09e/capabilities/mission.read", token)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = serve(server, http.MethodDelete, "/v1/identities/a3f1c09e/capabilities/mission.read", token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Success_EventLogAndStats", func(t *testing.T) {
		w := serve(server, http.MethodGet, "/v1/event-log?limit=10", token)
		require.Equal(t, http.StatusOK, w.Code)

		var logResponse map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logResponse))
		assert.NotEmpty(t, logResponse["entries"])

		w = serve(server, http.MethodGet, "/v1/outbound/stats", token)
		require.Equal(t, http.StatusOK, w.Code)

		var stats outboundDomain.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, uint64(7), stats.Delivered)
	})
}
