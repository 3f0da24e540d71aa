package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/config"
	"github.com/allisson/missionhub/internal/database"
)

func TestContainer_LoggerIsMemoized(t *testing.T) {
	for _, level := range []string{"debug", "error", "bogus"} {
		container := NewContainer(&config.Config{LogLevel: level, HubIdentity: "missionhub"})

		logger := container.Logger()
		if logger == nil {
			t.Fatalf("%s: expected a logger", level)
		}
		if container.Logger() != logger {
			t.Errorf("%s: expected the same logger on every call", level)
		}
	}
}

func TestContainer_InitErrorIsCached(t *testing.T) {
	container := NewContainer(&config.Config{DBDriver: "oracle", DBConnectionString: "x"})

	_, first := container.DB()
	_, second := container.DB()
	if first == nil || second == nil {
		t.Fatalf("expected both calls to fail, got %v and %v", first, second)
	}
	if first != second {
		t.Errorf("expected the cached error, got %v then %v", first, second)
	}
	if _, ok := container.db.peek(); ok {
		t.Error("a failed component must not be visible to Shutdown")
	}
}

func TestContainer_BuildsOnFirstUse(t *testing.T) {
	container := NewContainer(newMemoryConfig())

	if _, ok := container.missionUseCase.peek(); ok {
		t.Fatal("expected nothing built before first access")
	}
	if _, err := container.MissionUseCase(); err != nil {
		t.Fatalf("unexpected mission use case error: %v", err)
	}
	if _, ok := container.store.peek(); !ok {
		t.Error("expected the document store to be built as a dependency")
	}
	if _, ok := container.transport.peek(); ok {
		t.Error("expected the transport to stay unbuilt")
	}
}

func TestContainer_ShutdownWithNothingBuilt(t *testing.T) {
	container := NewContainer(newMemoryConfig())
	if err := container.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func newMemoryConfig() *config.Config {
	return &config.Config{
		LogLevel:         "error",
		DBDriver:         DriverMemory,
		HubIdentity:      "missionhub",
		EventLogCapacity: 32,
		MetricsNamespace: "missionhub_test",
	}
}

// TestContainerMemoryStore verifies the memory driver wires routers without a database.
func TestContainerMemoryStore(t *testing.T) {
	container := NewContainer(newMemoryConfig())
	ctx := context.Background()

	if _, err := container.DB(); err == nil {
		t.Error("expected DB() to fail with the memory driver")
	}

	txManager, err := container.TxManager()
	if err != nil {
		t.Fatalf("unexpected tx manager error: %v", err)
	}
	if _, ok := txManager.(*database.MemoryTxManager); !ok {
		t.Errorf("expected *database.MemoryTxManager, got %T", txManager)
	}

	missionRouter, err := container.MissionRouter()
	if err != nil {
		t.Fatalf("unexpected mission router error: %v", err)
	}
	if !slices.Contains(missionRouter.CommandTypes(), "mission.upsert") {
		t.Error("expected mission router to handle mission.upsert")
	}

	checklistRouter, err := container.ChecklistRouter()
	if err != nil {
		t.Fatalf("unexpected checklist router error: %v", err)
	}
	if !slices.Contains(checklistRouter.CommandTypes(), "checklist.task.status.set") {
		t.Error("expected checklist router to handle checklist.task.status.set")
	}

	authorizer, err := container.AuthorizerUseCase()
	if err != nil {
		t.Fatalf("unexpected authorizer error: %v", err)
	}
	if _, err := authorizer.Grant(ctx, &domain.GrantInput{
		Identity:   "a3f1c09e",
		Capability: "mission.write",
		GrantedBy:  "test",
	}); err != nil {
		t.Fatalf("unexpected grant error: %v", err)
	}

	allowed, err := authorizer.HasCapability(ctx, "a3f1c09e", "mission.write")
	if err != nil || !allowed {
		t.Errorf("expected grant to authorize, got %v (err %v)", allowed, err)
	}

	if container.EventLog().Len() == 0 {
		t.Error("expected the grant to be recorded in the event log")
	}
}

// TestContainerHTTPServerMemoryStore verifies the admin API reports a memory store as ready.
func TestContainerHTTPServerMemoryStore(t *testing.T) {
	container := NewContainer(newMemoryConfig())

	server, err := container.HTTPServer()
	if err != nil {
		t.Fatalf("unexpected http server error: %v", err)
	}

	w := httptest.NewRecorder()
	server.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /ready, got %d", w.Code)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		t.Fatalf("unexpected metrics server error: %v", err)
	}
	if metricsServer != nil {
		t.Error("expected no metrics server when metrics are disabled")
	}
}

// TestContainerCapabilityMapFile verifies a broken capability map file fails router setup.
func TestContainerCapabilityMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	if err := os.WriteFile(path, []byte("mission: [not, a, map]"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := newMemoryConfig()
	cfg.CapabilityMapFile = path
	container := NewContainer(cfg)

	if _, err := container.MissionRouter(); err == nil {
		t.Error("expected mission router to fail with an invalid capability map")
	}

	// The error is cached for later callers.
	if _, err := container.CapabilityMaps(); err == nil {
		t.Error("expected cached capability map error")
	}
}
