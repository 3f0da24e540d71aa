package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	apperrors "github.com/allisson/missionhub/internal/errors"
	"github.com/allisson/missionhub/internal/metrics"
)

type fakeAuthorizer struct {
	grants map[string][]string
	err    error
}

func (f *fakeAuthorizer) HasCapability(
	_ context.Context,
	identity string,
	capability capabilityDomain.Capability,
) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return slices.Contains(f.grants[identity], string(capability)), nil
}

type auditEntry struct {
	eventType string
	metadata  map[string]any
}

type auditRecorder struct {
	entries []auditEntry
}

func (a *auditRecorder) Record(eventType, _ string, metadata map[string]any) {
	a.entries = append(a.entries, auditEntry{eventType: eventType, metadata: metadata})
}

func (a *auditRecorder) types() []string {
	types := make([]string, 0, len(a.entries))
	for _, entry := range a.entries {
		types = append(types, entry.eventType)
	}
	return types
}

const sender = "a3f1c09e"

func rawCommand(id, commandType string, args map[string]any) map[string]any {
	raw := map[string]any{
		"command_id":   id,
		"issued_at":    "2025-06-01T12:00:00Z",
		"command_type": commandType,
	}
	if args != nil {
		raw["args"] = args
	}
	return raw
}

func newTestRouter(t *testing.T, registry *Registry, authorizer Authorizer) (*Router, *auditRecorder) {
	t.Helper()
	audit := &auditRecorder{}
	router := NewRouter(
		Config{
			Namespace:   NamespaceMission,
			HubIdentity: "hub0001",
			CapabilityMap: map[string]string{
				"mission.upsert":      "mission.write",
				"mission.get":         "mission.read",
				"mission.zone.create": "mission.zone.write",
			},
		},
		registry,
		authorizer,
		audit,
		metrics.NewNoOpBusinessMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return router, audit
}

func grantAll() *fakeAuthorizer {
	return &fakeAuthorizer{grants: map[string][]string{
		sender: {"mission.write", "mission.read", "mission.zone.write"},
	}}
}

func TestRouter_Process_AcceptedThenResult(t *testing.T) {
	registry := NewRegistry()
	var received *Call
	registry.Register("mission.upsert", func(_ context.Context, call *Call) (*Outcome, error) {
		received = call
		result := map[string]any{"uid": "m1", "name": call.Envelope.Args["name"]}
		return &Outcome{Result: result, EventType: "mission.upserted", EventPayload: result}, nil
	})
	router, audit := newTestRouter(t, registry, grantAll())

	raw := rawCommand("c1", "mission.upsert", map[string]any{"name": "Relief"})
	raw["correlation_id"] = "corr-1"
	raw["topics"] = []any{"ops", "logistics"}
	raw["source"] = map[string]any{"identity": "A3F1C09E"}

	batch, err := router.Process(context.Background(), raw, "A3F1C09E")
	require.NoError(t, err)
	require.Len(t, batch.Responses, 2)

	accepted := batch.Responses[0]
	assert.Equal(t, StatusAccepted, accepted.Status)
	assert.Equal(t, "c1", accepted.CommandID)
	assert.Equal(t, "corr-1", accepted.CorrelationID)
	assert.Equal(t, sender, accepted.ByIdentity)
	assert.False(t, accepted.AcceptedAt.IsZero())

	result := batch.Responses[1]
	assert.Equal(t, StatusResult, result.Status)
	assert.Equal(t, map[string]any{"uid": "m1", "name": "Relief"}, result.Result)

	require.Len(t, batch.Events, 1)
	event := batch.Events[0]
	assert.Equal(t, "mission.upserted", event.EventType)
	assert.Equal(t, "hub0001", event.Source.Identity)
	assert.Equal(t, []string{"ops", "logistics"}, event.Topics)
	assert.Equal(t, "Relief", event.Payload["name"])
	assert.NotEmpty(t, event.EventID)

	require.NotNil(t, received)
	assert.Equal(t, sender, received.Sender)
	assert.Equal(t, []string{"mission_command_accepted", "mission_command_processed"}, audit.types())
	assert.Equal(t, "corr-1", audit.entries[0].metadata["correlation_id"])
}

func TestRouter_Process_NoEventWithoutEventType(t *testing.T) {
	registry := NewRegistry()
	registry.Register("mission.get", func(context.Context, *Call) (*Outcome, error) {
		return &Outcome{Result: map[string]any{"uid": "m1"}}, nil
	})
	router, _ := newTestRouter(t, registry, grantAll())

	batch, err := router.Process(context.Background(), rawCommand("c1", "mission.get", nil), sender)
	require.NoError(t, err)
	require.Len(t, batch.Responses, 2)
	assert.Empty(t, batch.Events)
}

func TestRouter_Process_SourceIsOptional(t *testing.T) {
	registry := NewRegistry()
	var received *Call
	registry.Register("mission.get", func(_ context.Context, call *Call) (*Outcome, error) {
		received = call
		return &Outcome{Result: map[string]any{"uid": "m1"}}, nil
	})
	router, _ := newTestRouter(t, registry, grantAll())

	withoutSource := rawCommand("c1", "mission.get", nil)
	blankIdentity := rawCommand("c2", "mission.get", nil)
	blankIdentity["source"] = map[string]any{"identity": ""}

	for _, raw := range []map[string]any{withoutSource, blankIdentity} {
		received = nil
		batch, err := router.Process(context.Background(), raw, sender)
		require.NoError(t, err)
		require.Len(t, batch.Responses, 2)
		assert.Equal(t, StatusAccepted, batch.Responses[0].Status)
		assert.Equal(t, sender, batch.Responses[0].ByIdentity)
		require.NotNil(t, received)
		assert.Equal(t, sender, received.Sender)
	}
}

func TestRouter_Process_Rejections(t *testing.T) {
	called := false
	registry := NewRegistry()
	registry.Register("mission.upsert", func(context.Context, *Call) (*Outcome, error) {
		called = true
		return &Outcome{}, nil
	})

	tests := []struct {
		name       string
		raw        map[string]any
		sender     string
		authorizer *fakeAuthorizer
		code       ReasonCode
		required   []string
		commandID  string
	}{
		{
			name:       "missing capability",
			raw:        rawCommand("c1", "mission.upsert", nil),
			sender:     sender,
			authorizer: &fakeAuthorizer{grants: map[string][]string{sender: {"mission.read"}}},
			code:       ReasonUnauthorized,
			required:   []string{"mission.write"},
			commandID:  "c1",
		},
		{
			name: "source identity mismatch",
			raw: func() map[string]any {
				raw := rawCommand("c2", "mission.upsert", nil)
				raw["source"] = map[string]any{"identity": "b7e20d14"}
				return raw
			}(),
			sender:     sender,
			authorizer: grantAll(),
			code:       ReasonUnauthorized,
			commandID:  "c2",
		},
		{
			name:       "missing sender",
			raw:        rawCommand("c3", "mission.upsert", nil),
			sender:     "",
			authorizer: grantAll(),
			code:       ReasonUnauthorized,
			required:   []string{"mission.write"},
			commandID:  "c3",
		},
		{
			name:       "unmapped command",
			raw:        rawCommand("c4", "mission.launch", nil),
			sender:     sender,
			authorizer: grantAll(),
			code:       ReasonUnknownCommand,
			commandID:  "c4",
		},
		{
			name:       "mapped command without handler",
			raw:        rawCommand("c5", "mission.get", nil),
			sender:     sender,
			authorizer: grantAll(),
			code:       ReasonUnknownCommand,
			commandID:  "c5",
		},
		{
			name:       "missing issued_at",
			raw:        map[string]any{"command_id": "c6", "command_type": "mission.upsert"},
			sender:     sender,
			authorizer: grantAll(),
			code:       ReasonInvalidPayload,
			commandID:  "c6",
		},
		{
			name: "args of the wrong type",
			raw: func() map[string]any {
				raw := rawCommand("c7", "mission.upsert", nil)
				raw["args"] = "name=Relief"
				return raw
			}(),
			sender:     sender,
			authorizer: grantAll(),
			code:       ReasonInvalidPayload,
			commandID:  "c7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			router, audit := newTestRouter(t, registry, tt.authorizer)

			batch, err := router.Process(context.Background(), tt.raw, tt.sender)
			require.NoError(t, err)
			require.Len(t, batch.Responses, 1)

			response := batch.Responses[0]
			assert.Equal(t, StatusRejected, response.Status)
			assert.Equal(t, tt.code, response.ReasonCode)
			assert.Equal(t, tt.commandID, response.CommandID)
			assert.Equal(t, tt.required, response.RequiredCapabilities)
			assert.NotEmpty(t, response.Reason)
			assert.Empty(t, batch.Events)
			assert.False(t, called)
			assert.Equal(t, []string{"mission_command_rejected"}, audit.types())
		})
	}
}

func TestRouter_Process_HandlerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ReasonCode
	}{
		{name: "not found", err: apperrors.Wrap(apperrors.ErrNotFound, "mission not found"), code: ReasonInvalidPayload},
		{name: "invalid input", err: apperrors.Wrap(apperrors.ErrInvalidInput, "name: cannot be blank"), code: ReasonInvalidPayload},
		{name: "unsupported service", err: Unsupported("zone service"), code: ReasonUnsupportedOperation},
		{name: "unsupported sentinel", err: apperrors.ErrUnsupported, code: ReasonUnsupportedOperation},
		{name: "explicit code", err: NewError(ReasonUnauthorized, "not a team lead"), code: ReasonUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			registry.Register("mission.zone.create", func(context.Context, *Call) (*Outcome, error) {
				return nil, tt.err
			})
			router, audit := newTestRouter(t, registry, grantAll())

			batch, err := router.Process(context.Background(), rawCommand("c1", "mission.zone.create", nil), sender)
			require.NoError(t, err)
			require.Len(t, batch.Responses, 2)
			assert.Equal(t, StatusAccepted, batch.Responses[0].Status)
			assert.Equal(t, StatusRejected, batch.Responses[1].Status)
			assert.Equal(t, tt.code, batch.Responses[1].ReasonCode)
			assert.Empty(t, batch.Events)
			assert.Equal(t, []string{"mission_command_accepted", "mission_command_rejected"}, audit.types())
		})
	}
}

func TestRouter_Process_AuthorizerError(t *testing.T) {
	registry := NewRegistry()
	registry.Register("mission.upsert", func(context.Context, *Call) (*Outcome, error) {
		return &Outcome{}, nil
	})
	router, audit := newTestRouter(t, registry, &fakeAuthorizer{err: errors.New("database is locked")})

	batch, err := router.Process(context.Background(), rawCommand("c1", "mission.upsert", nil), sender)
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, []string{"mission_command_failed"}, audit.types())
}

func TestRouter_ProcessBatch_StopsOnUnexpectedError(t *testing.T) {
	var calls []string
	registry := NewRegistry()
	registry.Register("mission.upsert", func(_ context.Context, call *Call) (*Outcome, error) {
		calls = append(calls, call.Envelope.CommandID)
		if call.Envelope.CommandID == "c2" {
			return nil, errors.New("disk full")
		}
		return &Outcome{Result: map[string]any{"ok": true}}, nil
	})
	router, _ := newTestRouter(t, registry, grantAll())

	batch, err := router.ProcessBatch(context.Background(), []map[string]any{
		rawCommand("c1", "mission.upsert", nil),
		rawCommand("c2", "mission.upsert", nil),
		rawCommand("c3", "mission.upsert", nil),
	}, sender)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c2")
	assert.Equal(t, []string{"c1", "c2"}, calls)

	require.Len(t, batch.Responses, 3)
	assert.Equal(t, StatusAccepted, batch.Responses[0].Status)
	assert.Equal(t, StatusResult, batch.Responses[1].Status)
	assert.Equal(t, StatusAccepted, batch.Responses[2].Status)
	assert.Equal(t, "c2", batch.Responses[2].CommandID)
}

func TestRouter_ProcessBatch_RejectionsDoNotStop(t *testing.T) {
	registry := NewRegistry()
	registry.Register("mission.upsert", func(context.Context, *Call) (*Outcome, error) {
		return &Outcome{}, nil
	})
	router, _ := newTestRouter(t, registry, grantAll())

	batch, err := router.ProcessBatch(context.Background(), []map[string]any{
		rawCommand("c1", "mission.unknown", nil),
		rawCommand("c2", "mission.upsert", nil),
	}, sender)
	require.NoError(t, err)

	statuses := make([]Status, 0, len(batch.Responses))
	for _, response := range batch.Responses {
		statuses = append(statuses, response.Status)
	}
	assert.Equal(t, []Status{StatusRejected, StatusAccepted, StatusResult}, statuses)
}

func TestRouter_CommandTypes(t *testing.T) {
	registry := NewRegistry()
	noop := func(context.Context, *Call) (*Outcome, error) { return &Outcome{}, nil }
	registry.Register("mission.upsert", noop)
	registry.Register("mission.zone.create", noop)
	registry.Register("mission.unmapped", noop)
	router, _ := newTestRouter(t, registry, grantAll())

	assert.Equal(t, []string{"mission.upsert", "mission.zone.create"}, router.CommandTypes())
	assert.Equal(t, NamespaceMission, router.Namespace())

	capability, ok := router.RequiredCapability("mission.get")
	assert.True(t, ok)
	assert.Equal(t, "mission.read", capability)
}

func TestResponse_Fields(t *testing.T) {
	rejected := &Response{CommandID: "c1", Status: StatusRejected, ReasonCode: ReasonUnknownCommand}
	assert.Equal(t, map[string]any{
		"command_id":            "c1",
		"status":                "rejected",
		"reason_code":           "unknown_command",
		"required_capabilities": []string{},
	}, rejected.Fields())

	result := &Response{CommandID: "c2", Status: StatusResult, CorrelationID: "corr"}
	assert.Equal(t, map[string]any{
		"command_id":     "c2",
		"status":         "result",
		"correlation_id": "corr",
		"result":         map[string]any{},
	}, result.Fields())
}

func TestParseEnvelope(t *testing.T) {
	envelope, err := ParseEnvelope(rawCommand("c1", "checklist.task.status.set", nil))
	require.NoError(t, err)
	assert.Equal(t, "c1", envelope.CommandID)
	assert.Equal(t, map[string]any{}, envelope.Args)
	assert.Equal(t, 2025, envelope.IssuedAt.Year())

	raw := rawCommand("c1", "checklist.get", nil)
	raw["issued_at"] = "yesterday"
	_, err = ParseEnvelope(raw)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	raw = rawCommand("c1", "checklist get", nil)
	_, err = ParseEnvelope(raw)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDefaultCapabilityMaps_ReturnsCopies(t *testing.T) {
	first := DefaultCapabilityMaps()
	first.Mission["mission.get"] = "mission.admin"
	delete(first.Checklist, "checklist.get")

	second := DefaultCapabilityMaps()
	assert.Equal(t, "mission.read", second.Mission["mission.get"])
	assert.Equal(t, "checklist.read", second.Checklist["checklist.get"])
	assert.Equal(t, "mission.read", missionCapabilities["mission.get"])
}

func TestLoadCapabilityMaps(t *testing.T) {
	defaults, err := LoadCapabilityMaps("")
	require.NoError(t, err)
	assert.Equal(t, missionCapabilities, defaults.Mission)
	assert.Equal(t, checklistCapabilities, defaults.Checklist)

	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	content := "mission:\n  mission.get: mission.admin\n  mission.events.list: \"\"\nchecklist:\n  checklist.custom.run: checklist.write\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := LoadCapabilityMaps(path)
	require.NoError(t, err)
	assert.Equal(t, "mission.admin", loaded.Mission["mission.get"])
	assert.NotContains(t, loaded.Mission, "mission.events.list")
	assert.Equal(t, "checklist.write", loaded.Checklist["checklist.custom.run"])
	assert.Equal(t, "mission.read", missionCapabilities["mission.get"])

	_, err = LoadCapabilityMaps(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
