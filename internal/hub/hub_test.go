package hub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/command"
	"github.com/allisson/missionhub/internal/document"
	"github.com/allisson/missionhub/internal/eventlog"
	"github.com/allisson/missionhub/internal/metrics"
	outboundDomain "github.com/allisson/missionhub/internal/outbound/domain"
	"github.com/allisson/missionhub/internal/topic"
	natsTransport "github.com/allisson/missionhub/internal/transport/nats"
)

type allowAll struct{}

func (allowAll) HasCapability(context.Context, string, capabilityDomain.Capability) (bool, error) {
	return true, nil
}

type recordingOutbox struct {
	mu       sync.Mutex
	payloads []*outboundDomain.Payload
}

func (r *recordingOutbox) Enqueue(p *outboundDomain.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recordingOutbox) to(destination string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fields []map[string]any
	for _, p := range r.payloads {
		if p.Destination == destination {
			fields = append(fields, p.Fields)
		}
	}
	return fields
}

type MockAnnouncer struct {
	mock.Mock
}

func (m *MockAnnouncer) Announce(ctx context.Context, appData map[string]any) error {
	args := m.Called(ctx, appData)
	return args.Error(0)
}

type fixture struct {
	hub    *Hub
	outbox *recordingOutbox
	topics *topic.Registry
	log    *eventlog.EventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := eventlog.New(100)
	topics := topic.NewRegistry(document.NewMemoryStore())

	missionRegistry := command.NewRegistry()
	missionRegistry.Register("mission.upsert", func(_ context.Context, call *command.Call) (*command.Outcome, error) {
		mission := map[string]any{"uid": "m1", "name": call.Envelope.Args["name"]}
		return &command.Outcome{Result: mission, EventType: "mission.upserted", EventPayload: mission}, nil
	})
	missionRegistry.Register("mission.get", func(context.Context, *command.Call) (*command.Outcome, error) {
		return nil, errors.New("storage unavailable")
	})
	checklistRegistry := command.NewRegistry()
	checklistRegistry.Register("checklist.list", func(context.Context, *command.Call) (*command.Outcome, error) {
		return &command.Outcome{Result: map[string]any{"checklists": []any{}}}, nil
	})

	newRouter := func(namespace string, capabilities map[string]string, registry *command.Registry) *command.Router {
		return command.NewRouter(command.Config{
			Namespace:     namespace,
			HubIdentity:   "hub0001",
			CapabilityMap: capabilities,
		}, registry, allowAll{}, log, metrics.NewNoOpBusinessMetrics(), logger)
	}

	outbox := &recordingOutbox{}
	hub := New(
		"hub0001",
		newRouter(command.NamespaceMission, map[string]string{
			"mission.upsert": "mission.write",
			"mission.get":    "mission.read",
		}, missionRegistry),
		newRouter(command.NamespaceChecklist, map[string]string{"checklist.list": "checklist.read"}, checklistRegistry),
		topics,
		outbox,
		log,
		logger,
	)
	return &fixture{hub: hub, outbox: outbox, topics: topics, log: log}
}

func rawCommand(id, commandType string, topics ...string) map[string]any {
	raw := map[string]any{
		"command_id":   id,
		"issued_at":    "2025-06-01T12:00:00Z",
		"command_type": commandType,
		"args":         map[string]any{"name": "Relief"},
	}
	if len(topics) > 0 {
		raw["topics"] = topics
	}
	return raw
}

func statuses(fields []map[string]any) []string {
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		result = append(result, f["command_id"].(string)+":"+f["status"].(string))
	}
	return result
}

func TestHub_HandleInbound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.topics.Subscribe(ctx, &topic.SubscribeInput{Topic: "ops", Identity: "b7e20d14"})
	require.NoError(t, err)
	_, err = f.topics.Subscribe(ctx, &topic.SubscribeInput{Topic: "ops", Identity: "c9d01a22", Destination: "relay01"})
	require.NoError(t, err)

	err = f.hub.HandleInbound(ctx, Inbound{
		SenderIdentity: "a3f1c09e",
		Commands: []map[string]any{
			rawCommand("c1", "mission.upsert", "ops"),
			rawCommand("c2", "checklist.list"),
			rawCommand("c3", "mission.unknown"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"c1:accepted", "c1:result",
		"c2:accepted", "c2:result",
		"c3:rejected",
	}, statuses(f.outbox.to("a3f1c09e")))

	for _, destination := range []string{"b7e20d14", "relay01"} {
		events := f.outbox.to(destination)
		require.Len(t, events, 1, destination)
		assert.Equal(t, "mission.upserted", events[0]["event_type"])
		assert.Equal(t, map[string]any{"identity": "hub0001"}, events[0]["source"])
		assert.Equal(t, []string{"ops"}, events[0]["topics"])
		assert.Equal(t, "Relief", events[0]["payload"].(map[string]any)["name"])
	}
}

func TestHub_HandleInbound_ReplyTo(t *testing.T) {
	f := newFixture(t)

	err := f.hub.HandleInbound(context.Background(), Inbound{
		SenderIdentity: "a3f1c09e",
		ReplyTo:        "relay01",
		Commands:       []map[string]any{rawCommand("c1", "checklist.list")},
	})
	require.NoError(t, err)

	assert.Empty(t, f.outbox.to("a3f1c09e"))
	assert.Len(t, f.outbox.to("relay01"), 2)
}

func TestHub_HandleInbound_MalformedElementRejectedAlone(t *testing.T) {
	f := newFixture(t)

	msg := nats.NewMsg("mesh.hub.commands")
	msg.Header.Set(natsTransport.HeaderSourceIdentity, "a3f1c09e")
	msg.Data = []byte(`{"commands":[` +
		`{"command_id":"c1","issued_at":"2025-06-01T12:00:00Z","command_type":"checklist.list","args":{}},` +
		`"junk",` +
		`{"command_id":"c3","issued_at":"2025-06-01T12:00:00Z","command_type":"checklist.list","args":{}}]}`)

	decoded, err := natsTransport.DecodeInbound(msg)
	require.NoError(t, err)

	err = f.hub.HandleInbound(context.Background(), Inbound{
		SenderIdentity: decoded.SenderIdentity,
		ReplyTo:        decoded.ReplyTo,
		Commands:       decoded.Commands,
	})
	require.NoError(t, err)

	responses := f.outbox.to("a3f1c09e")
	assert.Equal(t, []string{
		"c1:accepted", "c1:result",
		":rejected",
		"c3:accepted", "c3:result",
	}, statuses(responses))
	assert.Equal(t, string(command.ReasonInvalidPayload), responses[2]["reason_code"])
}

func TestHub_HandleInbound_StopsOnUnexpectedError(t *testing.T) {
	f := newFixture(t)

	err := f.hub.HandleInbound(context.Background(), Inbound{
		SenderIdentity: "a3f1c09e",
		Commands: []map[string]any{
			rawCommand("c1", "checklist.list"),
			rawCommand("c2", "mission.get"),
			rawCommand("c3", "checklist.list"),
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")

	assert.Equal(t, []string{"c1:accepted", "c1:result", "c2:accepted"}, statuses(f.outbox.to("a3f1c09e")))

	recent := f.log.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "hub_batch_failed", recent[0].Type)
	assert.Equal(t, 1, recent[0].Metadata["processed"])
}

func TestHub_Announce(t *testing.T) {
	f := newFixture(t)
	announcer := &MockAnnouncer{}
	announcer.On("Announce", mock.Anything, map[string]any{
		"identity":      "hub0001",
		"role":          "mission_hub",
		"command_types": []string{"checklist.list", "mission.get", "mission.upsert"},
	}).Return(nil).Once()

	require.NoError(t, f.hub.Announce(context.Background(), announcer))
	announcer.AssertExpectations(t)

	failing := &MockAnnouncer{}
	failing.On("Announce", mock.Anything, mock.Anything).Return(errors.New("not connected")).Once()
	assert.Error(t, f.hub.Announce(context.Background(), failing))
}
