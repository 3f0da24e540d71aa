// Package hub dispatches inbound command batches to the routers and hands every
// response and event envelope to the outbound queue.
package hub

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/allisson/missionhub/internal/command"
	apperrors "github.com/allisson/missionhub/internal/errors"
	outboundDomain "github.com/allisson/missionhub/internal/outbound/domain"
	"github.com/allisson/missionhub/internal/topic"
)

// Inbound is one command batch received from the transport.
type Inbound struct {
	SenderIdentity string
	ReplyTo        string
	Commands       []map[string]any
}

// Router processes commands of one namespace.
type Router interface {
	Namespace() string
	CommandTypes() []string
	Process(ctx context.Context, raw map[string]any, sender string) (*command.Batch, error)
}

// SubscriberDirectory resolves topic subscribers.
type SubscriberDirectory interface {
	Subscribers(ctx context.Context, topics ...string) ([]*topic.Subscription, error)
}

// Outbox accepts payloads for delivery.
type Outbox interface {
	Enqueue(p *outboundDomain.Payload) error
}

// Announcer publishes the hub's presence.
type Announcer interface {
	Announce(ctx context.Context, appData map[string]any) error
}

// AuditTrail receives operational audit entries.
type AuditTrail interface {
	Record(eventType, message string, metadata map[string]any)
}

// Hub routes inbound batches. Commands whose type starts with "checklist." go to the
// checklist router, everything else to the mission router.
type Hub struct {
	identity    string
	missions    Router
	checklists  Router
	subscribers SubscriberDirectory
	outbox      Outbox
	audit       AuditTrail
	logger      *slog.Logger
}

// New creates a Hub.
func New(
	identity string,
	missions Router,
	checklists Router,
	subscribers SubscriberDirectory,
	outbox Outbox,
	audit AuditTrail,
	logger *slog.Logger,
) *Hub {
	return &Hub{
		identity:    identity,
		missions:    missions,
		checklists:  checklists,
		subscribers: subscribers,
		outbox:      outbox,
		audit:       audit,
		logger:      logger,
	}
}

func (h *Hub) route(raw map[string]any) Router {
	commandType, _ := raw["command_type"].(string)
	if strings.HasPrefix(commandType, command.NamespaceChecklist+".") {
		return h.checklists
	}
	return h.missions
}

// HandleInbound processes the commands in order. Responses are enqueued to ReplyTo as
// they are produced; event envelopes fan out to the subscribers of their topics. An
// unexpected router error stops the batch after the output produced so far is enqueued.
func (h *Hub) HandleInbound(ctx context.Context, inbound Inbound) error {
	if inbound.ReplyTo == "" {
		inbound.ReplyTo = inbound.SenderIdentity
	}

	for idx, raw := range inbound.Commands {
		batch, err := h.route(raw).Process(ctx, raw, inbound.SenderIdentity)
		if batch != nil {
			h.deliver(ctx, inbound.ReplyTo, batch)
		}
		if err != nil {
			h.audit.Record("hub_batch_failed", "inbound batch stopped", map[string]any{
				"identity":  inbound.SenderIdentity,
				"processed": idx,
				"remaining": len(inbound.Commands) - idx - 1,
				"error":     err.Error(),
			})
			return apperrors.Wrapf(err, "batch from %s stopped at command %d", inbound.SenderIdentity, idx)
		}
	}
	return nil
}

func (h *Hub) deliver(ctx context.Context, replyTo string, batch *command.Batch) {
	for _, response := range batch.Responses {
		if replyTo == "" {
			h.logger.Warn("response has no reply destination", slog.String("command_id", response.CommandID))
			continue
		}
		h.enqueue(&outboundDomain.Payload{Destination: replyTo, Fields: response.Fields()})
	}

	for _, event := range batch.Events {
		if len(event.Topics) == 0 {
			continue
		}
		subscribers, err := h.subscribers.Subscribers(ctx, event.Topics...)
		if err != nil {
			h.logger.Error("failed to resolve topic subscribers",
				slog.String("event_id", event.EventID),
				slog.Any("topics", event.Topics),
				slog.Any("error", err),
			)
			continue
		}
		fields := EventFields(event)
		for _, subscriber := range subscribers {
			h.enqueue(&outboundDomain.Payload{Destination: subscriber.Destination, Fields: fields})
		}
	}
}

func (h *Hub) enqueue(p *outboundDomain.Payload) {
	if err := h.outbox.Enqueue(p); err != nil {
		h.logger.Warn("failed to enqueue payload",
			slog.String("destination", p.Destination),
			slog.Any("error", err),
		)
	}
}

// EventFields returns the wire shape of an event envelope.
func EventFields(event *command.EventEnvelope) map[string]any {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return map[string]any{
		"event_id":   event.EventID,
		"source":     map[string]any{"identity": event.Source.Identity},
		"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
		"event_type": event.EventType,
		"topics":     slices.Clone(event.Topics),
		"payload":    payload,
	}
}

// CommandTypes returns every command type the hub accepts, sorted.
func (h *Hub) CommandTypes() []string {
	types := append(h.missions.CommandTypes(), h.checklists.CommandTypes()...)
	slices.Sort(types)
	return types
}

// Announce publishes the hub identity and its supported command types.
func (h *Hub) Announce(ctx context.Context, announcer Announcer) error {
	appData := map[string]any{
		"identity":      h.identity,
		"role":          "mission_hub",
		"command_types": h.CommandTypes(),
	}
	if err := announcer.Announce(ctx, appData); err != nil {
		return apperrors.Wrap(err, "failed to announce hub")
	}
	h.logger.Info("hub announced", slog.String("identity", h.identity))
	return nil
}
