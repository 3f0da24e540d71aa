package command

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	apperrors "github.com/allisson/missionhub/internal/errors"
	"github.com/allisson/missionhub/internal/metrics"
)

// Call is what a handler receives for one authorized command.
type Call struct {
	Envelope *Envelope
	// Sender is the lower-cased transport-level identity of the caller.
	Sender string
}

// Outcome is the successful result of a handler. EventType is empty when the command
// changed nothing worth announcing.
type Outcome struct {
	Result       any
	EventType    string
	EventPayload any
}

// Handler executes one command type.
type Handler func(ctx context.Context, call *Call) (*Outcome, error)

// Registry maps command types to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds handler to commandType, replacing any earlier binding.
func (r *Registry) Register(commandType string, handler Handler) {
	r.handlers[commandType] = handler
}

// Authorizer answers capability questions.
type Authorizer interface {
	HasCapability(ctx context.Context, identity string, capability capabilityDomain.Capability) (bool, error)
}

// AuditTrail receives operational audit entries.
type AuditTrail interface {
	Record(eventType, message string, metadata map[string]any)
}

// Config configures a Router.
type Config struct {
	// Namespace prefixes audit entry types, e.g. "checklist" gives checklist_command_accepted.
	Namespace string
	// HubIdentity is the source identity of emitted event envelopes.
	HubIdentity string
	// CapabilityMap maps each command type to the capability it requires.
	CapabilityMap map[string]string
}

// Router processes command envelopes for one namespace. Its capability map and handler
// table are copied at construction and never change afterwards.
type Router struct {
	namespace    string
	hubIdentity  string
	capabilities map[string]string
	handlers     map[string]Handler
	authorizer   Authorizer
	audit        AuditTrail
	metrics      metrics.BusinessMetrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewRouter creates a Router.
func NewRouter(
	cfg Config,
	registry *Registry,
	authorizer Authorizer,
	audit AuditTrail,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		namespace:    cfg.Namespace,
		hubIdentity:  cfg.HubIdentity,
		capabilities: maps.Clone(cfg.CapabilityMap),
		handlers:     maps.Clone(registry.handlers),
		authorizer:   authorizer,
		audit:        audit,
		metrics:      businessMetrics,
		logger:       logger.With(slog.String("router", cfg.Namespace)),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Namespace returns the router namespace.
func (r *Router) Namespace() string {
	return r.namespace
}

// CommandTypes returns the sorted command types that have both a capability mapping and
// a handler.
func (r *Router) CommandTypes() []string {
	types := make([]string, 0, len(r.capabilities))
	for commandType := range r.capabilities {
		if _, ok := r.handlers[commandType]; ok {
			types = append(types, commandType)
		}
	}
	slices.Sort(types)
	return types
}

// RequiredCapability returns the capability mapped to commandType.
func (r *Router) RequiredCapability(commandType string) (string, bool) {
	capability, ok := r.capabilities[commandType]
	return capability, ok
}

// ProcessBatch processes commands in order and concatenates their output. An
// unexpected error stops the batch; the output produced so far is returned with it.
func (r *Router) ProcessBatch(ctx context.Context, commands []map[string]any, sender string) (*Batch, error) {
	batch := &Batch{}
	for _, raw := range commands {
		out, err := r.Process(ctx, raw, sender)
		batch.append(out)
		if err != nil {
			return batch, err
		}
	}
	return batch, nil
}

// Process handles one raw command. Every outcome the caller can act on is a response in
// the returned batch; the error is reserved for failures that are not the caller's fault.
func (r *Router) Process(ctx context.Context, raw map[string]any, sender string) (*Batch, error) {
	commandID, correlationID := bestEffortIDs(raw)
	sender = capabilityDomain.NormalizeIdentity(sender)

	envelope, err := ParseEnvelope(raw)
	if err != nil {
		return r.reject(ctx, &Envelope{CommandID: commandID, CorrelationID: correlationID},
			sender, ReasonInvalidPayload, err.Error(), nil), nil
	}

	if envelope.Source.Identity != "" && sender != "" &&
		!strings.EqualFold(envelope.Source.Identity, sender) {
		return r.reject(ctx, envelope, sender, ReasonUnauthorized,
			"source identity does not match the transport sender", nil), nil
	}

	capability, ok := r.capabilities[envelope.CommandType]
	handler, registered := r.handlers[envelope.CommandType]
	if !ok || !registered {
		return r.reject(ctx, envelope, sender, ReasonUnknownCommand,
			"unknown command type "+envelope.CommandType, nil), nil
	}
	required := []string{capability}

	if sender == "" {
		return r.reject(ctx, envelope, sender, ReasonUnauthorized,
			"sender identity is required", required), nil
	}

	allowed, err := r.authorizer.HasCapability(ctx, sender, capabilityDomain.Capability(capability))
	if err != nil {
		return nil, r.fail(ctx, envelope, sender, apperrors.Wrap(err, "failed to evaluate capabilities"))
	}
	if !allowed {
		return r.reject(ctx, envelope, sender, ReasonUnauthorized,
			"missing capability "+capability, required), nil
	}

	batch := &Batch{Responses: []*Response{r.accepted(envelope, sender)}}
	r.record("accepted", "command accepted", envelope, sender, nil)

	start := time.Now()
	outcome, err := handler(ctx, &Call{Envelope: envelope, Sender: sender})
	if err != nil {
		code, known := classify(err)
		if !known {
			r.metrics.RecordDuration(ctx, r.namespace, envelope.CommandType, time.Since(start), metrics.StatusError)
			return batch, r.fail(ctx, envelope, sender, err)
		}
		r.metrics.RecordDuration(ctx, r.namespace, envelope.CommandType, time.Since(start), metrics.StatusRejected)
		batch.append(r.reject(ctx, envelope, sender, code, err.Error(), nil))
		return batch, nil
	}
	r.metrics.RecordDuration(ctx, r.namespace, envelope.CommandType, time.Since(start), metrics.StatusSuccess)

	if outcome == nil {
		outcome = &Outcome{}
	}
	batch.Responses = append(batch.Responses, &Response{
		CommandID:     envelope.CommandID,
		Status:        StatusResult,
		CorrelationID: envelope.CorrelationID,
		Result:        outcome.Result,
	})

	if outcome.EventType != "" {
		event, err := r.event(envelope, outcome)
		if err != nil {
			return batch, r.fail(ctx, envelope, sender, err)
		}
		batch.Events = append(batch.Events, event)
	}

	r.metrics.RecordOperation(ctx, r.namespace, envelope.CommandType, metrics.StatusSuccess)
	r.record("processed", "command processed", envelope, sender, nil)
	r.logger.Debug("command processed",
		slog.String("command_id", envelope.CommandID),
		slog.String("command_type", envelope.CommandType),
		slog.String("identity", sender),
	)
	return batch, nil
}

func (r *Router) accepted(envelope *Envelope, sender string) *Response {
	return &Response{
		CommandID:     envelope.CommandID,
		Status:        StatusAccepted,
		CorrelationID: envelope.CorrelationID,
		AcceptedAt:    r.now(),
		ByIdentity:    sender,
	}
}

func (r *Router) reject(
	ctx context.Context,
	envelope *Envelope,
	sender string,
	code ReasonCode,
	reason string,
	required []string,
) *Batch {
	operation := envelope.CommandType
	if operation == "" {
		operation = "invalid"
	}
	r.metrics.RecordOperation(ctx, r.namespace, operation, metrics.StatusRejected)
	r.record("rejected", "command rejected", envelope, sender, map[string]any{
		"reason_code": string(code),
		"reason":      reason,
	})
	r.logger.Info("command rejected",
		slog.String("command_id", envelope.CommandID),
		slog.String("command_type", envelope.CommandType),
		slog.String("identity", sender),
		slog.String("reason_code", string(code)),
		slog.String("reason", reason),
	)

	return &Batch{Responses: []*Response{{
		CommandID:            envelope.CommandID,
		Status:               StatusRejected,
		CorrelationID:        envelope.CorrelationID,
		ReasonCode:           code,
		Reason:               reason,
		RequiredCapabilities: required,
	}}}
}

func (r *Router) fail(ctx context.Context, envelope *Envelope, sender string, err error) error {
	r.metrics.RecordOperation(ctx, r.namespace, envelope.CommandType, metrics.StatusError)
	r.record("failed", "command failed", envelope, sender, map[string]any{"error": err.Error()})
	r.logger.Error("command failed",
		slog.String("command_id", envelope.CommandID),
		slog.String("command_type", envelope.CommandType),
		slog.String("identity", sender),
		slog.Any("error", err),
	)
	return apperrors.Wrapf(err, "command %s (%s)", envelope.CommandID, envelope.CommandType)
}

func (r *Router) event(envelope *Envelope, outcome *Outcome) (*EventEnvelope, error) {
	payload, err := toMap(outcome.EventPayload)
	if err != nil {
		return nil, err
	}

	topics := slices.Clone(envelope.Topics)
	if topics == nil {
		topics = []string{}
	}

	return &EventEnvelope{
		EventID:   uuid.Must(uuid.NewV7()).String(),
		Source:    Source{Identity: r.hubIdentity},
		Timestamp: r.now(),
		EventType: outcome.EventType,
		Topics:    topics,
		Payload:   payload,
	}, nil
}

func (r *Router) record(outcome, message string, envelope *Envelope, sender string, extra map[string]any) {
	metadata := map[string]any{
		"command_id":   envelope.CommandID,
		"command_type": envelope.CommandType,
		"identity":     sender,
	}
	if envelope.CorrelationID != "" {
		metadata["correlation_id"] = envelope.CorrelationID
	}
	maps.Copy(metadata, extra)
	r.audit.Record(r.namespace+"_command_"+outcome, message, metadata)
}

// toMap converts a value to a JSON object.
func toMap(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode event payload")
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, apperrors.Wrap(err, "event payload is not an object")
	}
	return m, nil
}
