// Package command routes batches of command envelopes received over the mesh.
//
// A Router validates each envelope, checks the sender's identity and capability,
// dispatches to the handler registered for the command type, and assembles the
// accepted/result/rejected responses plus the domain event envelopes that fan out to
// topic subscribers. Domain failures never cross the transport boundary as errors:
// they become rejections with a reason code.
package command

import (
	"encoding/json"
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/missionhub/internal/validation"
)

// Status is the kind of a response.
type Status string

// Response statuses.
const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusResult   Status = "result"
)

// ReasonCode classifies a rejection.
type ReasonCode string

// Rejection reason codes.
const (
	ReasonInvalidPayload       ReasonCode = "invalid_payload"
	ReasonUnauthorized         ReasonCode = "unauthorized"
	ReasonUnknownCommand       ReasonCode = "unknown_command"
	ReasonUnsupportedOperation ReasonCode = "unsupported_operation"
)

// Source identifies who issued a command or event.
type Source struct {
	Identity string `json:"identity"`
}

// Envelope is one validated command.
type Envelope struct {
	CommandID     string         `json:"command_id"`
	Source        Source         `json:"source"`
	IssuedAt      time.Time      `json:"issued_at"`
	CommandType   string         `json:"command_type"`
	Args          map[string]any `json:"args"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Topics        []string       `json:"topics,omitempty"`
}

// wireEnvelope is the untrusted form of Envelope as decoded from the transport.
type wireEnvelope struct {
	CommandID     string         `json:"command_id"`
	Source        *Source        `json:"source"`
	IssuedAt      string         `json:"issued_at"`
	CommandType   string         `json:"command_type"`
	Args          map[string]any `json:"args"`
	CorrelationID string         `json:"correlation_id"`
	Topics        []string       `json:"topics"`
}

func (w *wireEnvelope) Validate() error {
	err := validation.ValidateStruct(w,
		validation.Field(&w.CommandID, validation.Required, validation.Length(1, 128)),
		validation.Field(&w.IssuedAt, validation.Required, customValidation.RFC3339),
		validation.Field(&w.CommandType, validation.Required, customValidation.DottedName, validation.Length(1, 128)),
		validation.Field(&w.CorrelationID, validation.Length(0, 128)),
		validation.Field(&w.Topics, validation.Each(validation.Required, validation.Length(1, 64))),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	if w.Source != nil && w.Source.Identity != "" {
		return customValidation.WrapValidationError(
			validation.Validate(w.Source.Identity, customValidation.Identity),
		)
	}
	return nil
}

// ParseEnvelope validates a raw command map. Type mismatches and missing fields are
// reported as ErrInvalidInput.
func ParseEnvelope(raw map[string]any) (*Envelope, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, customValidation.WrapValidationError(err)
	}

	var wire wireEnvelope
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	if err := wire.Validate(); err != nil {
		return nil, err
	}

	issuedAt, _ := time.Parse(time.RFC3339, wire.IssuedAt)
	envelope := &Envelope{
		CommandID:     wire.CommandID,
		IssuedAt:      issuedAt.UTC(),
		CommandType:   wire.CommandType,
		Args:          wire.Args,
		CorrelationID: wire.CorrelationID,
		Topics:        wire.Topics,
	}
	if wire.Source != nil {
		envelope.Source = *wire.Source
	}
	if envelope.Args == nil {
		envelope.Args = map[string]any{}
	}
	return envelope, nil
}

// bestEffortIDs extracts the correlation fields of a raw command before validation so a
// malformed envelope can still be answered.
func bestEffortIDs(raw map[string]any) (commandID, correlationID string) {
	commandID, _ = raw["command_id"].(string)
	correlationID, _ = raw["correlation_id"].(string)
	return commandID, correlationID
}

// Response is one accepted, rejected or result message for a command.
type Response struct {
	CommandID            string
	Status               Status
	CorrelationID        string
	AcceptedAt           time.Time
	ByIdentity           string
	ReasonCode           ReasonCode
	Reason               string
	RequiredCapabilities []string
	Result               any
}

// Fields returns the wire shape of the response. Only the fields of its status are set.
func (r *Response) Fields() map[string]any {
	fields := map[string]any{
		"command_id": r.CommandID,
		"status":     string(r.Status),
	}
	if r.CorrelationID != "" {
		fields["correlation_id"] = r.CorrelationID
	}

	switch r.Status {
	case StatusAccepted:
		fields["accepted_at"] = r.AcceptedAt.Format(time.RFC3339Nano)
		if r.ByIdentity != "" {
			fields["by_identity"] = r.ByIdentity
		}
	case StatusRejected:
		fields["reason_code"] = string(r.ReasonCode)
		if r.Reason != "" {
			fields["reason"] = r.Reason
		}
		required := r.RequiredCapabilities
		if required == nil {
			required = []string{}
		}
		fields["required_capabilities"] = required
	case StatusResult:
		result := r.Result
		if result == nil {
			result = map[string]any{}
		}
		fields["result"] = result
	}
	return fields
}

// MarshalJSON encodes the wire shape.
func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// EventEnvelope announces a state change to subscribers of the command's topics.
type EventEnvelope struct {
	EventID   string         `json:"event_id"`
	Source    Source         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Topics    []string       `json:"topics"`
	Payload   map[string]any `json:"payload"`
}

// Batch is the ordered output of processing commands.
type Batch struct {
	Responses []*Response
	Events    []*EventEnvelope
}

func (b *Batch) append(other *Batch) {
	if other == nil {
		return
	}
	b.Responses = append(b.Responses, other.Responses...)
	b.Events = append(b.Events, other.Events...)
}
