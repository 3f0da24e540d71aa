package nats

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	apperrors "github.com/allisson/missionhub/internal/errors"
	"github.com/allisson/missionhub/internal/outbound/domain"
)

// Message headers of the mesh contract.
const (
	HeaderSourceIdentity = "Mesh-Source-Identity"
	HeaderReplyTo        = "Mesh-Reply-To"
	HeaderPayloadID      = "Mesh-Payload-Id"
)

// Inbound is one decoded command batch.
type Inbound struct {
	SenderIdentity string
	ReplyTo        string
	Commands       []map[string]any
}

type inboundBody struct {
	Commands []json.RawMessage `json:"commands"`
}

// EncodePayload returns the wire body of p: Body when the emitter already encoded it,
// otherwise the JSON encoding of Fields.
func EncodePayload(p *domain.Payload) ([]byte, error) {
	if p.Body != nil {
		return p.Body, nil
	}
	fields := p.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode payload")
	}
	return data, nil
}

// DecodeInbound decodes a command batch message. The reply destination defaults to the
// sender identity. An element that is not a JSON object decodes to an empty command so
// the router rejects it alone and the rest of the batch still runs.
func DecodeInbound(msg *nats.Msg) (*Inbound, error) {
	var body inboundBody
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed command batch: "+err.Error())
	}
	if body.Commands == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "command batch has no commands array")
	}

	inbound := &Inbound{Commands: make([]map[string]any, 0, len(body.Commands))}
	for _, element := range body.Commands {
		inbound.Commands = append(inbound.Commands, decodeCommand(element))
	}
	if msg.Header != nil {
		inbound.SenderIdentity = strings.TrimSpace(msg.Header.Get(HeaderSourceIdentity))
		inbound.ReplyTo = strings.TrimSpace(msg.Header.Get(HeaderReplyTo))
	}
	if inbound.ReplyTo == "" {
		inbound.ReplyTo = inbound.SenderIdentity
	}
	return inbound, nil
}

func decodeCommand(element json.RawMessage) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(element, &raw); err != nil || raw == nil {
		return map[string]any{}
	}
	return raw
}
