// Package handlers binds command types to the mission domain service, the topic
// registry and the optional marker and zone services.
package handlers

import (
	"context"
	"encoding/json"

	validation "github.com/jellydator/validation"

	"github.com/allisson/missionhub/internal/command"
	apperrors "github.com/allisson/missionhub/internal/errors"
	customValidation "github.com/allisson/missionhub/internal/validation"
)

// MarkerService manages map markers. Deployments without one reject marker commands
// with unsupported_operation.
type MarkerService interface {
	CreateMarker(ctx context.Context, args map[string]any, actor string) (map[string]any, error)
	UpdateMarker(ctx context.Context, args map[string]any, actor string) (map[string]any, error)
	DeleteMarker(ctx context.Context, args map[string]any, actor string) (map[string]any, error)
}

// ZoneService manages map zones. Deployments without one reject zone commands with
// unsupported_operation.
type ZoneService interface {
	CreateZone(ctx context.Context, args map[string]any, actor string) (map[string]any, error)
	UpdateZone(ctx context.Context, args map[string]any, actor string) (map[string]any, error)
	DeleteZone(ctx context.Context, args map[string]any, actor string) (map[string]any, error)
}

// uidArgs addresses one aggregate.
type uidArgs struct {
	UID string `json:"uid"`
}

func (a *uidArgs) Validate() error {
	err := validation.ValidateStruct(a,
		validation.Field(&a.UID, validation.Required),
	)
	return customValidation.WrapValidationError(err)
}

// decodeArgs decodes command args into dst. A type mismatch is invalid input.
func decodeArgs(call *command.Call, dst any) error {
	body, err := json.Marshal(call.Envelope.Args)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid args: "+err.Error())
	}
	return nil
}

// decodeUID decodes and validates uid args.
func decodeUID(call *command.Call) (string, error) {
	var args uidArgs
	if err := decodeArgs(call, &args); err != nil {
		return "", err
	}
	if err := args.Validate(); err != nil {
		return "", err
	}
	return args.UID, nil
}

// changed is the outcome of a mutation: the aggregate is both the result and the event payload.
func changed(eventType string, aggregate any) *command.Outcome {
	return &command.Outcome{Result: aggregate, EventType: eventType, EventPayload: aggregate}
}

// read is the outcome of a query.
func read(result any) *command.Outcome {
	return &command.Outcome{Result: result}
}
