package domain

import (
	"github.com/allisson/missionhub/internal/errors"
)

// Not-found errors for referenced aggregates.
var (
	ErrMissionNotFound    = errors.Wrap(errors.ErrNotFound, "mission not found")
	ErrTeamNotFound       = errors.Wrap(errors.ErrNotFound, "team not found")
	ErrTeamMemberNotFound = errors.Wrap(errors.ErrNotFound, "team member not found")
	ErrSkillNotFound      = errors.Wrap(errors.ErrNotFound, "skill not found")
	ErrAssetNotFound      = errors.Wrap(errors.ErrNotFound, "asset not found")
	ErrAssignmentNotFound = errors.Wrap(errors.ErrNotFound, "assignment not found")
	ErrTemplateNotFound   = errors.Wrap(errors.ErrNotFound, "checklist template not found")
	ErrChecklistNotFound  = errors.Wrap(errors.ErrNotFound, "checklist not found")
	ErrTaskNotFound       = errors.Wrap(errors.ErrNotFound, "checklist task not found")
	ErrColumnNotFound     = errors.Wrap(errors.ErrNotFound, "checklist column not found")
)

// Validation errors.
var (
	// ErrInvalidColumns indicates a column set violating the due-column invariant.
	ErrInvalidColumns = errors.Wrap(errors.ErrInvalidInput, "invalid checklist columns")

	// ErrSystemColumnReadOnly is returned when a caller writes the due column directly.
	ErrSystemColumnReadOnly = errors.Wrap(errors.ErrInvalidInput, "system column is read-only")

	// ErrChecklistNotSynced is returned when publishing a checklist that was never uploaded.
	ErrChecklistNotSynced = errors.Wrap(errors.ErrInvalidInput, "checklist must be uploaded before publishing")

	// ErrChecklistNotOffline is returned when uploading a checklist that is not offline.
	ErrChecklistNotOffline = errors.Wrap(errors.ErrInvalidInput, "only offline checklists can be uploaded")

	// ErrInUse is returned when deleting an aggregate that others still reference.
	ErrInUse = errors.Wrap(errors.ErrInvalidInput, "aggregate is still referenced")

	// ErrTaskExists is returned when adding a task whose uid is already taken.
	ErrTaskExists = errors.Wrap(errors.ErrInvalidInput, "checklist task already exists")

	// ErrInvalidCSV indicates malformed checklist CSV input.
	ErrInvalidCSV = errors.Wrap(errors.ErrInvalidInput, "invalid checklist csv")
)
