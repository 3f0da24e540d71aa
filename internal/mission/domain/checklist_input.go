package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/missionhub/internal/validation"
)

// CreateTemplateInput creates a checklist template.
type CreateTemplateInput struct {
	UID         string            `json:"uid"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Columns     []ChecklistColumn `json:"columns"`
	Actor       string            `json:"-"`
}

// Validate checks the input, including the column invariant.
func (i *CreateTemplateInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	return ValidateColumns(i.Columns)
}

// UpdateTemplateInput replaces the name, description and columns of a template.
type UpdateTemplateInput struct {
	UID         string            `json:"uid"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Columns     []ChecklistColumn `json:"columns"`
}

// Validate checks the input, including the column invariant.
func (i *UpdateTemplateInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.UID, validation.Required),
		validation.Field(&i.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	return ValidateColumns(i.Columns)
}

// CreateOnlineChecklistInput instantiates a checklist from a template.
type CreateOnlineChecklistInput struct {
	UID         string     `json:"uid"`
	TemplateUID string     `json:"template_uid"`
	MissionUID  string     `json:"mission_uid"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	Actor       string     `json:"-"`
}

// Validate checks the input.
func (i *CreateOnlineChecklistInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.TemplateUID, validation.Required),
		validation.Field(&i.Name, validation.Length(0, 255)),
	)
	return customValidation.WrapValidationError(err)
}

// CreateOfflineChecklistInput creates a local-only checklist. Columns come from the
// template when TemplateUID is set, else from Columns, else DefaultColumns.
type CreateOfflineChecklistInput struct {
	UID         string            `json:"uid"`
	TemplateUID string            `json:"template_uid"`
	MissionUID  string            `json:"mission_uid"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	StartTime   *time.Time        `json:"start_time"`
	Columns     []ChecklistColumn `json:"columns"`
	Actor       string            `json:"-"`
}

// Validate checks the input. Explicit columns must satisfy the column invariant.
func (i *CreateOfflineChecklistInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	if len(i.Columns) > 0 {
		return ValidateColumns(i.Columns)
	}
	return nil
}

// ImportChecklistCSVInput creates an offline checklist with one task per CSV record.
type ImportChecklistCSVInput struct {
	CreateOfflineChecklistInput
	CSV       string `json:"csv"`
	HasHeader bool   `json:"has_header"`
}

// Validate checks the input.
func (i *ImportChecklistCSVInput) Validate() error {
	if err := i.CreateOfflineChecklistInput.Validate(); err != nil {
		return err
	}
	err := validation.ValidateStruct(i,
		validation.Field(&i.CSV, validation.Required, customValidation.NotBlank),
	)
	return customValidation.WrapValidationError(err)
}

// UpdateChecklistInput changes checklist metadata. Nil fields are left unchanged.
type UpdateChecklistInput struct {
	ChecklistUID string     `json:"checklist_uid"`
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	StartTime    *time.Time `json:"start_time"`
	MissionUID   *string    `json:"mission_uid"`
}

// Validate checks the input.
func (i *UpdateChecklistInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.ChecklistUID, validation.Required),
		validation.Field(&i.Name, validation.NilOrNotEmpty, customValidation.NotBlank, validation.Length(1, 255)),
	)
	return customValidation.WrapValidationError(err)
}

// UploadChecklistInput marks an offline checklist as synced.
type UploadChecklistInput struct {
	ChecklistUID string `json:"checklist_uid"`
	Actor        string `json:"-"`
}

// Validate checks the input.
func (i *UploadChecklistInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.ChecklistUID, validation.Required),
	)
	return customValidation.WrapValidationError(err)
}

// PublishChecklistInput attaches a synced checklist to a mission feed.
type PublishChecklistInput struct {
	ChecklistUID   string `json:"checklist_uid"`
	MissionFeedUID string `json:"mission_feed_uid"`
}

// Validate checks the input.
func (i *PublishChecklistInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.ChecklistUID, validation.Required),
		validation.Field(&i.MissionFeedUID, validation.Required, customValidation.NotBlank),
	)
	return customValidation.WrapValidationError(err)
}

// CellInput is the value of one column in AddTaskInput.
type CellInput struct {
	ColumnUID string `json:"column_uid"`
	Value     string `json:"value"`
}

// AddTaskInput appends a task row.
type AddTaskInput struct {
	ChecklistUID       string      `json:"checklist_uid"`
	TaskUID            string      `json:"task_uid"`
	Number             int         `json:"number"`
	DueRelativeMinutes *int        `json:"due_relative_minutes"`
	Cells              []CellInput `json:"cells"`
	Notes              string      `json:"notes"`
	Actor              string      `json:"-"`
}

// Validate checks the input.
func (i *AddTaskInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.ChecklistUID, validation.Required),
		validation.Field(&i.Number, validation.Min(0)),
	)
	return customValidation.WrapValidationError(err)
}

// DeleteTaskInput removes a task row.
type DeleteTaskInput struct {
	ChecklistUID string `json:"checklist_uid"`
	TaskUID      string `json:"task_uid"`
}

// Validate checks the input.
func (i *DeleteTaskInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.ChecklistUID, validation.Required),
		validation.Field(&i.TaskUID, validation.Required),
	)
	return customValidation.WrapValidationError(err)
}

// SetTaskStatusInput sets the user status of a task. CompletedAt defaults to now
// when completing.
type SetTaskStatusInput struct {
	ChecklistUID string     `json:"checklist_uid"`
	TaskUID      string     `json:"task_uid"`
	UserStatus   UserStatus `json:"user_status"`
	CompletedAt  *time.Time `json:"completed_at"`
	Actor        string     `json:"-"`
}

// Validate checks the input.
func (i *SetTaskStatusInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.ChecklistUID, validation.Required),
		validation.Field(&i.TaskUID, validation.Required),
		validation.Field(&i.UserStatus, validation.Required, validation.In(UserStatusPending, UserStatusComplete)),
	)
	return customValidation.WrapValidationError(err)
}

// SetTaskCellInput sets the value of one column of a task.
type SetTaskCellInput struct {
	ChecklistUID string `json:"checklist_uid"`
	TaskUID      string `json:"task_uid"`
	ColumnUID    string `json:"column_uid"`
	Value        string `json:"value"`
	Actor        string `json:"-"`
}

// Validate checks the input.
func (i *SetTaskCellInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.ChecklistUID, validation.Required),
		validation.Field(&i.TaskUID, validation.Required),
		validation.Field(&i.ColumnUID, validation.Required),
	)
	return customValidation.WrapValidationError(err)
}
