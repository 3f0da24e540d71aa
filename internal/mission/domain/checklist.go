package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/missionhub/internal/errors"
)

// ChecklistColumn describes one column of a template or checklist.
type ChecklistColumn struct {
	UID          string     `json:"column_uid"`
	Name         string     `json:"column_name"`
	Type         ColumnType `json:"column_type"`
	SystemKey    string     `json:"system_key,omitempty"`
	IsRemovable  bool       `json:"is_removable"`
	DisplayOrder int        `json:"display_order"`
}

// IsDueColumn reports whether the column is the system due-time column.
func (c *ChecklistColumn) IsDueColumn() bool {
	return c.SystemKey == SystemKeyDueRelativeDTG
}

// ChecklistCell is the value of one column for one task.
type ChecklistCell struct {
	ColumnUID string    `json:"column_uid"`
	Value     string    `json:"value"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChecklistTemplate is a versioned column layout checklists are instantiated from.
type ChecklistTemplate struct {
	UID         string            `json:"uid"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Version     int               `json:"version"`
	Columns     []ChecklistColumn `json:"columns"`
	CreatedBy   string            `json:"created_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ChecklistTask is one row of a checklist. TaskStatus and DueDTG are derived.
type ChecklistTask struct {
	UID                string          `json:"task_uid"`
	Number             int             `json:"number"`
	DueRelativeMinutes *int            `json:"due_relative_minutes,omitempty"`
	DueDTG             *time.Time      `json:"due_dtg,omitempty"`
	UserStatus         UserStatus      `json:"user_status"`
	TaskStatus         TaskStatus      `json:"task_status"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	CompletedBy        string          `json:"completed_by,omitempty"`
	Cells              []ChecklistCell `json:"cells"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SetCell adds or replaces the value of a column.
func (t *ChecklistTask) SetCell(columnUID, value, by string, at time.Time) {
	for i := range t.Cells {
		if t.Cells[i].ColumnUID == columnUID {
			t.Cells[i].Value = value
			t.Cells[i].UpdatedBy = by
			t.Cells[i].UpdatedAt = at
			return
		}
	}
	t.Cells = append(t.Cells, ChecklistCell{ColumnUID: columnUID, Value: value, UpdatedBy: by, UpdatedAt: at})
}

// ChecklistCounts tallies derived task statuses. Late tasks are also pending, so
// Pending + Complete always equals Total.
type ChecklistCounts struct {
	Total    int `json:"total_count"`
	Pending  int `json:"pending_count"`
	Late     int `json:"late_count"`
	Complete int `json:"complete_count"`
}

// Checklist is an instance of a column layout with task rows and derived progress.
type Checklist struct {
	UID             string            `json:"uid"`
	MissionUID      string            `json:"mission_uid,omitempty"`
	TemplateUID     string            `json:"template_uid,omitempty"`
	TemplateVersion int               `json:"template_version,omitempty"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	StartTime       time.Time         `json:"start_time"`
	Mode            ChecklistMode     `json:"mode"`
	SyncState       SyncState         `json:"sync_state"`
	MissionFeedUID  string            `json:"mission_feed_uid,omitempty"`
	Columns         []ChecklistColumn `json:"columns"`
	Tasks           []ChecklistTask   `json:"tasks"`
	Counts          ChecklistCounts   `json:"counts"`
	ProgressPercent float64           `json:"progress_percent"`
	ChecklistStatus TaskStatus        `json:"checklist_status"`
	CreatedBy       string            `json:"created_by,omitempty"`
	UploadedAt      *time.Time        `json:"uploaded_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// FindTask returns the task with the given uid.
func (c *Checklist) FindTask(uid string) (*ChecklistTask, error) {
	for i := range c.Tasks {
		if c.Tasks[i].UID == uid {
			return &c.Tasks[i], nil
		}
	}
	return nil, ErrTaskNotFound
}

// RemoveTask deletes the task with the given uid.
func (c *Checklist) RemoveTask(uid string) error {
	for i := range c.Tasks {
		if c.Tasks[i].UID == uid {
			c.Tasks = append(c.Tasks[:i], c.Tasks[i+1:]...)
			return nil
		}
	}
	return ErrTaskNotFound
}

// FindColumn returns the column with the given uid.
func (c *Checklist) FindColumn(uid string) (*ChecklistColumn, error) {
	for i := range c.Columns {
		if c.Columns[i].UID == uid {
			return &c.Columns[i], nil
		}
	}
	return nil, ErrColumnNotFound
}

// ValueColumns returns the non-system columns in display order.
func (c *Checklist) ValueColumns() []ChecklistColumn {
	columns := make([]ChecklistColumn, 0, len(c.Columns))
	for _, column := range c.Columns {
		if !column.IsDueColumn() {
			columns = append(columns, column)
		}
	}
	return columns
}

// NextTaskNumber returns one past the highest task number.
func (c *Checklist) NextTaskNumber() int {
	highest := 0
	for _, task := range c.Tasks {
		highest = max(highest, task.Number)
	}
	return highest + 1
}

// Rollup recomputes every task's due time and derived status, then the checklist
// counts, progress and status, all against now. It reports whether the checklist-level
// derived fields changed.
func (c *Checklist) Rollup(now time.Time) bool {
	before := struct {
		counts   ChecklistCounts
		progress float64
		status   TaskStatus
	}{c.Counts, c.ProgressPercent, c.ChecklistStatus}

	counts := ChecklistCounts{Total: len(c.Tasks)}
	anyLate, anyCompleteLate := false, false

	for i := range c.Tasks {
		task := &c.Tasks[i]
		task.DueDTG = ComputeDueDTG(c.StartTime, task.DueRelativeMinutes)
		task.TaskStatus = DeriveTaskStatus(task.UserStatus, task.DueDTG, task.CompletedAt, now)

		switch task.TaskStatus {
		case TaskStatusLate:
			counts.Pending++
			counts.Late++
			anyLate = true
		case TaskStatusPending:
			counts.Pending++
		case TaskStatusCompleteLate:
			counts.Complete++
			anyCompleteLate = true
		case TaskStatusComplete:
			counts.Complete++
		}
	}

	c.Counts = counts
	c.ProgressPercent = 0
	if counts.Total > 0 {
		c.ProgressPercent = float64(counts.Complete) / float64(counts.Total) * 100
	}

	switch {
	case counts.Total == 0:
		c.ChecklistStatus = TaskStatusPending
	case counts.Pending == 0 && anyCompleteLate:
		c.ChecklistStatus = TaskStatusCompleteLate
	case counts.Pending == 0:
		c.ChecklistStatus = TaskStatusComplete
	case anyLate:
		c.ChecklistStatus = TaskStatusLate
	default:
		c.ChecklistStatus = TaskStatusPending
	}

	return before.counts != c.Counts ||
		before.progress != c.ProgressPercent ||
		before.status != c.ChecklistStatus
}

// DeriveTaskStatus computes a task's status from its completion state and due time.
func DeriveTaskStatus(userStatus UserStatus, dueDTG, completedAt *time.Time, now time.Time) TaskStatus {
	if userStatus == UserStatusComplete {
		if dueDTG != nil && completedAt != nil && completedAt.After(*dueDTG) {
			return TaskStatusCompleteLate
		}
		return TaskStatusComplete
	}

	if dueDTG != nil && dueDTG.Before(now) {
		return TaskStatusLate
	}
	return TaskStatusPending
}

// ComputeDueDTG returns start + minutes, or nil when the task has no relative due time.
func ComputeDueDTG(start time.Time, minutes *int) *time.Time {
	if minutes == nil || start.IsZero() {
		return nil
	}
	due := start.Add(time.Duration(*minutes) * time.Minute).UTC()
	return &due
}

// ValidateColumns enforces the column invariant: exactly one non-removable RELATIVE_TIME
// column keyed DUE_RELATIVE_DTG, every column named and typed, uids unique.
func ValidateColumns(columns []ChecklistColumn) error {
	if len(columns) == 0 {
		return errors.Wrap(ErrInvalidColumns, "at least the due column is required")
	}

	seen := make(map[string]struct{}, len(columns))
	dueColumns := 0

	for idx, column := range columns {
		if column.UID != "" {
			if _, dup := seen[column.UID]; dup {
				return errors.Wrapf(ErrInvalidColumns, "duplicate column uid %q", column.UID)
			}
			seen[column.UID] = struct{}{}
		}
		if column.Name == "" {
			return errors.Wrapf(ErrInvalidColumns, "column %d has no name", idx)
		}
		if !validColumnType(column.Type) {
			return errors.Wrapf(ErrInvalidColumns, "column %q has unknown type %q", column.Name, column.Type)
		}

		switch {
		case column.IsDueColumn():
			dueColumns++
			if column.Type != ColumnTypeRelativeTime {
				return errors.Wrapf(ErrInvalidColumns, "%s column must be %s", SystemKeyDueRelativeDTG, ColumnTypeRelativeTime)
			}
			if column.IsRemovable {
				return errors.Wrapf(ErrInvalidColumns, "%s column must not be removable", SystemKeyDueRelativeDTG)
			}
		case column.SystemKey != "":
			return errors.Wrapf(ErrInvalidColumns, "unknown system key %q", column.SystemKey)
		}
	}

	if dueColumns != 1 {
		return errors.Wrapf(ErrInvalidColumns, "expected exactly one %s column, got %d", SystemKeyDueRelativeDTG, dueColumns)
	}
	return nil
}

// NormalizeColumns assigns missing uids and renumbers display order by position.
// It returns a new slice.
func NormalizeColumns(columns []ChecklistColumn) []ChecklistColumn {
	out := make([]ChecklistColumn, len(columns))
	for i, column := range columns {
		if column.UID == "" {
			column.UID = uuid.Must(uuid.NewV7()).String()
		}
		column.DisplayOrder = i
		out[i] = column
	}
	return out
}

// DefaultColumns is the layout of an offline checklist created without a template or columns.
func DefaultColumns() []ChecklistColumn {
	return NormalizeColumns([]ChecklistColumn{
		DueColumn(),
		{Name: "Task", Type: ColumnTypeShortString, IsRemovable: true},
	})
}

// DueColumn returns a fresh system due column.
func DueColumn() ChecklistColumn {
	return ChecklistColumn{
		Name:        "Due",
		Type:        ColumnTypeRelativeTime,
		SystemKey:   SystemKeyDueRelativeDTG,
		IsRemovable: false,
	}
}

// CopyColumns returns an independent copy of columns.
func CopyColumns(columns []ChecklistColumn) []ChecklistColumn {
	return append([]ChecklistColumn(nil), columns...)
}

func validColumnType(t ColumnType) bool {
	switch t {
	case ColumnTypeShortString, ColumnTypeLongString, ColumnTypeInteger,
		ColumnTypeActualTime, ColumnTypeRelativeTime:
		return true
	}
	return false
}

// String implements fmt.Stringer for log output.
func (c ChecklistCounts) String() string {
	return fmt.Sprintf("total=%d pending=%d late=%d complete=%d", c.Total, c.Pending, c.Late, c.Complete)
}
