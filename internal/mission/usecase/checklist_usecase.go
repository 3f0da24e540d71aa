package usecase

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/allisson/missionhub/internal/errors"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
)

// CreateTemplate stores a new template at version 1.
func (m *missionUseCase) CreateTemplate(
	ctx context.Context,
	input *missionDomain.CreateTemplateInput,
) (*missionDomain.ChecklistTemplate, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var template *missionDomain.ChecklistTemplate
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		if input.UID != "" {
			exists, err := m.templates.Exists(ctx, input.UID)
			if err != nil {
				return err
			}
			if exists {
				return apperrors.Wrapf(apperrors.ErrInvalidInput, "checklist template %s already exists", input.UID)
			}
		}

		template = &missionDomain.ChecklistTemplate{
			UID:         newUID(input.UID),
			Name:        input.Name,
			Description: input.Description,
			Version:     1,
			Columns:     missionDomain.NormalizeColumns(input.Columns),
			CreatedBy:   input.Actor,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := m.templates.Put(ctx, template); err != nil {
			return err
		}
		return m.record(ctx, now, templateMutation(missionDomain.EventTemplateCreated, template))
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// UpdateTemplate replaces the template layout and bumps its version. Checklists already
// instantiated keep the columns of the version they were created from.
func (m *missionUseCase) UpdateTemplate(
	ctx context.Context,
	input *missionDomain.UpdateTemplateInput,
) (*missionDomain.ChecklistTemplate, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var template *missionDomain.ChecklistTemplate
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		var err error
		if template, err = m.templates.Get(ctx, input.UID); err != nil {
			return err
		}

		template.Name = input.Name
		template.Description = input.Description
		template.Columns = missionDomain.NormalizeColumns(input.Columns)
		template.Version++
		template.UpdatedAt = now

		if err := m.templates.Put(ctx, template); err != nil {
			return err
		}
		return m.record(ctx, now, templateMutation(missionDomain.EventTemplateUpdated, template))
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// DeleteTemplate removes a template. Checklists created from it are unaffected.
func (m *missionUseCase) DeleteTemplate(ctx context.Context, uid string) (*missionDomain.ChecklistTemplate, error) {
	var template *missionDomain.ChecklistTemplate
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if template, err = m.templates.Get(ctx, uid); err != nil {
			return err
		}
		if err := m.templates.Delete(ctx, uid); err != nil {
			return err
		}
		return m.record(ctx, m.now(), templateMutation(missionDomain.EventTemplateDeleted, template))
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// GetTemplate loads one template.
func (m *missionUseCase) GetTemplate(ctx context.Context, uid string) (*missionDomain.ChecklistTemplate, error) {
	return m.templates.Get(ctx, uid)
}

// ListTemplates returns every template.
func (m *missionUseCase) ListTemplates(ctx context.Context) ([]*missionDomain.ChecklistTemplate, error) {
	return m.templates.List(ctx, "")
}

// CreateOnlineChecklist instantiates a synced checklist from the current template version.
func (m *missionUseCase) CreateOnlineChecklist(
	ctx context.Context,
	input *missionDomain.CreateOnlineChecklistInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var checklist *missionDomain.Checklist
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		template, err := m.templates.Get(ctx, input.TemplateUID)
		if err != nil {
			return err
		}
		if err := m.checkNewChecklist(ctx, input.UID, input.MissionUID); err != nil {
			return err
		}

		columns := missionDomain.CopyColumns(template.Columns)
		if err := missionDomain.ValidateColumns(columns); err != nil {
			return err
		}

		name := input.Name
		if name == "" {
			name = template.Name
		}

		checklist = &missionDomain.Checklist{
			UID:             newUID(input.UID),
			MissionUID:      input.MissionUID,
			TemplateUID:     template.UID,
			TemplateVersion: template.Version,
			Name:            name,
			Description:     input.Description,
			StartTime:       startTime(input.StartTime, now),
			Mode:            missionDomain.ChecklistModeOnline,
			SyncState:       missionDomain.SyncStateSynced,
			Columns:         columns,
			Tasks:           []missionDomain.ChecklistTask{},
			CreatedBy:       input.Actor,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		checklist.Rollup(now)

		if err := m.checklists.Put(ctx, checklist); err != nil {
			return err
		}
		return m.record(ctx, now, checklistMutation(missionDomain.EventChecklistCreated, checklist, checklist))
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

// CreateOfflineChecklist creates a local-only checklist.
func (m *missionUseCase) CreateOfflineChecklist(
	ctx context.Context,
	input *missionDomain.CreateOfflineChecklistInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var checklist *missionDomain.Checklist
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		var err error
		if checklist, err = m.newOfflineChecklist(ctx, input, nil, now); err != nil {
			return err
		}

		if err := m.checklists.Put(ctx, checklist); err != nil {
			return err
		}
		return m.record(ctx, now, checklistMutation(missionDomain.EventChecklistCreated, checklist, checklist))
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

// ImportChecklistCSV creates an offline checklist with one task per CSV record. A
// leading field that is an integer or blank on every record is the due offset in
// minutes; the other fields fill the non-due columns in display order.
func (m *missionUseCase) ImportChecklistCSV(
	ctx context.Context,
	input *missionDomain.ImportChecklistCSVInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	parsed, err := missionDomain.ParseChecklistCSV(strings.NewReader(input.CSV), input.HasHeader)
	if err != nil {
		return nil, err
	}

	var checklist *missionDomain.Checklist
	err = m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		var err error
		if checklist, err = m.newOfflineChecklist(ctx, &input.CreateOfflineChecklistInput, parsed, now); err != nil {
			return err
		}

		valueColumns := checklist.ValueColumns()
		for _, row := range parsed.Rows {
			if len(row.Values) > len(valueColumns) {
				return apperrors.Wrapf(missionDomain.ErrInvalidCSV,
					"line %d: %d values for %d columns", row.Line, len(row.Values), len(valueColumns))
			}

			task := newTask("", checklist.NextTaskNumber(), row.DueRelativeMinutes, now)
			for i, value := range row.Values {
				task.SetCell(valueColumns[i].UID, value, input.Actor, now)
			}
			checklist.Tasks = append(checklist.Tasks, task)
		}
		checklist.Rollup(now)

		if err := m.checklists.Put(ctx, checklist); err != nil {
			return err
		}
		return m.record(ctx, now, checklistMutation(missionDomain.EventChecklistImported, checklist, checklist))
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

// UpdateChecklist changes checklist metadata. A new start time moves every due time.
func (m *missionUseCase) UpdateChecklist(
	ctx context.Context,
	input *missionDomain.UpdateChecklistInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return m.mutateChecklist(ctx, input.ChecklistUID, missionDomain.EventChecklistUpdated,
		func(ctx context.Context, checklist *missionDomain.Checklist) (any, error) {
			if input.MissionUID != nil && *input.MissionUID != "" {
				if _, err := m.missions.Get(ctx, *input.MissionUID); err != nil {
					return nil, err
				}
			}

			if input.Name != nil {
				checklist.Name = *input.Name
			}
			if input.Description != nil {
				checklist.Description = *input.Description
			}
			if input.StartTime != nil {
				checklist.StartTime = input.StartTime.UTC()
			}
			if input.MissionUID != nil {
				checklist.MissionUID = *input.MissionUID
			}
			return input, nil
		})
}

// DeleteChecklist removes a checklist no assignment references.
func (m *missionUseCase) DeleteChecklist(ctx context.Context, uid string) (*missionDomain.Checklist, error) {
	var checklist *missionDomain.Checklist
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if checklist, err = m.checklists.Get(ctx, uid); err != nil {
			return err
		}
		if err := m.checkTaskUnassigned(ctx, uid, ""); err != nil {
			return err
		}
		if err := m.checklists.Delete(ctx, uid); err != nil {
			return err
		}
		return m.record(ctx, m.now(), checklistMutation(missionDomain.EventChecklistDeleted, checklist, checklist))
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

// GetChecklist loads a checklist with task statuses and rollup derived against now.
// The refreshed values are not persisted.
func (m *missionUseCase) GetChecklist(ctx context.Context, uid string) (*missionDomain.Checklist, error) {
	checklist, err := m.checklists.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	checklist.Rollup(m.now())
	return checklist, nil
}

// ListChecklists returns the checklists of a mission, or every checklist when
// missionUID is empty, derived against now.
func (m *missionUseCase) ListChecklists(ctx context.Context, missionUID string) ([]*missionDomain.Checklist, error) {
	checklists, err := m.checklists.List(ctx, missionUID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	for _, checklist := range checklists {
		checklist.Rollup(now)
	}
	return checklists, nil
}

// UploadChecklist marks an offline checklist as synced.
func (m *missionUseCase) UploadChecklist(
	ctx context.Context,
	input *missionDomain.UploadChecklistInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return m.mutateChecklist(ctx, input.ChecklistUID, missionDomain.EventChecklistUploaded,
		func(_ context.Context, checklist *missionDomain.Checklist) (any, error) {
			if checklist.Mode != missionDomain.ChecklistModeOffline {
				return nil, missionDomain.ErrChecklistNotOffline
			}

			uploadedAt := m.now()
			checklist.SyncState = missionDomain.SyncStateSynced
			checklist.UploadedAt = &uploadedAt
			return map[string]any{
				"checklist_uid": checklist.UID,
				"sync_state":    checklist.SyncState,
				"uploaded_at":   uploadedAt,
				"uploaded_by":   input.Actor,
			}, nil
		})
}

// PublishChecklist attaches a synced checklist to a mission feed.
func (m *missionUseCase) PublishChecklist(
	ctx context.Context,
	input *missionDomain.PublishChecklistInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return m.mutateChecklist(ctx, input.ChecklistUID, missionDomain.EventChecklistFeedPublished,
		func(_ context.Context, checklist *missionDomain.Checklist) (any, error) {
			if checklist.SyncState != missionDomain.SyncStateSynced {
				return nil, missionDomain.ErrChecklistNotSynced
			}

			checklist.MissionFeedUID = input.MissionFeedUID
			return map[string]any{
				"checklist_uid":    checklist.UID,
				"mission_feed_uid": checklist.MissionFeedUID,
			}, nil
		})
}

// AddTask appends a task row.
func (m *missionUseCase) AddTask(
	ctx context.Context,
	input *missionDomain.AddTaskInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return m.mutateChecklist(ctx, input.ChecklistUID, missionDomain.EventTaskAdded,
		func(_ context.Context, checklist *missionDomain.Checklist) (any, error) {
			now := m.now()

			if input.TaskUID != "" {
				if _, err := checklist.FindTask(input.TaskUID); err == nil {
					return nil, apperrors.Wrapf(missionDomain.ErrTaskExists, "task %s", input.TaskUID)
				}
			}

			number := input.Number
			if number == 0 {
				number = checklist.NextTaskNumber()
			}

			task := newTask(input.TaskUID, number, input.DueRelativeMinutes, now)
			task.Notes = input.Notes
			for _, cell := range input.Cells {
				if err := checkWritableColumn(checklist, cell.ColumnUID); err != nil {
					return nil, err
				}
				task.SetCell(cell.ColumnUID, cell.Value, input.Actor, now)
			}

			checklist.Tasks = append(checklist.Tasks, task)
			return task, nil
		})
}

// DeleteTask removes a task row no assignment references.
func (m *missionUseCase) DeleteTask(
	ctx context.Context,
	input *missionDomain.DeleteTaskInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return m.mutateChecklist(ctx, input.ChecklistUID, missionDomain.EventTaskDeleted,
		func(ctx context.Context, checklist *missionDomain.Checklist) (any, error) {
			if _, err := checklist.FindTask(input.TaskUID); err != nil {
				return nil, err
			}
			if err := m.checkTaskUnassigned(ctx, checklist.UID, input.TaskUID); err != nil {
				return nil, err
			}
			if err := checklist.RemoveTask(input.TaskUID); err != nil {
				return nil, err
			}
			return input, nil
		})
}

// SetTaskStatus sets the user status of a task. Completing a task records who completed
// it and when; reopening clears both.
func (m *missionUseCase) SetTaskStatus(
	ctx context.Context,
	input *missionDomain.SetTaskStatusInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return m.mutateChecklist(ctx, input.ChecklistUID, missionDomain.EventTaskStatusChanged,
		func(_ context.Context, checklist *missionDomain.Checklist) (any, error) {
			now := m.now()

			task, err := checklist.FindTask(input.TaskUID)
			if err != nil {
				return nil, err
			}

			task.UserStatus = input.UserStatus
			switch input.UserStatus {
			case missionDomain.UserStatusComplete:
				completedAt := now
				if input.CompletedAt != nil {
					completedAt = input.CompletedAt.UTC()
				}
				task.CompletedAt = &completedAt
				task.CompletedBy = input.Actor
			default:
				task.CompletedAt = nil
				task.CompletedBy = ""
			}
			task.UpdatedAt = now

			return map[string]any{
				"checklist_uid": checklist.UID,
				"task_uid":      task.UID,
				"user_status":   task.UserStatus,
				"completed_at":  task.CompletedAt,
				"completed_by":  task.CompletedBy,
			}, nil
		})
}

// SetTaskCell sets the value of one column of a task. The due column is derived from
// due_relative_minutes and cannot be written.
func (m *missionUseCase) SetTaskCell(
	ctx context.Context,
	input *missionDomain.SetTaskCellInput,
) (*missionDomain.Checklist, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return m.mutateChecklist(ctx, input.ChecklistUID, missionDomain.EventTaskCellChanged,
		func(_ context.Context, checklist *missionDomain.Checklist) (any, error) {
			now := m.now()

			task, err := checklist.FindTask(input.TaskUID)
			if err != nil {
				return nil, err
			}
			if err := checkWritableColumn(checklist, input.ColumnUID); err != nil {
				return nil, err
			}

			task.SetCell(input.ColumnUID, input.Value, input.Actor, now)
			task.UpdatedAt = now
			return input, nil
		})
}

// mutateChecklist loads a checklist, applies fn, re-derives the rollup and records the
// event returned by fn plus a progress event when the rollup changed.
func (m *missionUseCase) mutateChecklist(
	ctx context.Context,
	uid string,
	eventType string,
	fn func(ctx context.Context, checklist *missionDomain.Checklist) (any, error),
) (*missionDomain.Checklist, error) {
	var checklist *missionDomain.Checklist
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		var err error
		if checklist, err = m.checklists.Get(ctx, uid); err != nil {
			return err
		}

		// Derive against now first so only fn can move the rollup.
		checklist.Rollup(now)

		payload, err := fn(ctx, checklist)
		if err != nil {
			return err
		}

		progressChanged := checklist.Rollup(now)
		checklist.UpdatedAt = now

		if err := m.checklists.Put(ctx, checklist); err != nil {
			return err
		}

		mutations := []mutation{checklistMutation(eventType, checklist, payload)}
		if progressChanged {
			mutations = append(mutations, mutation{
				domain:        missionDomain.DomainChecklist,
				aggregateType: missionDomain.AggregateChecklist,
				aggregateUID:  checklist.UID,
				eventType:     missionDomain.EventChecklistProgressChange,
				payload:       progressPayload(checklist),
			})
		}
		return m.record(ctx, now, mutations...)
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

// newOfflineChecklist builds a local-only checklist. Columns come from the template,
// then explicit columns, then the CSV header, then the default layout.
func (m *missionUseCase) newOfflineChecklist(
	ctx context.Context,
	input *missionDomain.CreateOfflineChecklistInput,
	parsed *missionDomain.ChecklistCSV,
	now time.Time,
) (*missionDomain.Checklist, error) {
	if err := m.checkNewChecklist(ctx, input.UID, input.MissionUID); err != nil {
		return nil, err
	}

	checklist := &missionDomain.Checklist{
		UID:         newUID(input.UID),
		MissionUID:  input.MissionUID,
		Name:        input.Name,
		Description: input.Description,
		StartTime:   startTime(input.StartTime, now),
		Mode:        missionDomain.ChecklistModeOffline,
		SyncState:   missionDomain.SyncStateLocalOnly,
		Tasks:       []missionDomain.ChecklistTask{},
		CreatedBy:   input.Actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch {
	case input.TemplateUID != "":
		template, err := m.templates.Get(ctx, input.TemplateUID)
		if err != nil {
			return nil, err
		}
		checklist.TemplateUID = template.UID
		checklist.TemplateVersion = template.Version
		checklist.Columns = missionDomain.CopyColumns(template.Columns)
	case len(input.Columns) > 0:
		checklist.Columns = missionDomain.NormalizeColumns(input.Columns)
	case parsed != nil && len(parsed.Header) > 0:
		checklist.Columns = parsed.HeaderColumns()
	default:
		checklist.Columns = missionDomain.DefaultColumns()
	}

	if err := missionDomain.ValidateColumns(checklist.Columns); err != nil {
		return nil, err
	}

	checklist.Rollup(now)
	return checklist, nil
}

// checkNewChecklist rejects a taken uid and an unknown mission.
func (m *missionUseCase) checkNewChecklist(ctx context.Context, uid, missionUID string) error {
	if uid != "" {
		exists, err := m.checklists.Exists(ctx, uid)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.Wrapf(apperrors.ErrInvalidInput, "checklist %s already exists", uid)
		}
	}
	if missionUID != "" {
		if _, err := m.missions.Get(ctx, missionUID); err != nil {
			return err
		}
	}
	return nil
}

// checkTaskUnassigned fails when an assignment references the checklist, or one task of
// it when taskUID is set.
func (m *missionUseCase) checkTaskUnassigned(ctx context.Context, checklistUID, taskUID string) error {
	assignments, err := m.assignments.List(ctx, "")
	if err != nil {
		return err
	}
	for _, assignment := range assignments {
		if assignment.ChecklistUID != checklistUID {
			continue
		}
		if taskUID == "" || assignment.TaskUID == taskUID {
			return apperrors.Wrapf(missionDomain.ErrInUse, "referenced by assignment %s", assignment.UID)
		}
	}
	return nil
}

func checkWritableColumn(checklist *missionDomain.Checklist, columnUID string) error {
	column, err := checklist.FindColumn(columnUID)
	if err != nil {
		return err
	}
	if column.IsDueColumn() {
		return missionDomain.ErrSystemColumnReadOnly
	}
	return nil
}

func newTask(uid string, number int, dueRelativeMinutes *int, now time.Time) missionDomain.ChecklistTask {
	return missionDomain.ChecklistTask{
		UID:                newUID(uid),
		Number:             number,
		DueRelativeMinutes: dueRelativeMinutes,
		UserStatus:         missionDomain.UserStatusPending,
		TaskStatus:         missionDomain.TaskStatusPending,
		Cells:              []missionDomain.ChecklistCell{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func startTime(requested *time.Time, now time.Time) time.Time {
	if requested == nil || requested.IsZero() {
		return now
	}
	return requested.UTC()
}

func progressPayload(checklist *missionDomain.Checklist) map[string]any {
	return map[string]any{
		"checklist_uid":    checklist.UID,
		"total_count":      checklist.Counts.Total,
		"pending_count":    checklist.Counts.Pending,
		"late_count":       checklist.Counts.Late,
		"complete_count":   checklist.Counts.Complete,
		"progress_percent": checklist.ProgressPercent,
		"checklist_status": checklist.ChecklistStatus,
	}
}

func templateMutation(eventType string, template *missionDomain.ChecklistTemplate) mutation {
	return mutation{
		domain:        missionDomain.DomainChecklist,
		aggregateType: missionDomain.AggregateChecklistTemplate,
		aggregateUID:  template.UID,
		eventType:     eventType,
		payload:       template,
		snapshot:      template,
	}
}

func checklistMutation(eventType string, checklist *missionDomain.Checklist, payload any) mutation {
	return mutation{
		domain:        missionDomain.DomainChecklist,
		aggregateType: missionDomain.AggregateChecklist,
		aggregateUID:  checklist.UID,
		eventType:     eventType,
		payload:       payload,
		snapshot:      checklist,
	}
}
