package handlers

import (
	"context"

	"github.com/allisson/missionhub/internal/command"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
	missionUseCase "github.com/allisson/missionhub/internal/mission/usecase"
)

// RegisterChecklist registers every checklist router command.
func RegisterChecklist(registry *command.Registry, checklists missionUseCase.ChecklistUseCase) {
	h := &checklistHandlers{checklists: checklists}

	registry.Register("checklist.template.create", h.createTemplate)
	registry.Register("checklist.template.update", h.updateTemplate)
	registry.Register("checklist.template.delete", h.deleteTemplate)
	registry.Register("checklist.template.get", h.getTemplate)
	registry.Register("checklist.template.list", h.listTemplates)
	registry.Register("checklist.create.online", h.createOnline)
	registry.Register("checklist.create.offline", h.createOffline)
	registry.Register("checklist.import.csv", h.importCSV)
	registry.Register("checklist.update", h.updateChecklist)
	registry.Register("checklist.delete", h.deleteChecklist)
	registry.Register("checklist.upload", h.upload)
	registry.Register("checklist.feed.publish", h.publish)
	registry.Register("checklist.task.row.add", h.addTask)
	registry.Register("checklist.task.row.delete", h.deleteTask)
	registry.Register("checklist.task.status.set", h.setTaskStatus)
	registry.Register("checklist.task.cell.set", h.setTaskCell)
	registry.Register("checklist.get", h.getChecklist)
	registry.Register("checklist.list", h.listChecklists)
}

type checklistHandlers struct {
	checklists missionUseCase.ChecklistUseCase
}

func (h *checklistHandlers) createTemplate(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.CreateTemplateInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	template, err := h.checklists.CreateTemplate(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTemplateCreated, template), nil
}

func (h *checklistHandlers) updateTemplate(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpdateTemplateInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	template, err := h.checklists.UpdateTemplate(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTemplateUpdated, template), nil
}

func (h *checklistHandlers) deleteTemplate(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	template, err := h.checklists.DeleteTemplate(ctx, uid)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTemplateDeleted, template), nil
}

func (h *checklistHandlers) getTemplate(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	template, err := h.checklists.GetTemplate(ctx, uid)
	if err != nil {
		return nil, err
	}
	return read(template), nil
}

func (h *checklistHandlers) listTemplates(ctx context.Context, _ *command.Call) (*command.Outcome, error) {
	templates, err := h.checklists.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"templates": templates}), nil
}

func (h *checklistHandlers) createOnline(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.CreateOnlineChecklistInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	checklist, err := h.checklists.CreateOnlineChecklist(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventChecklistCreated, checklist), nil
}

func (h *checklistHandlers) createOffline(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.CreateOfflineChecklistInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	checklist, err := h.checklists.CreateOfflineChecklist(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventChecklistCreated, checklist), nil
}

func (h *checklistHandlers) importCSV(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.ImportChecklistCSVInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	checklist, err := h.checklists.ImportChecklistCSV(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventChecklistImported, checklist), nil
}

func (h *checklistHandlers) updateChecklist(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpdateChecklistInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	checklist, err := h.checklists.UpdateChecklist(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventChecklistUpdated, checklist), nil
}

func (h *checklistHandlers) deleteChecklist(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	checklist, err := h.checklists.DeleteChecklist(ctx, uid)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventChecklistDeleted, checklist), nil
}

func (h *checklistHandlers) upload(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UploadChecklistInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	checklist, err := h.checklists.UploadChecklist(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventChecklistUploaded, checklist), nil
}

func (h *checklistHandlers) publish(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.PublishChecklistInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	checklist, err := h.checklists.PublishChecklist(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventChecklistFeedPublished, checklist), nil
}

func (h *checklistHandlers) addTask(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.AddTaskInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	checklist, err := h.checklists.AddTask(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTaskAdded, checklist), nil
}

func (h *checklistHandlers) deleteTask(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.DeleteTaskInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	checklist, err := h.checklists.DeleteTask(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTaskDeleted, checklist), nil
}

func (h *checklistHandlers) setTaskStatus(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.SetTaskStatusInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	checklist, err := h.checklists.SetTaskStatus(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTaskStatusChanged, checklist), nil
}

func (h *checklistHandlers) setTaskCell(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.SetTaskCellInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	input.Actor = call.Sender
	checklist, err := h.checklists.SetTaskCell(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTaskCellChanged, checklist), nil
}

func (h *checklistHandlers) getChecklist(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	checklist, err := h.checklists.GetChecklist(ctx, uid)
	if err != nil {
		return nil, err
	}
	return read(checklist), nil
}

func (h *checklistHandlers) listChecklists(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var args struct {
		MissionUID string `json:"mission_uid"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return nil, err
	}
	checklists, err := h.checklists.ListChecklists(ctx, args.MissionUID)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"checklists": checklists}), nil
}
