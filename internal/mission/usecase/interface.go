// Package usecase implements the mission domain service: aggregate mutations with
// referential checks, checklist rollup, and the event/snapshot audit trail written in
// the same transaction as every mutation.
package usecase

import (
	"context"
	"time"

	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
)

// EventRepository defines persistence for domain events.
// Implementations must support transaction-aware operations via context propagation.
type EventRepository interface {
	// Append inserts one event.
	Append(ctx context.Context, event *missionDomain.DomainEvent) error

	// List returns events matching filter, newest first.
	List(ctx context.Context, filter missionDomain.EventFilter) ([]*missionDomain.DomainEvent, error)

	// DeleteBefore removes events created before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotRepository defines persistence for aggregate snapshots.
type SnapshotRepository interface {
	// Create inserts one snapshot.
	Create(ctx context.Context, snapshot *missionDomain.DomainSnapshot) error

	// LatestVersion returns the highest stored version, or 0 when the aggregate has none.
	LatestVersion(ctx context.Context, domain, aggregateType, aggregateUID string) (int, error)

	// ListByAggregate returns the snapshots of one aggregate ordered by version.
	ListByAggregate(ctx context.Context, aggregateType, aggregateUID string) ([]*missionDomain.DomainSnapshot, error)

	// DeleteBefore removes snapshots created before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MissionUseCase manages missions, teams, members, skills, assets and assignments.
type MissionUseCase interface {
	UpsertMission(ctx context.Context, input *missionDomain.UpsertMissionInput) (*missionDomain.Mission, error)
	GetMission(ctx context.Context, uid string) (*missionDomain.Mission, error)
	ListMissions(ctx context.Context) ([]*missionDomain.Mission, error)
	DeleteMission(ctx context.Context, uid string) (*missionDomain.Mission, error)

	UpsertTeam(ctx context.Context, input *missionDomain.UpsertTeamInput) (*missionDomain.Team, error)
	DeleteTeam(ctx context.Context, uid string) (*missionDomain.Team, error)
	ListTeams(ctx context.Context, missionUID string) ([]*missionDomain.Team, error)

	UpsertTeamMember(ctx context.Context, input *missionDomain.UpsertTeamMemberInput) (*missionDomain.TeamMember, error)
	DeleteTeamMember(ctx context.Context, uid string) (*missionDomain.TeamMember, error)
	ListTeamMembers(ctx context.Context, teamUID string) ([]*missionDomain.TeamMember, error)

	UpsertSkill(ctx context.Context, input *missionDomain.UpsertSkillInput) (*missionDomain.Skill, error)
	ListSkills(ctx context.Context) ([]*missionDomain.Skill, error)
	SetMemberSkill(ctx context.Context, input *missionDomain.SetMemberSkillInput) (*missionDomain.TeamMember, error)

	UpsertAsset(ctx context.Context, input *missionDomain.UpsertAssetInput) (*missionDomain.Asset, error)
	DeleteAsset(ctx context.Context, uid string) (*missionDomain.Asset, error)
	ListAssets(ctx context.Context) ([]*missionDomain.Asset, error)

	UpsertAssignment(ctx context.Context, input *missionDomain.UpsertAssignmentInput) (*missionDomain.Assignment, error)
	DeleteAssignment(ctx context.Context, uid string) (*missionDomain.Assignment, error)
	ListAssignments(ctx context.Context, missionUID string) ([]*missionDomain.Assignment, error)
}

// ChecklistUseCase manages checklist templates, checklists and their tasks. Every task
// mutation re-derives task statuses and the checklist rollup.
type ChecklistUseCase interface {
	CreateTemplate(ctx context.Context, input *missionDomain.CreateTemplateInput) (*missionDomain.ChecklistTemplate, error)
	UpdateTemplate(ctx context.Context, input *missionDomain.UpdateTemplateInput) (*missionDomain.ChecklistTemplate, error)
	DeleteTemplate(ctx context.Context, uid string) (*missionDomain.ChecklistTemplate, error)
	GetTemplate(ctx context.Context, uid string) (*missionDomain.ChecklistTemplate, error)
	ListTemplates(ctx context.Context) ([]*missionDomain.ChecklistTemplate, error)

	CreateOnlineChecklist(ctx context.Context, input *missionDomain.CreateOnlineChecklistInput) (*missionDomain.Checklist, error)
	CreateOfflineChecklist(ctx context.Context, input *missionDomain.CreateOfflineChecklistInput) (*missionDomain.Checklist, error)
	ImportChecklistCSV(ctx context.Context, input *missionDomain.ImportChecklistCSVInput) (*missionDomain.Checklist, error)
	UpdateChecklist(ctx context.Context, input *missionDomain.UpdateChecklistInput) (*missionDomain.Checklist, error)
	DeleteChecklist(ctx context.Context, uid string) (*missionDomain.Checklist, error)
	GetChecklist(ctx context.Context, uid string) (*missionDomain.Checklist, error)
	ListChecklists(ctx context.Context, missionUID string) ([]*missionDomain.Checklist, error)
	UploadChecklist(ctx context.Context, input *missionDomain.UploadChecklistInput) (*missionDomain.Checklist, error)
	PublishChecklist(ctx context.Context, input *missionDomain.PublishChecklistInput) (*missionDomain.Checklist, error)

	AddTask(ctx context.Context, input *missionDomain.AddTaskInput) (*missionDomain.Checklist, error)
	DeleteTask(ctx context.Context, input *missionDomain.DeleteTaskInput) (*missionDomain.Checklist, error)
	SetTaskStatus(ctx context.Context, input *missionDomain.SetTaskStatusInput) (*missionDomain.Checklist, error)
	SetTaskCell(ctx context.Context, input *missionDomain.SetTaskCellInput) (*missionDomain.Checklist, error)
}

// PruneResult reports how many audit rows a prune removed.
type PruneResult struct {
	Cutoff           time.Time `json:"cutoff"`
	EventsDeleted    int64     `json:"events_deleted"`
	SnapshotsDeleted int64     `json:"snapshots_deleted"`
}

// HistoryUseCase exposes the domain audit trail.
type HistoryUseCase interface {
	// ListDomainEvents returns events newest first.
	ListDomainEvents(ctx context.Context, filter missionDomain.EventFilter) ([]*missionDomain.DomainEvent, error)

	// ListSnapshots returns the snapshots of one aggregate ordered by version.
	ListSnapshots(ctx context.Context, aggregateType, aggregateUID string) ([]*missionDomain.DomainSnapshot, error)

	// PruneHistory removes events and snapshots older than the retention horizon.
	PruneHistory(ctx context.Context) (*PruneResult, error)
}

// UseCase is the complete mission domain service.
type UseCase interface {
	MissionUseCase
	ChecklistUseCase
	HistoryUseCase
}
