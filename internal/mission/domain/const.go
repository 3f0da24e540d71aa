package domain

// Event-sourcing domains.
const (
	DomainMission   = "mission"
	DomainChecklist = "checklist"
)

// Aggregate types, also used as document collection names.
const (
	AggregateMission           = "mission"
	AggregateTeam              = "team"
	AggregateTeamMember        = "team_member"
	AggregateSkill             = "skill"
	AggregateAsset             = "asset"
	AggregateAssignment        = "assignment"
	AggregateChecklistTemplate = "checklist_template"
	AggregateChecklist         = "checklist"
)

// Domain event types.
const (
	EventMissionUpserted         = "mission.upserted"
	EventMissionDeleted          = "mission.deleted"
	EventTeamUpserted            = "mission.team.upserted"
	EventTeamDeleted             = "mission.team.deleted"
	EventTeamMemberUpserted      = "mission.team.member.upserted"
	EventTeamMemberDeleted       = "mission.team.member.deleted"
	EventMemberSkillSet          = "mission.team.member.skill.set"
	EventSkillUpserted           = "mission.skill.upserted"
	EventAssetUpserted           = "mission.asset.upserted"
	EventAssetDeleted            = "mission.asset.deleted"
	EventAssignmentUpserted      = "mission.assignment.upserted"
	EventAssignmentDeleted       = "mission.assignment.deleted"
	EventTemplateCreated         = "checklist.template.created"
	EventTemplateUpdated         = "checklist.template.updated"
	EventTemplateDeleted         = "checklist.template.deleted"
	EventChecklistCreated        = "checklist.created"
	EventChecklistImported       = "checklist.imported"
	EventChecklistUpdated        = "checklist.updated"
	EventChecklistDeleted        = "checklist.deleted"
	EventChecklistUploaded       = "checklist.uploaded"
	EventChecklistFeedPublished  = "checklist.feed.published"
	EventTaskAdded               = "checklist.task.added"
	EventTaskDeleted             = "checklist.task.deleted"
	EventTaskStatusChanged       = "checklist.task.status.changed"
	EventTaskCellChanged         = "checklist.task.cell.changed"
	EventChecklistProgressChange = "checklist.progress.changed"
)

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

// Mission statuses.
const (
	MissionStatusActive    MissionStatus = "ACTIVE"
	MissionStatusCompleted MissionStatus = "COMPLETED"
	MissionStatusArchived  MissionStatus = "ARCHIVED"
)

// AssetStatus is the availability of an asset.
type AssetStatus string

// Asset statuses.
const (
	AssetStatusAvailable   AssetStatus = "AVAILABLE"
	AssetStatusInUse       AssetStatus = "IN_USE"
	AssetStatusUnavailable AssetStatus = "UNAVAILABLE"
)

// AssignmentStatus tracks the progress of an assignment.
type AssignmentStatus string

// Assignment statuses.
const (
	AssignmentStatusPending    AssignmentStatus = "PENDING"
	AssignmentStatusInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentStatusComplete   AssignmentStatus = "COMPLETE"
	AssignmentStatusCancelled  AssignmentStatus = "CANCELLED"
)

// ChecklistMode says whether a checklist was instantiated online from a template or built offline.
type ChecklistMode string

// Checklist modes.
const (
	ChecklistModeOnline  ChecklistMode = "ONLINE"
	ChecklistModeOffline ChecklistMode = "OFFLINE"
)

// SyncState says whether a checklist has been shared with the hub.
type SyncState string

// Sync states.
const (
	SyncStateLocalOnly SyncState = "LOCAL_ONLY"
	SyncStateSynced    SyncState = "SYNCED"
)

// UserStatus is the caller-settable completion state of a task.
type UserStatus string

// User statuses.
const (
	UserStatusPending  UserStatus = "PENDING"
	UserStatusComplete UserStatus = "COMPLETE"
)

// TaskStatus is the derived status of a task, and the rolled-up status of a checklist.
type TaskStatus string

// Task statuses.
const (
	TaskStatusPending      TaskStatus = "PENDING"
	TaskStatusLate         TaskStatus = "LATE"
	TaskStatusComplete     TaskStatus = "COMPLETE"
	TaskStatusCompleteLate TaskStatus = "COMPLETE_LATE"
)

// ColumnType is the value type of a checklist column.
type ColumnType string

// Column types.
const (
	ColumnTypeShortString  ColumnType = "SHORT_STRING"
	ColumnTypeLongString   ColumnType = "LONG_STRING"
	ColumnTypeInteger      ColumnType = "INTEGER"
	ColumnTypeActualTime   ColumnType = "ACTUAL_TIME"
	ColumnTypeRelativeTime ColumnType = "RELATIVE_TIME"
)

// SystemKeyDueRelativeDTG marks the mandatory due-time column of every template and checklist.
const SystemKeyDueRelativeDTG = "DUE_RELATIVE_DTG"
