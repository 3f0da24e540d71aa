// Package domain defines the mission aggregates (missions, teams, members, skills,
// assets, assignments, checklist templates and checklists), the checklist state machine,
// and the domain events and snapshots recorded for every mutation.
package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/missionhub/internal/validation"
)

// Mission is the top-level operation that teams, assignments and checklists belong to.
type Mission struct {
	UID         string        `json:"uid"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      MissionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Team is a group of members working a mission.
type Team struct {
	UID         string    `json:"uid"`
	MissionUID  string    `json:"mission_uid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MemberSkill is a skill held by a team member at a proficiency level.
type MemberSkill struct {
	SkillUID string `json:"skill_uid"`
	Level    int    `json:"level"`
}

// TeamMember is a mesh identity participating in a team.
type TeamMember struct {
	UID         string        `json:"uid"`
	TeamUID     string        `json:"team_uid"`
	Identity    string        `json:"identity"`
	DisplayName string        `json:"display_name,omitempty"`
	Role        string        `json:"role,omitempty"`
	Skills      []MemberSkill `json:"skills"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// SetSkill adds or replaces a skill level.
func (m *TeamMember) SetSkill(skillUID string, level int) {
	for i := range m.Skills {
		if m.Skills[i].SkillUID == skillUID {
			m.Skills[i].Level = level
			return
		}
	}
	m.Skills = append(m.Skills, MemberSkill{SkillUID: skillUID, Level: level})
}

// Skill is a catalogue entry members can hold.
type Skill struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Asset is equipment that can be issued to a member and attached to assignments.
type Asset struct {
	UID           string      `json:"uid"`
	Name          string      `json:"name"`
	AssetType     string      `json:"asset_type"`
	Status        AssetStatus `json:"status"`
	TeamMemberUID string      `json:"team_member_uid,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Assignment binds a member and assets to one checklist task of a mission.
type Assignment struct {
	UID           string           `json:"uid"`
	MissionUID    string           `json:"mission_uid"`
	ChecklistUID  string           `json:"checklist_uid"`
	TaskUID       string           `json:"task_uid"`
	TeamMemberUID string           `json:"team_member_uid"`
	AssetUIDs     []string         `json:"asset_uids"`
	Status        AssignmentStatus `json:"status"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// UpsertMissionInput creates or updates a mission. An empty UID creates a new mission.
type UpsertMissionInput struct {
	UID         string        `json:"uid"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      MissionStatus `json:"status"`
}

// Validate checks the input.
func (i *UpsertMissionInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&i.Status, validation.In(
			MissionStatusActive, MissionStatusCompleted, MissionStatusArchived,
		)),
	)
	return customValidation.WrapValidationError(err)
}

// UpsertTeamInput creates or updates a team.
type UpsertTeamInput struct {
	UID         string `json:"uid"`
	MissionUID  string `json:"mission_uid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate checks the input.
func (i *UpsertTeamInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.MissionUID, validation.Required),
		validation.Field(&i.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
	)
	return customValidation.WrapValidationError(err)
}

// UpsertTeamMemberInput creates or updates a team member.
type UpsertTeamMemberInput struct {
	UID         string `json:"uid"`
	TeamUID     string `json:"team_uid"`
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Validate checks the input.
func (i *UpsertTeamMemberInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.TeamUID, validation.Required),
		validation.Field(&i.Identity, validation.Required, customValidation.Identity),
	)
	return customValidation.WrapValidationError(err)
}

// UpsertSkillInput creates or updates a skill.
type UpsertSkillInput struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Validate checks the input.
func (i *UpsertSkillInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
	)
	return customValidation.WrapValidationError(err)
}

// SetMemberSkillInput sets the level of a skill held by a member.
type SetMemberSkillInput struct {
	TeamMemberUID string `json:"team_member_uid"`
	SkillUID      string `json:"skill_uid"`
	Level         int    `json:"level"`
}

// Validate checks the input.
func (i *SetMemberSkillInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.TeamMemberUID, validation.Required),
		validation.Field(&i.SkillUID, validation.Required),
		validation.Field(&i.Level, validation.Min(1), validation.Max(5)),
	)
	return customValidation.WrapValidationError(err)
}

// UpsertAssetInput creates or updates an asset.
type UpsertAssetInput struct {
	UID           string      `json:"uid"`
	Name          string      `json:"name"`
	AssetType     string      `json:"asset_type"`
	Status        AssetStatus `json:"status"`
	TeamMemberUID string      `json:"team_member_uid"`
	Notes         string      `json:"notes"`
}

// Validate checks the input.
func (i *UpsertAssetInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&i.AssetType, validation.Required, customValidation.NotBlank),
		validation.Field(&i.Status, validation.In(
			AssetStatusAvailable, AssetStatusInUse, AssetStatusUnavailable,
		)),
	)
	return customValidation.WrapValidationError(err)
}

// UpsertAssignmentInput creates or updates an assignment.
type UpsertAssignmentInput struct {
	UID           string           `json:"uid"`
	MissionUID    string           `json:"mission_uid"`
	ChecklistUID  string           `json:"checklist_uid"`
	TaskUID       string           `json:"task_uid"`
	TeamMemberUID string           `json:"team_member_uid"`
	AssetUIDs     []string         `json:"asset_uids"`
	Status        AssignmentStatus `json:"status"`
	Notes         string           `json:"notes"`
}

// Validate checks the input.
func (i *UpsertAssignmentInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.MissionUID, validation.Required),
		validation.Field(&i.ChecklistUID, validation.Required),
		validation.Field(&i.TaskUID, validation.Required),
		validation.Field(&i.TeamMemberUID, validation.Required),
		validation.Field(&i.AssetUIDs, validation.Each(validation.Required)),
		validation.Field(&i.Status, validation.In(
			AssignmentStatusPending, AssignmentStatusInProgress,
			AssignmentStatusComplete, AssignmentStatusCancelled,
		)),
	)
	return customValidation.WrapValidationError(err)
}
