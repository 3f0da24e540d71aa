package usecase

import (
	"context"
	"slices"
	"strings"

	apperrors "github.com/allisson/missionhub/internal/errors"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
)

// UpsertMission creates or updates a mission.
func (m *missionUseCase) UpsertMission(
	ctx context.Context,
	input *missionDomain.UpsertMissionInput,
) (*missionDomain.Mission, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var mission *missionDomain.Mission
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		existing, err := m.loadMission(ctx, input.UID)
		if err != nil {
			return err
		}
		mission = existing
		if mission == nil {
			mission = &missionDomain.Mission{
				UID:       newUID(input.UID),
				Status:    missionDomain.MissionStatusActive,
				CreatedAt: now,
			}
		}

		mission.Name = input.Name
		mission.Description = input.Description
		if input.Status != "" {
			mission.Status = input.Status
		}
		mission.UpdatedAt = now

		if err := m.missions.Put(ctx, mission); err != nil {
			return err
		}
		return m.record(ctx, now, missionMutation(missionDomain.EventMissionUpserted, mission))
	})
	if err != nil {
		return nil, err
	}
	return mission, nil
}

// GetMission loads one mission.
func (m *missionUseCase) GetMission(ctx context.Context, uid string) (*missionDomain.Mission, error) {
	return m.missions.Get(ctx, uid)
}

// ListMissions returns every mission.
func (m *missionUseCase) ListMissions(ctx context.Context) ([]*missionDomain.Mission, error) {
	return m.missions.List(ctx, "")
}

// DeleteMission removes a mission nothing references any more.
func (m *missionUseCase) DeleteMission(ctx context.Context, uid string) (*missionDomain.Mission, error) {
	var mission *missionDomain.Mission
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if mission, err = m.missions.Get(ctx, uid); err != nil {
			return err
		}

		teams, err := m.teams.List(ctx, uid)
		if err != nil {
			return err
		}
		assignments, err := m.assignments.List(ctx, uid)
		if err != nil {
			return err
		}
		checklists, err := m.checklists.List(ctx, uid)
		if err != nil {
			return err
		}
		if len(teams)+len(assignments)+len(checklists) > 0 {
			return apperrors.Wrapf(missionDomain.ErrInUse,
				"mission %s has %d teams, %d assignments and %d checklists",
				uid, len(teams), len(assignments), len(checklists))
		}

		if err := m.missions.Delete(ctx, uid); err != nil {
			return err
		}
		return m.record(ctx, m.now(), missionMutation(missionDomain.EventMissionDeleted, mission))
	})
	if err != nil {
		return nil, err
	}
	return mission, nil
}

// UpsertTeam creates or updates a team of an existing mission.
func (m *missionUseCase) UpsertTeam(
	ctx context.Context,
	input *missionDomain.UpsertTeamInput,
) (*missionDomain.Team, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var team *missionDomain.Team
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		if _, err := m.missions.Get(ctx, input.MissionUID); err != nil {
			return err
		}

		team = &missionDomain.Team{UID: newUID(input.UID), CreatedAt: now}
		if input.UID != "" {
			existing, err := m.teams.Get(ctx, input.UID)
			if err != nil && !apperrors.Is(err, missionDomain.ErrTeamNotFound) {
				return err
			}
			if existing != nil {
				team = existing
			}
		}

		team.MissionUID = input.MissionUID
		team.Name = input.Name
		team.Description = input.Description
		team.UpdatedAt = now

		if err := m.teams.Put(ctx, team); err != nil {
			return err
		}
		return m.record(ctx, now, secondaryMutation(
			missionDomain.AggregateTeam, team.UID, missionDomain.EventTeamUpserted, team,
		))
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// DeleteTeam removes a team without members.
func (m *missionUseCase) DeleteTeam(ctx context.Context, uid string) (*missionDomain.Team, error) {
	var team *missionDomain.Team
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if team, err = m.teams.Get(ctx, uid); err != nil {
			return err
		}

		members, err := m.members.List(ctx, uid)
		if err != nil {
			return err
		}
		if len(members) > 0 {
			return apperrors.Wrapf(missionDomain.ErrInUse, "team %s has %d members", uid, len(members))
		}

		if err := m.teams.Delete(ctx, uid); err != nil {
			return err
		}
		return m.record(ctx, m.now(), secondaryMutation(
			missionDomain.AggregateTeam, uid, missionDomain.EventTeamDeleted, team,
		))
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams returns the teams of a mission, or every team when missionUID is empty.
func (m *missionUseCase) ListTeams(ctx context.Context, missionUID string) ([]*missionDomain.Team, error) {
	return m.teams.List(ctx, missionUID)
}

// UpsertTeamMember creates or updates a member of an existing team. Skills of an
// existing member are kept.
func (m *missionUseCase) UpsertTeamMember(
	ctx context.Context,
	input *missionDomain.UpsertTeamMemberInput,
) (*missionDomain.TeamMember, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var member *missionDomain.TeamMember
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		if _, err := m.teams.Get(ctx, input.TeamUID); err != nil {
			return err
		}

		member = &missionDomain.TeamMember{
			UID:       newUID(input.UID),
			Skills:    []missionDomain.MemberSkill{},
			CreatedAt: now,
		}
		if input.UID != "" {
			existing, err := m.members.Get(ctx, input.UID)
			if err != nil && !apperrors.Is(err, missionDomain.ErrTeamMemberNotFound) {
				return err
			}
			if existing != nil {
				member = existing
			}
		}

		member.TeamUID = input.TeamUID
		member.Identity = strings.ToLower(strings.TrimSpace(input.Identity))
		member.DisplayName = input.DisplayName
		member.Role = input.Role
		member.UpdatedAt = now

		if err := m.members.Put(ctx, member); err != nil {
			return err
		}
		return m.record(ctx, now, secondaryMutation(
			missionDomain.AggregateTeamMember, member.UID, missionDomain.EventTeamMemberUpserted, member,
		))
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// DeleteTeamMember removes a member no assignment or asset references.
func (m *missionUseCase) DeleteTeamMember(ctx context.Context, uid string) (*missionDomain.TeamMember, error) {
	var member *missionDomain.TeamMember
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if member, err = m.members.Get(ctx, uid); err != nil {
			return err
		}

		assignments, err := m.assignments.List(ctx, "")
		if err != nil {
			return err
		}
		for _, assignment := range assignments {
			if assignment.TeamMemberUID == uid {
				return apperrors.Wrapf(missionDomain.ErrInUse, "team member %s is assigned in %s", uid, assignment.UID)
			}
		}

		assets, err := m.assets.List(ctx, "")
		if err != nil {
			return err
		}
		for _, asset := range assets {
			if asset.TeamMemberUID == uid {
				return apperrors.Wrapf(missionDomain.ErrInUse, "team member %s holds asset %s", uid, asset.UID)
			}
		}

		if err := m.members.Delete(ctx, uid); err != nil {
			return err
		}
		return m.record(ctx, m.now(), secondaryMutation(
			missionDomain.AggregateTeamMember, uid, missionDomain.EventTeamMemberDeleted, member,
		))
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// ListTeamMembers returns the members of a team, or every member when teamUID is empty.
func (m *missionUseCase) ListTeamMembers(ctx context.Context, teamUID string) ([]*missionDomain.TeamMember, error) {
	return m.members.List(ctx, teamUID)
}

// UpsertSkill creates or updates a catalogue skill.
func (m *missionUseCase) UpsertSkill(
	ctx context.Context,
	input *missionDomain.UpsertSkillInput,
) (*missionDomain.Skill, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var skill *missionDomain.Skill
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		skill = &missionDomain.Skill{UID: newUID(input.UID), CreatedAt: now}
		if input.UID != "" {
			existing, err := m.skills.Get(ctx, input.UID)
			if err != nil && !apperrors.Is(err, missionDomain.ErrSkillNotFound) {
				return err
			}
			if existing != nil {
				skill = existing
			}
		}

		skill.Name = input.Name
		skill.Category = input.Category
		skill.Description = input.Description
		skill.UpdatedAt = now

		if err := m.skills.Put(ctx, skill); err != nil {
			return err
		}
		return m.record(ctx, now, secondaryMutation(
			missionDomain.AggregateSkill, skill.UID, missionDomain.EventSkillUpserted, skill,
		))
	})
	if err != nil {
		return nil, err
	}
	return skill, nil
}

// ListSkills returns the skill catalogue.
func (m *missionUseCase) ListSkills(ctx context.Context) ([]*missionDomain.Skill, error) {
	return m.skills.List(ctx, "")
}

// SetMemberSkill records the level of a skill held by a member.
func (m *missionUseCase) SetMemberSkill(
	ctx context.Context,
	input *missionDomain.SetMemberSkillInput,
) (*missionDomain.TeamMember, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var member *missionDomain.TeamMember
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		var err error
		if member, err = m.members.Get(ctx, input.TeamMemberUID); err != nil {
			return err
		}
		if _, err := m.skills.Get(ctx, input.SkillUID); err != nil {
			return err
		}

		member.SetSkill(input.SkillUID, input.Level)
		member.UpdatedAt = now

		if err := m.members.Put(ctx, member); err != nil {
			return err
		}
		return m.record(ctx, now, secondaryMutation(
			missionDomain.AggregateTeamMember, member.UID, missionDomain.EventMemberSkillSet, input,
		))
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// UpsertAsset creates or updates an asset. A referenced holder must exist.
func (m *missionUseCase) UpsertAsset(
	ctx context.Context,
	input *missionDomain.UpsertAssetInput,
) (*missionDomain.Asset, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var asset *missionDomain.Asset
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		if input.TeamMemberUID != "" {
			if _, err := m.members.Get(ctx, input.TeamMemberUID); err != nil {
				return err
			}
		}

		asset = &missionDomain.Asset{
			UID:       newUID(input.UID),
			Status:    missionDomain.AssetStatusAvailable,
			CreatedAt: now,
		}
		if input.UID != "" {
			existing, err := m.assets.Get(ctx, input.UID)
			if err != nil && !apperrors.Is(err, missionDomain.ErrAssetNotFound) {
				return err
			}
			if existing != nil {
				asset = existing
			}
		}

		asset.Name = input.Name
		asset.AssetType = input.AssetType
		if input.Status != "" {
			asset.Status = input.Status
		}
		asset.TeamMemberUID = input.TeamMemberUID
		asset.Notes = input.Notes
		asset.UpdatedAt = now

		if err := m.assets.Put(ctx, asset); err != nil {
			return err
		}
		return m.record(ctx, now, secondaryMutation(
			missionDomain.AggregateAsset, asset.UID, missionDomain.EventAssetUpserted, asset,
		))
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// DeleteAsset removes an asset no assignment references.
func (m *missionUseCase) DeleteAsset(ctx context.Context, uid string) (*missionDomain.Asset, error) {
	var asset *missionDomain.Asset
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if asset, err = m.assets.Get(ctx, uid); err != nil {
			return err
		}

		assignments, err := m.assignments.List(ctx, "")
		if err != nil {
			return err
		}
		for _, assignment := range assignments {
			if slices.Contains(assignment.AssetUIDs, uid) {
				return apperrors.Wrapf(missionDomain.ErrInUse, "asset %s is used by assignment %s", uid, assignment.UID)
			}
		}

		if err := m.assets.Delete(ctx, uid); err != nil {
			return err
		}
		return m.record(ctx, m.now(), secondaryMutation(
			missionDomain.AggregateAsset, uid, missionDomain.EventAssetDeleted, asset,
		))
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// ListAssets returns every asset.
func (m *missionUseCase) ListAssets(ctx context.Context) ([]*missionDomain.Asset, error) {
	return m.assets.List(ctx, "")
}

// UpsertAssignment creates or updates an assignment. The mission, checklist, task,
// member and every asset must exist.
func (m *missionUseCase) UpsertAssignment(
	ctx context.Context,
	input *missionDomain.UpsertAssignmentInput,
) (*missionDomain.Assignment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var assignment *missionDomain.Assignment
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := m.now()

		if _, err := m.missions.Get(ctx, input.MissionUID); err != nil {
			return err
		}
		checklist, err := m.checklists.Get(ctx, input.ChecklistUID)
		if err != nil {
			return err
		}
		if _, err := checklist.FindTask(input.TaskUID); err != nil {
			return err
		}
		if _, err := m.members.Get(ctx, input.TeamMemberUID); err != nil {
			return err
		}
		for _, assetUID := range input.AssetUIDs {
			if _, err := m.assets.Get(ctx, assetUID); err != nil {
				return apperrors.Wrapf(err, "asset %s", assetUID)
			}
		}

		assignment = &missionDomain.Assignment{
			UID:       newUID(input.UID),
			Status:    missionDomain.AssignmentStatusPending,
			CreatedAt: now,
		}
		if input.UID != "" {
			existing, err := m.assignments.Get(ctx, input.UID)
			if err != nil && !apperrors.Is(err, missionDomain.ErrAssignmentNotFound) {
				return err
			}
			if existing != nil {
				assignment = existing
			}
		}

		assignment.MissionUID = input.MissionUID
		assignment.ChecklistUID = input.ChecklistUID
		assignment.TaskUID = input.TaskUID
		assignment.TeamMemberUID = input.TeamMemberUID
		assignment.AssetUIDs = append([]string{}, input.AssetUIDs...)
		if input.Status != "" {
			assignment.Status = input.Status
		}
		assignment.Notes = input.Notes
		assignment.UpdatedAt = now

		if err := m.assignments.Put(ctx, assignment); err != nil {
			return err
		}
		return m.record(ctx, now, secondaryMutation(
			missionDomain.AggregateAssignment, assignment.UID, missionDomain.EventAssignmentUpserted, assignment,
		))
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// DeleteAssignment removes an assignment.
func (m *missionUseCase) DeleteAssignment(ctx context.Context, uid string) (*missionDomain.Assignment, error) {
	var assignment *missionDomain.Assignment
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if assignment, err = m.assignments.Get(ctx, uid); err != nil {
			return err
		}
		if err := m.assignments.Delete(ctx, uid); err != nil {
			return err
		}
		return m.record(ctx, m.now(), secondaryMutation(
			missionDomain.AggregateAssignment, uid, missionDomain.EventAssignmentDeleted, assignment,
		))
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// ListAssignments returns the assignments of a mission, or every assignment when
// missionUID is empty.
func (m *missionUseCase) ListAssignments(ctx context.Context, missionUID string) ([]*missionDomain.Assignment, error) {
	return m.assignments.List(ctx, missionUID)
}

// loadMission returns the stored mission, or nil when uid is empty or unknown.
func (m *missionUseCase) loadMission(ctx context.Context, uid string) (*missionDomain.Mission, error) {
	if uid == "" {
		return nil, nil
	}
	mission, err := m.missions.Get(ctx, uid)
	if apperrors.Is(err, missionDomain.ErrMissionNotFound) {
		return nil, nil
	}
	return mission, err
}

func missionMutation(eventType string, mission *missionDomain.Mission) mutation {
	return mutation{
		domain:        missionDomain.DomainMission,
		aggregateType: missionDomain.AggregateMission,
		aggregateUID:  mission.UID,
		eventType:     eventType,
		payload:       mission,
		snapshot:      mission,
	}
}

func secondaryMutation(aggregateType, uid, eventType string, payload any) mutation {
	return mutation{
		domain:        missionDomain.DomainMission,
		aggregateType: aggregateType,
		aggregateUID:  uid,
		eventType:     eventType,
		payload:       payload,
	}
}
