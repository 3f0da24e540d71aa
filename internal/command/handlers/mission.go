package handlers

import (
	"context"

	validation "github.com/jellydator/validation"

	"github.com/allisson/missionhub/internal/command"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
	missionUseCase "github.com/allisson/missionhub/internal/mission/usecase"
	"github.com/allisson/missionhub/internal/topic"
	customValidation "github.com/allisson/missionhub/internal/validation"
)

// Event types of commands that are not mission domain mutations.
const (
	EventMarkerCreated     = "mission.marker.created"
	EventMarkerUpdated     = "mission.marker.updated"
	EventMarkerDeleted     = "mission.marker.deleted"
	EventZoneCreated       = "mission.zone.created"
	EventZoneUpdated       = "mission.zone.updated"
	EventZoneDeleted       = "mission.zone.deleted"
	EventTopicSubscribed   = "mission.topic.subscribed"
	EventTopicUnsubscribed = "mission.topic.unsubscribed"
)

const (
	defaultEventsListLimit = 50
	maximumEventsListLimit = 500
)

// TopicRegistry manages topic subscriptions.
type TopicRegistry interface {
	Subscribe(ctx context.Context, input *topic.SubscribeInput) (*topic.Subscription, error)
	Unsubscribe(ctx context.Context, topic, identity string) error
}

// MissionDeps are the collaborators of the mission router handlers. Markers and Zones
// may be nil.
type MissionDeps struct {
	Missions missionUseCase.UseCase
	Topics   TopicRegistry
	Markers  MarkerService
	Zones    ZoneService
}

// RegisterMission registers every mission router command.
func RegisterMission(registry *command.Registry, deps MissionDeps) {
	h := &missionHandlers{deps: deps}

	registry.Register("mission.upsert", h.upsertMission)
	registry.Register("mission.delete", h.deleteMission)
	registry.Register("mission.get", h.getMission)
	registry.Register("mission.list", h.listMissions)
	registry.Register("mission.team.upsert", h.upsertTeam)
	registry.Register("mission.team.delete", h.deleteTeam)
	registry.Register("mission.team.list", h.listTeams)
	registry.Register("mission.team.member.upsert", h.upsertTeamMember)
	registry.Register("mission.team.member.delete", h.deleteTeamMember)
	registry.Register("mission.team.member.list", h.listTeamMembers)
	registry.Register("mission.team.member.skill.set", h.setMemberSkill)
	registry.Register("mission.skill.upsert", h.upsertSkill)
	registry.Register("mission.skill.list", h.listSkills)
	registry.Register("mission.asset.upsert", h.upsertAsset)
	registry.Register("mission.asset.delete", h.deleteAsset)
	registry.Register("mission.asset.list", h.listAssets)
	registry.Register("mission.assignment.upsert", h.upsertAssignment)
	registry.Register("mission.assignment.delete", h.deleteAssignment)
	registry.Register("mission.assignment.list", h.listAssignments)
	registry.Register("mission.marker.create", h.marker(EventMarkerCreated, MarkerService.CreateMarker))
	registry.Register("mission.marker.update", h.marker(EventMarkerUpdated, MarkerService.UpdateMarker))
	registry.Register("mission.marker.delete", h.marker(EventMarkerDeleted, MarkerService.DeleteMarker))
	registry.Register("mission.zone.create", h.zone(EventZoneCreated, ZoneService.CreateZone))
	registry.Register("mission.zone.update", h.zone(EventZoneUpdated, ZoneService.UpdateZone))
	registry.Register("mission.zone.delete", h.zone(EventZoneDeleted, ZoneService.DeleteZone))
	registry.Register("mission.topic.subscribe", h.subscribe)
	registry.Register("mission.topic.unsubscribe", h.unsubscribe)
	registry.Register("mission.events.list", h.listEvents)
}

type missionHandlers struct {
	deps MissionDeps
}

func (h *missionHandlers) upsertMission(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpsertMissionInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	mission, err := h.deps.Missions.UpsertMission(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventMissionUpserted, mission), nil
}

func (h *missionHandlers) deleteMission(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	mission, err := h.deps.Missions.DeleteMission(ctx, uid)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventMissionDeleted, mission), nil
}

func (h *missionHandlers) getMission(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	mission, err := h.deps.Missions.GetMission(ctx, uid)
	if err != nil {
		return nil, err
	}
	return read(mission), nil
}

func (h *missionHandlers) listMissions(ctx context.Context, _ *command.Call) (*command.Outcome, error) {
	missions, err := h.deps.Missions.ListMissions(ctx)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"missions": missions}), nil
}

func (h *missionHandlers) upsertTeam(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpsertTeamInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	team, err := h.deps.Missions.UpsertTeam(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTeamUpserted, team), nil
}

func (h *missionHandlers) deleteTeam(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	team, err := h.deps.Missions.DeleteTeam(ctx, uid)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTeamDeleted, team), nil
}

func (h *missionHandlers) listTeams(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var args struct {
		MissionUID string `json:"mission_uid"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return nil, err
	}
	teams, err := h.deps.Missions.ListTeams(ctx, args.MissionUID)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"teams": teams}), nil
}

func (h *missionHandlers) upsertTeamMember(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpsertTeamMemberInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	member, err := h.deps.Missions.UpsertTeamMember(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTeamMemberUpserted, member), nil
}

func (h *missionHandlers) deleteTeamMember(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	member, err := h.deps.Missions.DeleteTeamMember(ctx, uid)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventTeamMemberDeleted, member), nil
}

func (h *missionHandlers) listTeamMembers(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var args struct {
		TeamUID string `json:"team_uid"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return nil, err
	}
	members, err := h.deps.Missions.ListTeamMembers(ctx, args.TeamUID)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"team_members": members}), nil
}

func (h *missionHandlers) setMemberSkill(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.SetMemberSkillInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	member, err := h.deps.Missions.SetMemberSkill(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventMemberSkillSet, member), nil
}

func (h *missionHandlers) upsertSkill(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpsertSkillInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	skill, err := h.deps.Missions.UpsertSkill(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventSkillUpserted, skill), nil
}

func (h *missionHandlers) listSkills(ctx context.Context, _ *command.Call) (*command.Outcome, error) {
	skills, err := h.deps.Missions.ListSkills(ctx)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"skills": skills}), nil
}

func (h *missionHandlers) upsertAsset(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpsertAssetInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	asset, err := h.deps.Missions.UpsertAsset(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventAssetUpserted, asset), nil
}

func (h *missionHandlers) deleteAsset(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	asset, err := h.deps.Missions.DeleteAsset(ctx, uid)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventAssetDeleted, asset), nil
}

func (h *missionHandlers) listAssets(ctx context.Context, _ *command.Call) (*command.Outcome, error) {
	assets, err := h.deps.Missions.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"assets": assets}), nil
}

func (h *missionHandlers) upsertAssignment(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var input missionDomain.UpsertAssignmentInput
	if err := decodeArgs(call, &input); err != nil {
		return nil, err
	}
	assignment, err := h.deps.Missions.UpsertAssignment(ctx, &input)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventAssignmentUpserted, assignment), nil
}

func (h *missionHandlers) deleteAssignment(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	uid, err := decodeUID(call)
	if err != nil {
		return nil, err
	}
	assignment, err := h.deps.Missions.DeleteAssignment(ctx, uid)
	if err != nil {
		return nil, err
	}
	return changed(missionDomain.EventAssignmentDeleted, assignment), nil
}

func (h *missionHandlers) listAssignments(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var args struct {
		MissionUID string `json:"mission_uid"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return nil, err
	}
	assignments, err := h.deps.Missions.ListAssignments(ctx, args.MissionUID)
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"assignments": assignments}), nil
}

func (h *missionHandlers) marker(
	eventType string,
	op func(MarkerService, context.Context, map[string]any, string) (map[string]any, error),
) command.Handler {
	return func(ctx context.Context, call *command.Call) (*command.Outcome, error) {
		if h.deps.Markers == nil {
			return nil, command.Unsupported("marker service")
		}
		result, err := op(h.deps.Markers, ctx, call.Envelope.Args, call.Sender)
		if err != nil {
			return nil, err
		}
		return changed(eventType, result), nil
	}
}

func (h *missionHandlers) zone(
	eventType string,
	op func(ZoneService, context.Context, map[string]any, string) (map[string]any, error),
) command.Handler {
	return func(ctx context.Context, call *command.Call) (*command.Outcome, error) {
		if h.deps.Zones == nil {
			return nil, command.Unsupported("zone service")
		}
		result, err := op(h.deps.Zones, ctx, call.Envelope.Args, call.Sender)
		if err != nil {
			return nil, err
		}
		return changed(eventType, result), nil
	}
}

// subscribe subscribes the sender. Subscribing on behalf of another identity is not allowed.
func (h *missionHandlers) subscribe(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var args struct {
		Topic       string `json:"topic"`
		Destination string `json:"destination"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return nil, err
	}
	subscription, err := h.deps.Topics.Subscribe(ctx, &topic.SubscribeInput{
		Topic:       args.Topic,
		Identity:    call.Sender,
		Destination: args.Destination,
	})
	if err != nil {
		return nil, err
	}
	return changed(EventTopicSubscribed, subscription), nil
}

func (h *missionHandlers) unsubscribe(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var args struct {
		Topic string `json:"topic"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return nil, err
	}
	if err := customValidation.WrapValidationError(validation.Validate(args.Topic, validation.Required)); err != nil {
		return nil, err
	}
	if err := h.deps.Topics.Unsubscribe(ctx, args.Topic, call.Sender); err != nil {
		return nil, err
	}
	payload := map[string]any{"topic": args.Topic, "identity": call.Sender}
	return changed(EventTopicUnsubscribed, payload), nil
}

func (h *missionHandlers) listEvents(ctx context.Context, call *command.Call) (*command.Outcome, error) {
	var args struct {
		AggregateType string `json:"aggregate_type"`
		AggregateUID  string `json:"aggregate_uid"`
		Limit         int    `json:"limit"`
	}
	if err := decodeArgs(call, &args); err != nil {
		return nil, err
	}
	err := customValidation.WrapValidationError(
		validation.Validate(args.Limit, validation.Min(0), validation.Max(maximumEventsListLimit)),
	)
	if err != nil {
		return nil, err
	}
	if args.Limit == 0 {
		args.Limit = defaultEventsListLimit
	}

	events, err := h.deps.Missions.ListDomainEvents(ctx, missionDomain.EventFilter{
		AggregateType: args.AggregateType,
		AggregateUID:  args.AggregateUID,
		Limit:         args.Limit,
	})
	if err != nil {
		return nil, err
	}
	return read(map[string]any{"events": events}), nil
}
