package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/missionhub/internal/database"
	"github.com/allisson/missionhub/internal/document"
	apperrors "github.com/allisson/missionhub/internal/errors"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
)

// DefaultRetention is the audit trail horizon used when none is configured.
const DefaultRetention = 90 * 24 * time.Hour

// missionUseCase implements UseCase on top of a document store.
type missionUseCase struct {
	txManager   database.TxManager
	events      EventRepository
	snapshots   SnapshotRepository
	retention   time.Duration
	now         func() time.Time
	missions    *document.Collection[missionDomain.Mission]
	teams       *document.Collection[missionDomain.Team]
	members     *document.Collection[missionDomain.TeamMember]
	skills      *document.Collection[missionDomain.Skill]
	assets      *document.Collection[missionDomain.Asset]
	assignments *document.Collection[missionDomain.Assignment]
	templates   *document.Collection[missionDomain.ChecklistTemplate]
	checklists  *document.Collection[missionDomain.Checklist]
}

// mutation describes the audit rows written for one change.
type mutation struct {
	domain        string
	aggregateType string
	aggregateUID  string
	eventType     string
	payload       any
	// snapshot is the aggregate state to snapshot, or nil for secondary aggregates.
	snapshot any
}

// record appends the event, the snapshot when requested, and sweeps expired history.
// It must run inside the caller's transaction.
func (m *missionUseCase) record(ctx context.Context, now time.Time, mutations ...mutation) error {
	for _, mut := range mutations {
		payload, err := toPayload(mut.payload)
		if err != nil {
			return err
		}

		event := &missionDomain.DomainEvent{
			EventUID:      uuid.Must(uuid.NewV7()).String(),
			Domain:        mut.domain,
			AggregateType: mut.aggregateType,
			AggregateUID:  mut.aggregateUID,
			EventType:     mut.eventType,
			Payload:       payload,
			CreatedAt:     now,
		}
		if err := m.events.Append(ctx, event); err != nil {
			return err
		}

		if mut.snapshot == nil {
			continue
		}
		if err := m.snapshot(ctx, now, mut); err != nil {
			return err
		}
	}

	_, err := m.sweep(ctx, now)
	return err
}

func (m *missionUseCase) snapshot(ctx context.Context, now time.Time, mut mutation) error {
	latest, err := m.snapshots.LatestVersion(ctx, mut.domain, mut.aggregateType, mut.aggregateUID)
	if err != nil {
		return err
	}

	state, err := json.Marshal(mut.snapshot)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode snapshot state")
	}

	return m.snapshots.Create(ctx, &missionDomain.DomainSnapshot{
		SnapshotUID:   uuid.Must(uuid.NewV7()).String(),
		Domain:        mut.domain,
		AggregateType: mut.aggregateType,
		AggregateUID:  mut.aggregateUID,
		Version:       latest + 1,
		State:         state,
		CreatedAt:     now,
	})
}

func (m *missionUseCase) sweep(ctx context.Context, now time.Time) (*PruneResult, error) {
	cutoff := now.Add(-m.retention)

	events, err := m.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	snapshots, err := m.snapshots.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	return &PruneResult{Cutoff: cutoff, EventsDeleted: events, SnapshotsDeleted: snapshots}, nil
}

// ListDomainEvents returns events newest first.
func (m *missionUseCase) ListDomainEvents(
	ctx context.Context,
	filter missionDomain.EventFilter,
) ([]*missionDomain.DomainEvent, error) {
	return m.events.List(ctx, filter)
}

// ListSnapshots returns the snapshots of one aggregate ordered by version.
func (m *missionUseCase) ListSnapshots(
	ctx context.Context,
	aggregateType, aggregateUID string,
) ([]*missionDomain.DomainSnapshot, error) {
	return m.snapshots.ListByAggregate(ctx, aggregateType, aggregateUID)
}

// PruneHistory runs the retention sweep on its own.
func (m *missionUseCase) PruneHistory(ctx context.Context) (*PruneResult, error) {
	var result *PruneResult
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = m.sweep(ctx, m.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// toPayload converts a value to the JSON object stored as event payload, so events
// read back the same from every repository.
func toPayload(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode event payload")
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode event payload")
	}
	return payload, nil
}

func newUID(uid string) string {
	if uid != "" {
		return uid
	}
	return uuid.Must(uuid.NewV7()).String()
}

// NewMissionUseCase creates the mission domain service. A non-positive retention
// falls back to DefaultRetention.
func NewMissionUseCase(
	txManager database.TxManager,
	store document.Store,
	events EventRepository,
	snapshots SnapshotRepository,
	retention time.Duration,
) UseCase {
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &missionUseCase{
		txManager: txManager,
		events:    events,
		snapshots: snapshots,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		missions: document.NewCollection(store, missionDomain.AggregateMission,
			func(v *missionDomain.Mission) (string, string) { return v.UID, "" },
			missionDomain.ErrMissionNotFound),
		teams: document.NewCollection(store, missionDomain.AggregateTeam,
			func(v *missionDomain.Team) (string, string) { return v.UID, v.MissionUID },
			missionDomain.ErrTeamNotFound),
		members: document.NewCollection(store, missionDomain.AggregateTeamMember,
			func(v *missionDomain.TeamMember) (string, string) { return v.UID, v.TeamUID },
			missionDomain.ErrTeamMemberNotFound),
		skills: document.NewCollection(store, missionDomain.AggregateSkill,
			func(v *missionDomain.Skill) (string, string) { return v.UID, "" },
			missionDomain.ErrSkillNotFound),
		assets: document.NewCollection(store, missionDomain.AggregateAsset,
			func(v *missionDomain.Asset) (string, string) { return v.UID, "" },
			missionDomain.ErrAssetNotFound),
		assignments: document.NewCollection(store, missionDomain.AggregateAssignment,
			func(v *missionDomain.Assignment) (string, string) { return v.UID, v.MissionUID },
			missionDomain.ErrAssignmentNotFound),
		templates: document.NewCollection(store, missionDomain.AggregateChecklistTemplate,
			func(v *missionDomain.ChecklistTemplate) (string, string) { return v.UID, "" },
			missionDomain.ErrTemplateNotFound),
		checklists: document.NewCollection(store, missionDomain.AggregateChecklist,
			func(v *missionDomain.Checklist) (string, string) { return v.UID, v.MissionUID },
			missionDomain.ErrChecklistNotFound),
	}
}
