package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/missionhub/internal/database"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
	"github.com/allisson/missionhub/internal/testutil"
)

type eventStore interface {
	Append(ctx context.Context, event *missionDomain.DomainEvent) error
	List(ctx context.Context, filter missionDomain.EventFilter) ([]*missionDomain.DomainEvent, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type snapshotStore interface {
	Create(ctx context.Context, snapshot *missionDomain.DomainSnapshot) error
	LatestVersion(ctx context.Context, domain, aggregateType, aggregateUID string) (int, error)
	ListByAggregate(ctx context.Context, aggregateType, aggregateUID string) ([]*missionDomain.DomainSnapshot, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func newEvent(aggregateUID, eventType string, createdAt time.Time) *missionDomain.DomainEvent {
	return &missionDomain.DomainEvent{
		EventUID:      uuid.Must(uuid.NewV7()).String(),
		Domain:        missionDomain.DomainChecklist,
		AggregateType: missionDomain.AggregateChecklist,
		AggregateUID:  aggregateUID,
		EventType:     eventType,
		Payload:       map[string]any{"checklist_uid": aggregateUID},
		CreatedAt:     createdAt,
	}
}

func newSnapshot(aggregateUID string, version int, createdAt time.Time) *missionDomain.DomainSnapshot {
	return &missionDomain.DomainSnapshot{
		SnapshotUID:   uuid.Must(uuid.NewV7()).String(),
		Domain:        missionDomain.DomainChecklist,
		AggregateType: missionDomain.AggregateChecklist,
		AggregateUID:  aggregateUID,
		Version:       version,
		State:         json.RawMessage(`{"uid":"` + aggregateUID + `"}`),
		CreatedAt:     createdAt,
	}
}

func exerciseEventStore(t *testing.T, repo eventStore) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, newEvent("c1", missionDomain.EventChecklistCreated, now.Add(-48*time.Hour))))
	require.NoError(t, repo.Append(ctx, newEvent("c1", missionDomain.EventTaskAdded, now.Add(-time.Hour))))
	require.NoError(t, repo.Append(ctx, newEvent("c2", missionDomain.EventChecklistCreated, now)))

	all, err := repo.List(ctx, missionDomain.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c2", all[0].AggregateUID, "newest first")

	c1, err := repo.List(ctx, missionDomain.EventFilter{
		AggregateType: missionDomain.AggregateChecklist,
		AggregateUID:  "c1",
		Limit:         1,
	})
	require.NoError(t, err)
	require.Len(t, c1, 1)
	assert.Equal(t, missionDomain.EventTaskAdded, c1[0].EventType)
	assert.Equal(t, "c1", c1[0].Payload["checklist_uid"])

	deleted, err := repo.DeleteBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	all, err = repo.List(ctx, missionDomain.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func exerciseSnapshotStore(t *testing.T, repo snapshotStore) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	version, err := repo.LatestVersion(ctx, missionDomain.DomainChecklist, missionDomain.AggregateChecklist, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	require.NoError(t, repo.Create(ctx, newSnapshot("c1", 1, now.Add(-48*time.Hour))))
	require.NoError(t, repo.Create(ctx, newSnapshot("c1", 2, now)))
	require.NoError(t, repo.Create(ctx, newSnapshot("c2", 1, now)))

	version, err = repo.LatestVersion(ctx, missionDomain.DomainChecklist, missionDomain.AggregateChecklist, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	snapshots, err := repo.ListByAggregate(ctx, missionDomain.AggregateChecklist, "c1")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, 1, snapshots[0].Version)
	assert.JSONEq(t, `{"uid":"c1"}`, string(snapshots[1].State))

	deleted, err := repo.DeleteBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	version, err = repo.LatestVersion(ctx, missionDomain.DomainChecklist, missionDomain.AggregateChecklist, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestMemoryRepositories(t *testing.T) {
	t.Run("Events", func(t *testing.T) {
		exerciseEventStore(t, NewMemoryEventRepository())
	})

	t.Run("Snapshots", func(t *testing.T) {
		exerciseSnapshotStore(t, NewMemorySnapshotRepository())
	})

	t.Run("RollbackRestoresState", func(t *testing.T) {
		events := NewMemoryEventRepository()
		snapshots := NewMemorySnapshotRepository()
		txManager := database.NewMemoryTxManager(events, snapshots)
		now := time.Now().UTC()

		err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
			require.NoError(t, events.Append(ctx, newEvent("c1", missionDomain.EventChecklistCreated, now)))
			require.NoError(t, snapshots.Create(ctx, newSnapshot("c1", 1, now)))
			return errors.New("boom")
		})
		require.Error(t, err)

		listed, err := events.List(context.Background(), missionDomain.EventFilter{})
		require.NoError(t, err)
		assert.Empty(t, listed)

		version, err := snapshots.LatestVersion(
			context.Background(), missionDomain.DomainChecklist, missionDomain.AggregateChecklist, "c1",
		)
		require.NoError(t, err)
		assert.Equal(t, 0, version)
	})
}

func TestSQLRepositories(t *testing.T) {
	testutil.ForEachDriver(t, func(t *testing.T, db *sql.DB, dialect database.Dialect) {
		t.Run("Events", func(t *testing.T) {
			exerciseEventStore(t, NewSQLEventRepository(db, dialect))
		})

		t.Run("Snapshots", func(t *testing.T) {
			exerciseSnapshotStore(t, NewSQLSnapshotRepository(db, dialect))
		})
	})
}

func TestSQLEventRepository_List_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dialect, err := database.NewDialect(database.DriverPostgres)
	require.NoError(t, err)
	repo := NewSQLEventRepository(db, dialect)

	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE aggregate_type = $1 AND aggregate_uid = $2 ORDER BY created_at DESC, event_uid DESC LIMIT $3",
	)).
		WithArgs("checklist", "c1", 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"event_uid", "domain", "aggregate_type", "aggregate_uid", "event_type", "payload", "created_at",
		}).AddRow("e1", "checklist", "checklist", "c1", "checklist.created", `{"name":"Pre-flight"}`, createdAt))

	events, err := repo.List(context.Background(), missionDomain.EventFilter{
		AggregateType: "checklist",
		AggregateUID:  "c1",
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Pre-flight", events[0].Payload["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_Create_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dialect, err := database.NewDialect(database.DriverMySQL)
	require.NoError(t, err)
	repo := NewSQLSnapshotRepository(db, dialect)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO domain_snapshots")).
		WillReturnError(errors.New("duplicate entry"))

	err = repo.Create(context.Background(), newSnapshot("c1", 1, time.Now()))
	assert.ErrorContains(t, err, "failed to create domain snapshot")
	assert.NoError(t, mock.ExpectationsWereMet())
}
