package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/missionhub/internal/database"
	apperrors "github.com/allisson/missionhub/internal/errors"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
)

// SQLSnapshotRepository stores aggregate snapshots in the domain_snapshots table.
type SQLSnapshotRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// Create inserts one snapshot. The unique (domain, aggregate, version) key rejects
// concurrent writers of the same version.
func (r *SQLSnapshotRepository) Create(ctx context.Context, snapshot *missionDomain.DomainSnapshot) error {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`INSERT INTO domain_snapshots
			  (snapshot_uid, domain, aggregate_type, aggregate_uid, version, state, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := querier.ExecContext(
		ctx,
		query,
		snapshot.SnapshotUID,
		snapshot.Domain,
		snapshot.AggregateType,
		snapshot.AggregateUID,
		snapshot.Version,
		string(snapshot.State),
		snapshot.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create domain snapshot")
	}
	return nil
}

// LatestVersion returns the highest stored version of an aggregate, or 0 when none exists.
func (r *SQLSnapshotRepository) LatestVersion(
	ctx context.Context,
	domain, aggregateType, aggregateUID string,
) (int, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`SELECT COALESCE(MAX(version), 0) FROM domain_snapshots
			  WHERE domain = ? AND aggregate_type = ? AND aggregate_uid = ?`)

	var version int
	if err := querier.QueryRowContext(ctx, query, domain, aggregateType, aggregateUID).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get latest snapshot version")
	}
	return version, nil
}

// ListByAggregate returns the snapshots of an aggregate ordered by version.
func (r *SQLSnapshotRepository) ListByAggregate(
	ctx context.Context,
	aggregateType, aggregateUID string,
) ([]*missionDomain.DomainSnapshot, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`SELECT snapshot_uid, domain, aggregate_type, aggregate_uid, version, state, created_at
			  FROM domain_snapshots
			  WHERE aggregate_type = ? AND aggregate_uid = ?
			  ORDER BY version`)

	rows, err := querier.QueryContext(ctx, query, aggregateType, aggregateUID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list domain snapshots")
	}
	defer func() {
		_ = rows.Close()
	}()

	snapshots := make([]*missionDomain.DomainSnapshot, 0)
	for rows.Next() {
		var snapshot missionDomain.DomainSnapshot
		var state string

		if err := rows.Scan(
			&snapshot.SnapshotUID,
			&snapshot.Domain,
			&snapshot.AggregateType,
			&snapshot.AggregateUID,
			&snapshot.Version,
			&state,
			&snapshot.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan domain snapshot")
		}

		snapshot.State = []byte(state)
		snapshot.CreatedAt = snapshot.CreatedAt.UTC()
		snapshots = append(snapshots, &snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate domain snapshots")
	}
	return snapshots, nil
}

// DeleteBefore removes snapshots created before cutoff and returns how many were removed.
func (r *SQLSnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`DELETE FROM domain_snapshots WHERE created_at < ?`)

	result, err := querier.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete domain snapshots")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

// NewSQLSnapshotRepository creates a new SQL snapshot repository.
func NewSQLSnapshotRepository(db *sql.DB, dialect database.Dialect) *SQLSnapshotRepository {
	return &SQLSnapshotRepository{db: db, dialect: dialect}
}
