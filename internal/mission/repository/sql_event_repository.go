// Package repository implements persistence for domain events and snapshots.
//
// Aggregates themselves live in the document store; this package holds the bounded
// audit trail written alongside every mutation.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/allisson/missionhub/internal/database"
	apperrors "github.com/allisson/missionhub/internal/errors"
	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
)

// SQLEventRepository stores domain events in the domain_events table.
type SQLEventRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// Append inserts one event.
func (r *SQLEventRepository) Append(ctx context.Context, event *missionDomain.DomainEvent) error {
	querier := database.GetTx(ctx, r.db)

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event payload")
	}

	query := r.dialect.Rebind(`INSERT INTO domain_events
			  (event_uid, domain, aggregate_type, aggregate_uid, event_type, payload, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = querier.ExecContext(
		ctx,
		query,
		event.EventUID,
		event.Domain,
		event.AggregateType,
		event.AggregateUID,
		event.EventType,
		string(payload),
		event.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to append domain event")
	}
	return nil
}

// List returns events matching filter, newest first.
func (r *SQLEventRepository) List(
	ctx context.Context,
	filter missionDomain.EventFilter,
) ([]*missionDomain.DomainEvent, error) {
	querier := database.GetTx(ctx, r.db)

	var conditions []string
	var args []any
	if filter.AggregateType != "" {
		conditions = append(conditions, "aggregate_type = ?")
		args = append(args, filter.AggregateType)
	}
	if filter.AggregateUID != "" {
		conditions = append(conditions, "aggregate_uid = ?")
		args = append(args, filter.AggregateUID)
	}

	query := `SELECT event_uid, domain, aggregate_type, aggregate_uid, event_type, payload, created_at
			  FROM domain_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, event_uid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := querier.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list domain events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*missionDomain.DomainEvent, 0)
	for rows.Next() {
		var event missionDomain.DomainEvent
		var payload string

		if err := rows.Scan(
			&event.EventUID,
			&event.Domain,
			&event.AggregateType,
			&event.AggregateUID,
			&event.EventType,
			&payload,
			&event.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan domain event")
		}

		if err := json.Unmarshal([]byte(payload), &event.Payload); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal event payload")
		}
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate domain events")
	}
	return events, nil
}

// DeleteBefore removes events created before cutoff and returns how many were removed.
func (r *SQLEventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`DELETE FROM domain_events WHERE created_at < ?`)

	result, err := querier.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete domain events")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

// NewSQLEventRepository creates a new SQL event repository.
func NewSQLEventRepository(db *sql.DB, dialect database.Dialect) *SQLEventRepository {
	return &SQLEventRepository{db: db, dialect: dialect}
}
