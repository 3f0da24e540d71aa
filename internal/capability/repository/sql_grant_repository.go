// Package repository implements persistence for capability grants.
//
// The SQL implementation serves PostgreSQL, MySQL and SQLite through database.Dialect,
// with transaction support via database.GetTx(). The memory implementation backs tests
// and single-process deployments without a database.
package repository

import (
	"context"
	"database/sql"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/database"
	apperrors "github.com/allisson/missionhub/internal/errors"
)

// SQLGrantRepository implements grant persistence for every supported SQL driver.
type SQLGrantRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// Upsert inserts the grant or replaces the existing (identity, capability) row.
func (r *SQLGrantRepository) Upsert(ctx context.Context, grant *capabilityDomain.Grant) error {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Upsert(
		"capability_grants",
		[]string{"identity", "capability"},
		[]string{"granted_by", "granted_at", "expires_at"},
	)

	var expiresAt any
	if grant.ExpiresAt != nil {
		expiresAt = grant.ExpiresAt.UTC()
	}

	_, err := querier.ExecContext(
		ctx,
		query,
		grant.Identity,
		string(grant.Capability),
		grant.GrantedBy,
		grant.GrantedAt.UTC(),
		expiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert capability grant")
	}
	return nil
}

// Delete removes the grant row.
func (r *SQLGrantRepository) Delete(
	ctx context.Context,
	identity string,
	capability capabilityDomain.Capability,
) error {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`DELETE FROM capability_grants WHERE identity = ? AND capability = ?`)

	result, err := querier.ExecContext(ctx, query, identity, string(capability))
	if err != nil {
		return apperrors.Wrap(err, "failed to delete capability grant")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return capabilityDomain.ErrGrantNotFound
	}
	return nil
}

// ListByIdentity returns the grants of identity ordered by capability.
func (r *SQLGrantRepository) ListByIdentity(
	ctx context.Context,
	identity string,
) ([]*capabilityDomain.Grant, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`SELECT identity, capability, granted_by, granted_at, expires_at
			  FROM capability_grants
			  WHERE identity = ?
			  ORDER BY capability`)

	rows, err := querier.QueryContext(ctx, query, identity)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list capability grants")
	}
	defer func() {
		_ = rows.Close()
	}()

	grants := make([]*capabilityDomain.Grant, 0)
	for rows.Next() {
		var grant capabilityDomain.Grant
		var capability string
		var expiresAt sql.NullTime

		if err := rows.Scan(
			&grant.Identity,
			&capability,
			&grant.GrantedBy,
			&grant.GrantedAt,
			&expiresAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan capability grant")
		}

		grant.Capability = capabilityDomain.Capability(capability)
		grant.GrantedAt = grant.GrantedAt.UTC()
		if expiresAt.Valid {
			t := expiresAt.Time.UTC()
			grant.ExpiresAt = &t
		}
		grants = append(grants, &grant)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate capability grants")
	}
	return grants, nil
}

// NewSQLGrantRepository creates a new SQL grant repository.
func NewSQLGrantRepository(db *sql.DB, dialect database.Dialect) *SQLGrantRepository {
	return &SQLGrantRepository{db: db, dialect: dialect}
}

