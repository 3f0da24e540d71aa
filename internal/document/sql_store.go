package document

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/missionhub/internal/database"
	apperrors "github.com/allisson/missionhub/internal/errors"
)

// SQLStore implements Store on the documents table.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
}

// Get retrieves one document.
func (s *SQLStore) Get(ctx context.Context, collection, uid string) (*Document, error) {
	querier := database.GetTx(ctx, s.db)

	query := s.dialect.Rebind(`SELECT collection, uid, parent_uid, body, created_at, updated_at
			  FROM documents WHERE collection = ? AND uid = ?`)

	var doc Document
	var body string
	err := querier.QueryRowContext(ctx, query, collection, uid).Scan(
		&doc.Collection,
		&doc.UID,
		&doc.ParentUID,
		&body,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get document")
	}

	doc.Body = []byte(body)
	return &doc, nil
}

// Upsert inserts or updates one document, preserving created_at of an existing row.
func (s *SQLStore) Upsert(ctx context.Context, doc *Document) error {
	querier := database.GetTx(ctx, s.db)

	query := s.dialect.Upsert(
		"documents",
		[]string{"collection", "uid"},
		[]string{"parent_uid", "body", "updated_at"},
		"created_at",
	)

	_, err := querier.ExecContext(
		ctx,
		query,
		doc.Collection,
		doc.UID,
		doc.ParentUID,
		string(doc.Body),
		doc.UpdatedAt.UTC(),
		doc.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert document")
	}
	return nil
}

// Query lists documents of a collection, optionally restricted to one parent.
func (s *SQLStore) Query(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT collection, uid, parent_uid, body, created_at, updated_at
			  FROM documents WHERE collection = ?`
	args := []any{collection}
	if filter.ParentUID != "" {
		query += ` AND parent_uid = ?`
		args = append(args, filter.ParentUID)
	}
	query += ` ORDER BY created_at, uid`

	rows, err := querier.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query documents")
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := make([]*Document, 0)
	for rows.Next() {
		var doc Document
		var body string
		if err := rows.Scan(
			&doc.Collection,
			&doc.UID,
			&doc.ParentUID,
			&body,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan document")
		}
		doc.Body = []byte(body)
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate documents")
	}
	return docs, nil
}

// Delete removes one document.
func (s *SQLStore) Delete(ctx context.Context, collection, uid string) error {
	querier := database.GetTx(ctx, s.db)

	query := s.dialect.Rebind(`DELETE FROM documents WHERE collection = ? AND uid = ?`)

	result, err := querier.ExecContext(ctx, query, collection, uid)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete document")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// NewSQLStore creates a document store over db.
func NewSQLStore(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}
