// Package document provides a transactional key/value store of JSON documents.
//
// Aggregates of the mission domain and topic subscriptions are stored as documents in
// the shared "documents" table, keyed by (collection, uid). Each document may name a
// parent so children can be listed without scanning the whole collection.
package document

import (
	"context"
	"time"

	"github.com/allisson/missionhub/internal/errors"
)

// ErrDocumentNotFound is returned when no document matches the key.
var ErrDocumentNotFound = errors.Wrap(errors.ErrNotFound, "document not found")

// Document is one stored row.
type Document struct {
	Collection string
	UID        string
	ParentUID  string
	Body       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filter narrows a Query. The zero value matches every document of the collection.
type Filter struct {
	ParentUID string
}

// Store persists documents. Implementations must support transaction-aware operations
// via context propagation.
type Store interface {
	// Get returns the document or ErrDocumentNotFound.
	Get(ctx context.Context, collection, uid string) (*Document, error)

	// Upsert inserts the document or replaces body, parent and updated_at of the existing one.
	// CreatedAt of an existing document is preserved.
	Upsert(ctx context.Context, doc *Document) error

	// Query returns the documents of collection matching filter ordered by created_at, uid.
	Query(ctx context.Context, collection string, filter Filter) ([]*Document, error)

	// Delete removes the document or returns ErrDocumentNotFound.
	Delete(ctx context.Context, collection, uid string) error
}
