package document

import (
	"context"
	"encoding/json"
	"time"

	"github.com/allisson/missionhub/internal/errors"
)

// Collection stores values of type T as JSON documents of one collection.
type Collection[T any] struct {
	store    Store
	name     string
	key      func(*T) (uid, parentUID string)
	notFound error
	now      func() time.Time
}

// NewCollection creates a typed view over store. key extracts the uid and parent uid
// of a value. notFound replaces ErrDocumentNotFound in returned errors.
func NewCollection[T any](
	store Store,
	name string,
	key func(*T) (uid, parentUID string),
	notFound error,
) *Collection[T] {
	return &Collection[T]{
		store:    store,
		name:     name,
		key:      key,
		notFound: notFound,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Get loads the value stored under uid.
func (c *Collection[T]) Get(ctx context.Context, uid string) (*T, error) {
	doc, err := c.store.Get(ctx, c.name, uid)
	if err != nil {
		return nil, c.translate(err)
	}
	return c.decode(doc)
}

// Exists reports whether a value is stored under uid.
func (c *Collection[T]) Exists(ctx context.Context, uid string) (bool, error) {
	_, err := c.store.Get(ctx, c.name, uid)
	if errors.Is(err, ErrDocumentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Put stores v, replacing any value with the same uid.
func (c *Collection[T]) Put(ctx context.Context, v *T) error {
	uid, parentUID := c.key(v)

	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s document", c.name)
	}

	now := c.now()
	return c.store.Upsert(ctx, &Document{
		Collection: c.name,
		UID:        uid,
		ParentUID:  parentUID,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// List returns every value whose parent is parentUID, or every value of the collection
// when parentUID is empty.
func (c *Collection[T]) List(ctx context.Context, parentUID string) ([]*T, error) {
	docs, err := c.store.Query(ctx, c.name, Filter{ParentUID: parentUID})
	if err != nil {
		return nil, err
	}

	values := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Delete removes the value stored under uid.
func (c *Collection[T]) Delete(ctx context.Context, uid string) error {
	return c.translate(c.store.Delete(ctx, c.name, uid))
}

func (c *Collection[T]) decode(doc *Document) (*T, error) {
	var v T
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s document %s", c.name, doc.UID)
	}
	return &v, nil
}

func (c *Collection[T]) translate(err error) error {
	if c.notFound != nil && errors.Is(err, ErrDocumentNotFound) {
		return c.notFound
	}
	return err
}
