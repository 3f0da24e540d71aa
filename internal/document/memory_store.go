package document

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
)

type documentKey struct {
	collection string
	uid        string
}

// MemoryStore keeps documents in process memory. It takes part in
// database.MemoryTxManager transactions through Checkpoint.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[documentKey]Document
	seq  map[documentKey]uint64
	next uint64
}

// Get returns a copy of the document.
func (s *MemoryStore) Get(_ context.Context, collection, uid string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentKey{collection, uid}]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return cloneDocument(doc), nil
}

// Upsert stores a copy of the document, preserving CreatedAt of an existing entry.
func (s *MemoryStore) Upsert(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{doc.Collection, doc.UID}
	stored := *cloneDocument(*doc)
	if existing, ok := s.docs[key]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		s.next++
		s.seq[key] = s.next
	}
	s.docs[key] = stored
	return nil
}

// Query returns copies of the matching documents in insertion order.
func (s *MemoryStore) Query(_ context.Context, collection string, filter Filter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]documentKey, 0)
	for key, doc := range s.docs {
		if key.collection != collection {
			continue
		}
		if filter.ParentUID != "" && doc.ParentUID != filter.ParentUID {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return s.seq[keys[i]] < s.seq[keys[j]] })

	docs := make([]*Document, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, cloneDocument(s.docs[key]))
	}
	return docs, nil
}

// Delete removes the document.
func (s *MemoryStore) Delete(_ context.Context, collection, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey{collection, uid}
	if _, ok := s.docs[key]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.docs, key)
	delete(s.seq, key)
	return nil
}

// Checkpoint captures the stored documents and returns a function restoring them.
func (s *MemoryStore) Checkpoint() func() {
	s.mu.RLock()
	docs := maps.Clone(s.docs)
	seq := maps.Clone(s.seq)
	next := s.next
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.docs, s.seq, s.next = docs, seq, next
		s.mu.Unlock()
	}
}

func cloneDocument(doc Document) *Document {
	doc.Body = slices.Clone(doc.Body)
	return &doc
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[documentKey]Document),
		seq:  make(map[documentKey]uint64),
	}
}
