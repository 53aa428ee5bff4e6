// Package memory provides an in-process RecordStore. Records live only as
// long as the process; suitable for development and tests.
package memory

import (
	"sync"

	"github.com/talgya/echelon/internal/store"
)

// Store keeps records in a map guarded by a mutex. Records are shallow
// copied on the way in and out: top-level fields are isolated, while the
// MarketState and Report pointers are shared. Both are written once at
// completion and treated as read-only afterwards.
type Store struct {
	mu      sync.RWMutex
	records map[string]store.Record
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]store.Record)}
}

func (s *Store) Create(rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return store.ErrDuplicateID
	}
	s.records[rec.ID] = *rec
	return nil
}

func (s *Store) Get(id string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) Update(rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		return store.ErrNotFound
	}
	s.records[rec.ID] = *rec
	return nil
}

func (s *Store) Close() error { return nil }
