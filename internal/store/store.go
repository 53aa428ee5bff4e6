package store

import "errors"

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateID is returned when Create is given an id already in use.
	ErrDuplicateID = errors.New("store: duplicate record id")
)

// RecordStore persists job records. Implementations must be safe for
// concurrent use; the jobs manager updates records from worker goroutines
// while the API reads them.
type RecordStore interface {
	// Create inserts a new record. Fails with ErrDuplicateID if the id
	// exists.
	Create(rec *Record) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(id string) (*Record, error)

	// Update overwrites the record with the same id, or ErrNotFound.
	Update(rec *Record) error

	// Close releases backend resources.
	Close() error
}
