// Package store is the persistence boundary for imported records. The
// import pipeline only needs two operations: create a record and check
// whether an identifier of some kind already exists. Both drivers (postgres,
// memory) implement the same interface so the pipeline and its tests never
// touch driver details.
package store

import (
	"context"
	"errors"

	"github.com/marketlens/ingest/internal/schema"
)

// ErrDuplicate is returned by Create when a record with the same identifier
// already exists for its kind.
var ErrDuplicate = errors.New("record already exists")

// Record is one validated row ready for persistence. Fields holds typed
// values (string, int64, float64, time.Time) keyed by column name.
type Record struct {
	Kind   schema.Kind
	ID     string // identifier value; "" for kinds without an identifier column
	Fields map[string]any

	// BatchID and ImportedBy tie the record to the import that produced it.
	BatchID    string
	ImportedBy string
}

// Store exposes the create/lookup operations the import pipeline relies on.
type Store interface {
	// Create persists one record. Returns ErrDuplicate when the record's
	// identifier collides with an existing record of the same kind.
	Create(ctx context.Context, rec *Record) error

	// Exists reports whether an identifier is present among the persisted
	// records of a kind. Used by reference resolution, so it must see
	// records from earlier batches, not just the current one.
	Exists(ctx context.Context, kind schema.Kind, id string) (bool, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
