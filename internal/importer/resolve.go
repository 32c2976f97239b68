package importer

// resolve.go checks foreign-key columns against already-persisted entities.
//
// Resolution runs only after a row is structurally valid. The resolver is
// per-batch: its memo of identifier lookups reflects the persisted state at
// the time of the batch and is discarded with it, so a later batch always
// sees the latest persisted entities.

import (
	"context"
	"fmt"
	"sync"

	"github.com/marketlens/ingest/internal/schema"
	"github.com/marketlens/ingest/internal/store"
)

// Lookup answers whether an identifier exists among persisted records of a
// kind. The store's Exists method satisfies this signature.
type Lookup func(ctx context.Context, kind schema.Kind, id string) (bool, error)

// Resolver verifies reference columns for one batch, memoizing lookups so
// each distinct identifier hits the store at most once per batch.
type Resolver struct {
	lookup Lookup

	mu   sync.Mutex
	seen map[schema.Kind]map[string]bool
}

// NewResolver creates a resolver for a single batch.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{
		lookup: lookup,
		seen:   make(map[schema.Kind]map[string]bool),
	}
}

// Resolve checks every reference column of a validated record. The first
// unresolved reference is returned as a row error tagged with the record's
// row index; nil means all references resolved.
func (r *Resolver) Resolve(ctx context.Context, row int, rec *store.Record, t schema.Template) *RowError {
	for _, spec := range t.References() {
		id, _ := rec.Fields[spec.Name].(string)
		if id == "" {
			continue // empty values are the validator's concern
		}

		exists, err := r.exists(ctx, spec.RefKind, id)
		if err != nil {
			return &RowError{
				Row: row, Column: spec.Name, Kind: KindUnresolvedReference,
				Message: fmt.Sprintf("could not verify %s %q: %v", spec.RefKind, id, err),
			}
		}
		if !exists {
			return &RowError{
				Row: row, Column: spec.Name, Kind: KindUnresolvedReference,
				Message: fmt.Sprintf("%q not found in %s", id, spec.RefKind),
			}
		}
	}
	return nil
}

func (r *Resolver) exists(ctx context.Context, kind schema.Kind, id string) (bool, error) {
	r.mu.Lock()
	if known, ok := r.seen[kind][id]; ok {
		r.mu.Unlock()
		return known, nil
	}
	r.mu.Unlock()

	exists, err := r.lookup(ctx, kind, id)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	if r.seen[kind] == nil {
		r.seen[kind] = make(map[string]bool)
	}
	r.seen[kind][id] = exists
	r.mu.Unlock()

	return exists, nil
}
