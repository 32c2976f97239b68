package importer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/marketlens/ingest/internal/schema"
	"github.com/marketlens/ingest/internal/store"
)

// countingLookup wraps a fixed identifier set and counts store hits.
type countingLookup struct {
	mu    sync.Mutex
	known map[string]bool
	calls int
	err   error
}

func (c *countingLookup) lookup(_ context.Context, kind schema.Kind, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.known[string(kind)+"/"+id], nil
}

func purchaseRecord(customerID string) *store.Record {
	return &store.Record{
		Kind:   schema.KindPurchases,
		Fields: map[string]any{"customer_id": customerID},
	}
}

func TestResolver_Hit(t *testing.T) {
	tmpl := template(t, schema.KindPurchases)
	lk := &countingLookup{known: map[string]bool{"customers/CUST00001": true}}
	r := NewResolver(lk.lookup)

	if rowErr := r.Resolve(context.Background(), 0, purchaseRecord("CUST00001"), tmpl); rowErr != nil {
		t.Errorf("Resolve() = %v, want nil", rowErr)
	}
}

func TestResolver_Miss(t *testing.T) {
	tmpl := template(t, schema.KindPurchases)
	lk := &countingLookup{known: map[string]bool{}}
	r := NewResolver(lk.lookup)

	rowErr := r.Resolve(context.Background(), 5, purchaseRecord("CUST404"), tmpl)
	if rowErr == nil {
		t.Fatal("Resolve() = nil, want error")
	}
	if rowErr.Kind != KindUnresolvedReference {
		t.Errorf("kind = %q, want UnresolvedReference", rowErr.Kind)
	}
	if rowErr.Row != 5 || rowErr.Column != "customer_id" {
		t.Errorf("row/column = %d/%q, want 5/customer_id", rowErr.Row, rowErr.Column)
	}
	if rowErr.Message != `"CUST404" not found in customers` {
		t.Errorf("message = %q", rowErr.Message)
	}
}

func TestResolver_MemoizesLookups(t *testing.T) {
	tmpl := template(t, schema.KindPurchases)
	lk := &countingLookup{known: map[string]bool{"customers/CUST00001": true}}
	r := NewResolver(lk.lookup)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if rowErr := r.Resolve(ctx, i, purchaseRecord("CUST00001"), tmpl); rowErr != nil {
			t.Fatalf("Resolve() row %d = %v", i, rowErr)
		}
	}
	// Misses are memoized too.
	for i := 10; i < 20; i++ {
		if rowErr := r.Resolve(ctx, i, purchaseRecord("CUST404"), tmpl); rowErr == nil {
			t.Fatalf("Resolve() row %d = nil, want miss", i)
		}
	}

	if lk.calls != 2 {
		t.Errorf("lookup calls = %d, want 2 (one per distinct identifier)", lk.calls)
	}
}

func TestResolver_LookupError(t *testing.T) {
	tmpl := template(t, schema.KindPurchases)
	lk := &countingLookup{err: errors.New("connection refused")}
	r := NewResolver(lk.lookup)

	rowErr := r.Resolve(context.Background(), 0, purchaseRecord("CUST00001"), tmpl)
	if rowErr == nil {
		t.Fatal("Resolve() = nil, want error")
	}
	if rowErr.Kind != KindUnresolvedReference {
		t.Errorf("kind = %q, want UnresolvedReference", rowErr.Kind)
	}
	if !strings.Contains(rowErr.Message, "could not verify") ||
		!strings.Contains(rowErr.Message, "connection refused") {
		t.Errorf("message = %q", rowErr.Message)
	}
}

func TestResolver_ErrorsNotMemoized(t *testing.T) {
	tmpl := template(t, schema.KindPurchases)
	lk := &countingLookup{err: errors.New("transient")}
	r := NewResolver(lk.lookup)

	ctx := context.Background()
	r.Resolve(ctx, 0, purchaseRecord("CUST00001"), tmpl)
	lk.err = nil
	lk.known = map[string]bool{"customers/CUST00001": true}

	if rowErr := r.Resolve(ctx, 1, purchaseRecord("CUST00001"), tmpl); rowErr != nil {
		t.Errorf("Resolve() after recovery = %v, want nil", rowErr)
	}
	if lk.calls != 2 {
		t.Errorf("lookup calls = %d, want 2 (failed lookup must not be cached)", lk.calls)
	}
}
