// Package store defines the document-store contract the rest of the
// library is written against. Backends provide CRUD, collection queries
// and live query subscriptions; everything above treats them as opaque.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Record is a stored document together with its store-assigned id.
type Record struct {
	ID   string
	Data map[string]any
}

// Clone returns a deep copy of the record so that callers can mutate it
// without affecting backend state.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Data: CloneData(r.Data)}
}

// CloneData deep-copies a document value tree (maps and slices).
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneData(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = cloneValue(item)
		}
		return cp
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp
	default:
		return v
	}
}

// Snapshot is one full result set of a subscribed query. Each emission
// replaces the previous one wholesale; consumers must not treat it as a
// delta.
type Snapshot struct {
	Records []Record
}

// Store is the document-store interface. All operations are safe for
// concurrent use. Consistency holds within a single document or query;
// nothing spans documents.
type Store interface {
	// Create inserts a document under a store-generated id.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set inserts or replaces a document under a caller-supplied id.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Get fetches one document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Record, error)
	// Update merges the given top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Query evaluates a query once.
	Query(ctx context.Context, q Query) ([]Record, error)
	// Subscribe delivers a snapshot immediately and again after every
	// change to the queried collection. The channel closes when ctx is
	// cancelled.
	Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error)
}
