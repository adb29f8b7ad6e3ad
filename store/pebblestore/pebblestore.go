// Package pebblestore backs the document store with an embedded pebble
// database. Documents are JSON values under "doc|{collection}|{id}"
// keys; collection queries are prefix scans. Subscriptions use an
// in-process hub, which is sound because an embedded store has exactly
// one writing process.
package pebblestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-core/store"
)

const keyPrefix = "doc|"

// Store is a pebble-backed document store.
type Store struct {
	db     *pebble.DB
	logger *zap.Logger

	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextSub int
}

type subscriber struct {
	collection string
	wakeup     chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens (or creates) a pebble database at the given path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop(), subs: make(map[int]*subscriber)}
	for _, opt := range opts {
		opt(s)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		s.logger.Error("pebble open failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	s.db = db
	s.logger.Info("pebble opened", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a document under a fresh id.
func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set inserts or replaces a document.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := s.db.Set(docKey(collection, id), body, pebble.Sync); err != nil {
		s.logger.Error("document set failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return err
	}
	s.notify(collection)
	return nil
}

// Get fetches one document.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	body, closer, err := s.db.Get(docKey(collection, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return store.Record{}, fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
		}
		return store.Record{}, err
	}
	defer closer.Close()
	return decode(id, body)
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	rec, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		rec.Data[k] = v
	}
	return s.Set(ctx, collection, id, rec.Data)
}

// Delete removes a document if present.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.db.Delete(docKey(collection, id), pebble.Sync); err != nil {
		return err
	}
	s.notify(collection)
	return nil
}

// Query scans the collection prefix and evaluates the query in-process.
// Key order (lexicographic by id) is the native tie-break.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	prefix := []byte(keyPrefix + q.Collection + "|")
	upper := append(append([]byte{}, prefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var recs []store.Record
	for iter.First(); iter.Valid(); iter.Next() {
		id := string(iter.Key()[len(prefix):])
		rec, err := decode(id, iter.Value())
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return store.ApplyQuery(q, recs), nil
}

// Subscribe registers a live query against the in-process hub.
func (s *Store) Subscribe(ctx context.Context, q store.Query) (<-chan store.Snapshot, error) {
	sub := &subscriber{collection: q.Collection, wakeup: make(chan struct{}, 1)}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.mu.Unlock()

	out := make(chan store.Snapshot)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(out)
		}()

		for {
			recs, err := s.Query(ctx, q)
			if err != nil {
				s.logger.Warn("subscription query failed", zap.String("collection", q.Collection), zap.Error(err))
				return
			}
			select {
			case out <- store.Snapshot{Records: recs}:
			case <-ctx.Done():
				return
			}
			select {
			case <-sub.wakeup:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *Store) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		select {
		case sub.wakeup <- struct{}{}:
		default:
		}
	}
}

func docKey(collection, id string) []byte {
	return []byte(keyPrefix + collection + "|" + id)
}

func decode(id string, body []byte) (store.Record, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return store.Record{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return store.Record{ID: id, Data: data}, nil
}

var _ store.Store = (*Store)(nil)
