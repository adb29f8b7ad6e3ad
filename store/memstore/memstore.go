// Package memstore is an in-memory document store. It backs the test
// suite and embedded deployments that do not need persistence.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-core/store"
)

// Store holds collections of documents plus the live-query subscriber
// registry. The registry follows the same shape as a connection hub: a
// map guarded by an RWMutex, notified on every write.
type Store struct {
	mu      sync.RWMutex
	colls   map[string]*collection
	subs    map[int]*subscriber
	nextSub int
	logger  *zap.Logger
}

type collection struct {
	order []string // insertion order, the store's native ordering
	docs  map[string]map[string]any
}

type subscriber struct {
	query  store.Query
	wakeup chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New builds an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		colls:  make(map[string]*collection),
		subs:   make(map[int]*subscriber),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a document under a fresh id.
func (s *Store) Create(ctx context.Context, coll string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, coll, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set inserts or replaces a document.
func (s *Store) Set(ctx context.Context, coll, id string, data map[string]any) error {
	s.mu.Lock()
	c := s.collectionLocked(coll)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = store.CloneData(data)
	s.mu.Unlock()

	s.notify(coll)
	return nil
}

// Get fetches one document.
func (s *Store) Get(ctx context.Context, coll, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.colls[coll]
	if !ok {
		return store.Record{}, fmt.Errorf("%w: %s/%s", store.ErrNotFound, coll, id)
	}
	data, ok := c.docs[id]
	if !ok {
		return store.Record{}, fmt.Errorf("%w: %s/%s", store.ErrNotFound, coll, id)
	}
	return store.Record{ID: id, Data: store.CloneData(data)}, nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, coll, id string, fields map[string]any) error {
	s.mu.Lock()
	c, ok := s.colls[coll]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, coll, id)
	}
	data, ok := c.docs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, coll, id)
	}
	for k, v := range store.CloneData(fields) {
		data[k] = v
	}
	s.mu.Unlock()

	s.notify(coll)
	return nil
}

// Delete removes a document if present.
func (s *Store) Delete(ctx context.Context, coll, id string) error {
	s.mu.Lock()
	c, ok := s.colls[coll]
	if ok {
		if _, exists := c.docs[id]; exists {
			delete(c.docs, id)
			for i, other := range c.order {
				if other == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		}
	}
	s.mu.Unlock()

	s.notify(coll)
	return nil
}

// Query evaluates a query once.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	s.mu.RLock()
	recs := s.listLocked(q.Collection)
	s.mu.RUnlock()
	return store.ApplyQuery(q, recs), nil
}

// Subscribe registers a live query. The first snapshot is delivered
// immediately; every later write to the collection triggers a re-query.
func (s *Store) Subscribe(ctx context.Context, q store.Query) (<-chan store.Snapshot, error) {
	sub := &subscriber{query: q, wakeup: make(chan struct{}, 1)}

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
				s.logger.Warn("memstore subscription query failed", zap.Error(err))
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

func (s *Store) collectionLocked(name string) *collection {
	c, ok := s.colls[name]
	if !ok {
		c = &collection{docs: make(map[string]map[string]any)}
		s.colls[name] = c
	}
	return c
}

func (s *Store) listLocked(name string) []store.Record {
	c, ok := s.colls[name]
	if !ok {
		return nil
	}
	recs := make([]store.Record, 0, len(c.order))
	for _, id := range c.order {
		recs = append(recs, store.Record{ID: id, Data: store.CloneData(c.docs[id])})
	}
	return recs
}

// notify wakes every subscriber watching the collection. The wakeup
// channel is buffered with capacity one, so bursts of writes collapse
// into a single re-query.
func (s *Store) notify(coll string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.query.Collection != coll {
			continue
		}
		select {
		case sub.wakeup <- struct{}{}:
		default:
		}
	}
}
