// Package pgstore backs the document store with Postgres: one JSONB
// table keyed by (collection, id), LISTEN/NOTIFY driving the live-query
// subscriptions.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"chat-core/store"
)

const notifyChannel = "chatcore_doc_changes"

// Store is a Postgres-backed document store.
type Store struct {
	db     *sqlx.DB
	dsn    string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Connect opens the database, runs migrations and returns the store.
func Connect(dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	s := &Store{db: db, dsn: dsn, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_documents (
            collection TEXT NOT NULL,
            id TEXT NOT NULL,
            data JSONB NOT NULL,
            inserted_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY (collection, id)
        );`,
		`CREATE OR REPLACE FUNCTION chatcore_notify_doc_change() RETURNS trigger AS $$
        BEGIN
            IF TG_OP = 'DELETE' THEN
                PERFORM pg_notify('` + notifyChannel + `', OLD.collection);
                RETURN OLD;
            END IF;
            PERFORM pg_notify('` + notifyChannel + `', NEW.collection);
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql;`,
		`DROP TRIGGER IF EXISTS chat_documents_notify ON chat_documents;`,
		`CREATE TRIGGER chat_documents_notify
            AFTER INSERT OR UPDATE OR DELETE ON chat_documents
            FOR EACH ROW EXECUTE FUNCTION chatcore_notify_doc_change();`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	s.logger.Info("document table migrations applied")
	return nil
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO chat_documents (collection, id, data) VALUES ($1, $2, $3)
        ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`, collection, id, body)
	return err
}

// Get fetches one document.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	var body []byte
	err := s.db.GetContext(ctx, &body, `SELECT data FROM chat_documents WHERE collection=$1 AND id=$2`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	if err != nil {
		return store.Record{}, err
	}
	return decode(id, body)
}

// Update merges fields into an existing document via JSONB
// concatenation, which replaces top-level keys.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE chat_documents SET data = data || $3::jsonb WHERE collection=$1 AND id=$2`, collection, id, body)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	return nil
}

// Delete removes a document if present.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_documents WHERE collection=$1 AND id=$2`, collection, id)
	return err
}

// Query evaluates a query once. Filtering and ordering run in-process
// over the collection so that every backend shares one set of query
// semantics; insertion order is the native tie-break.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT id, data FROM chat_documents WHERE collection=$1 ORDER BY inserted_at, id`, q.Collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []store.Record
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		rec, err := decode(id, body)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.ApplyQuery(q, recs), nil
}

// Subscribe listens for collection changes and re-runs the query after
// every matching notification. The first snapshot is delivered
// immediately.
func (s *Store) Subscribe(ctx context.Context, q store.Query) (<-chan store.Snapshot, error) {
	listener := pq.NewListener(s.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("pg listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	out := make(chan store.Snapshot)
	go func() {
		defer close(out)
		defer listener.Close()

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

		wait:
			for {
				select {
				case n := <-listener.Notify:
					// A nil notification signals a reconnect; re-query to
					// cover anything missed while disconnected.
					if n == nil || n.Extra == q.Collection {
						break wait
					}
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decode(id string, body []byte) (store.Record, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return store.Record{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return store.Record{ID: id, Data: data}, nil
}

var _ store.Store = (*Store)(nil)
