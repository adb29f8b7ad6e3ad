package chatcore

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"chat-core/blob"
	"chat-core/blob/fsblob"
	"chat-core/blob/memblob"
	"chat-core/config"
	"chat-core/directory"
	"chat-core/events"
	"chat-core/store"
	"chat-core/store/memstore"
	"chat-core/store/pebblestore"
	"chat-core/store/pgstore"
)

// FromConfig assembles a Client from environment configuration. The
// store backend is picked by precedence: Postgres when a DSN is set,
// pebble when a path is set, otherwise in-memory. Blob storage works the
// same way with the filesystem root. Redis and AMQP are optional
// decorations.
func FromConfig(cfg config.Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var st store.Store
	var closers []func() error
	switch {
	case cfg.PostgresDSN != "":
		pg, err := pgstore.Connect(cfg.PostgresDSN, pgstore.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("wire postgres store: %w", err)
		}
		st = pg
		closers = append(closers, pg.Close)
	case cfg.PebblePath != "":
		pb, err := pebblestore.Open(cfg.PebblePath, pebblestore.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("wire pebble store: %w", err)
		}
		st = pb
		closers = append(closers, pb.Close)
	default:
		st = memstore.New(memstore.WithLogger(logger))
	}

	var blobs blob.Storage
	if cfg.BlobRoot != "" {
		fs, err := fsblob.New(cfg.BlobRoot)
		if err != nil {
			return nil, fmt.Errorf("wire blob storage: %w", err)
		}
		blobs = fs
	} else {
		blobs = memblob.New()
	}

	var dir directory.Directory = directory.NewStoreDirectory(st)
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		dir = directory.NewCachedDirectory(dir, rc, time.Minute, logger)
		closers = append(closers, rc.Close)
	}

	publisher := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	logger.Info("chat core wired", zap.String("publisher", events.Mode(publisher)))

	opts = append([]Option{WithLogger(logger), WithPublisher(publisher)}, opts...)
	client := New(st, blobs, dir, opts...)
	client.closers = closers
	return client, nil
}
