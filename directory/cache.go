package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"chat-core/models"
	"chat-core/observability"
)

// CachedDirectory decorates a Directory with a Redis cache. Roster
// hydration looks up every member of a room on every read, so profile
// lookups are cached with a short TTL. Redis failures degrade to the
// inner directory, never to an error.
type CachedDirectory struct {
	inner  Directory
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedDirectory builds the decorator. A zero ttl defaults to one
// minute.
func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedDirectory{inner: inner, client: client, ttl: ttl, logger: logger}
}

// GetUser returns the cached profile or falls through to the inner
// directory and caches the result.
func (d *CachedDirectory) GetUser(ctx context.Context, id string) (models.User, error) {
	key := cacheKey(id)
	raw, err := d.client.Get(ctx, key).Bytes()
	if err == nil {
		var u models.User
		if jsonErr := json.Unmarshal(raw, &u); jsonErr == nil {
			observability.IncDirectoryCache(true)
			return u, nil
		}
		// Unreadable entry: drop it and refetch.
		d.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn("directory cache read failed", zap.String("user_id", id), zap.Error(err))
	}
	observability.IncDirectoryCache(false)

	u, err := d.inner.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if raw, jsonErr := json.Marshal(u); jsonErr == nil {
		if setErr := d.client.Set(ctx, key, raw, d.ttl).Err(); setErr != nil {
			d.logger.Warn("directory cache write failed", zap.String("user_id", id), zap.Error(setErr))
		}
	}
	return u, nil
}

// Invalidate evicts a profile after an edit or deletion.
func (d *CachedDirectory) Invalidate(ctx context.Context, id string) {
	d.client.Del(ctx, cacheKey(id))
}

func cacheKey(id string) string {
	return "chatcore:user:" + id
}

var _ Directory = (*CachedDirectory)(nil)
