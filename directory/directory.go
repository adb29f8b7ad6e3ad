// Package directory resolves user ids to full User profiles. The Room
// Resolver and Message Projector use it to hydrate rosters.
package directory

import (
	"context"

	"chat-core/models"
	"chat-core/schema"
	"chat-core/store"
)

// Directory looks up users by id. Implementations return
// store.ErrNotFound for unknown ids.
type Directory interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

// StoreDirectory reads the users collection of a document store.
type StoreDirectory struct {
	store store.Store
}

// NewStoreDirectory builds a StoreDirectory.
func NewStoreDirectory(st store.Store) *StoreDirectory {
	return &StoreDirectory{store: st}
}

// GetUser fetches and maps one user record.
func (d *StoreDirectory) GetUser(ctx context.Context, id string) (models.User, error) {
	rec, err := d.store.Get(ctx, schema.UsersCollection, id)
	if err != nil {
		return models.User{}, err
	}
	return schema.UserFromRecord(rec)
}

// SaveUser writes a user profile, keyed by the user's id. Used by
// applications on sign-in and profile edits.
func (d *StoreDirectory) SaveUser(ctx context.Context, u models.User) error {
	return d.store.Set(ctx, schema.UsersCollection, u.ID, schema.UserToRecord(u))
}

// DeleteUser removes a user profile on account removal.
func (d *StoreDirectory) DeleteUser(ctx context.Context, id string) error {
	return d.store.Delete(ctx, schema.UsersCollection, id)
}

var _ Directory = (*StoreDirectory)(nil)
