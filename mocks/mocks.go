// Package mocks provides testify doubles for the library's interfaces.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"chat-core/blob"
	"chat-core/directory"
	"chat-core/events"
	"chat-core/models"
	"chat-core/store"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	args := m.Called(ctx, collection, data)
	return args.String(0), args.Error(1)
}

func (m *StoreMock) Set(ctx context.Context, collection, id string, data map[string]any) error {
	args := m.Called(ctx, collection, id, data)
	return args.Error(0)
}

func (m *StoreMock) Get(ctx context.Context, collection, id string) (store.Record, error) {
	args := m.Called(ctx, collection, id)
	var rec store.Record
	if val := args.Get(0); val != nil {
		rec = val.(store.Record)
	}
	return rec, args.Error(1)
}

func (m *StoreMock) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

func (m *StoreMock) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

func (m *StoreMock) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	args := m.Called(ctx, q)
	var recs []store.Record
	if val := args.Get(0); val != nil {
		recs = val.([]store.Record)
	}
	return recs, args.Error(1)
}

func (m *StoreMock) Subscribe(ctx context.Context, q store.Query) (<-chan store.Snapshot, error) {
	args := m.Called(ctx, q)
	var ch <-chan store.Snapshot
	if val := args.Get(0); val != nil {
		ch = val.(<-chan store.Snapshot)
	}
	return ch, args.Error(1)
}

type BlobMock struct {
	mock.Mock
}

func (m *BlobMock) Upload(ctx context.Context, path string, content io.Reader) (string, error) {
	args := m.Called(ctx, path, content)
	return args.String(0), args.Error(1)
}

func (m *BlobMock) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) GetUser(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event events.Envelope) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ store.Store = (*StoreMock)(nil)
var _ blob.Storage = (*BlobMock)(nil)
var _ directory.Directory = (*DirectoryMock)(nil)
var _ events.Publisher = (*PublisherMock)(nil)
