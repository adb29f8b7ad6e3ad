// Package memblob is an in-memory blob store used by the test suite.
package memblob

import (
	"context"
	"fmt"
	"io"
	"sync"

	"chat-core/blob"
)

// Storage keeps blobs in a map. URLs use the mem:// scheme.
type Storage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New builds an empty storage.
func New() *Storage {
	return &Storage{blobs: make(map[string][]byte)}
}

// Upload stores the blob and returns a mem:// URL.
func (s *Storage) Upload(ctx context.Context, path string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read blob %q: %w", path, err)
	}
	s.mu.Lock()
	s.blobs[path] = data
	s.mu.Unlock()
	return "mem://" + path, nil
}

// Delete removes a blob.
func (s *Storage) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return fmt.Errorf("%w: %s", blob.ErrBlobNotFound, path)
	}
	delete(s.blobs, path)
	return nil
}

// Len reports how many blobs are stored.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Get returns a stored blob's bytes.
func (s *Storage) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	return data, ok
}

var _ blob.Storage = (*Storage)(nil)
