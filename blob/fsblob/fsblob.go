// Package fsblob stores blobs on the local filesystem. Suitable for
// single-host deployments and development.
package fsblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chat-core/blob"
)

// Storage writes blobs under a root directory. Download URLs use the
// file:// scheme and point at the absolute path of the blob.
type Storage struct {
	root string
}

// New builds a storage rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Storage{root: abs}, nil
}

// Upload writes the blob to disk and returns its file:// URL.
func (s *Storage) Upload(ctx context.Context, path string, content io.Reader) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create blob %q: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("write blob %q: %w", path, err)
	}
	return "file://" + full, nil
}

// Delete removes a blob from disk.
func (s *Storage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", blob.ErrBlobNotFound, path)
		}
		return fmt.Errorf("delete blob %q: %w", path, err)
	}
	return nil
}

// resolve maps a blob path onto the root, rejecting path escapes.
func (s *Storage) resolve(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if full != s.root && !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob path %q escapes storage root", path)
	}
	return full, nil
}

var _ blob.Storage = (*Storage)(nil)
