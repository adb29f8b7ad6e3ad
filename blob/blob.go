// Package blob defines the blob-store contract used by the media upload
// coordinator. The store is an external collaborator: uploads return a
// stable download URL and nothing else is assumed about it.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when deleting or reading an absent blob.
var ErrBlobNotFound = errors.New("blob: not found")

// Storage stores opaque blobs under slash-separated paths.
type Storage interface {
	// Upload writes the blob and returns its download URL.
	Upload(ctx context.Context, path string, content io.Reader) (string, error)
	// Delete removes a blob.
	Delete(ctx context.Context, path string) error
}
