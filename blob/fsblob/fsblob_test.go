package fsblob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-core/blob"
)

func TestUploadWritesFile(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Upload(ctx, "alice/r1/pic.png", strings.NewReader("abc"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))

	data, err := os.ReadFile(filepath.Join(root, "alice", "r1", "pic.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	require.NoError(t, s.Delete(ctx, "alice/r1/pic.png"))
	assert.ErrorIs(t, s.Delete(ctx, "alice/r1/pic.png"), blob.ErrBlobNotFound)
}

func TestRejectsPathEscape(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "../outside.txt", strings.NewReader("x"))
	assert.Error(t, err)
}
