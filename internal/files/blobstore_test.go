package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpenRemove(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	n, err := store.Put(ctx, "user_uploads/u1/a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	rc, err := store.Open(ctx, "user_uploads/u1/a.txt")
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	require.NoError(t, store.Remove(ctx, "user_uploads/u1/a.txt"))
	require.NoError(t, store.Remove(ctx, "user_uploads/u1/a.txt"))
	_, err = store.Open(ctx, "user_uploads/u1/a.txt")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalStore_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{"", ".", "../outside", "a/../../outside"} {
		_, err := store.Put(ctx, path, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidBlobPath, path)
	}
}

func TestLocalStore_Walk(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	_, err = store.Put(ctx, "user_uploads/u1/a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "user_uploads/u2/b.txt", strings.NewReader("bb"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	seen := map[string]int64{}
	require.NoError(t, store.Walk(ctx, func(b BlobInfo) error {
		seen[b.Path] = b.Size
		return nil
	}))

	assert.Equal(t, map[string]int64{"user_uploads/u1/a.txt": 1, "user_uploads/u2/b.txt": 2}, seen)
}
