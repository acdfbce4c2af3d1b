package blobstore

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create then open", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())

		w, err := store.Create(ctx, "snap.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("hello world"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		blob, err := store.Open(ctx, "snap.bin")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(11), blob.Size())

		buf := make([]byte, 5)
		_, err = blob.ReadAt(ctx, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, "world", string(buf))
	})

	t.Run("no temp files after close", func(t *testing.T) {
		dir := t.TempDir()
		store := NewLocalStore(dir)

		w, err := store.Create(ctx, "snap.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("read range", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())
		require.NoError(t, store.Put(ctx, "blob", []byte("0123456789")))

		blob, err := store.Open(ctx, "blob")
		require.NoError(t, err)
		defer blob.Close()

		rc, err := blob.ReadRange(ctx, 8, 5)
		require.NoError(t, err)
		defer rc.Close()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "89", string(got))
	})

	t.Run("nested names", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())
		require.NoError(t, store.Put(ctx, "a/b/c.bin", []byte("deep")))

		names, err := store.List(ctx, "a/")
		require.NoError(t, err)
		assert.Equal(t, []string{"a/b/c.bin"}, names)
	})

	t.Run("list and delete", func(t *testing.T) {
		store := NewLocalStore(t.TempDir())
		require.NoError(t, store.Put(ctx, "idx-1", []byte("x")))
		require.NoError(t, store.Put(ctx, "idx-2", []byte("y")))
		require.NoError(t, store.Put(ctx, "other", []byte("z")))

		names, err := store.List(ctx, "idx-")
		require.NoError(t, err)
		assert.Equal(t, []string{"idx-1", "idx-2"}, names)

		require.NoError(t, store.Delete(ctx, "idx-1"))
		require.NoError(t, store.Delete(ctx, "idx-1")) // idempotent

		_, err = store.Open(ctx, "idx-1")
		require.Error(t, err)
	})

	t.Run("list empty root", func(t *testing.T) {
		store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
