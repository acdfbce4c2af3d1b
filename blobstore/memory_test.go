package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put and open", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Put(ctx, "a", []byte("hello")))

		blob, err := store.Open(ctx, "a")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(5), blob.Size())

		buf := make([]byte, 5)
		n, err := blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", string(buf))
	})

	t.Run("streaming create", func(t *testing.T) {
		store := NewMemoryStore()

		w, err := store.Create(ctx, "b")
		require.NoError(t, err)
		_, err = w.Write([]byte("hel"))
		require.NoError(t, err)
		_, err = w.Write([]byte("lo"))
		require.NoError(t, err)

		// Not visible until Close.
		_, err = store.Open(ctx, "b")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, w.Close())

		blob, err := store.Open(ctx, "b")
		require.NoError(t, err)
		defer blob.Close()
		assert.Equal(t, int64(5), blob.Size())
	})

	t.Run("read range", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Put(ctx, "c", []byte("hello world")))

		blob, err := store.Open(ctx, "c")
		require.NoError(t, err)
		defer blob.Close()

		rc, err := blob.ReadRange(ctx, 6, 5)
		require.NoError(t, err)
		defer rc.Close()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "world", string(got))

		// Past the end is truncated, not an error.
		rc, err = blob.ReadRange(ctx, 6, 100)
		require.NoError(t, err)
		got, _ = io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "world", string(got))
	})

	t.Run("list and delete", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Put(ctx, "idx/1", []byte("x")))
		require.NoError(t, store.Put(ctx, "idx/2", []byte("y")))
		require.NoError(t, store.Put(ctx, "other", []byte("z")))

		names, err := store.List(ctx, "idx/")
		require.NoError(t, err)
		assert.Equal(t, []string{"idx/1", "idx/2"}, names)

		require.NoError(t, store.Delete(ctx, "idx/1"))
		require.NoError(t, store.Delete(ctx, "idx/1")) // idempotent

		_, err = store.Open(ctx, "idx/1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("open missing", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Open(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
