package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	w, err := store.Create(ctx, "a/b")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)

	// Visible only after Close.
	_, err = store.Open(ctx, "a/b")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "a/b")
	require.NoError(t, err)
	require.Equal(t, int64(4), blob.Size())
	require.NoError(t, blob.Close())

	require.NoError(t, store.Put(ctx, "a/c", []byte("x")))
	keys, err := store.List(ctx, "a/")
	require.NoError(t, err)
	require.Equal(t, []string{"a/b", "a/c"}, keys)

	require.NoError(t, store.Delete(ctx, "a/b"))
	keys, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"a/c"}, keys)
}

func TestMemoryStoreIsolatesReaders(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", []byte{1, 2, 3}))

	blob, err := store.Open(ctx, "k")
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)

	// Overwriting the key must not change an open reader's view.
	require.NoError(t, store.Put(ctx, "k", []byte{9, 9, 9}))
	buf2 := make([]byte, 3)
	_, err = blob.ReadAt(ctx, buf2, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf2)
}

func TestMemoryStoreFailPut(t *testing.T) {
	store := NewMemoryStore()
	boom := errors.New("storage unavailable")
	store.FailPut = func(name string) error {
		if name == "bad" {
			return boom
		}
		return nil
	}

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "good", nil))
	require.ErrorIs(t, store.Put(ctx, "bad", nil), boom)
}
