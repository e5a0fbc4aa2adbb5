package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreLifecycle(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	name := "0_0/records.bin"
	data := []byte("hello world, this is a checkpoint blob")

	w, err := store.Create(ctx, name)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	require.NoError(t, err)
	defer r.Close()
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, all)

	require.NoError(t, store.Put(ctx, "0_0/_SUCCESS", []byte("{}")))
	require.NoError(t, store.Put(ctx, "0_1/records.bin", []byte("x")))

	keys, err := store.List(ctx, "0_0/")
	require.NoError(t, err)
	require.Equal(t, []string{"0_0/_SUCCESS", "0_0/records.bin"}, keys)

	keys, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"0_0/_SUCCESS", "0_0/records.bin", "0_1/records.bin"}, keys)

	require.NoError(t, store.Delete(ctx, "0_1/records.bin"))
	require.NoError(t, store.Delete(ctx, "0_1/records.bin"), "double delete is not an error")
	_, err = store.Open(ctx, "0_1/records.bin")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreWriteIsAtomicallyVisible(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	w, err := store.Create(ctx, "0_0/records.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	// Not yet closed: the final key must not exist.
	_, err = store.Open(ctx, "0_0/records.bin")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	_, err = store.Open(ctx, "0_0/records.bin")
	require.NoError(t, err)

	// No temp leftovers.
	entries, err := os.ReadDir(filepath.Join(root, "0_0"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Open(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadAllHelper(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", []byte("payload")))

	data, err := ReadAll(ctx, store, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)

	_, err = ReadAll(ctx, store, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
