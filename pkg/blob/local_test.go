package blob

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(map[string]string{
		BucketIntake:    filepath.Join(dir, "intake"),
		BucketMaterials: filepath.Join(dir, "materials"),
	})
	require.NoError(t, err)
	return store
}

func TestLocalStorePutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, BucketIntake, "req-1/a.csv", []byte("hello")))

	data, err := store.Get(ctx, BucketIntake, "req-1/a.csv")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	exists, err := store.Exists(ctx, BucketIntake, "req-1/a.csv")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, store.Delete(ctx, BucketIntake, "req-1/a.csv"))

	exists, err = store.Exists(ctx, BucketIntake, "req-1/a.csv")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLocalStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), BucketIntake, "req-1/missing.csv")
	require.True(t, IsNotFound(err))
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Delete(context.Background(), BucketIntake, "req-1/missing.csv"))
}

func TestLocalStorePutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, BucketMaterials, "lab-1/a.csv", []byte("v1")))
	require.NoError(t, store.Put(ctx, BucketMaterials, "lab-1/a.csv", []byte("v2")))

	data, err := store.Get(ctx, BucketMaterials, "lab-1/a.csv")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), data)
}

func TestLocalStoreUnknownBucket(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "scratch", "a.csv")
	require.ErrorIs(t, err, ErrUnknownBucket)
}

func TestLocalStoreRejectsTraversalKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"../escape.txt", "/abs.txt", ""} {
		require.Error(t, store.Put(ctx, BucketIntake, key, []byte("x")), "key %q", key)
	}
}
