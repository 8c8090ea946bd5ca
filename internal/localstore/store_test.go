package localstore

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, CollCategories, Record{Key: "1", Payload: []byte(`{"id":1}`)})
	require.NoError(t, err)
	assert.Equal(t, "1", key)

	payload, ok, err := store.Get(ctx, CollCategories, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(payload))
}

func TestStore_GetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get(context.Background(), CollCategories, "nope")
	require.NoError(t, err)
	assert.False(t, ok, "missing key must not be an error")
}

func TestStore_PutIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := Record{
		Key:     "a",
		Payload: []byte(`{"x":1}`),
		Indexes: map[string]string{IdxOrderSyncStatus: "pending"},
	}
	_, err := store.Put(ctx, CollOrders, rec)
	require.NoError(t, err)
	_, err = store.Put(ctx, CollOrders, rec)
	require.NoError(t, err)

	n, err := store.Count(ctx, CollOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	matches, err := store.GetAllByIndex(ctx, CollOrders, IdxOrderSyncStatus, "pending")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestStore_PutReindexesOnUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, CollOrders, Record{
		Key:     "a",
		Payload: []byte(`{}`),
		Indexes: map[string]string{IdxOrderSyncStatus: "pending"},
	})
	require.NoError(t, err)

	_, err = store.Put(ctx, CollOrders, Record{
		Key:     "a",
		Payload: []byte(`{}`),
		Indexes: map[string]string{IdxOrderSyncStatus: "synced"},
	})
	require.NoError(t, err)

	pending, err := store.GetAllByIndex(ctx, CollOrders, IdxOrderSyncStatus, "pending")
	require.NoError(t, err)
	assert.Empty(t, pending, "stale index value must be removed")

	synced, err := store.GetAllByIndex(ctx, CollOrders, IdxOrderSyncStatus, "synced")
	require.NoError(t, err)
	assert.Len(t, synced, 1)
}

func TestStore_UnknownCollectionAndIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "bogus", Record{Key: "a", Payload: []byte(`{}`)})
	require.Error(t, err)

	_, _, err = store.Get(ctx, "bogus", "a")
	require.Error(t, err)

	_, err = store.GetAllByIndex(ctx, CollCategories, "noSuchIndex", "x")
	require.Error(t, err)
}

func TestStore_DeleteRemovesIndexEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, CollOrders, Record{
		Key:     "a",
		Payload: []byte(`{}`),
		Indexes: map[string]string{IdxOrderSyncStatus: "pending"},
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, CollOrders, "a"))

	_, ok, err := store.Get(ctx, CollOrders, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	matches, err := store.GetAllByIndex(ctx, CollOrders, IdxOrderSyncStatus, "pending")
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, CollOrders, "a"))
}

func TestStore_PutManyIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.PutMany(ctx, CollCategories, []Record{
		{Key: "1", Payload: []byte(`{}`)},
		{Key: "", Payload: []byte(`{}`)}, // invalid, forces rollback
	})
	require.Error(t, err)

	n, err := store.Count(ctx, CollCategories)
	require.NoError(t, err)
	assert.Zero(t, n, "failed batch must leave nothing behind")
}

func TestStore_ReplaceAllIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, CollCategories, []Record{
		{Key: "1", Payload: []byte(`{"id":1}`)},
		{Key: "2", Payload: []byte(`{"id":2}`)},
	}))

	err := store.replaceAll(ctx, CollCategories, []Record{
		{Key: "3", Payload: []byte(`{"id":3}`)},
		{Key: "", Payload: []byte(`{}`)}, // invalid, forces rollback
	})
	require.Error(t, err)

	// The failed swap rolls back the delete too: the old set is
	// still fully readable.
	payload, ok, err := store.Get(ctx, CollCategories, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(payload))

	n, err := store.Count(ctx, CollCategories)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_ClearIsScopedToCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, CollCategories, Record{Key: "1", Payload: []byte(`{}`)})
	require.NoError(t, err)
	_, err = store.Put(ctx, CollMenus, Record{Key: "1", Payload: []byte(`{}`)})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, CollCategories))

	n, err := store.Count(ctx, CollCategories)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.Count(ctx, CollMenus)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	store, err := Open(dir, logger)
	require.NoError(t, err)
	_, err = store.Put(ctx, CollCategories, Record{Key: "1", Payload: []byte(`{"id":1}`)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(dir, logger)
	require.NoError(t, err)
	defer store.Close()

	payload, ok, err := store.Get(ctx, CollCategories, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(payload))
}
