package localstore

import (
	"context"
	"testing"

	"kedaipos-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_PutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	orders := Orders{Store: store}
	ctx := context.Background()

	o := OfflineOrder{
		LocalID:       "local-1",
		Number:        "ORD-1",
		Total:         33000,
		PaymentMethod: domain.PaymentCash,
		Status:        domain.OrderCompleted,
		SyncStatus:    domain.SyncPending,
		CreatedAt:     100,
		UpdatedAt:     100,
	}
	require.NoError(t, orders.Put(ctx, o))

	got, ok, err := orders.Get(ctx, "local-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, o, *got)
}

func TestOrders_BySyncStatusOldestFirst(t *testing.T) {
	store := newTestStore(t)
	orders := Orders{Store: store}
	ctx := context.Background()

	for _, o := range []OfflineOrder{
		{LocalID: "b", SyncStatus: domain.SyncPending, CreatedAt: 200},
		{LocalID: "a", SyncStatus: domain.SyncPending, CreatedAt: 100},
		{LocalID: "c", SyncStatus: domain.SyncSynced, CreatedAt: 50},
	} {
		require.NoError(t, orders.Put(ctx, o))
	}

	pending, err := orders.BySyncStatus(ctx, domain.SyncPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].LocalID)
	assert.Equal(t, "b", pending[1].LocalID)
}

func TestOrders_MarkSynced(t *testing.T) {
	o := OfflineOrder{
		LocalID:        "local-1",
		SyncStatus:     domain.SyncConflict,
		ConflictReason: "shift closed",
	}
	o.MarkSynced(42, 500)

	assert.Equal(t, int64(42), o.ServerID)
	assert.Equal(t, domain.SyncSynced, o.SyncStatus)
	require.NotNil(t, o.SyncedAt)
	assert.Equal(t, int64(500), *o.SyncedAt)
	assert.Empty(t, o.ConflictReason)
}

func TestOrders_ItemsByOrder(t *testing.T) {
	store := newTestStore(t)
	orders := Orders{Store: store}
	ctx := context.Background()

	require.NoError(t, orders.PutItems(ctx, []OfflineOrderItem{
		{ID: "i1", OrderLocalID: "o1", Name: "Nasi Goreng", Price: 25000, Qty: 1},
		{ID: "i2", OrderLocalID: "o1", Name: "Es Teh", Price: 5000, Qty: 2},
		{ID: "i3", OrderLocalID: "o2", Name: "Ayam Bakar", Price: 30000, Qty: 1},
	}))

	items, err := orders.ItemsByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCatalog_ReplaceMenusSwapsWholesale(t *testing.T) {
	store := newTestStore(t)
	catalog := Catalog{Store: store}
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceMenus(ctx, []CachedMenu{
		{ID: 1, Name: "Nasi Goreng", CategoryID: 10, Available: true, Version: 1},
		{ID: 2, Name: "Es Teh", CategoryID: 20, Available: true, Version: 1},
	}))

	// The second refresh drops menu 2 and flips menu 1 unavailable.
	require.NoError(t, catalog.ReplaceMenus(ctx, []CachedMenu{
		{ID: 1, Name: "Nasi Goreng", CategoryID: 10, Available: false, Version: 2},
	}))

	n, err := store.Count(ctx, CollMenus)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	available, err := catalog.AvailableMenus(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	inCategory, err := catalog.MenusByCategory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, inCategory, 1)
	assert.Equal(t, int64(2), inCategory[0].Version)
}

func TestCatalog_CategoriesSortedByName(t *testing.T) {
	store := newTestStore(t)
	catalog := Catalog{Store: store}
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceCategories(ctx, []CachedCategory{
		{ID: 2, Name: "Minuman"},
		{ID: 1, Name: "Makanan"},
	}))

	cats, err := catalog.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Makanan", cats[0].Name)
	assert.Equal(t, "Minuman", cats[1].Name)
}

func TestCatalog_ReplaceCategoriesSwapsWholesale(t *testing.T) {
	store := newTestStore(t)
	catalog := Catalog{Store: store}
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceCategories(ctx, []CachedCategory{
		{ID: 1, Name: "Makanan"},
		{ID: 2, Name: "Minuman"},
	}))

	// The second refresh drops category 2 and renames category 1.
	require.NoError(t, catalog.ReplaceCategories(ctx, []CachedCategory{
		{ID: 1, Name: "Makanan Berat"},
	}))

	n, err := store.Count(ctx, CollCategories)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cats, err := catalog.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Makanan Berat", cats[0].Name)
}

func TestCatalog_MenusByVersion(t *testing.T) {
	store := newTestStore(t)
	catalog := Catalog{Store: store}
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceMenus(ctx, []CachedMenu{
		{ID: 1, Name: "Nasi Goreng", Version: 1},
		{ID: 2, Name: "Es Teh", Version: 2},
		{ID: 3, Name: "Ayam Bakar", Version: 2},
	}))

	stale, err := catalog.MenusByVersion(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, int64(1), stale[0].ID)

	current, err := catalog.MenusByVersion(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, current, 2)

	none, err := catalog.MenusByVersion(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueue_ByEntityTypeFIFO(t *testing.T) {
	store := newTestStore(t)
	queue := Queue{Store: store}
	ctx := context.Background()

	for _, e := range []QueueEntry{
		{ID: "q2", EntityType: domain.EntityOrder, EntityKey: "o2", CreatedAt: 200},
		{ID: "q1", EntityType: domain.EntityOrder, EntityKey: "o1", CreatedAt: 100},
	} {
		require.NoError(t, queue.Put(ctx, e))
	}

	entries, err := queue.ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "q1", entries[0].ID)
	assert.Equal(t, "q2", entries[1].ID)

	require.NoError(t, queue.Delete(ctx, "q1"))
	entries, err = queue.ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "q2", entries[0].ID)
}

func TestSettings_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	settings := Settings{Store: store}
	ctx := context.Background()

	_, ok, err := settings.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, settings.Put(ctx, domain.Settings{
		BusinessName: "Kedai Nusantara",
		CurrencyCode: "IDR",
	}))

	got, ok, err := settings.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Kedai Nusantara", got.BusinessName)
	assert.Equal(t, "IDR", got.CurrencyCode)
}
