package syncqueue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/localstore"
	"kedaipos-backend/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog scripts the reference data the refresher pulls.
type fakeCatalog struct {
	menus      []ports.CatalogMenu
	categories []ports.CatalogCategory
	settings   domain.Settings
	err        error
}

func (f *fakeCatalog) FetchMenus(ctx context.Context) ([]ports.CatalogMenu, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.menus, nil
}

func (f *fakeCatalog) FetchCategories(ctx context.Context) ([]ports.CatalogCategory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

func (f *fakeCatalog) FetchSettings(ctx context.Context) (*domain.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.settings
	return &s, nil
}

func newTestRefresher(t *testing.T, source *fakeCatalog, now time.Time) *Refresher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := localstore.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &Refresher{
		Store:  store,
		Source: source,
		Log:    logger,
		Now:    func() time.Time { return now },
	}
}

func TestRefresher_MirrorsCatalogAndSettings(t *testing.T) {
	now := time.Unix(1000, 0)
	source := &fakeCatalog{
		menus: []ports.CatalogMenu{
			{ID: 1, Name: "Nasi Goreng", CategoryID: 10, Price: 25000, Available: true, Version: 3},
			{ID: 2, Name: "Es Teh", CategoryID: 20, Price: 5000, Available: false, Version: 1},
		},
		categories: []ports.CatalogCategory{
			{ID: 10, Name: "Makanan"},
			{ID: 20, Name: "Minuman"},
		},
		settings: domain.Settings{BusinessName: "Kedai Nusantara", CurrencyCode: "IDR"},
	}
	r := newTestRefresher(t, source, now)
	ctx := context.Background()

	require.NoError(t, r.Refresh(ctx))

	catalog := localstore.Catalog{Store: r.Store}
	available, err := catalog.AvailableMenus(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Nasi Goreng", available[0].Name)
	assert.Equal(t, now.Unix(), available[0].CachedAt)

	stale, err := catalog.MenusByVersion(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, int64(2), stale[0].ID)

	cats, err := catalog.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Makanan", cats[0].Name)

	settings, ok, err := (localstore.Settings{Store: r.Store}).Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Kedai Nusantara", settings.BusinessName)
}

func TestRefresher_RefreshReplacesPreviousMirror(t *testing.T) {
	source := &fakeCatalog{
		menus: []ports.CatalogMenu{
			{ID: 1, Name: "Nasi Goreng", Available: true, Version: 1},
			{ID: 2, Name: "Es Teh", Available: true, Version: 1},
		},
	}
	r := newTestRefresher(t, source, time.Unix(1000, 0))
	ctx := context.Background()

	require.NoError(t, r.Refresh(ctx))

	// The next window delists menu 2 entirely.
	source.menus = []ports.CatalogMenu{
		{ID: 1, Name: "Nasi Goreng", Available: true, Version: 2},
	}
	require.NoError(t, r.Refresh(ctx))

	catalog := localstore.Catalog{Store: r.Store}
	available, err := catalog.AvailableMenus(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, int64(2), available[0].Version)
}

func TestRefresher_FetchFailureKeepsCachedCopy(t *testing.T) {
	source := &fakeCatalog{
		menus: []ports.CatalogMenu{
			{ID: 1, Name: "Nasi Goreng", Available: true, Version: 1},
		},
		categories: []ports.CatalogCategory{{ID: 10, Name: "Makanan"}},
	}
	r := newTestRefresher(t, source, time.Unix(1000, 0))
	ctx := context.Background()

	require.NoError(t, r.Refresh(ctx))

	source.err = errors.New("connection refused")
	require.Error(t, r.Refresh(ctx))

	catalog := localstore.Catalog{Store: r.Store}
	available, err := catalog.AvailableMenus(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)

	cats, err := catalog.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
