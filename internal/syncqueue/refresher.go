package syncqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kedaipos-backend/internal/localstore"
	"kedaipos-backend/internal/ports"
)

// Refresher mirrors the server's reference data into the local store
// so the terminal keeps serving the catalog while disconnected. Each
// set is swapped wholesale; a fetch failure leaves the previously
// cached copy untouched.
type Refresher struct {
	Store  *localstore.Store
	Source ports.CatalogSource
	Log    *slog.Logger

	Now func() time.Time
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Refresh pulls menus, categories, and the business profile from the
// ledger and replaces the cached copies.
func (r *Refresher) Refresh(ctx context.Context) error {
	menus, err := r.Source.FetchMenus(ctx)
	if err != nil {
		return fmt.Errorf("fetch menus: %w", err)
	}
	categories, err := r.Source.FetchCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	settings, err := r.Source.FetchSettings(ctx)
	if err != nil {
		return fmt.Errorf("fetch settings: %w", err)
	}

	cachedAt := r.now().Unix()
	catalog := localstore.Catalog{Store: r.Store}

	cachedMenus := make([]localstore.CachedMenu, 0, len(menus))
	for _, m := range menus {
		cachedMenus = append(cachedMenus, localstore.CachedMenu{
			ID:         m.ID,
			Name:       m.Name,
			CategoryID: m.CategoryID,
			Price:      m.Price,
			Image:      m.Image,
			Available:  m.Available,
			Version:    m.Version,
			CachedAt:   cachedAt,
		})
	}
	if err := catalog.ReplaceMenus(ctx, cachedMenus); err != nil {
		return fmt.Errorf("replace cached menus: %w", err)
	}

	cachedCategories := make([]localstore.CachedCategory, 0, len(categories))
	for _, c := range categories {
		cachedCategories = append(cachedCategories, localstore.CachedCategory{
			ID:       c.ID,
			Name:     c.Name,
			CachedAt: cachedAt,
		})
	}
	if err := catalog.ReplaceCategories(ctx, cachedCategories); err != nil {
		return fmt.Errorf("replace cached categories: %w", err)
	}

	if err := (localstore.Settings{Store: r.Store}).Put(ctx, *settings); err != nil {
		return fmt.Errorf("replace cached settings: %w", err)
	}

	r.Log.Info("catalog mirrored",
		"menus", len(cachedMenus),
		"categories", len(cachedCategories),
	)
	return nil
}
