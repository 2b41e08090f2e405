package prefs

import (
	"context"
	"errors"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/recent"
	"github.com/artpar/staykeep/internal/storage"
)

// LocalOnlyStore keeps everything in the persistent local cache. It never
// touches the network.
type LocalOnlyStore struct {
	views
}

var _ PreferenceStore = (*LocalOnlyStore)(nil)

// NewLocalOnlyStore creates a store persisted through engine.
func NewLocalOnlyStore(engine storage.Engine, opts ...StoreOption) *LocalOnlyStore {
	o := applyStoreOptions(opts)
	return &LocalOnlyStore{views: views{
		favs: favorites.NewCollection(engine,
			favorites.WithLogger(o.logger),
			favorites.WithClock(o.now),
		),
		searches: recent.New(recent.WithEngine(engine), recent.WithLogger(o.logger)),
	}}
}

// Mode implements PreferenceStore.
func (s *LocalOnlyStore) Mode() Mode { return ModeLocal }

// Load hydrates the favorites cache and the recent list.
func (s *LocalOnlyStore) Load(ctx context.Context) error {
	favErr := s.favs.Initialize(ctx)
	recentErr := s.searches.Load(ctx)
	return errors.Join(favErr, recentErr)
}

// Collection returns the underlying favorites collection.
func (s *LocalOnlyStore) Collection() *favorites.Collection {
	return s.favs
}

// AddFavorite implements PreferenceStore.
func (s *LocalOnlyStore) AddFavorite(ctx context.Context, entry favorites.Entry) error {
	return s.favs.Add(ctx, entry)
}

// RemoveFavorite implements PreferenceStore.
func (s *LocalOnlyStore) RemoveFavorite(ctx context.Context, id any) error {
	return s.favs.Remove(ctx, id)
}

// ToggleFavorite implements PreferenceStore.
func (s *LocalOnlyStore) ToggleFavorite(ctx context.Context, entry favorites.Entry) (bool, error) {
	return s.favs.Toggle(ctx, entry)
}

// ImportFavorites implements PreferenceStore.
func (s *LocalOnlyStore) ImportFavorites(ctx context.Context, data string, merge bool) (int, error) {
	return s.favs.Import(ctx, data, merge)
}

// ClearFavorites implements PreferenceStore.
func (s *LocalOnlyStore) ClearFavorites(ctx context.Context) error {
	return s.favs.Clear(ctx)
}

// AddRecentSearch implements PreferenceStore.
func (s *LocalOnlyStore) AddRecentSearch(ctx context.Context, query, replaceHint string) error {
	return s.searches.Add(ctx, query, replaceHint)
}

// RemoveRecentSearch implements PreferenceStore.
func (s *LocalOnlyStore) RemoveRecentSearch(ctx context.Context, query string) error {
	return s.searches.Remove(ctx, query)
}

// ClearRecentSearches implements PreferenceStore.
func (s *LocalOnlyStore) ClearRecentSearches(ctx context.Context) error {
	return s.searches.Clear(ctx)
}
