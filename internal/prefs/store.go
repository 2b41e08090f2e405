// Package prefs is the dual-mode bridge in front of the favorites
// collection and the recent-search list. A PreferenceStore is chosen per
// identity: LocalOnlyStore when nobody is signed in, RemoteBackedStore
// otherwise. Service owns the choice and the change notifications.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/recent"
)

// Mode is the operating mode of a store.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ErrSignInRequired is returned by RequireAction when no fallback is given
// in Local mode.
var ErrSignInRequired = errors.New("sign in required")

// RemoteWriteError reports a failed remote write. The optimistic in-memory
// update that preceded it is left in place.
type RemoteWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s of %q failed: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}

// IsRemoteWriteError reports whether err wraps a RemoteWriteError.
func IsRemoteWriteError(err error) bool {
	var rwe *RemoteWriteError
	return errors.As(err, &rwe)
}

// PreferenceStore is the per-mode strategy behind Service.
type PreferenceStore interface {
	Mode() Mode
	Load(ctx context.Context) error

	AddFavorite(ctx context.Context, entry favorites.Entry) error
	RemoveFavorite(ctx context.Context, id any) error
	ToggleFavorite(ctx context.Context, entry favorites.Entry) (bool, error)
	ImportFavorites(ctx context.Context, data string, merge bool) (int, error)
	ClearFavorites(ctx context.Context) error

	IsFavorited(ctx context.Context, id any) (bool, error)
	Favorites(ctx context.Context) ([]favorites.Entry, error)
	SortedFavorites(ctx context.Context, by favorites.SortBy) ([]favorites.Entry, error)
	SearchFavorites(ctx context.Context, query string) ([]favorites.Entry, error)
	FavoriteStats(ctx context.Context) (favorites.Stats, error)
	ExportFavorites(ctx context.Context) (string, error)
	FavoriteCount(ctx context.Context) (int, error)

	AddRecentSearch(ctx context.Context, query, replaceHint string) error
	RemoveRecentSearch(ctx context.Context, query string) error
	ClearRecentSearches(ctx context.Context) error
	RecentSearches() []string
}

// StoreOption configures a store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithStoreLogger sets the logger of a store and its collections.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// WithClock overrides time.Now for the favorites collection.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		o.now = now
	}
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// views implements the read side shared by both stores.
type views struct {
	favs     *favorites.Collection
	searches *recent.List
}

func (v views) IsFavorited(ctx context.Context, id any) (bool, error) {
	return v.favs.IsFavorited(ctx, id)
}

func (v views) Favorites(ctx context.Context) ([]favorites.Entry, error) {
	return v.favs.GetAll(ctx)
}

func (v views) SortedFavorites(ctx context.Context, by favorites.SortBy) ([]favorites.Entry, error) {
	return v.favs.GetSorted(ctx, by)
}

func (v views) SearchFavorites(ctx context.Context, query string) ([]favorites.Entry, error) {
	return v.favs.Search(ctx, query)
}

func (v views) FavoriteStats(ctx context.Context) (favorites.Stats, error) {
	return v.favs.Stats(ctx)
}

func (v views) ExportFavorites(ctx context.Context) (string, error) {
	return v.favs.Export(ctx)
}

func (v views) FavoriteCount(ctx context.Context) (int, error) {
	return v.favs.Count(ctx)
}

func (v views) RecentSearches() []string {
	return v.searches.Get()
}
