package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/staykeep/internal/favorites"
)

// RunStoreTests runs the standard PreferenceStore suite. newStore must
// return a loaded, empty store.
func RunStoreTests(t *testing.T, newStore func() (PreferenceStore, func())) {
	t.Run("Favorites", func(t *testing.T) {
		runFavoriteTests(t, newStore)
	})
	t.Run("ImportExport", func(t *testing.T) {
		runImportExportTests(t, newStore)
	})
	t.Run("RecentSearches", func(t *testing.T) {
		runRecentTests(t, newStore)
	})
}

func runFavoriteTests(t *testing.T, newStore func() (PreferenceStore, func())) {
	t.Run("add then query", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(7, "Harbor Inn", "Oslo")))

		ok, err := store.IsFavorited(ctx, "7")
		require.NoError(t, err)
		assert.True(t, ok)

		all, err := store.Favorites(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "7", all[0].ID)
		assert.False(t, all[0].AddedAt.IsZero())
	})

	t.Run("numeric and string ids collide", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(7, "First", "")))
		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry("7", "Second", "")))

		n, err := store.FavoriteCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(1, "A", "")))
		require.NoError(t, store.RemoveFavorite(ctx, 1))
		require.NoError(t, store.RemoveFavorite(ctx, 1))

		ok, err := store.IsFavorited(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("toggle flips membership", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		on, err := store.ToggleFavorite(ctx, favorites.NewEntry(3, "C", ""))
		require.NoError(t, err)
		assert.True(t, on)

		on, err = store.ToggleFavorite(ctx, favorites.NewEntry(3, "C", ""))
		require.NoError(t, err)
		assert.False(t, on)
	})

	t.Run("sort search and stats", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(1, "bravo", "Paris")))
		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(2, "Alpha", "")))

		byName, err := store.SortedFavorites(ctx, favorites.SortName)
		require.NoError(t, err)
		require.Len(t, byName, 2)
		assert.Equal(t, "Alpha", byName[0].Name)

		found, err := store.SearchFavorites(ctx, "PAR")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "bravo", found[0].Name)

		stats, err := store.FavoriteStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalFavorites)
		assert.Equal(t, 1, stats.FavoritesByLocation[favorites.UnknownLocation])
	})

	t.Run("clear", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(1, "A", "")))
		require.NoError(t, store.ClearFavorites(ctx))

		all, err := store.Favorites(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func runImportExportTests(t *testing.T, newStore func() (PreferenceStore, func())) {
	t.Run("round trip", func(t *testing.T) {
		src, cleanupSrc := newStore()
		defer cleanupSrc()
		dst, cleanupDst := newStore()
		defer cleanupDst()
		ctx := context.Background()

		require.NoError(t, src.AddFavorite(ctx, favorites.NewEntry(1, "A", "Rome")))
		require.NoError(t, src.AddFavorite(ctx, favorites.NewEntry(2, "B", "")))
		data, err := src.ExportFavorites(ctx)
		require.NoError(t, err)

		n, err := dst.ImportFavorites(ctx, data, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		want, err := src.Favorites(ctx)
		require.NoError(t, err)
		got, err := dst.Favorites(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.True(t, want[i].AddedAt.Equal(got[i].AddedAt))
		}
	})

	t.Run("replace drops existing entries", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(1, "Old", "")))
		_, err := store.ImportFavorites(ctx, `{"favorites":[{"id":2,"name":"New"}]}`, false)
		require.NoError(t, err)

		ok, err := store.IsFavorited(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = store.IsFavorited(ctx, 2)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("merge keeps existing entries", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddFavorite(ctx, favorites.NewEntry(1, "Old", "")))
		_, err := store.ImportFavorites(ctx, `{"favorites":[{"id":2,"name":"New"}]}`, true)
		require.NoError(t, err)

		n, err := store.FavoriteCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("rejects invalid documents", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.ImportFavorites(context.Background(), `{"version":"1.0"}`, true)
		assert.ErrorIs(t, err, favorites.ErrInvalidImport)
	})
}

func runRecentTests(t *testing.T, newStore func() (PreferenceStore, func())) {
	t.Run("add dedups and caps", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		for _, q := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "a"} {
			require.NoError(t, store.AddRecentSearch(ctx, q, ""))
		}

		got := store.RecentSearches()
		assert.Len(t, got, 10)
		assert.Equal(t, "a", got[0])
		assert.Equal(t, "k", got[1])
	})

	t.Run("replace hint", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddRecentSearch(ctx, "Par", ""))
		require.NoError(t, store.AddRecentSearch(ctx, "Paris", "Par"))

		assert.Equal(t, []string{"Paris"}, store.RecentSearches())
	})

	t.Run("blank queries are ignored", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.AddRecentSearch(context.Background(), "   ", ""))
		assert.Empty(t, store.RecentSearches())
	})

	t.Run("remove and clear", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.AddRecentSearch(ctx, "Rome", ""))
		require.NoError(t, store.AddRecentSearch(ctx, "Oslo", ""))
		require.NoError(t, store.RemoveRecentSearch(ctx, "Rome"))
		assert.Equal(t, []string{"Oslo"}, store.RecentSearches())

		require.NoError(t, store.ClearRecentSearches(ctx))
		assert.Empty(t, store.RecentSearches())
	})
}
