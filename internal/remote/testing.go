package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/staykeep/internal/favorites"
)

// RunStoreTests runs the standard remote store suite against any Store
// implementation.
func RunStoreTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("Favorites", func(t *testing.T) {
		runFavoriteTests(t, newStore)
	})
	t.Run("Update", func(t *testing.T) {
		runUpdateTests(t, newStore)
	})
	t.Run("Lists", func(t *testing.T) {
		runListTests(t, newStore)
	})
}

func entryAt(id, name, location string, at time.Time) favorites.Entry {
	return favorites.Entry{ID: id, Name: name, Location: location, AddedAt: at}
}

func runFavoriteTests(t *testing.T, newStore func() (Store, func())) {
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	t.Run("adds and reads favorites oldest first", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.AddFavorite(ctx, "user-1", entryAt("2", "Second", "Rome", base.Add(time.Hour)))
		require.NoError(t, err)
		docID, err := store.AddFavorite(ctx, "user-1", entryAt("1", "First", "Paris", base))
		require.NoError(t, err)
		assert.NotEmpty(t, docID)

		list, err := store.ReadFavorites(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "1", list[0].ID)
		assert.Equal(t, "Paris", list[0].Location)
		assert.True(t, list[0].AddedAt.Equal(base))
	})

	t.Run("re-adding replaces the document", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		first, err := store.AddFavorite(ctx, "user-1", entryAt("1", "Old", "", base))
		require.NoError(t, err)
		second, err := store.AddFavorite(ctx, "user-1", entryAt("1", "New", "", base))
		require.NoError(t, err)
		assert.Equal(t, first, second)

		list, err := store.ReadFavorites(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "New", list[0].Name)
	})

	t.Run("equal timestamps keep insertion order across overwrites", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		for _, id := range []string{"a", "b", "c"} {
			_, err := store.AddFavorite(ctx, "user-1", entryAt(id, "Hotel "+id, "", base))
			require.NoError(t, err)
		}
		_, err := store.AddFavorite(ctx, "user-1", entryAt("a", "Hotel a renamed", "", base))
		require.NoError(t, err)

		list, err := store.ReadFavorites(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
		assert.Equal(t, "Hotel a renamed", list[0].Name)
	})

	t.Run("keeps users apart", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.AddFavorite(ctx, "user-1", entryAt("1", "Mine", "", base))
		require.NoError(t, err)

		list, err := store.ReadFavorites(ctx, "user-2")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("round-trips extra fields", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		entry := entryAt("1", "Hotel", "Oslo", base)
		entry.Extra = map[string]any{"price": 99.5}
		_, err := store.AddFavorite(ctx, "user-1", entry)
		require.NoError(t, err)

		list, err := store.ReadFavorites(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 99.5, list[0].Extra["price"])
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.AddFavorite(ctx, "user-1", entryAt("1", "Gone", "", base))
		require.NoError(t, err)

		require.NoError(t, store.DeleteFavorite(ctx, "user-1", "1"))
		require.NoError(t, store.DeleteFavorite(ctx, "user-1", "1"))

		list, err := store.ReadFavorites(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("rejects empty user", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.AddFavorite(context.Background(), "", entryAt("1", "x", "", base))
		assert.ErrorIs(t, err, ErrInvalidUser)
	})
}

func runUpdateTests(t *testing.T, newStore func() (Store, func())) {
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	t.Run("updates selected fields", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.AddFavorite(ctx, "user-1", entryAt("1", "Name", "Paris", base))
		require.NoError(t, err)

		require.NoError(t, store.UpdateFavorite(ctx, "user-1", "1", map[string]any{"location": "Lyon"}))

		list, err := store.ReadFavorites(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Name", list[0].Name)
		assert.Equal(t, "Lyon", list[0].Location)
	})

	t.Run("missing document", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		err := store.UpdateFavorite(context.Background(), "user-1", "404", map[string]any{"name": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects unknown field", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.AddFavorite(ctx, "user-1", entryAt("1", "Name", "", base))
		require.NoError(t, err)

		err = store.UpdateFavorite(ctx, "user-1", "1", map[string]any{"addedAt": "now"})
		assert.ErrorIs(t, err, ErrInvalidField)
	})
}

func runListTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("union appends only missing values", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.ArrayUnion(ctx, "user-1", ListFavoriteIDs, "1", "2"))
		require.NoError(t, store.ArrayUnion(ctx, "user-1", ListFavoriteIDs, "2", "3"))

		ids, err := store.ReadList(ctx, "user-1", ListFavoriteIDs)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, ids)
	})

	t.Run("remove drops values", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.ArrayUnion(ctx, "user-1", ListFavoriteIDs, "1", "2", "3"))
		require.NoError(t, store.ArrayRemove(ctx, "user-1", ListFavoriteIDs, "2", "404"))

		ids, err := store.ReadList(ctx, "user-1", ListFavoriteIDs)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "3"}, ids)
	})

	t.Run("replace keeps the given order", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.ReplaceList(ctx, "user-1", ListRecentSearches, []string{"old"}))
		require.NoError(t, store.ReplaceList(ctx, "user-1", ListRecentSearches, []string{"Rome", "Paris"}))

		list, err := store.ReadList(ctx, "user-1", ListRecentSearches)
		require.NoError(t, err)
		assert.Equal(t, []string{"Rome", "Paris"}, list)
	})

	t.Run("lists are independent", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.ArrayUnion(ctx, "user-1", ListFavoriteIDs, "1"))

		list, err := store.ReadList(ctx, "user-1", ListRecentSearches)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
