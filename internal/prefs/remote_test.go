package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/remote"
	remotememory "github.com/artpar/staykeep/internal/remote/memory"
	"github.com/artpar/staykeep/internal/remote/sqlstore"
)

func newRemoteStore(t *testing.T, backend remote.Store, userID string) *RemoteBackedStore {
	t.Helper()
	s := NewRemoteBackedStore(backend, userID)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestRemoteBackedStore(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		RunStoreTests(t, func() (PreferenceStore, func()) {
			backend := remotememory.New()
			return newRemoteStore(t, backend, "user-1"), func() { backend.Close() }
		})
	})

	t.Run("sql backend", func(t *testing.T) {
		RunStoreTests(t, func() (PreferenceStore, func()) {
			backend, err := sqlstore.NewInMemory()
			require.NoError(t, err)
			return newRemoteStore(t, backend, "user-1"), func() { backend.Close() }
		})
	})
}

func TestRemoteBackedStore_WritesThrough(t *testing.T) {
	ctx := context.Background()
	backend := remotememory.New()
	s := newRemoteStore(t, backend, "user-1")

	require.NoError(t, s.AddFavorite(ctx, favorites.NewEntry(7, "Harbor Inn", "Oslo")))
	require.NoError(t, s.AddFavorite(ctx, favorites.NewEntry(8, "Fjord Hotel", "Bergen")))
	require.NoError(t, s.RemoveFavorite(ctx, 8))
	require.NoError(t, s.AddRecentSearch(ctx, "Oslo", ""))

	docs, err := backend.ReadFavorites(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "7", docs[0].ID)

	ids, err := backend.ReadList(ctx, "user-1", remote.ListFavoriteIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids)

	searches, err := backend.ReadList(ctx, "user-1", remote.ListRecentSearches)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oslo"}, searches)
}

func TestRemoteBackedStore_Load(t *testing.T) {
	ctx := context.Background()
	backend := remotememory.New()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	_, err := backend.AddFavorite(ctx, "user-1", favorites.Entry{ID: "1", Name: "Old", AddedAt: base})
	require.NoError(t, err)
	_, err = backend.AddFavorite(ctx, "user-1", favorites.Entry{ID: "2", Name: "New", AddedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = backend.AddFavorite(ctx, "user-2", favorites.Entry{ID: "3", Name: "Theirs", AddedAt: base})
	require.NoError(t, err)
	require.NoError(t, backend.ReplaceList(ctx, "user-1", remote.ListRecentSearches, []string{"Rome", "Oslo"}))

	s := newRemoteStore(t, backend, "user-1")

	all, err := s.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "New", all[0].Name)
	assert.True(t, all[1].AddedAt.Equal(base))
	assert.Equal(t, []string{"Rome", "Oslo"}, s.RecentSearches())
}

func TestRemoteBackedStore_LoadFailure(t *testing.T) {
	backend := remotememory.New()
	boom := errors.New("unreachable")
	backend.FailReads(boom)

	s := NewRemoteBackedStore(backend, "user-1")
	err := s.Load(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRemoteBackedStore_FailedWriteKeepsOptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	backend := remotememory.New()
	s := newRemoteStore(t, backend, "user-1")

	boom := errors.New("network down")
	backend.FailWrites(boom)

	err := s.AddFavorite(ctx, favorites.NewEntry(7, "Harbor Inn", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var rwe *RemoteWriteError
	require.ErrorAs(t, err, &rwe)
	assert.Equal(t, "add", rwe.Op)
	assert.Equal(t, "7", rwe.ID)

	ok, err := s.IsFavorited(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok, "optimistic update is not rolled back")

	backend.FailWrites(nil)
	docs, err := backend.ReadFavorites(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRemoteBackedStore_FailedRemoveAndToggleKeepLocalState(t *testing.T) {
	boom := errors.New("network down")

	t.Run("remove", func(t *testing.T) {
		ctx := context.Background()
		backend := remotememory.New()
		s := newRemoteStore(t, backend, "user-1")
		require.NoError(t, s.AddFavorite(ctx, favorites.NewEntry(3, "Fjord Hotel", "Bergen")))

		backend.FailWrites(boom)
		err := s.RemoveFavorite(ctx, 3)
		var rwe *RemoteWriteError
		require.ErrorAs(t, err, &rwe)
		assert.Equal(t, "remove", rwe.Op)
		assert.Equal(t, "3", rwe.ID)
		assert.ErrorIs(t, err, boom)

		ok, err := s.IsFavorited(ctx, 3)
		require.NoError(t, err)
		assert.False(t, ok)

		backend.FailWrites(nil)
		docs, err := backend.ReadFavorites(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("toggle on", func(t *testing.T) {
		ctx := context.Background()
		backend := remotememory.New()
		s := newRemoteStore(t, backend, "user-1")

		backend.FailWrites(boom)
		on, err := s.ToggleFavorite(ctx, favorites.NewEntry(8, "Canal House", "Amsterdam"))
		var rwe *RemoteWriteError
		require.ErrorAs(t, err, &rwe)
		assert.Equal(t, "toggle", rwe.Op)
		assert.True(t, on)

		ok, err := s.IsFavorited(ctx, 8)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("toggle off", func(t *testing.T) {
		ctx := context.Background()
		backend := remotememory.New()
		s := newRemoteStore(t, backend, "user-1")
		require.NoError(t, s.AddFavorite(ctx, favorites.NewEntry(8, "Canal House", "Amsterdam")))

		backend.FailWrites(boom)
		on, err := s.ToggleFavorite(ctx, favorites.NewEntry(8, "Canal House", "Amsterdam"))
		var rwe *RemoteWriteError
		require.ErrorAs(t, err, &rwe)
		assert.Equal(t, "toggle", rwe.Op)
		assert.False(t, on)

		ok, err := s.IsFavorited(ctx, 8)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRemoteBackedStore_ToggleWritesThrough(t *testing.T) {
	ctx := context.Background()
	backend := remotememory.New()
	s := newRemoteStore(t, backend, "user-1")

	on, err := s.ToggleFavorite(ctx, favorites.NewEntry(4, "D", ""))
	require.NoError(t, err)
	assert.True(t, on)
	ids, err := backend.ReadList(ctx, "user-1", remote.ListFavoriteIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, ids)

	on, err = s.ToggleFavorite(ctx, favorites.NewEntry(4, "D", ""))
	require.NoError(t, err)
	assert.False(t, on)
	ids, err = backend.ReadList(ctx, "user-1", remote.ListFavoriteIDs)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRemoteBackedStore_ImportReplacesRemote(t *testing.T) {
	ctx := context.Background()
	backend := remotememory.New()
	s := newRemoteStore(t, backend, "user-1")

	require.NoError(t, s.AddFavorite(ctx, favorites.NewEntry(1, "Old", "")))
	_, err := s.ImportFavorites(ctx, `{"favorites":[{"id":2,"name":"New"}],"version":"1.0"}`, false)
	require.NoError(t, err)

	docs, err := backend.ReadFavorites(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2", docs[0].ID)

	require.NoError(t, s.ClearFavorites(ctx))
	docs, err = backend.ReadFavorites(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, docs)
	ids, err := backend.ReadList(ctx, "user-1", remote.ListFavoriteIDs)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
