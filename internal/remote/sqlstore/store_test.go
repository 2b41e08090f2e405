package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/remote"
)

func TestStore(t *testing.T) {
	remote.RunStoreTests(t, func() (remote.Store, func()) {
		s, err := NewInMemory()
		require.NoError(t, err)
		return s, func() { s.Close() }
	})
}

func TestStore_PersistsAcrossConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "remote.db")

	s, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	_, err = s.AddFavorite(ctx, "user-1", favorites.Entry{
		ID:      "42",
		Name:    "Harbor Inn",
		AddedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, s.ArrayUnion(ctx, "user-1", remote.ListFavoriteIDs, "42"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	list, err := s.ReadFavorites(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Harbor Inn", list[0].Name)

	ids, err := s.ReadList(ctx, "user-1", remote.ListFavoriteIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, ids)
}

func TestStore_UnionAfterRemoveAppends(t *testing.T) {
	ctx := context.Background()
	s, err := NewInMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ArrayUnion(ctx, "user-1", remote.ListFavoriteIDs, "1", "2"))
	require.NoError(t, s.ArrayRemove(ctx, "user-1", remote.ListFavoriteIDs, "1"))
	require.NoError(t, s.ArrayUnion(ctx, "user-1", remote.ListFavoriteIDs, "1"))

	ids, err := s.ReadList(ctx, "user-1", remote.ListFavoriteIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids)
}

func TestStore_Closed(t *testing.T) {
	s, err := NewInMemory()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.ReadFavorites(context.Background(), "user-1")
	assert.ErrorIs(t, err, remote.ErrStoreClosed)
}

func TestOpen(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		_, err := Open(context.Background(), "mysql", "dsn")
		assert.Error(t, err)
	})

	t.Run("uses the pgx driver for postgres", func(t *testing.T) {
		boom := errors.New("no database")
		var gotDriver, gotDSN string
		restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
			gotDriver, gotDSN = driver, dsn
			return nil, boom
		})
		defer restore()

		_, err := Open(context.Background(), DriverPostgres, "postgres://localhost/staykeep")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "pgx", gotDriver)
		assert.Equal(t, "postgres://localhost/staykeep", gotDSN)
	})
}

func TestRebind(t *testing.T) {
	got := rebind("SELECT value FROM remote_lists WHERE user_id = ? AND list_name = ?")
	assert.Equal(t, "SELECT value FROM remote_lists WHERE user_id = $1 AND list_name = $2", got)

	s := &Store{}
	assert.Equal(t, "a = ?", s.q("a = ?"))
}
