package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/artpar/staykeep/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Suite(t *testing.T) {
	storage.RunEngineTests(t, func() (storage.Engine, func()) {
		store, err := NewInMemory()
		require.NoError(t, err)
		return store, func() { store.Close() }
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	store, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "hotel_favorites", `[{"id":"42"}]`))
	require.NoError(t, store.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "hotel_favorites")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"42"}]`, value)
}

func TestStore_NewWithDB(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	store, err := NewWithDB(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "recent_searches", `["Paris"]`))

	// Closing the engine must leave a shared connection usable.
	require.NoError(t, store.Close())
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM kv_store").Scan(&count))
	assert.Equal(t, 1, count)
}
