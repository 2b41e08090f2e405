package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/staykeep/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Suite(t *testing.T) {
	storage.RunEngineTests(t, func() (storage.Engine, func()) {
		store, err := New(t.TempDir())
		require.NoError(t, err)
		return store, func() { store.Close() }
	})
}

func TestStore_WritesOneFilePerKey(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "hotel_favorites", "[]"))
	require.NoError(t, store.Set(ctx, "hotel_favorites_metadata", `{"lastUpdated":1,"count":0}`))

	content, err := os.ReadFile(filepath.Join(dir, "hotel_favorites.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files must not be left behind")
}

func TestStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "prefs")

	_, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
