package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/prefs"
)

func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, dataDir, nil, args...)
}

func executeWithInput(t *testing.T, dataDir string, in io.Reader, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand("test")
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	if in != nil {
		cmd.SetIn(in)
	}
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := execute(t, dataDir, args...)
	require.NoError(t, err, "staykeep %s", strings.Join(args, " "))
	return out
}

func TestNewRootCommand(t *testing.T) {
	t.Run("creates root command", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		assert.NotNil(t, cmd)
		assert.Equal(t, "staykeep", cmd.Use)
		assert.Equal(t, "1.0.0", cmd.Version)
	})

	t.Run("has persistent flags", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		for _, name := range []string{"config", "data-dir", "storage", "remote", "log-level"} {
			assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		cmd := NewRootCommand("1.0.0")
		for _, path := range [][]string{
			{"fav", "add"}, {"fav", "list"}, {"fav", "export"}, {"fav", "import"},
			{"recent", "list"}, {"login"}, {"logout"}, {"whoami"}, {"sync"}, {"serve"},
		} {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Contains(t, sub.Use, path[len(path)-1])
		}
	})

	t.Run("rejects unknown storage driver", func(t *testing.T) {
		_, err := execute(t, t.TempDir(), "--storage", "floppy", "fav", "list")
		assert.Error(t, err)
	})
}

func TestFavCommands(t *testing.T) {
	t.Run("add list remove", func(t *testing.T) {
		dir := t.TempDir()

		out := mustExecute(t, dir, "fav", "add", "42", "Harbor Inn", "--location", "Oslo")
		assert.Contains(t, out, "Added Harbor Inn (42)")

		out = mustExecute(t, dir, "fav", "list")
		assert.Contains(t, out, "Harbor Inn")
		assert.Contains(t, out, "Oslo")

		mustExecute(t, dir, "fav", "remove", "42")
		out = mustExecute(t, dir, "fav", "list")
		assert.Contains(t, out, "No favorites")
	})

	t.Run("list json sorted by name", func(t *testing.T) {
		dir := t.TempDir()
		mustExecute(t, dir, "fav", "add", "1", "bravo")
		mustExecute(t, dir, "fav", "add", "2", "Alpha")

		out := mustExecute(t, dir, "fav", "list", "--sort", "name", "--json")
		var list []favorites.Entry
		require.NoError(t, json.Unmarshal([]byte(out), &list))
		require.Len(t, list, 2)
		assert.Equal(t, "Alpha", list[0].Name)
		assert.Equal(t, "bravo", list[1].Name)
	})

	t.Run("list rejects unknown sort", func(t *testing.T) {
		_, err := execute(t, t.TempDir(), "fav", "list", "--sort", "price")
		assert.ErrorIs(t, err, favorites.ErrInvalidSort)
	})

	t.Run("toggle", func(t *testing.T) {
		dir := t.TempDir()
		out := mustExecute(t, dir, "fav", "toggle", "7", "Fjord Hotel")
		assert.Contains(t, out, "Favorited Fjord Hotel")
		out = mustExecute(t, dir, "fav", "toggle", "7", "Fjord Hotel")
		assert.Contains(t, out, "Unfavorited Fjord Hotel")
	})

	t.Run("search records a recent search", func(t *testing.T) {
		dir := t.TempDir()
		mustExecute(t, dir, "fav", "add", "1", "Harbor Inn", "-l", "Oslo")
		mustExecute(t, dir, "fav", "add", "2", "Fjord Hotel", "-l", "Bergen")

		out := mustExecute(t, dir, "fav", "search", "oslo")
		assert.Contains(t, out, "Harbor Inn")
		assert.NotContains(t, out, "Fjord Hotel")

		out = mustExecute(t, dir, "recent", "list")
		assert.Equal(t, "oslo\n", out)
	})

	t.Run("stats", func(t *testing.T) {
		dir := t.TempDir()
		mustExecute(t, dir, "fav", "add", "1", "Harbor Inn", "-l", "Oslo")
		mustExecute(t, dir, "fav", "add", "2", "Nowhere Motel")

		out := mustExecute(t, dir, "fav", "stats")
		assert.Contains(t, out, "Total: 2")
		assert.Contains(t, out, "Oslo: 1")
		assert.Contains(t, out, favorites.UnknownLocation+": 1")
	})

	t.Run("export to file and import", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(t.TempDir(), "favorites.json")
		mustExecute(t, dir, "fav", "add", "1", "Harbor Inn", "-l", "Oslo")

		out := mustExecute(t, dir, "fav", "export", "-o", path)
		assert.Contains(t, out, path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"version": "1.0"`)

		mustExecute(t, dir, "fav", "clear")
		out = mustExecute(t, dir, "fav", "import", path)
		assert.Contains(t, out, "Imported 1 favorites")
		assert.Contains(t, mustExecute(t, dir, "fav", "list"), "Harbor Inn")
	})

	t.Run("import from stdin with merge", func(t *testing.T) {
		dir := t.TempDir()
		mustExecute(t, dir, "fav", "add", "1", "Harbor Inn")

		doc := `{"favorites":[{"id":2,"name":"Fjord Hotel","location":"Bergen","addedAt":1700000000000}]}`
		out, err := executeWithInput(t, dir, strings.NewReader(doc), "fav", "import", "-", "--merge")
		require.NoError(t, err)
		assert.Contains(t, out, "Imported 1 favorites")

		out = mustExecute(t, dir, "fav", "list")
		assert.Contains(t, out, "Harbor Inn")
		assert.Contains(t, out, "Fjord Hotel")
	})

	t.Run("import rejects invalid document", func(t *testing.T) {
		_, err := executeWithInput(t, t.TempDir(), strings.NewReader(`{"items":[]}`), "fav", "import", "-")
		assert.ErrorIs(t, err, favorites.ErrInvalidImport)
	})
}

func TestRecentCommands(t *testing.T) {
	dir := t.TempDir()

	mustExecute(t, dir, "recent", "add", "Rome")
	mustExecute(t, dir, "recent", "add", "Oslo")
	mustExecute(t, dir, "recent", "add", "Oslo center", "--replace", "Oslo")
	assert.Equal(t, "Oslo center\nRome\n", mustExecute(t, dir, "recent", "list"))

	mustExecute(t, dir, "recent", "remove", "Rome")
	out := mustExecute(t, dir, "recent", "list", "--json")
	var queries []string
	require.NoError(t, json.Unmarshal([]byte(out), &queries))
	assert.Equal(t, []string{"Oslo center"}, queries)

	mustExecute(t, dir, "recent", "clear")
	assert.Empty(t, mustExecute(t, dir, "recent", "list"))
}

func TestLoginLogout(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "whoami")
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Mode: local")

	mustExecute(t, dir, "fav", "add", "1", "Guest Pick")

	out = mustExecute(t, dir, "login", "alice")
	assert.Contains(t, out, "Signed in as alice, 0 favorites synced")

	mustExecute(t, dir, "fav", "add", "2", "Alice Pick")
	out = mustExecute(t, dir, "fav", "list")
	assert.Contains(t, out, "Alice Pick")
	assert.NotContains(t, out, "Guest Pick")

	out = mustExecute(t, dir, "whoami")
	assert.Contains(t, out, "User: alice")
	assert.Contains(t, out, "Mode: remote")

	mustExecute(t, dir, "logout")
	out = mustExecute(t, dir, "fav", "list")
	assert.Contains(t, out, "Guest Pick")
	assert.NotContains(t, out, "Alice Pick")

	out = mustExecute(t, dir, "login", "alice")
	assert.Contains(t, out, "1 favorites synced")
}

func TestLogin_WithoutRemote(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "--remote", "none", "login", "bob")
	assert.Contains(t, out, "no remote store configured")

	out = mustExecute(t, dir, "--remote", "none", "whoami")
	assert.Contains(t, out, "User: bob")
	assert.Contains(t, out, "Mode: local")
}

func TestSyncCommand(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "sync")
	assert.ErrorIs(t, err, prefs.ErrSignInRequired)

	mustExecute(t, dir, "login", "carol")
	mustExecute(t, dir, "fav", "add", "9", "Carol Pick")
	mustExecute(t, dir, "recent", "add", "Lisbon")

	out := mustExecute(t, dir, "sync")
	assert.Contains(t, out, "Synced 1 favorites and 1 recent searches")
}

func TestServeCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &bytes.Buffer{}
	cmd := NewRootCommand("test")
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--data-dir", t.TempDir(), "--log-level", "error", "--storage", "memory", "--remote", "memory", "serve", "--addr", "127.0.0.1:0"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Listening on http://127.0.0.1:")
	assert.Contains(t, out.String(), "local mode")
	assert.Contains(t, out.String(), "Shutting down")
}
