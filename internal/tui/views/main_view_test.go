package views

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/identity"
	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/prefs"
	remotememory "github.com/artpar/staykeep/internal/remote/memory"
	"github.com/artpar/staykeep/internal/storage/memory"
	"github.com/artpar/staykeep/internal/tui"
)

func newTestView(t *testing.T) (*MainView, *prefs.Service, *identity.Session) {
	t.Helper()
	session := identity.NewInMemorySession()
	svc, err := prefs.NewService(context.Background(), prefs.NewLocalOnlyStore(memory.New()),
		prefs.WithIdentity(session),
		prefs.WithRemote(remotememory.New()),
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	v := NewMainView(svc)
	v.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return v, svc, session
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMainView_ReloadsOnChange(t *testing.T) {
	v, svc, _ := newTestView(t)
	ctx := context.Background()

	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(1, "Harbor Inn", "Oslo")))
	assert.Empty(t, v.Favorites().Entries())

	v.Update(tui.ChangedMsg{Event: notify.Event{Op: notify.OpAdd, ID: "1"}})
	require.Len(t, v.Favorites().Entries(), 1)
	assert.Contains(t, v.View(), "Harbor Inn")
}

func TestMainView_ModeChangeNotification(t *testing.T) {
	v, _, session := newTestView(t)

	require.NoError(t, session.SignIn("user-1"))
	v.Update(tui.ChangedMsg{Event: notify.Event{Op: notify.OpMode, Mode: "remote"}})

	assert.Contains(t, v.Notification(), "remote")
	assert.Contains(t, v.View(), "REMOTE user-1")
}

func TestMainView_SortCycle(t *testing.T) {
	v, svc, _ := newTestView(t)
	ctx := context.Background()
	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(1, "bravo", "Zagreb")))
	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(2, "Alpha", "Athens")))
	v.Update(tui.RefreshMsg{})

	v.Update(keyRunes("s"))
	assert.Equal(t, favorites.SortName, v.Favorites().SortBy())
	assert.Equal(t, "Alpha", v.Favorites().Entries()[0].Name)

	v.Update(keyRunes("s"))
	assert.Equal(t, favorites.SortLocation, v.Favorites().SortBy())

	v.Update(keyRunes("s"))
	assert.Equal(t, favorites.SortRecent, v.Favorites().SortBy())
}

func TestMainView_Search(t *testing.T) {
	v, svc, _ := newTestView(t)
	ctx := context.Background()
	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(1, "Harbor Inn", "Oslo")))
	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(2, "Fjord Hotel", "Bergen")))
	v.Update(tui.RefreshMsg{})

	v.Update(keyRunes("/"))
	assert.True(t, v.Favorites().IsSearching())
	v.Update(keyRunes("q"))
	assert.True(t, v.Favorites().IsSearching(), "typing q in search must not quit")
	v.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	v.Update(keyRunes("oslo"))
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, v.Favorites().Entries(), 1)
	assert.Equal(t, "Harbor Inn", v.Favorites().Entries()[0].Name)

	require.NotNil(t, cmd)
	v.Update(cmd())
	assert.Equal(t, []string{"oslo"}, v.Recent().Queries())
}

func TestMainView_RemoveSelected(t *testing.T) {
	v, svc, _ := newTestView(t)
	ctx := context.Background()
	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(1, "Harbor Inn", "")))
	v.Update(tui.RefreshMsg{})

	_, cmd := v.Update(keyRunes("d"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.IsType(t, tui.NotifyMsg{}, msg)

	ok, err := svc.IsFavorited(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMainView_RecentPane(t *testing.T) {
	v, svc, _ := newTestView(t)
	ctx := context.Background()
	require.NoError(t, svc.AddRecentSearch(ctx, "Rome", ""))
	require.NoError(t, svc.AddRecentSearch(ctx, "Oslo", ""))
	v.Update(tui.RefreshMsg{})

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := v.Update(keyRunes("d"))
	require.NotNil(t, cmd)
	v.Update(cmd())
	assert.Equal(t, []string{"Rome"}, v.Recent().Queries())

	_, cmd = v.Update(keyRunes("C"))
	require.NotNil(t, cmd)
	v.Update(cmd())
	assert.Empty(t, v.Recent().Queries())
}

func TestMainView_ErrorNotification(t *testing.T) {
	v, _, _ := newTestView(t)

	v.Update(tui.ErrorMsg{Err: &prefs.RemoteWriteError{Op: "add", ID: "1", Err: errors.New("offline")}})
	assert.Contains(t, v.Notification(), "Sync failed")
}

func TestMainView_HelpAndQuit(t *testing.T) {
	v, _, _ := newTestView(t)

	v.Update(keyRunes("?"))
	assert.Contains(t, v.View(), "cycle sort")
	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, v.View(), "cycle sort")

	_, cmd := v.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
