package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/prefs"
	"github.com/artpar/staykeep/internal/tui"
	"github.com/artpar/staykeep/internal/tui/components"
)

const notificationTTL = 3 * time.Second

// MainView is the two-pane preferences browser.
type MainView struct {
	service   *prefs.Service
	favorites *components.FavoritesPanel
	recent    *components.RecentPanel
	panes     *tui.ComponentList

	width        int
	height       int
	showHelp     bool
	notification string
	isError      bool
	notifyUntil  time.Time
}

// clearNotificationMsg is sent to clear the notification.
type clearNotificationMsg struct{}

// NewMainView creates a new main view.
func NewMainView(service *prefs.Service) *MainView {
	v := &MainView{
		service:   service,
		favorites: components.NewFavoritesPanel(service),
		recent:    components.NewRecentPanel(service),
	}
	v.panes = tui.NewComponentList(v.favorites, v.recent)
	return v
}

// Init initializes the view.
func (v *MainView) Init() tea.Cmd {
	return nil
}

// Title implements tui.Component.
func (v *MainView) Title() string { return "staykeep" }

// Focused implements tui.Component.
func (v *MainView) Focused() bool { return true }

// Focus implements tui.Component.
func (v *MainView) Focus() {}

// Blur implements tui.Component.
func (v *MainView) Blur() {}

// SetSize implements tui.Component.
func (v *MainView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.updatePaneSizes()
}

// Favorites returns the favorites pane.
func (v *MainView) Favorites() *components.FavoritesPanel { return v.favorites }

// Recent returns the recent searches pane.
func (v *MainView) Recent() *components.RecentPanel { return v.recent }

// Notification returns the status message currently shown.
func (v *MainView) Notification() string { return v.notification }

// Update handles messages.
func (v *MainView) Update(msg tea.Msg) (tui.Component, tea.Cmd) {
	if v.showHelp {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			if keyMsg.Type == tea.KeyEsc || keyMsg.String() == "?" {
				v.showHelp = false
			}
			return v, nil
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)
		return v, nil

	case tui.ChangedMsg:
		v.favorites.Update(msg)
		v.recent.Update(msg)
		if msg.Event.Op == notify.OpMode {
			return v, v.notify(fmt.Sprintf("Switched to %s mode", msg.Event.Mode), false)
		}
		return v, nil

	case tui.RefreshMsg:
		v.favorites.Update(msg)
		v.recent.Update(msg)
		return v, nil

	case tui.NotifyMsg:
		return v, v.notify(msg.Text, false)

	case tui.ErrorMsg:
		text := msg.Err.Error()
		if prefs.IsRemoteWriteError(msg.Err) {
			text = "Sync failed: " + text
		}
		return v, v.notify(text, true)

	case clearNotificationMsg:
		if time.Now().After(v.notifyUntil) {
			v.notification = ""
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

func (v *MainView) handleKeyMsg(msg tea.KeyMsg) (tui.Component, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return v, tea.Quit
	}
	if v.favorites.IsSearching() {
		_, cmd := v.favorites.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "q":
		return v, tea.Quit
	case "?":
		v.showHelp = true
		return v, nil
	case "tab":
		v.panes.FocusNext()
		return v, nil
	case "shift+tab":
		v.panes.FocusPrev()
		return v, nil
	case "r":
		v.favorites.Reload()
		v.recent.Reload()
		return v, nil
	}

	_, cmd := v.panes.Focused().Update(msg)
	return v, cmd
}

func (v *MainView) notify(text string, isError bool) tea.Cmd {
	v.notification = text
	v.isError = isError
	v.notifyUntil = time.Now().Add(notificationTTL)
	return tea.Tick(notificationTTL, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}

func (v *MainView) updatePaneSizes() {
	bodyHeight := max(v.height-1, 3)
	recentWidth := max(v.width/3, 20)
	v.favorites.SetSize(max(v.width-recentWidth, 20), bodyHeight)
	v.recent.SetSize(recentWidth, bodyHeight)
}

// View renders the view.
func (v *MainView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}
	if v.showHelp {
		return v.renderHelp()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, v.favorites.View(), v.recent.View())
	return lipgloss.JoinVertical(lipgloss.Left, body, v.renderStatusBar())
}

func (v *MainView) renderStatusBar() string {
	barStyle := lipgloss.NewStyle().
		Width(v.width).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	modeStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	var items []string
	if v.service.Mode() == prefs.ModeRemote {
		items = append(items, modeStyle.
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("229")).
			Render("REMOTE "+v.service.UserID()))
	} else {
		items = append(items, modeStyle.
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("250")).
			Render("LOCAL"))
	}

	paneStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 1)
	items = append(items, paneStyle.Render(v.panes.Focused().Title()))

	if v.notification != "" {
		color := lipgloss.Color("114")
		if v.isError {
			color = lipgloss.Color("196")
		}
		items = append(items, lipgloss.NewStyle().Foreground(color).Padding(0, 1).Render(v.notification))
	} else {
		hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
		items = append(items, hintStyle.Render("? help"))
	}

	return barStyle.Render(strings.Join(items, ""))
}

func (v *MainView) renderHelp() string {
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)
	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	bindings := [][2]string{
		{"tab", "switch pane"},
		{"j/k", "move"},
		{"s", "cycle sort (recent, name, location)"},
		{"/", "search favorites"},
		{"esc", "clear search"},
		{"d", "remove selected"},
		{"C", "clear recent searches"},
		{"r", "reload"},
		{"q", "quit"},
	}

	lines := []string{tui.RenderTitle("Keys", 40, true), ""}
	for _, b := range bindings {
		lines = append(lines, keyStyle.Render(tui.PadRight(b[0], 6))+descStyle.Render(b[1]))
	}
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}
