// Package components contains the panes of the preferences browser.
package components

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/prefs"
	"github.com/artpar/staykeep/internal/tui"
)

var sortCycle = []favorites.SortBy{favorites.SortRecent, favorites.SortName, favorites.SortLocation}

// FavoritesPanel lists favorites with a switchable sort order and an
// incremental search.
type FavoritesPanel struct {
	service *prefs.Service
	entries []favorites.Entry
	cursor  int
	offset  int
	sortIdx int

	query     string
	searching bool
	input     string

	focused bool
	width   int
	height  int
	err     error
}

// NewFavoritesPanel creates the panel and loads its data.
func NewFavoritesPanel(service *prefs.Service) *FavoritesPanel {
	p := &FavoritesPanel{service: service}
	p.Reload()
	return p
}

// Init implements tui.Component.
func (p *FavoritesPanel) Init() tea.Cmd { return nil }

// Title implements tui.Component.
func (p *FavoritesPanel) Title() string { return "Favorites" }

// Focused implements tui.Component.
func (p *FavoritesPanel) Focused() bool { return p.focused }

// Focus implements tui.Component.
func (p *FavoritesPanel) Focus() { p.focused = true }

// Blur implements tui.Component.
func (p *FavoritesPanel) Blur() { p.focused = false }

// SetSize implements tui.Component.
func (p *FavoritesPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SortBy returns the active sort order.
func (p *FavoritesPanel) SortBy() favorites.SortBy {
	return sortCycle[p.sortIdx]
}

// Entries returns the rows currently shown.
func (p *FavoritesPanel) Entries() []favorites.Entry {
	return p.entries
}

// Selected returns the entry under the cursor.
func (p *FavoritesPanel) Selected() (favorites.Entry, bool) {
	if p.cursor < 0 || p.cursor >= len(p.entries) {
		return favorites.Entry{}, false
	}
	return p.entries[p.cursor], true
}

// IsSearching reports whether the search prompt has input focus.
func (p *FavoritesPanel) IsSearching() bool {
	return p.searching
}

// Reload re-reads favorites from the service.
func (p *FavoritesPanel) Reload() {
	ctx := context.Background()
	if p.query != "" {
		p.entries, p.err = p.service.SearchFavorites(ctx, p.query)
	} else {
		p.entries, p.err = p.service.SortedFavorites(ctx, p.SortBy())
	}
	if p.cursor >= len(p.entries) {
		p.cursor = len(p.entries) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// Update implements tui.Component.
func (p *FavoritesPanel) Update(msg tea.Msg) (tui.Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.ChangedMsg, tui.RefreshMsg:
		p.Reload()
		return p, nil
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		if p.searching {
			return p.handleSearchKey(msg)
		}
		return p.handleKey(msg)
	}
	return p, nil
}

func (p *FavoritesPanel) handleKey(msg tea.KeyMsg) (tui.Component, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		p.move(1)
	case "k", "up":
		p.move(-1)
	case "g", "home":
		p.cursor = 0
	case "G", "end":
		p.cursor = max(len(p.entries)-1, 0)
	case "s":
		p.sortIdx = (p.sortIdx + 1) % len(sortCycle)
		p.Reload()
		return p, notify(fmt.Sprintf("Sorted by %s", p.SortBy()))
	case "/":
		p.searching = true
		p.input = p.query
	case "esc":
		if p.query != "" {
			p.query = ""
			p.Reload()
		}
	case "d", "x":
		entry, ok := p.Selected()
		if !ok {
			return p, nil
		}
		return p, p.remove(entry)
	}
	return p, nil
}

func (p *FavoritesPanel) handleSearchKey(msg tea.KeyMsg) (tui.Component, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		p.searching = false
		p.query = strings.TrimSpace(p.input)
		p.cursor = 0
		p.Reload()
		if p.query == "" {
			return p, nil
		}
		return p, p.recordSearch(p.query)
	case tea.KeyEsc:
		p.searching = false
		p.input = ""
	case tea.KeyBackspace:
		if r := []rune(p.input); len(r) > 0 {
			p.input = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		p.input += string(msg.Runes)
	}
	return p, nil
}

func (p *FavoritesPanel) move(delta int) {
	p.cursor += delta
	if p.cursor >= len(p.entries) {
		p.cursor = len(p.entries) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *FavoritesPanel) remove(entry favorites.Entry) tea.Cmd {
	service := p.service
	return func() tea.Msg {
		if err := service.RemoveFavorite(context.Background(), entry.ID); err != nil {
			return tui.ErrorMsg{Err: err}
		}
		return tui.NotifyMsg{Text: fmt.Sprintf("Removed %s", entry.Name)}
	}
}

func (p *FavoritesPanel) recordSearch(query string) tea.Cmd {
	service := p.service
	return func() tea.Msg {
		if err := service.AddRecentSearch(context.Background(), query, ""); err != nil {
			return tui.ErrorMsg{Err: err}
		}
		return tui.RefreshMsg{}
	}
}

func notify(text string) tea.Cmd {
	return func() tea.Msg { return tui.NotifyMsg{Text: text} }
}

// View implements tui.Component.
func (p *FavoritesPanel) View() string {
	innerWidth := max(p.width-2, 10)
	innerHeight := max(p.height-2, 3)

	title := fmt.Sprintf("Favorites (%d) · %s", len(p.entries), p.SortBy())
	if p.query != "" {
		title = fmt.Sprintf("Favorites matching %q (%d)", p.query, len(p.entries))
	}

	lines := []string{tui.RenderTitle(title, innerWidth, p.focused)}
	if p.searching {
		prompt := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
		lines = append(lines, prompt.Render("/"+p.input+"█"))
	}

	rows := innerHeight - len(lines)
	switch {
	case p.err != nil:
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		lines = append(lines, errStyle.Render(tui.Truncate(p.err.Error(), innerWidth)))
	case len(p.entries) == 0:
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		lines = append(lines, dim.Render("No favorites yet"))
	default:
		p.scroll(rows)
		end := min(p.offset+rows, len(p.entries))
		for i := p.offset; i < end; i++ {
			lines = append(lines, p.renderRow(p.entries[i], i == p.cursor, innerWidth))
		}
	}

	return tui.RenderBorder(strings.Join(lines, "\n"), innerWidth, innerHeight, p.focused)
}

func (p *FavoritesPanel) scroll(rows int) {
	if rows <= 0 {
		return
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+rows {
		p.offset = p.cursor - rows + 1
	}
}

func (p *FavoritesPanel) renderRow(e favorites.Entry, selected bool, width int) string {
	location := e.Location
	if location == "" {
		location = favorites.UnknownLocation
	}
	added := e.AddedAt.Local().Format("2006-01-02")

	nameWidth := max(width-len(added)-20, 8)
	line := fmt.Sprintf("%s  %s  %s",
		tui.PadRight(tui.Truncate(e.Name, nameWidth), nameWidth),
		tui.PadRight(tui.Truncate(location, 16), 16),
		added,
	)

	style := lipgloss.NewStyle()
	if selected && p.focused {
		style = style.Background(lipgloss.Color("62")).Foreground(lipgloss.Color("229"))
	} else if selected {
		style = style.Foreground(lipgloss.Color("229"))
	}
	return style.Render(tui.Truncate(line, width))
}
