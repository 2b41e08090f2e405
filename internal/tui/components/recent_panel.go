package components

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artpar/staykeep/internal/prefs"
	"github.com/artpar/staykeep/internal/tui"
)

// RecentPanel lists recent searches.
type RecentPanel struct {
	service *prefs.Service
	queries []string
	cursor  int

	focused bool
	width   int
	height  int
}

// NewRecentPanel creates the panel and loads its data.
func NewRecentPanel(service *prefs.Service) *RecentPanel {
	p := &RecentPanel{service: service}
	p.Reload()
	return p
}

// Init implements tui.Component.
func (p *RecentPanel) Init() tea.Cmd { return nil }

// Title implements tui.Component.
func (p *RecentPanel) Title() string { return "Recent searches" }

// Focused implements tui.Component.
func (p *RecentPanel) Focused() bool { return p.focused }

// Focus implements tui.Component.
func (p *RecentPanel) Focus() { p.focused = true }

// Blur implements tui.Component.
func (p *RecentPanel) Blur() { p.focused = false }

// SetSize implements tui.Component.
func (p *RecentPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Queries returns the rows currently shown.
func (p *RecentPanel) Queries() []string {
	return p.queries
}

// Reload re-reads the list from the service.
func (p *RecentPanel) Reload() {
	p.queries = p.service.RecentSearches()
	if p.cursor >= len(p.queries) {
		p.cursor = max(len(p.queries)-1, 0)
	}
}

// Update implements tui.Component.
func (p *RecentPanel) Update(msg tea.Msg) (tui.Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.ChangedMsg, tui.RefreshMsg:
		p.Reload()
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch msg.String() {
		case "j", "down":
			if p.cursor < len(p.queries)-1 {
				p.cursor++
			}
		case "k", "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "d", "x":
			if p.cursor < len(p.queries) {
				query := p.queries[p.cursor]
				return p, p.run(func(ctx context.Context) error {
					return p.service.RemoveRecentSearch(ctx, query)
				})
			}
		case "C":
			return p, p.run(p.service.ClearRecentSearches)
		}
	}
	return p, nil
}

// run executes a recent-search mutation. These never notify, so the
// panel asks for its own refresh.
func (p *RecentPanel) run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return tui.ErrorMsg{Err: err}
		}
		return tui.RefreshMsg{}
	}
}

// View implements tui.Component.
func (p *RecentPanel) View() string {
	innerWidth := max(p.width-2, 10)
	innerHeight := max(p.height-2, 3)

	lines := []string{tui.RenderTitle(p.Title(), innerWidth, p.focused)}
	if len(p.queries) == 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		lines = append(lines, dim.Render("No recent searches"))
	}
	for i, q := range p.queries {
		style := lipgloss.NewStyle()
		if i == p.cursor && p.focused {
			style = style.Background(lipgloss.Color("62")).Foreground(lipgloss.Color("229"))
		}
		lines = append(lines, style.Render(tui.Truncate(q, innerWidth)))
	}

	return tui.RenderBorder(strings.Join(lines, "\n"), innerWidth, innerHeight, p.focused)
}
