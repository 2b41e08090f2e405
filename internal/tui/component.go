// Package tui holds the shared pieces of the terminal UI: the component
// contract, focus cycling, messages and rendering helpers.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artpar/staykeep/internal/notify"
)

// Component is the interface for all TUI components.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Component, tea.Cmd)
	View() string
	Title() string
	Focused() bool
	Focus()
	Blur()
	SetSize(width, height int)
}

// Messages

// ChangedMsg carries a change event from the preference service into the
// program.
type ChangedMsg struct {
	Event notify.Event
}

// RefreshMsg asks components to re-read their data.
type RefreshMsg struct{}

// ErrorMsg reports a failed operation.
type ErrorMsg struct {
	Err error
}

// NotifyMsg shows a short status message.
type NotifyMsg struct {
	Text string
}

// ComponentList manages a list of components with focus cycling.
type ComponentList struct {
	components []Component
	focusIndex int
}

// NewComponentList creates a new component list.
func NewComponentList(components ...Component) *ComponentList {
	cl := &ComponentList{components: components, focusIndex: -1}
	if len(components) > 0 {
		cl.setFocus(0)
	}
	return cl
}

// Len returns the number of components.
func (cl *ComponentList) Len() int {
	return len(cl.components)
}

// FocusNext cycles focus to the next component.
func (cl *ComponentList) FocusNext() {
	if len(cl.components) == 0 {
		return
	}
	cl.setFocus((cl.focusIndex + 1) % len(cl.components))
}

// FocusPrev cycles focus to the previous component.
func (cl *ComponentList) FocusPrev() {
	if len(cl.components) == 0 {
		return
	}
	prev := cl.focusIndex - 1
	if prev < 0 {
		prev = len(cl.components) - 1
	}
	cl.setFocus(prev)
}

// FocusIndex returns the current focus index.
func (cl *ComponentList) FocusIndex() int {
	return cl.focusIndex
}

// Focused returns the currently focused component.
func (cl *ComponentList) Focused() Component {
	if cl.focusIndex < 0 || cl.focusIndex >= len(cl.components) {
		return nil
	}
	return cl.components[cl.focusIndex]
}

func (cl *ComponentList) setFocus(index int) {
	if cl.focusIndex >= 0 && cl.focusIndex < len(cl.components) {
		cl.components[cl.focusIndex].Blur()
	}
	cl.focusIndex = index
	cl.components[index].Focus()
}

// RenderTitle renders a title bar.
func RenderTitle(title string, width int, focused bool) string {
	style := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Bold(true)

	if focused {
		style = style.Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("62"))
	} else {
		style = style.Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("238"))
	}

	return style.Render(title)
}

// RenderBorder renders content with a border.
func RenderBorder(content string, width, height int, focused bool) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		BorderStyle(lipgloss.RoundedBorder())

	if focused {
		style = style.BorderForeground(lipgloss.Color("62"))
	} else {
		style = style.BorderForeground(lipgloss.Color("240"))
	}

	return style.Render(content)
}

// Truncate truncates a string to fit within a width.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// PadRight pads a string to a given width.
func PadRight(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
