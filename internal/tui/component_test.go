package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

type stubComponent struct {
	title   string
	focused bool
}

func (s *stubComponent) Init() tea.Cmd                       { return nil }
func (s *stubComponent) Update(tea.Msg) (Component, tea.Cmd) { return s, nil }
func (s *stubComponent) View() string                        { return s.title }
func (s *stubComponent) Title() string                       { return s.title }
func (s *stubComponent) Focused() bool                       { return s.focused }
func (s *stubComponent) Focus()                              { s.focused = true }
func (s *stubComponent) Blur()                               { s.focused = false }
func (s *stubComponent) SetSize(int, int)                    {}

func TestComponentList(t *testing.T) {
	a := &stubComponent{title: "a"}
	b := &stubComponent{title: "b"}
	cl := NewComponentList(a, b)

	assert.Equal(t, 0, cl.FocusIndex())
	assert.True(t, a.Focused())

	cl.FocusNext()
	assert.Equal(t, b, cl.Focused())
	assert.False(t, a.Focused())

	cl.FocusNext()
	assert.Equal(t, a, cl.Focused())

	cl.FocusPrev()
	assert.Equal(t, b, cl.Focused())
}

func TestComponentList_Empty(t *testing.T) {
	cl := NewComponentList()
	cl.FocusNext()
	cl.FocusPrev()
	assert.Nil(t, cl.Focused())
	assert.Equal(t, 0, cl.Len())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"Grand Hotel Europa", 10, "Grand H..."},
		{"abc", 0, ""},
		{"abcdef", 2, "ab"},
		{"Zürich Palace", 8, "Züric..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.width), tt.in)
	}
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", PadRight("ab", 4))
	assert.Equal(t, "abc", PadRight("abcdef", 3))
}
