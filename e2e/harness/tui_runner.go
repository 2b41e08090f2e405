package harness

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/app"
	"github.com/artpar/staykeep/internal/config"
	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/tui"
	"github.com/artpar/staykeep/internal/tui/views"
)

// cmdTimeout bounds how long a returned command may run. Timer commands
// such as notification expiry outlive it and are dropped.
const cmdTimeout = 200 * time.Millisecond

// TUIRunner provides TUI testing capabilities.
type TUIRunner struct {
	harness *E2EHarness
}

// TUISession represents an active TUI test session. It drives the main
// view directly and feeds change events back into it the way the
// running program does.
type TUISession struct {
	runner *TUIRunner
	app    *app.App
	model  *views.MainView
	t      *testing.T

	mu      sync.Mutex
	pending []notify.Event
}

// Start starts a new TUI session over the harness data directory.
func (r *TUIRunner) Start(t *testing.T) *TUISession {
	t.Helper()
	return r.StartWithSize(t, 120, 40)
}

// StartWithSize starts a TUI session with custom dimensions.
func (r *TUIRunner) StartWithSize(t *testing.T, width, height int) *TUISession {
	t.Helper()

	opts := []config.Option{config.WithDataDir(r.harness.dataDir), config.WithLogLevel("error")}
	for i := 0; i+1 < len(r.harness.args); i += 2 {
		switch r.harness.args[i] {
		case "--storage":
			opts = append(opts, config.WithStorageDriver(r.harness.args[i+1]))
		case "--remote":
			opts = append(opts, config.WithRemoteDriver(r.harness.args[i+1]))
		}
	}
	cfg, err := config.Load("", opts...)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	application, err := app.New(context.Background(), cfg, app.WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(func() { application.Close() })

	s := &TUISession{
		runner: r,
		app:    application,
		model:  views.NewMainView(application.Service()),
		t:      t,
	}
	unsubscribe := application.Notifier().Subscribe(func(event notify.Event) {
		s.mu.Lock()
		s.pending = append(s.pending, event)
		s.mu.Unlock()
	})
	t.Cleanup(unsubscribe)

	s.model.SetSize(width, height)
	return s
}

// App returns the application behind the session.
func (s *TUISession) App() *app.App {
	return s.app
}

// SendKey sends a key press.
func (s *TUISession) SendKey(key string) *TUISession {
	s.update(parseKeyMsg(key))
	return s
}

// SendKeys sends multiple key presses.
func (s *TUISession) SendKeys(keys ...string) *TUISession {
	for _, key := range keys {
		s.SendKey(key)
	}
	return s
}

// Type sends a sequence of rune keys.
func (s *TUISession) Type(text string) *TUISession {
	for _, r := range text {
		s.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return s
}

// Send feeds an arbitrary message to the view.
func (s *TUISession) Send(msg tea.Msg) *TUISession {
	s.update(msg)
	return s
}

func (s *TUISession) update(msg tea.Msg) {
	updated, cmd := s.model.Update(msg)
	s.model = updated.(*views.MainView)
	s.executeCmd(cmd)
	s.drain()
}

// executeCmd runs a tea.Cmd and feeds its result back into Update.
func (s *TUISession) executeCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}

	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-result:
	case <-time.After(cmdTimeout):
		return
	}
	if msg == nil {
		return
	}
	if _, ok := msg.(tea.QuitMsg); ok {
		return
	}

	s.drain()
	updated, next := s.model.Update(msg)
	s.model = updated.(*views.MainView)
	s.executeCmd(next)
}

// drain delivers change events queued by the notifier.
func (s *TUISession) drain() {
	s.mu.Lock()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, event := range events {
		updated, cmd := s.model.Update(tui.ChangedMsg{Event: event})
		s.model = updated.(*views.MainView)
		s.executeCmd(cmd)
	}
}

// WaitForOutput waits for specific text in output.
func (s *TUISession) WaitForOutput(text string) error {
	timeout := s.runner.harness.timeout
	deadline := time.Now().Add(timeout)
	pollInterval := 50 * time.Millisecond

	for time.Now().Before(deadline) {
		s.drain()
		if strings.Contains(s.Output(), text) {
			return nil
		}
		time.Sleep(pollInterval)
	}

	return &TimeoutError{text: text, timeout: timeout}
}

// Output returns the current TUI output.
func (s *TUISession) Output() string {
	return s.model.View()
}

// Model returns the underlying MainView for direct assertions.
func (s *TUISession) Model() *views.MainView {
	return s.model
}

// TimeoutError represents a timeout waiting for output.
type TimeoutError struct {
	text    string
	timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "timeout after " + e.timeout.String() + " waiting for: " + e.text
}

// parseKeyMsg converts key string to tea.KeyMsg.
func parseKeyMsg(key string) tea.KeyMsg {
	switch strings.ToLower(key) {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc", "escape":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}
