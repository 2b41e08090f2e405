// Package harness provides E2E testing utilities for staykeep.
package harness

import (
	"testing"
	"time"
)

// E2EHarness is the main test orchestrator. Every runner it hands out
// shares one data directory, so CLI and TUI steps see the same state.
type E2EHarness struct {
	t       *testing.T
	dataDir string
	timeout time.Duration
	args    []string
}

// Config configures the harness.
type Config struct {
	Timeout time.Duration // Default: 5 seconds
	// Storage and Remote select drivers; empty means the configured default.
	Storage string
	Remote  string
}

// New creates a new E2E harness.
func New(t *testing.T, cfg Config) *E2EHarness {
	t.Helper()

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	h := &E2EHarness{
		t:       t,
		dataDir: t.TempDir(),
		timeout: cfg.Timeout,
	}
	h.args = []string{"--data-dir", h.dataDir, "--log-level", "error"}
	if cfg.Storage != "" {
		h.args = append(h.args, "--storage", cfg.Storage)
	}
	if cfg.Remote != "" {
		h.args = append(h.args, "--remote", cfg.Remote)
	}
	return h
}

// DataDir returns the data directory path.
func (h *E2EHarness) DataDir() string {
	return h.dataDir
}

// Timeout returns the configured timeout.
func (h *E2EHarness) Timeout() time.Duration {
	return h.timeout
}

// T returns the testing.T instance.
func (h *E2EHarness) T() *testing.T {
	return h.t
}

// CLI returns a CLI runner for this harness.
func (h *E2EHarness) CLI() *CLIRunner {
	return &CLIRunner{harness: h}
}

// TUI returns a TUI runner for this harness.
func (h *E2EHarness) TUI() *TUIRunner {
	return &TUIRunner{harness: h}
}
