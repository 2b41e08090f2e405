package harness

import (
	"strings"
	"testing"
)

// Assertions provides E2E-specific assertions.
type Assertions struct {
	t *testing.T
}

// NewAssertions creates an assertions helper.
func NewAssertions(t *testing.T) *Assertions {
	return &Assertions{t: t}
}

// OutputContains asserts the output contains all given strings.
func (a *Assertions) OutputContains(output string, expected ...string) {
	a.t.Helper()
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			a.t.Errorf("expected output to contain %q, got:\n%s", exp, truncate(output, 500))
		}
	}
}

// OutputNotContains asserts the output does not contain any of the given strings.
func (a *Assertions) OutputNotContains(output string, unexpected ...string) {
	a.t.Helper()
	for _, unexp := range unexpected {
		if strings.Contains(output, unexp) {
			a.t.Errorf("expected output NOT to contain %q, got:\n%s", unexp, truncate(output, 500))
		}
	}
}

// LocalMode asserts the status bar shows Local mode.
func (a *Assertions) LocalMode(output string) {
	a.t.Helper()
	if !strings.Contains(output, "LOCAL") {
		a.t.Errorf("expected LOCAL mode in status bar:\n%s", truncate(output, 500))
	}
}

// RemoteMode asserts the status bar shows Remote mode for userID.
func (a *Assertions) RemoteMode(output, userID string) {
	a.t.Helper()
	if !strings.Contains(output, "REMOTE "+userID) {
		a.t.Errorf("expected REMOTE %s in status bar:\n%s", userID, truncate(output, 500))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
