package harness

import (
	"bytes"
	"context"
	"time"

	"github.com/artpar/staykeep/internal/cli"
)

// CLIResult holds CLI execution results.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CLIRunner executes CLI commands against the harness data directory.
type CLIRunner struct {
	harness *E2EHarness
}

// Run executes a CLI command with the given arguments.
func (r *CLIRunner) Run(args ...string) (*CLIResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.harness.timeout)
	defer cancel()

	start := time.Now()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := cli.NewRootCommand("test")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append(append([]string{}, r.harness.args...), args...))

	err := cmd.ExecuteContext(ctx)

	result := &CLIResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		result.ExitCode = 1
	}

	return result, err
}

// MustRun runs a command and fails the test on error.
func (r *CLIRunner) MustRun(args ...string) *CLIResult {
	r.harness.t.Helper()
	result, err := r.Run(args...)
	if err != nil {
		r.harness.t.Fatalf("staykeep %v failed: %v\nstdout:\n%s", args, err, result.Stdout)
	}
	return result
}

// AddFavorite is a convenience method for fav add.
func (r *CLIRunner) AddFavorite(id, name, location string) *CLIResult {
	r.harness.t.Helper()
	return r.MustRun("fav", "add", id, name, "--location", location)
}

// Login is a convenience method for the login command.
func (r *CLIRunner) Login(userID string) *CLIResult {
	r.harness.t.Helper()
	return r.MustRun("login", userID)
}

// Logout is a convenience method for the logout command.
func (r *CLIRunner) Logout() *CLIResult {
	r.harness.t.Helper()
	return r.MustRun("logout")
}
