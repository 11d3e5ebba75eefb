package adapter

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"

	m "github.com/mouse-blink/refit/internal/model"
)

// TestRunResult captures the outcome of a pytest invocation.
type TestRunResult struct {
	Passed   bool
	Output   string
	Duration time.Duration
	TimedOut bool
}

// TestRunnerAdapter runs the project's test suite against a file that
// was just rewritten, so the safety gate can confirm behaviour held.
type TestRunnerAdapter interface {
	Run(ctx context.Context, testPath m.Path, timeout time.Duration) (TestRunResult, error)
}

// LocalTestRunnerAdapter shells out to pytest on the local machine.
type LocalTestRunnerAdapter struct {
	command string
}

// NewLocalTestRunnerAdapter constructs a pytest-backed runner.
func NewLocalTestRunnerAdapter() *LocalTestRunnerAdapter {
	return &LocalTestRunnerAdapter{command: "pytest"}
}

// Run executes pytest for the given test file. A run that exceeds the
// timeout is retried once at half the timeout; tests that legitimately
// need longer are treated as a failed check rather than blocking the
// batch.
func (a *LocalTestRunnerAdapter) Run(ctx context.Context, testPath m.Path, timeout time.Duration) (TestRunResult, error) {
	result, err := a.runOnce(ctx, testPath, timeout)
	if err != nil {
		return result, err
	}

	if result.TimedOut {
		return a.runOnce(ctx, testPath, timeout/2)
	}

	return result, nil
}

func (a *LocalTestRunnerAdapter) runOnce(ctx context.Context, testPath m.Path, timeout time.Duration) (TestRunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	//nolint:gosec // testPath comes from discovery, not user-controlled strings.
	cmd := exec.CommandContext(runCtx, a.command, "-x", "-q", filepath.Base(string(testPath)))
	cmd.Dir = filepath.Dir(string(testPath))

	var out bytes.Buffer

	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	result := TestRunResult{
		Passed:   err == nil,
		Output:   out.String(),
		Duration: time.Since(start),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Passed = false
		result.TimedOut = true

		return result, nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, err
	}

	return result, nil
}
