package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/refit/internal/adapter"
	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

func newTestWorkflow(t *testing.T, dir string, runner adapter.TestRunnerAdapter) (Workflow, adapter.LedgerStore) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Safety.BackupDir = filepath.Join(dir, ".backups")
	cfg.Safety.RunTests = runner != nil

	if runner == nil {
		runner = adapter.NewLocalTestRunnerAdapter()
	}

	ledger, err := adapter.NewSQLiteLedgerStore(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	workflow := NewWorkflow(WorkflowDeps{
		FS:         adapter.NewLocalSourceFSAdapter(),
		Parser:     adapter.NewLocalPythonFileAdapter(),
		TestRunner: runner,
		Ledger:     ledger,
	}, cfg)

	return workflow, ledger
}

func writeSource(t *testing.T, dir, name, content string) m.Path {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return m.Path(path)
}

func TestWorkflow_AnalyzeLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	source := "def greet(name):\n    return name\n"
	path := writeSource(t, dir, "greet.py", source)

	workflow, _ := newTestWorkflow(t, dir, nil)

	result := workflow.Analyze(context.Background(), path)

	assert.Equal(t, m.StateAnalyzed, result.State)
	assert.NotEmpty(t, result.Findings)

	content, err := os.ReadFile(string(path))
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
}

func TestWorkflow_ImproveCommitsMechanicalFixes(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "greet.py", "def greet(name):\n    return name\n")

	workflow, ledger := newTestWorkflow(t, dir, nil)

	result := workflow.Improve(context.Background(), path)

	require.NoError(t, result.Err)
	assert.Equal(t, m.StateCommitted, result.State)
	assert.Len(t, result.Applied, 3)
	assert.Empty(t, result.Rejected)

	content, err := os.ReadFile(string(path))
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, `"""Greet."""`)
	assert.Contains(t, text, "name: str")
	assert.Contains(t, text, "-> Any")
	assert.Contains(t, text, "from typing import Any")

	backups, err := filepath.Glob(filepath.Join(dir, ".backups", "*.bak"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	records, err := ledger.History(context.Background(), path, 10)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestWorkflow_ImproveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "greet.py", "def greet(name):\n    return name\n")

	workflow, _ := newTestWorkflow(t, dir, nil)

	first := workflow.Improve(context.Background(), path)
	require.Equal(t, m.StateCommitted, first.State)

	fixed, err := os.ReadFile(string(path))
	require.NoError(t, err)

	second := workflow.Improve(context.Background(), path)

	assert.Equal(t, m.StateUnchanged, second.State)
	assert.Empty(t, second.Applied)

	content, err := os.ReadFile(string(path))
	require.NoError(t, err)
	assert.Equal(t, string(fixed), string(content))
}

func TestWorkflow_ImproveSkipsFilesWithUnsafeCalls(t *testing.T) {
	dir := t.TempDir()
	source := "def run(code):\n    eval(code)\n"
	path := writeSource(t, dir, "run.py", source)

	workflow, _ := newTestWorkflow(t, dir, nil)

	result := workflow.Improve(context.Background(), path)

	assert.Equal(t, m.StateUnchanged, result.State)
	assert.Empty(t, result.Applied)
	assert.Contains(t, result.Issues, "file contains unsafe calls; fixes skipped")

	content, err := os.ReadFile(string(path))
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
}

func TestWorkflow_ImproveCleanFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	source := "\"\"\"Helpers.\"\"\"\n\n\ndef greet(name: str) -> str:\n    \"\"\"Greet someone.\"\"\"\n    return \"hi \" + name\n"
	path := writeSource(t, dir, "clean.py", source)

	workflow, _ := newTestWorkflow(t, dir, nil)

	result := workflow.Improve(context.Background(), path)

	assert.Equal(t, m.StateUnchanged, result.State)
	assert.Empty(t, result.Applied)

	content, err := os.ReadFile(string(path))
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
}

func TestWorkflow_ImproveRollsBackOnFailedTests(t *testing.T) {
	dir := t.TempDir()
	source := "def calc(value):\n    return value\n"
	path := writeSource(t, dir, "calc.py", source)
	writeSource(t, dir, "test_calc.py", "def test_calc():\n    assert True\n")

	runner := &stubTestRunner{result: adapter.TestRunResult{Passed: false}}
	workflow, _ := newTestWorkflow(t, dir, runner)

	result := workflow.Improve(context.Background(), path)

	assert.Equal(t, m.StateRolledBack, result.State)
	assert.Equal(t, 1, runner.calls)
	assert.Contains(t, result.Issues, "tests failed after rewrite")

	content, err := os.ReadFile(string(path))
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
}

func TestWorkflow_ImproveRestoresFileWhenTestRunnerErrors(t *testing.T) {
	dir := t.TempDir()
	source := "def calc(value):\n    return value\n"
	path := writeSource(t, dir, "calc.py", source)
	writeSource(t, dir, "test_calc.py", "def test_calc():\n    assert True\n")

	runner := &stubTestRunner{err: errors.New("exec: \"pytest\": executable file not found in $PATH")}
	workflow, _ := newTestWorkflow(t, dir, runner)

	result := workflow.Improve(context.Background(), path)

	assert.Equal(t, m.StateRolledBack, result.State)
	assert.Error(t, result.Err)

	content, err := os.ReadFile(string(path))
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
}

func TestWorkflow_ImproveReportsWorldWritableFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "open.py", "def greet(name):\n    return name\n")
	require.NoError(t, os.Chmod(string(path), 0o666))

	workflow, _ := newTestWorkflow(t, dir, nil)

	result := workflow.Improve(context.Background(), path)

	// The permission finding is advisory; mechanical fixes still land.
	assert.Equal(t, m.StateCommitted, result.State)
	assert.NotEmpty(t, result.Applied)

	kinds := make([]m.FindingKind, 0, len(result.Findings))
	for _, finding := range result.Findings {
		kinds = append(kinds, finding.Kind)
	}

	assert.Contains(t, kinds, m.FindingInsecurePerm)
}

func TestWorkflow_ScanSkipsClassification(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "greet.py", "def greet(name):\n    return name\n")

	workflow, _ := newTestWorkflow(t, dir, nil)

	result := workflow.Scan(context.Background(), path)

	assert.Equal(t, m.StateAnalyzed, result.State)
	assert.NotEmpty(t, result.Findings)
	assert.Empty(t, result.External)
	assert.Empty(t, result.Suggestions)
}

func TestWorkflow_ImproveSyntaxErrorFails(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "broken.py", "def broken(:\n    pass\n")

	workflow, _ := newTestWorkflow(t, dir, nil)

	result := workflow.Improve(context.Background(), path)

	assert.Equal(t, m.StateFailed, result.State)

	var parseErr *m.ParseError
	assert.ErrorAs(t, result.Err, &parseErr)
}

func TestWorkflow_ImprovePreCheckFailureIsUnsafe(t *testing.T) {
	dir := t.TempDir()

	workflow, _ := newTestWorkflow(t, dir, nil)

	result := workflow.Improve(context.Background(), m.Path(filepath.Join(dir, "gone.py")))

	assert.Equal(t, m.StateUnsafe, result.State)
	assert.Error(t, result.Err)
}

func TestWorkflow_HistoryWithoutLedger(t *testing.T) {
	cfg := config.DefaultConfig()

	workflow := NewWorkflow(WorkflowDeps{
		FS:         adapter.NewLocalSourceFSAdapter(),
		Parser:     adapter.NewLocalPythonFileAdapter(),
		TestRunner: adapter.NewLocalTestRunnerAdapter(),
	}, cfg)

	records, err := workflow.History(context.Background(), "whatever.py", 5)

	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestWorkflow_DiscoverSourcesEmptyRoots(t *testing.T) {
	workflow, _ := newTestWorkflow(t, t.TempDir(), nil)

	paths, err := workflow.DiscoverSources(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, paths)
}
