package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/refit/internal/adapter"
	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

type stubTestRunner struct {
	result adapter.TestRunResult
	err    error
	calls  int
}

func (s *stubTestRunner) Run(_ context.Context, _ m.Path, _ time.Duration) (adapter.TestRunResult, error) {
	s.calls++

	return s.result, s.err
}

func newTestGate(runner adapter.TestRunnerAdapter, safety config.SafetyConfig) SafetyGate {
	return NewSafetyGate(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewLocalPythonFileAdapter(),
		runner,
		NewMetricEngine(),
		config.DefaultConfig().Analysis,
		safety,
	)
}

func rewrittenUnit(t *testing.T, before, after string) (*m.SourceUnit, *m.Node, m.Measurements) {
	t.Helper()

	parser := adapter.NewLocalPythonFileAdapter()

	original, err := parser.Parse("test.py", []byte(before))
	require.NoError(t, err)

	baseline, errs := NewMetricEngine().Measure(original)
	require.Empty(t, errs)

	unit := &m.SourceUnit{Path: "test.py", Text: []byte(after), Tree: original}

	return unit, original, baseline
}

func TestPreCheck_MissingFile(t *testing.T) {
	gate := newTestGate(&stubTestRunner{}, config.DefaultConfig().Safety)

	_, err := gate.PreCheck(m.Path(filepath.Join(t.TempDir(), "gone.py")))

	assert.ErrorContains(t, err, "not accessible")
}

func TestPreCheck_OversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\ny = 2\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Analysis.MaxFileSize = 4

	gate := NewSafetyGate(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewLocalPythonFileAdapter(),
		&stubTestRunner{},
		NewMetricEngine(),
		cfg.Analysis,
		cfg.Safety,
	)

	_, err := gate.PreCheck(m.Path(path))

	assert.ErrorContains(t, err, "exceeds")
}

func TestPreCheck_WorldWritableIsAdvisory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o666))
	require.NoError(t, os.Chmod(path, 0o666))

	gate := newTestGate(&stubTestRunner{}, config.DefaultConfig().Safety)

	findings, err := gate.PreCheck(m.Path(path))

	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, m.FindingInsecurePerm, findings[0].Kind)
	assert.Equal(t, "file is world-writable", findings[0].Message)
}

func TestPostCheck_CleanRewrite(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def add(a, b):\n    return a + b\n",
		"def add(a, b):\n    \"\"\"Add.\"\"\"\n    return a + b\n")

	gate := newTestGate(&stubTestRunner{}, config.SafetyConfig{})

	issues, err := gate.PostCheck(context.Background(), unit, original, baseline, "")

	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestPostCheck_UnparseableTextViolates(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def add(a, b):\n    return a + b\n",
		"def add(a, b)\n    return a + b\n")

	gate := newTestGate(&stubTestRunner{}, config.SafetyConfig{})

	_, err := gate.PostCheck(context.Background(), unit, original, baseline, "")

	var violation *m.SafetyViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Issues[0], "no longer parses")
}

func TestPostCheck_IntroducedUnsafeCallViolates(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def run(code):\n    print(code)\n",
		"def run(code):\n    eval(code)\n")

	gate := newTestGate(&stubTestRunner{}, config.SafetyConfig{})

	_, err := gate.PostCheck(context.Background(), unit, original, baseline, "")

	var violation *m.SafetyViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Issues[0], "eval")
}

func TestPostCheck_PreexistingUnsafeCallAllowed(t *testing.T) {
	source := "def run(code):\n    eval(code)\n"
	unit, original, baseline := rewrittenUnit(t, source,
		"def run(code):\n    \"\"\"Run.\"\"\"\n    eval(code)\n")

	gate := newTestGate(&stubTestRunner{}, config.SafetyConfig{})

	_, err := gate.PostCheck(context.Background(), unit, original, baseline, "")

	assert.NoError(t, err)
}

func TestPostCheck_ComplexityRiseIsAdvisory(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def pick(a):\n    return a\n",
		"def pick(a):\n    if a:\n        print(a)\n    return a\n")

	gate := newTestGate(&stubTestRunner{}, config.SafetyConfig{})

	issues, err := gate.PostCheck(context.Background(), unit, original, baseline, "")

	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "complexity")
}

func TestPostCheck_FailingTestsViolate(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def add(a, b):\n    return a + b\n",
		"def add(a, b):\n    \"\"\"Add.\"\"\"\n    return a + b\n")

	runner := &stubTestRunner{result: adapter.TestRunResult{Passed: false}}
	gate := newTestGate(runner, config.SafetyConfig{RunTests: true, TestTimeout: time.Second})

	_, err := gate.PostCheck(context.Background(), unit, original, baseline, "tests/test_add.py")

	var violation *m.SafetyViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Issues, "tests failed after rewrite")
	assert.Equal(t, 1, runner.calls)
}

func TestPostCheck_RunnerErrorIsNotAViolation(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def add(a, b):\n    return a + b\n",
		"def add(a, b):\n    \"\"\"Add.\"\"\"\n    return a + b\n")

	runner := &stubTestRunner{err: errors.New("exec: \"pytest\": executable file not found in $PATH")}
	gate := newTestGate(runner, config.SafetyConfig{RunTests: true, TestTimeout: time.Second})

	_, err := gate.PostCheck(context.Background(), unit, original, baseline, "tests/test_add.py")

	require.Error(t, err)

	var violation *m.SafetyViolationError
	assert.False(t, errors.As(err, &violation))
}

func TestPostCheck_TestTimeoutViolates(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def add(a, b):\n    return a + b\n",
		"def add(a, b):\n    \"\"\"Add.\"\"\"\n    return a + b\n")

	runner := &stubTestRunner{result: adapter.TestRunResult{TimedOut: true}}
	gate := newTestGate(runner, config.SafetyConfig{RunTests: true, TestTimeout: time.Second})

	_, err := gate.PostCheck(context.Background(), unit, original, baseline, "tests/test_add.py")

	var violation *m.SafetyViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Issues, "test run timed out")
}

func TestPostCheck_SkipsTestsWithoutTestFile(t *testing.T) {
	unit, original, baseline := rewrittenUnit(t,
		"def add(a, b):\n    return a + b\n",
		"def add(a, b):\n    \"\"\"Add.\"\"\"\n    return a + b\n")

	runner := &stubTestRunner{result: adapter.TestRunResult{Passed: false}}
	gate := newTestGate(runner, config.SafetyConfig{RunTests: true, TestTimeout: time.Second})

	_, err := gate.PostCheck(context.Background(), unit, original, baseline, "")

	require.NoError(t, err)
	assert.Zero(t, runner.calls)
}
