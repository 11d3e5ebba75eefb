package domain

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/refit/internal/adapter"
	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

// SafetyGate brackets every rewrite pass. The pre-check decides whether
// a file may be touched at all; the post-check decides whether the
// rewritten file is committed or rolled back.
type SafetyGate interface {
	// PreCheck validates the file before analysis. The returned
	// findings are advisory; a non-nil error means the file must be
	// skipped.
	PreCheck(path m.Path) ([]m.Finding, error)

	// PostCheck validates the rewritten text against the pre-rewrite
	// tree and measurements. A SafetyViolationError demands rollback;
	// other issues are advisory and travel with the result.
	PostCheck(ctx context.Context, unit *m.SourceUnit, original *m.Node, baseline m.Measurements, testPath m.Path) ([]string, error)
}

type safetyGate struct {
	fsAdapter  adapter.SourceFSAdapter
	parser     adapter.PythonFileAdapter
	testRunner adapter.TestRunnerAdapter
	metrics    MetricEngine
	analysis   config.AnalysisConfig
	safety     config.SafetyConfig
}

// NewSafetyGate constructs a gate over the provided adapters.
func NewSafetyGate(
	fsAdapter adapter.SourceFSAdapter,
	parser adapter.PythonFileAdapter,
	testRunner adapter.TestRunnerAdapter,
	metrics MetricEngine,
	analysis config.AnalysisConfig,
	safety config.SafetyConfig,
) SafetyGate {
	return &safetyGate{
		fsAdapter:  fsAdapter,
		parser:     parser,
		testRunner: testRunner,
		metrics:    metrics,
		analysis:   analysis,
		safety:     safety,
	}
}

func (g *safetyGate) PreCheck(path m.Path) ([]m.Finding, error) {
	info, err := g.fsAdapter.FileInfo(path)
	if err != nil {
		return nil, fmt.Errorf("file not accessible: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}

	if info.Size() > g.analysis.MaxFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes: %s", g.analysis.MaxFileSize, path)
	}

	var findings []m.Finding

	if writable, err := g.fsAdapter.WorldWritable(path); err == nil && writable {
		findings = append(findings, m.Finding{
			Kind:    m.FindingInsecurePerm,
			Line:    1,
			Message: "file is world-writable",
		})
	}

	return findings, nil
}

// PostCheck runs the structural, metric and test checks concurrently.
// The structural check and the test run are hard gates; a complexity
// regression is only reported.
func (g *safetyGate) PostCheck(ctx context.Context, unit *m.SourceUnit, original *m.Node, baseline m.Measurements, testPath m.Path) ([]string, error) {
	var (
		mu         sync.Mutex
		issues     []string
		violations []string
	)

	addIssue := func(s string) {
		mu.Lock()
		issues = append(issues, s)
		mu.Unlock()
	}

	addViolation := func(s string) {
		mu.Lock()
		violations = append(violations, s)
		mu.Unlock()
	}

	grp, grpCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		tree, err := g.parser.Parse(unit.Path, unit.Text)
		if err != nil {
			addViolation(fmt.Sprintf("rewritten file no longer parses: %v", err))

			return nil
		}

		for _, call := range newUnsafeCalls(original, tree) {
			addViolation(fmt.Sprintf("rewrite introduced call to %s at line %d", call.Target, call.Line))
		}

		current, _ := g.metrics.Measure(tree)

		for id, set := range current {
			before, ok := baseline[id]
			if !ok {
				continue
			}

			if set[m.MetricComplexity] > before[m.MetricComplexity] {
				addIssue(fmt.Sprintf("complexity of %s rose from %d to %d",
					id, before[m.MetricComplexity], set[m.MetricComplexity]))
			}
		}

		return nil
	})

	if g.safety.RunTests && testPath != "" {
		grp.Go(func() error {
			result, err := g.testRunner.Run(grpCtx, testPath, g.safety.TestTimeout)
			if err != nil {
				return fmt.Errorf("running tests: %w", err)
			}

			if result.TimedOut {
				addViolation("test run timed out")
			} else if !result.Passed {
				addViolation("tests failed after rewrite")
			}

			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return issues, err
	}

	if len(violations) > 0 {
		return issues, &m.SafetyViolationError{Path: unit.Path, Issues: violations}
	}

	return issues, nil
}

// newUnsafeCalls lists unsafe call sites present in the rewritten tree
// but absent from the original one.
func newUnsafeCalls(before, after *m.Node) []m.CallSite {
	baseline := make(map[string]int)

	collectUnsafe(before, func(call m.CallSite) {
		baseline[call.Target]++
	})

	var introduced []m.CallSite

	collectUnsafe(after, func(call m.CallSite) {
		if baseline[call.Target] > 0 {
			baseline[call.Target]--

			return
		}

		introduced = append(introduced, call)
	})

	return introduced
}

func collectUnsafe(tree *m.Node, fn func(m.CallSite)) {
	tree.Walk(func(node *m.Node) bool {
		for _, call := range node.Calls {
			if _, unsafe := unsafeCalls[call.Target]; unsafe {
				fn(call)
			}
		}

		return true
	})
}
