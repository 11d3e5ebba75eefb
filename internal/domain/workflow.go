package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mouse-blink/refit/internal/adapter"
	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

// Workflow is the per-file pipeline: discover, analyze, improve. Every
// per-file error is folded into the FileResult so one bad file never
// takes down a batch.
type Workflow interface {
	DiscoverSources(ctx context.Context, roots []m.Path) ([]m.Path, error)
	Scan(ctx context.Context, path m.Path) m.FileResult
	Analyze(ctx context.Context, path m.Path) m.FileResult
	Improve(ctx context.Context, path m.Path) m.FileResult
	History(ctx context.Context, path m.Path, limit int) ([]m.ImprovementRecord, error)
}

type workflow struct {
	fsAdapter  adapter.SourceFSAdapter
	parser     adapter.PythonFileAdapter
	metrics    MetricEngine
	detector   PatternDetector
	classifier FixClassifier
	rewriter   TreeRewriter
	gate       SafetyGate
	ledger     adapter.LedgerStore
	advisor    adapter.AdvisorClient
	cfg        *config.Config
	log        *slog.Logger
}

// WorkflowDeps bundles the adapters a workflow runs on. Ledger and
// Advisor may be nil; the corresponding steps are skipped.
type WorkflowDeps struct {
	FS         adapter.SourceFSAdapter
	Parser     adapter.PythonFileAdapter
	TestRunner adapter.TestRunnerAdapter
	Ledger     adapter.LedgerStore
	Advisor    adapter.AdvisorClient
	Logger     *slog.Logger
}

// NewWorkflow wires the domain services around the provided adapters.
func NewWorkflow(deps WorkflowDeps, cfg *config.Config) Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := NewMetricEngine()

	return &workflow{
		fsAdapter:  deps.FS,
		parser:     deps.Parser,
		metrics:    metrics,
		detector:   NewPatternDetector(cfg.Analysis),
		classifier: NewFixClassifier(),
		rewriter:   NewTreeRewriter(deps.Parser),
		gate:       NewSafetyGate(deps.FS, deps.Parser, deps.TestRunner, metrics, cfg.Analysis, cfg.Safety),
		ledger:     deps.Ledger,
		advisor:    deps.Advisor,
		cfg:        cfg,
		log:        logger,
	}
}

// DiscoverSources expands the roots into analyzable Python files.
func (w *workflow) DiscoverSources(_ context.Context, roots []m.Path) ([]m.Path, error) {
	if len(roots) == 0 {
		return nil, nil
	}

	return w.fsAdapter.Discover(roots, w.cfg.Batch.Exclude)
}

// Scan runs parse, measure and detect only. Batch scoring uses it so
// prioritization never leaves local I/O.
func (w *workflow) Scan(_ context.Context, path m.Path) m.FileResult {
	result, _, _ := w.analyze(path)

	return result
}

// Analyze runs the read-only half of the pipeline.
func (w *workflow) Analyze(ctx context.Context, path m.Path) m.FileResult {
	result, unit, _ := w.analyze(path)
	if unit == nil {
		return result
	}

	_, external := w.classifier.Classify(result.Findings)
	result.External = external
	result.Suggestions = w.suggest(ctx, unit, external)

	return result
}

// Improve runs the full pass: analyze, apply mechanical fixes behind a
// backup, post-check, then commit or roll back.
func (w *workflow) Improve(ctx context.Context, path m.Path) m.FileResult {
	result, unit, baseline := w.analyze(path)
	if unit == nil {
		return result
	}

	fixes, external := w.classifier.Classify(result.Findings)
	result.External = external

	// Files carrying unsafe calls are never auto-committed, even when
	// the individual fixes would be harmless.
	if hasUnsafeCalls(result.Findings) {
		w.log.Warn("skipping fixes", "path", path, "reason", "file contains unsafe calls")
		result.Issues = append(result.Issues, "file contains unsafe calls; fixes skipped")
		result.State = m.StateUnchanged
		result.Suggestions = w.suggest(ctx, unit, external)

		return result
	}

	if len(fixes) > w.cfg.Safety.MaxChangesPerFile {
		w.log.Debug("capping fixes", "path", path, "total", len(fixes), "cap", w.cfg.Safety.MaxChangesPerFile)
		fixes = fixes[:w.cfg.Safety.MaxChangesPerFile]
	}

	if len(fixes) == 0 {
		result.State = m.StateUnchanged
		result.Suggestions = w.suggest(ctx, unit, external)

		return result
	}

	original := unit.Tree

	backup, err := w.fsAdapter.CreateBackup(path, m.Path(w.cfg.Safety.BackupDir))
	if err != nil {
		result.State = m.StateFailed
		result.Err = fmt.Errorf("creating backup: %w", err)

		return result
	}

	records := w.applyFixes(unit, fixes, &result)
	if len(result.Applied) == 0 {
		result.State = m.StateUnchanged
		result.Suggestions = w.suggest(ctx, unit, external)

		return result
	}

	result.State = m.StateFixed

	if err := w.fsAdapter.WriteFile(path, unit.Text, unit.Mode.Perm()); err != nil {
		result.State = m.StateFailed
		result.Err = fmt.Errorf("writing %s: %w", path, err)

		return result
	}

	w.postCheck(ctx, unit, original, baseline, backup, &result)

	if result.State == m.StateCommitted {
		w.record(ctx, records)
		result.Suggestions = w.suggest(ctx, unit, external)
	}

	return result
}

// History reads the improvement ledger for one file.
func (w *workflow) History(ctx context.Context, path m.Path, limit int) ([]m.ImprovementRecord, error) {
	if w.ledger == nil {
		return nil, nil
	}

	return w.ledger.History(ctx, path, limit)
}

// analyze is the shared front half: pre-check, parse, measure, detect.
// A nil unit means the file cannot proceed and result is final.
func (w *workflow) analyze(path m.Path) (m.FileResult, *m.SourceUnit, m.Measurements) {
	result := m.FileResult{Path: path, State: m.StateDiscovered}

	preFindings, err := w.gate.PreCheck(path)
	if err != nil {
		result.State = m.StateUnsafe
		result.Err = err

		return result, nil, nil
	}

	content, err := w.fsAdapter.ReadFile(path)
	if err != nil {
		result.State = m.StateFailed
		result.Err = err

		return result, nil, nil
	}

	info, err := w.fsAdapter.FileInfo(path)
	if err != nil {
		result.State = m.StateFailed
		result.Err = err

		return result, nil, nil
	}

	tree, err := w.parser.Parse(path, content)
	if err != nil {
		result.State = m.StateFailed
		result.Err = err

		return result, nil, nil
	}

	unit := &m.SourceUnit{
		Path: path,
		Text: content,
		Mode: info.Mode(),
		Tree: tree,
	}

	measurements, metricErrs := w.metrics.Measure(tree)
	for _, merr := range metricErrs {
		result.Issues = append(result.Issues, merr.Error())
	}

	unit.Findings = w.detector.Detect(unit, measurements)
	result.Findings = append(preFindings, unit.Findings...)
	result.State = m.StateAnalyzed

	return result, unit, measurements
}

// applyFixes applies each fix in finding order, collecting rejections
// instead of stopping. The returned records capture before/after
// snippets for the ledger.
func (w *workflow) applyFixes(unit *m.SourceUnit, fixes []m.Fix, result *m.FileResult) []m.ImprovementRecord {
	var records []m.ImprovementRecord

	for _, fix := range fixes {
		var before string
		if node := unit.Tree.FindByID(fix.Unit); node != nil {
			before = unit.Snippet(node.Span)
		}

		applied, err := w.rewriter.Apply(unit, fix)
		if err != nil {
			var rejected *m.FixRejectedError
			if errors.As(err, &rejected) {
				w.log.Debug("fix rejected", "path", unit.Path, "fix", fix.Kind, "reason", rejected.Reason)
				result.Rejected = append(result.Rejected, fix)

				continue
			}

			result.Err = err

			continue
		}

		result.Applied = append(result.Applied, applied)

		after := ""
		if node := unit.Tree.FindByID(fix.Unit); node != nil {
			after = unit.Snippet(node.Span)
		}

		records = append(records, m.ImprovementRecord{
			Path:        unit.Path,
			Kind:        fix.Kind,
			Original:    before,
			New:         after,
			Description: applied.Description,
		})
	}

	return records
}

// postCheck decides commit or rollback and updates the result state.
// Any post-check error restores the backup: a gate that could not run
// to completion never passed, and a written file may only end up
// committed or rolled back.
func (w *workflow) postCheck(ctx context.Context, unit *m.SourceUnit, original *m.Node, baseline m.Measurements, backup m.Backup, result *m.FileResult) {
	testPath, _ := w.fsAdapter.DetectTestFile(unit.Path)

	issues, err := w.gate.PostCheck(ctx, unit, original, baseline, testPath)
	result.Issues = append(result.Issues, issues...)

	if err == nil {
		result.State = m.StateCommitted

		return
	}

	var violation *m.SafetyViolationError
	if errors.As(err, &violation) {
		w.log.Warn("rolling back", "path", unit.Path, "issues", violation.Issues)
		result.Issues = append(result.Issues, violation.Issues...)
	} else {
		w.log.Warn("rolling back", "path", unit.Path, "error", err)
		result.Err = err
	}

	if restoreErr := w.fsAdapter.Restore(backup); restoreErr != nil {
		result.State = m.StateFailed
		result.Err = restoreErr

		return
	}

	result.State = m.StateRolledBack
}

func hasUnsafeCalls(findings []m.Finding) bool {
	for _, finding := range findings {
		if finding.Kind == m.FindingUnsafeCall {
			return true
		}
	}

	return false
}

func (w *workflow) record(ctx context.Context, records []m.ImprovementRecord) {
	if w.ledger == nil {
		return
	}

	for _, rec := range records {
		if err := w.ledger.Record(ctx, rec); err != nil {
			w.log.Warn("ledger write failed", "path", rec.Path, "error", err)
		}
	}
}

// suggest asks the advisor about units whose findings have no
// mechanical fix. Advisor failures degrade to no suggestions.
func (w *workflow) suggest(ctx context.Context, unit *m.SourceUnit, external []m.Finding) []m.Suggestion {
	if w.advisor == nil || len(external) == 0 {
		return nil
	}

	byUnit := make(map[string][]m.Finding)

	var order []string

	for _, finding := range external {
		if finding.Unit == "" {
			continue
		}

		if _, seen := byUnit[finding.Unit]; !seen {
			order = append(order, finding.Unit)
		}

		byUnit[finding.Unit] = append(byUnit[finding.Unit], finding)
	}

	var suggestions []m.Suggestion

	for _, id := range order {
		node := unit.Tree.FindByID(id)
		if node == nil {
			continue
		}

		suggestion, err := w.advisor.Suggest(ctx, id, unit.Snippet(node.Span), byUnit[id])
		if err != nil {
			w.log.Debug("advisor unavailable", "unit", id, "error", err)

			continue
		}

		suggestions = append(suggestions, suggestion)
	}

	return suggestions
}
