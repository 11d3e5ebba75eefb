package domain

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/refit/internal/adapter"
	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

const (
	priorityGitModified = 10
	priorityDirFirst    = 5
	priorityDefault     = 1
)

// ProgressFunc receives one notification per finished file.
type ProgressFunc func(done, total int, path m.Path, state m.FileState)

// BatchOrchestrator runs the per-file workflow over a prioritized
// batch with a bounded worker pool. Results come back in batch order
// regardless of which worker finished first.
type BatchOrchestrator interface {
	Run(ctx context.Context, roots []m.Path, improve bool, progress ProgressFunc) ([]m.FileResult, error)
}

type orchestrator struct {
	workflow  Workflow
	fsAdapter adapter.SourceFSAdapter
	git       adapter.GitAdapter
	cfg       config.BatchConfig
	log       *slog.Logger
}

// NewBatchOrchestrator constructs an orchestrator over the given
// workflow. The git adapter may be nil, dropping git prioritisation.
func NewBatchOrchestrator(
	workflow Workflow,
	fsAdapter adapter.SourceFSAdapter,
	git adapter.GitAdapter,
	cfg config.BatchConfig,
	logger *slog.Logger,
) BatchOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &orchestrator{
		workflow:  workflow,
		fsAdapter: fsAdapter,
		git:       git,
		cfg:       cfg,
		log:       logger,
	}
}

type batchEntry struct {
	path     m.Path
	priority int
	score    int
}

func (o *orchestrator) Run(ctx context.Context, roots []m.Path, improve bool, progress ProgressFunc) ([]m.FileResult, error) {
	paths, err := o.workflow.DiscoverSources(ctx, roots)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, nil
	}

	entries, err := o.prioritize(ctx, roots, paths)
	if err != nil {
		return nil, err
	}

	if o.cfg.MaxFiles > 0 && len(entries) > o.cfg.MaxFiles {
		entries = entries[:o.cfg.MaxFiles]
	}

	o.log.Info("batch start", "files", len(entries), "workers", o.workers())

	return o.process(ctx, entries, improve, progress), nil
}

// prioritize assigns each file its priority class and secondary score,
// then orders the batch descending. The sort is stable over discovery
// order so equal files keep a deterministic sequence.
func (o *orchestrator) prioritize(ctx context.Context, roots []m.Path, paths []m.Path) ([]batchEntry, error) {
	modified := o.modifiedSet(ctx, roots)

	scores, err := o.scoreFiles(ctx, paths)
	if err != nil {
		return nil, err
	}

	entries := make([]batchEntry, 0, len(paths))
	seenDir := make(map[string]struct{})

	for i, path := range paths {
		priority := priorityDefault

		dir := filepath.Dir(string(path))
		if _, seen := seenDir[dir]; !seen {
			seenDir[dir] = struct{}{}
			priority = priorityDirFirst
		}

		if _, ok := modified[path]; ok {
			priority = priorityGitModified
		}

		entries = append(entries, batchEntry{
			path:     path,
			priority: priority,
			score:    scores[i],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}

		return entries[i].score > entries[j].score
	})

	return entries, nil
}

func (o *orchestrator) modifiedSet(ctx context.Context, roots []m.Path) map[m.Path]struct{} {
	modified := make(map[m.Path]struct{})

	if o.git == nil || !o.cfg.GitPriority {
		return modified
	}

	for _, root := range roots {
		dir := strings.TrimSuffix(string(root), "/...")
		if info, err := o.fsAdapter.FileInfo(m.Path(dir)); err != nil || !info.IsDir() {
			dir = filepath.Dir(dir)
		}

		files, err := o.git.ModifiedPythonFiles(ctx, dir)
		if err != nil {
			continue
		}

		for _, file := range files {
			modified[file] = struct{}{}
		}
	}

	return modified
}

// scoreFiles computes the secondary ordering metric. Size comes from a
// stat; complexity and issue counts come from a scan pass, run through
// a bounded group. Scoring stays on local I/O, so the advisor is never
// consulted here.
func (o *orchestrator) scoreFiles(ctx context.Context, paths []m.Path) ([]int, error) {
	scores := make([]int, len(paths))

	if o.cfg.PriorityBy == "size" {
		for i, path := range paths {
			if info, err := o.fsAdapter.FileInfo(path); err == nil {
				scores[i] = int(info.Size())
			}
		}

		return scores, nil
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(o.workers())

	for i, path := range paths {
		grp.Go(func() error {
			result := o.workflow.Scan(grpCtx, path)

			switch o.cfg.PriorityBy {
			case "complexity":
				scores[i] = totalComplexity(result.Findings)
			default:
				scores[i] = len(result.Findings)
			}

			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return scores, nil
}

// totalComplexity counts the functions flagged over the complexity
// threshold.
func totalComplexity(findings []m.Finding) int {
	total := 0

	for _, finding := range findings {
		if finding.Kind == m.FindingComplexFunction {
			total++
		}
	}

	return total
}

type batchJob struct {
	idx   int
	entry batchEntry
}

type batchResult struct {
	idx    int
	result m.FileResult
}

// process fans the batch out over the worker pool and reassembles the
// results in batch order.
func (o *orchestrator) process(ctx context.Context, entries []batchEntry, improve bool, progress ProgressFunc) []m.FileResult {
	jobs := make(chan batchJob, len(entries))
	resultsChan := make(chan batchResult, len(entries))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	for range o.workers() {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for job := range jobs {
				var result m.FileResult
				if improve {
					result = o.workflow.Improve(ctx, job.entry.path)
				} else {
					result = o.workflow.Analyze(ctx, job.entry.path)
				}

				resultsChan <- batchResult{idx: job.idx, result: result}

				if progress != nil {
					mu.Lock()
					done++
					progress(done, len(entries), result.Path, result.State)
					mu.Unlock()
				}
			}
		}()
	}

	for i, entry := range entries {
		jobs <- batchJob{idx: i, entry: entry}
	}

	close(jobs)

	wg.Wait()
	close(resultsChan)

	results := make([]m.FileResult, len(entries))
	for res := range resultsChan {
		results[res.idx] = res.result
	}

	return results
}

func (o *orchestrator) workers() int {
	if o.cfg.Workers <= 0 {
		return 1
	}

	return o.cfg.Workers
}
