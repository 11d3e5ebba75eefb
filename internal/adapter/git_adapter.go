package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	m "github.com/mouse-blink/refit/internal/model"
)

// GitAdapter exposes the version-control queries the orchestrator needs
// for prioritisation. Errors are intentionally soft: a directory that
// is not a git checkout simply yields no modified files.
type GitAdapter interface {
	ModifiedPythonFiles(ctx context.Context, dir string) ([]m.Path, error)
}

// LocalGitAdapter shells out to the git binary.
type LocalGitAdapter struct{}

// NewLocalGitAdapter constructs a LocalGitAdapter.
func NewLocalGitAdapter() *LocalGitAdapter {
	return &LocalGitAdapter{}
}

// ModifiedPythonFiles lists uncommitted Python files under dir, which
// may be any directory inside the checkout. --relative keeps the
// reported paths relative to dir, so joining them back yields paths
// that compare directly with discovery output.
func (a *LocalGitAdapter) ModifiedPythonFiles(ctx context.Context, dir string) ([]m.Path, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", "--relative", "HEAD")
	cmd.Dir = dir

	var out bytes.Buffer

	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		// Not a repo, or git missing. Prioritisation degrades gracefully.
		return nil, nil
	}

	var modified []m.Path

	for _, line := range strings.Split(out.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || filepath.Ext(line) != pythonFileExt {
			continue
		}

		abs, err := filepath.Abs(filepath.Join(dir, line))
		if err != nil {
			continue
		}

		modified = append(modified, m.Path(abs))
	}

	return modified, nil
}
