package adapter

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/refit/internal/model"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)

	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

// initRepo builds a checkout with committed Python files that have
// uncommitted changes on top.
func initRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	repo := t.TempDir()
	runGit(t, repo, "init", "--quiet")

	pkg := filepath.Join(repo, "pkg")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "mod.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "top.py"), []byte("y = 1\n"), 0o644))

	runGit(t, repo, "add", "-A")
	runGit(t, repo, "commit", "--quiet", "-m", "initial")

	require.NoError(t, os.WriteFile(filepath.Join(pkg, "mod.py"), []byte("x = 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "top.py"), []byte("y = 2\n"), 0o644))

	return repo
}

func TestModifiedPythonFiles_NonRepoYieldsNothing(t *testing.T) {
	files, err := NewLocalGitAdapter().ModifiedPythonFiles(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestModifiedPythonFiles_RepoRoot(t *testing.T) {
	repo := initRepo(t)

	files, err := NewLocalGitAdapter().ModifiedPythonFiles(context.Background(), repo)

	require.NoError(t, err)
	assert.ElementsMatch(t, []m.Path{
		m.Path(filepath.Join(repo, "pkg", "mod.py")),
		m.Path(filepath.Join(repo, "top.py")),
	}, files)
}

func TestModifiedPythonFiles_Subdirectory(t *testing.T) {
	repo := initRepo(t)

	files, err := NewLocalGitAdapter().ModifiedPythonFiles(context.Background(), filepath.Join(repo, "pkg"))

	require.NoError(t, err)
	assert.Equal(t, []m.Path{m.Path(filepath.Join(repo, "pkg", "mod.py"))}, files)
}
