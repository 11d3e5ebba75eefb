// Package adapter contains the infrastructure adapters for the refit CLI.
package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	m "github.com/mouse-blink/refit/internal/model"
)

const pythonFileExt = ".py"

// SourceFSAdapter abstracts filesystem-specific operations that the
// domain layer relies on when scanning and rewriting user projects. It
// intentionally hides direct os access so the workflow logic can be
// tested without touching the disk.
//
//nolint:interfacebloat // A richer interface keeps workflow logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Discover collects Python source files under the provided roots.
	// A root ending in /... is scanned recursively; exclude patterns
	// use doublestar syntax against slash-separated paths.
	Discover(roots []m.Path, exclude []string) ([]m.Path, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFile writes content to a file with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// FileInfo returns metadata for a path so the domain can check
	// existence, size and permissions.
	FileInfo(path m.Path) (os.FileInfo, error)

	// DetectTestFile attempts to find a pytest file that matches the
	// provided source file, so source/test pairs auto-link.
	DetectTestFile(sourcePath m.Path) (m.Path, error)

	// CreateBackup snapshots path into dir before the first mutating
	// fix of a pass. The snapshot records permissions and a checksum.
	CreateBackup(path m.Path, dir m.Path) (m.Backup, error)

	// Restore writes the snapshot back bit-for-bit, verifying its
	// checksum first.
	Restore(backup m.Backup) error

	// WorldWritable reports whether the file mode allows writes by
	// anyone. Advisory only; refit never corrects permissions.
	WorldWritable(path m.Path) (bool, error)
}

// LocalSourceFSAdapter is the concrete implementation backed by the
// local filesystem.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance
// ready to be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Discover walks the roots, deduplicates, and filters out excluded and
// non-Python paths. Order follows the filesystem walk, which is
// deterministic, so discovery order can break priority ties stably.
func (a *LocalSourceFSAdapter) Discover(roots []m.Path, exclude []string) ([]m.Path, error) {
	seen := make(map[string]struct{})

	var sources []m.Path

	for _, root := range roots {
		rootStr, recursive := parseRootPath(string(root))

		info, err := os.Stat(rootStr)
		if err != nil {
			return nil, fmt.Errorf("root path error: %w", err)
		}

		if !info.IsDir() {
			if includePath(rootStr, exclude) {
				addPath(&sources, seen, rootStr)
			}

			continue
		}

		err = filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if !recursive && path != rootStr {
					return filepath.SkipDir
				}

				return nil
			}

			if includePath(path, exclude) {
				addPath(&sources, seen, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return sources, nil
}

func parseRootPath(rootStr string) (path string, recursive bool) {
	if strings.HasSuffix(rootStr, "/...") {
		return strings.TrimSuffix(rootStr, "/..."), true
	}

	return rootStr, false
}

func includePath(path string, exclude []string) bool {
	if filepath.Ext(path) != pythonFileExt {
		return false
	}

	slashed := filepath.ToSlash(path)
	for _, pattern := range exclude {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return false
		}
	}

	return true
}

func addPath(sources *[]m.Path, seen map[string]struct{}, path string) {
	if _, exists := seen[path]; exists {
		return
	}

	seen[path] = struct{}{}
	*sources = append(*sources, m.Path(path))
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	return os.WriteFile(string(path), content, perm)
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// DetectTestFile finds the companion pytest file for the provided
// source path: test_<name>.py next to the file or under a sibling
// tests/ directory.
func (a *LocalSourceFSAdapter) DetectTestFile(sourcePath m.Path) (m.Path, error) {
	source := string(sourcePath)
	base := filepath.Base(source)

	if filepath.Ext(source) != pythonFileExt || strings.HasPrefix(base, "test_") {
		return "", nil
	}

	dir := filepath.Dir(source)
	candidates := []string{
		filepath.Join(dir, "test_"+base),
		filepath.Join(dir, "tests", "test_"+base),
		filepath.Join(filepath.Dir(dir), "tests", "test_"+base),
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return m.Path(candidate), nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return "", nil
}

// CreateBackup snapshots the file into dir. The snapshot name embeds a
// fresh id so repeated passes never overwrite an earlier backup.
func (a *LocalSourceFSAdapter) CreateBackup(path m.Path, dir m.Path) (m.Backup, error) {
	content, err := os.ReadFile(string(path))
	if err != nil {
		return m.Backup{}, fmt.Errorf("reading %s for backup: %w", path, err)
	}

	info, err := os.Stat(string(path))
	if err != nil {
		return m.Backup{}, fmt.Errorf("stat %s for backup: %w", path, err)
	}

	if err := os.MkdirAll(string(dir), 0o755); err != nil {
		return m.Backup{}, fmt.Errorf("creating backup dir: %w", err)
	}

	id := uuid.NewString()
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(string(path)), id[:8])
	location := filepath.Join(string(dir), name)

	if err := os.WriteFile(location, content, 0o600); err != nil {
		return m.Backup{}, fmt.Errorf("writing backup %s: %w", location, err)
	}

	return m.Backup{
		ID:        id,
		Origin:    path,
		Location:  m.Path(location),
		Mode:      info.Mode(),
		Checksum:  xxhash.Sum64(content),
		CreatedAt: time.Now(),
	}, nil
}

// Restore writes the snapshot back over the origin, verifying the
// recorded checksum so a corrupt or missing snapshot surfaces as a
// BackupIntegrityError instead of a silent bad restore.
func (a *LocalSourceFSAdapter) Restore(backup m.Backup) error {
	content, err := os.ReadFile(string(backup.Location))
	if err != nil {
		return &m.BackupIntegrityError{
			Origin:   backup.Origin,
			Location: backup.Location,
			Reason:   err.Error(),
		}
	}

	if xxhash.Sum64(content) != backup.Checksum {
		return &m.BackupIntegrityError{
			Origin:   backup.Origin,
			Location: backup.Location,
			Reason:   "checksum mismatch",
		}
	}

	if err := os.WriteFile(string(backup.Origin), content, backup.Mode.Perm()); err != nil {
		return fmt.Errorf("restoring %s: %w", backup.Origin, err)
	}

	return nil
}

// WorldWritable reports whether anyone may write the file.
func (a *LocalSourceFSAdapter) WorldWritable(path m.Path) (bool, error) {
	info, err := os.Stat(string(path))
	if err != nil {
		return false, err
	}

	return info.Mode().Perm()&0o002 != 0, nil
}
