package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Analysis.MaxFunctionLength)
	assert.Equal(t, 200, cfg.Analysis.MaxClassLength)
	assert.Equal(t, 8, cfg.Analysis.MaxComplexity)
	assert.Equal(t, 4, cfg.Analysis.MaxNestedBlocks)
	assert.Equal(t, 5, cfg.Analysis.MaxArguments)
	assert.Equal(t, int64(1_000_000), cfg.Analysis.MaxFileSize)
	assert.Equal(t, "backups", cfg.Safety.BackupDir)
	assert.Equal(t, 5, cfg.Safety.MaxChangesPerFile)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refit.yaml")

	content := `
analysis:
  max_function_length: 30
safety:
  backup_dir: /tmp/refit-backups
batch:
  workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Analysis.MaxFunctionLength)
	assert.Equal(t, "/tmp/refit-backups", cfg.Safety.BackupDir)
	assert.Equal(t, 2, cfg.Batch.Workers)

	// untouched keys keep their defaults
	assert.Equal(t, 200, cfg.Analysis.MaxClassLength)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("REFIT_TEST_BACKUP_DIR", "/var/backups")

	dir := t.TempDir()
	path := filepath.Join(dir, "refit.yaml")

	content := `
safety:
  backup_dir: ${REFIT_TEST_BACKUP_DIR}
ledger:
  path: ${REFIT_TEST_LEDGER:-ledger.db}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/backups", cfg.Safety.BackupDir)
	assert.Equal(t, "ledger.db", cfg.Ledger.Path)
}

func TestLoad_InvalidThresholdRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refit.yaml")

	content := `
analysis:
  max_complexity: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewLoader().Load(path)
	assert.Error(t, err)
}

func TestValidate_PriorityBy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.PriorityBy = "alphabetical"

	assert.Error(t, cfg.Validate())

	cfg.Batch.PriorityBy = "size"
	assert.NoError(t, cfg.Validate())
}
