// Package config holds the YAML-backed configuration for refit.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Safety   SafetyConfig   `yaml:"safety"`
	Batch    BatchConfig    `yaml:"batch"`
	Advisor  AdvisorConfig  `yaml:"advisor"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AnalysisConfig contains the detector thresholds. Every threshold is
// required; the detector itself carries no policy.
type AnalysisConfig struct {
	MaxFileSize       int64 `yaml:"max_file_size"`
	MaxFunctionLength int   `yaml:"max_function_length"`
	MaxClassLength    int   `yaml:"max_class_length"`
	MaxClassMethods   int   `yaml:"max_class_methods"`
	MaxAttributes     int   `yaml:"max_attributes"`
	MaxComplexity     int   `yaml:"max_complexity"`
	MaxNestedBlocks   int   `yaml:"max_nested_blocks"`
	MaxArguments      int   `yaml:"max_arguments"`
	MinDuplicateLines int   `yaml:"min_duplicate_lines"`
}

// SafetyConfig contains backup and post-check settings.
type SafetyConfig struct {
	BackupDir         string        `yaml:"backup_dir"`
	MaxChangesPerFile int           `yaml:"max_changes_per_file"`
	SafetyLevel       string        `yaml:"safety_level"`
	RunTests          bool          `yaml:"run_tests"`
	TestTimeout       time.Duration `yaml:"test_timeout"`
}

// BatchConfig contains discovery and scheduling settings.
type BatchConfig struct {
	Workers     int      `yaml:"workers"`
	MaxFiles    int      `yaml:"max_files"`
	PriorityBy  string   `yaml:"priority_by"` // size, complexity or issues
	Exclude     []string `yaml:"exclude"`     // doublestar patterns
	GitPriority bool     `yaml:"git_priority"`
}

// AdvisorConfig contains settings for the external advisory service.
type AdvisorConfig struct {
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	MockMode bool          `yaml:"mock_mode"`
	Retry    RetryConfig   `yaml:"retry"`
}

// RetryConfig contains retry settings for advisor calls.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
}

// LedgerConfig contains the improvement ledger location.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Validate fails fast when a required threshold is absent. A zero
// threshold is treated as absent: there is no meaningful zero maximum.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value int64
	}{
		{"analysis.max_file_size", c.Analysis.MaxFileSize},
		{"analysis.max_function_length", int64(c.Analysis.MaxFunctionLength)},
		{"analysis.max_class_length", int64(c.Analysis.MaxClassLength)},
		{"analysis.max_class_methods", int64(c.Analysis.MaxClassMethods)},
		{"analysis.max_attributes", int64(c.Analysis.MaxAttributes)},
		{"analysis.max_complexity", int64(c.Analysis.MaxComplexity)},
		{"analysis.max_nested_blocks", int64(c.Analysis.MaxNestedBlocks)},
		{"analysis.max_arguments", int64(c.Analysis.MaxArguments)},
	}

	for _, r := range required {
		if r.value <= 0 {
			return fmt.Errorf("config: missing required threshold %q", r.name)
		}
	}

	switch c.Batch.PriorityBy {
	case "size", "complexity", "issues":
	default:
		return fmt.Errorf("config: unknown batch.priority_by %q", c.Batch.PriorityBy)
	}

	return nil
}
