package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxFileSize:       1_000_000,
			MaxFunctionLength: 50,
			MaxClassLength:    200,
			MaxClassMethods:   20,
			MaxAttributes:     15,
			MaxComplexity:     8,
			MaxNestedBlocks:   4,
			MaxArguments:      5,
			MinDuplicateLines: 3,
		},
		Safety: SafetyConfig{
			BackupDir:         "backups",
			MaxChangesPerFile: 5,
			SafetyLevel:       "high",
			RunTests:          true,
			TestTimeout:       60 * time.Second,
		},
		Batch: BatchConfig{
			Workers:     4,
			MaxFiles:    0, // unlimited
			PriorityBy:  "issues",
			GitPriority: true,
			Exclude: []string{
				"**/__pycache__/**",
				"**/.venv/**",
				"**/venv/**",
				"**/.git/**",
			},
		},
		Advisor: AdvisorConfig{
			URL:      "https://openrouter.ai/api/v1/chat/completions",
			Model:    "anthropic/claude-3-sonnet",
			Timeout:  30 * time.Second,
			MockMode: false,
			Retry: RetryConfig{
				MaxAttempts:   3,
				BackoffFactor: 1.5,
				InitialDelay:  100 * time.Millisecond,
				MaxDelay:      5 * time.Second,
			},
		},
		Ledger: LedgerConfig{
			Path: "improvements.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
