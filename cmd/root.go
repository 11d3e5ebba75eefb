// Package cmd provides the root command and CLI setup for refit.
package cmd

import (
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/refit/internal/adapter"
	"github.com/mouse-blink/refit/internal/config"
	"github.com/mouse-blink/refit/internal/controller"
	"github.com/mouse-blink/refit/internal/domain"
	m "github.com/mouse-blink/refit/internal/model"
)

var cfg *config.Config
var logger *slog.Logger
var fsAdapter adapter.SourceFSAdapter
var parserAdapter adapter.PythonFileAdapter
var testAdapter adapter.TestRunnerAdapter
var gitAdapter adapter.GitAdapter
var ledgerStore adapter.LedgerStore
var advisorClient adapter.AdvisorClient
var workflow domain.Workflow
var orchestrator domain.BatchOrchestrator
var ui controller.UI

var configFlag string
var plainFlag bool
var workersFlag int
var excludeFlags []string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refit",
		Short: "Python code quality analyzer and safe auto-fixer",
		Long: `Refit analyzes Python source trees for structural quality issues and
applies a small set of mechanically safe fixes behind backups, tests
and automatic rollback.

Supports Go-style path patterns:
  - ./...          recursively scan current directory
  - ./src/...      recursively scan src directory
  - ./a ./b        scan multiple directories`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}

	cmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "force plain text output")
	cmd.PersistentFlags().IntVarP(&workersFlag, "workers", "p", 0, "number of parallel workers (overrides config)")
	cmd.PersistentFlags().StringArrayVarP(&excludeFlags, "exclude", "x", nil, "exclude files matching glob (can be repeated)")

	return cmd
}

// setup loads configuration and wires the adapters, domain services
// and UI. It runs once before any subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.NewLoader().Load(configFlag)
	if err != nil {
		return err
	}

	cfg = loaded

	if workersFlag > 0 {
		cfg.Batch.Workers = workersFlag
	}

	cfg.Batch.Exclude = append(cfg.Batch.Exclude, excludeFlags...)

	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)

	fsAdapter = adapter.NewLocalSourceFSAdapter()
	parserAdapter = adapter.NewLocalPythonFileAdapter()
	testAdapter = adapter.NewLocalTestRunnerAdapter()
	gitAdapter = adapter.NewLocalGitAdapter()

	if cfg.Ledger.Path != "" {
		ledgerStore, err = adapter.NewSQLiteLedgerStore(cfg.Ledger.Path)
		if err != nil {
			logger.Warn("ledger disabled", "error", err)
			ledgerStore = nil
		}
	}

	if cfg.Advisor.URL != "" || cfg.Advisor.MockMode {
		advisorClient = adapter.NewHTTPAdvisorClient(cfg.Advisor)
	}

	rewire()

	ui = controller.NewUI(cmd, !plainFlag && controller.IsTTY(os.Stdout))

	return nil
}

// rewire rebuilds the domain services from the current configuration.
// Subcommands call it again after applying their flag overrides.
func rewire() {
	workflow = domain.NewWorkflow(domain.WorkflowDeps{
		FS:         fsAdapter,
		Parser:     parserAdapter,
		TestRunner: testAdapter,
		Ledger:     ledgerStore,
		Advisor:    advisorClient,
		Logger:     logger,
	}, cfg)

	orchestrator = domain.NewBatchOrchestrator(workflow, fsAdapter, gitAdapter, cfg.Batch, logger)
}

func teardown(_ *cobra.Command, _ []string) {
	if ledgerStore != nil {
		_ = ledgerStore.Close()
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// batchProgress forwards per-file progress to the UI, announcing the
// batch header once the batch size is known.
func batchProgress() domain.ProgressFunc {
	var once sync.Once

	return func(done, total int, path m.Path, state m.FileState) {
		once.Do(func() { ui.DisplayBatchInfo(total, cfg.Batch.Workers) })
		ui.DisplayProgress(done, total, path, state)
	}
}

func parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		args = []string{"./..."}
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
