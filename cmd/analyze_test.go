package cmd

import (
	"bytes"
	"testing"

	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

func TestAnalyzeCmd_RunsReadOnlyBatch(t *testing.T) {
	fakeOrch := &fakeOrchestrator{results: []m.FileResult{{Path: "pkg/a.py", State: m.StateAnalyzed}}}
	display := &fakeUI{}

	originalOrch, originalUI, originalCfg := orchestrator, ui, cfg
	orchestrator, ui, cfg = fakeOrch, display, config.DefaultConfig()
	defer func() { orchestrator, ui, cfg = originalOrch, originalUI, originalCfg }()

	cmd := newAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"./src/..."})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if fakeOrch.improve {
		t.Fatalf("analyze must not improve files")
	}

	if len(fakeOrch.roots) != 1 || fakeOrch.roots[0] != "./src/..." {
		t.Fatalf("unexpected roots: %v", fakeOrch.roots)
	}

	if len(display.results) != 1 || display.results[0].Path != "pkg/a.py" {
		t.Fatalf("results not displayed: %v", display.results)
	}
}

func TestAnalyzeCmd_AnnouncesBatchHeader(t *testing.T) {
	fakeOrch := &fakeOrchestrator{results: []m.FileResult{
		{Path: "pkg/a.py", State: m.StateAnalyzed},
		{Path: "pkg/b.py", State: m.StateAnalyzed},
	}}
	display := &fakeUI{}

	originalOrch, originalUI, originalCfg := orchestrator, ui, cfg
	orchestrator, ui, cfg = fakeOrch, display, config.DefaultConfig()
	defer func() { orchestrator, ui, cfg = originalOrch, originalUI, originalCfg }()

	cfg.Batch.Workers = 3

	cmd := newAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"pkg"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if display.batchFiles != 2 || display.batchWorkers != 3 {
		t.Fatalf("batch header = (%d files, %d workers), want (2, 3)",
			display.batchFiles, display.batchWorkers)
	}

	if display.progressed != 2 {
		t.Fatalf("progress calls = %d, want 2", display.progressed)
	}
}
