package controller

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	m "github.com/mouse-blink/refit/internal/model"
)

func TestBatchModel_BatchInfoShowsInHeader(t *testing.T) {
	model := newBatchModel()

	updated, _ := model.Update(batchInfoMsg{files: 3, workers: 2})

	view := updated.(batchModel).View()
	if !strings.Contains(view, "3 file(s), 2 worker(s)") {
		t.Fatalf("header missing batch info\nview:\n%s", view)
	}
}

func TestBatchModel_ProgressShowsCurrentFile(t *testing.T) {
	model := newBatchModel()

	updated, _ := model.Update(progressMsg{
		done: 2, total: 5, path: "pkg/a.py", state: m.StateCommitted,
	})

	view := updated.(batchModel).View()

	for _, want := range []string{"2/5", "pkg/a.py", "committed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q\nview:\n%s", want, view)
		}
	}
}

func TestBatchModel_FinishedQuitsWithEmptyView(t *testing.T) {
	model := newBatchModel()

	updated, cmd := model.Update(finishedMsg{})

	if cmd == nil {
		t.Fatalf("expected quit command")
	}

	if view := updated.(batchModel).View(); view != "" {
		t.Fatalf("expected empty final view, got %q", view)
	}
}

func TestBatchModel_QuitKeys(t *testing.T) {
	model := newBatchModel()

	for _, key := range []string{"q", "ctrl+c"} {
		var msg tea.KeyMsg
		if key == "q" {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}

		_, cmd := model.Update(msg)
		if cmd == nil {
			t.Fatalf("key %q should quit", key)
		}
	}
}
