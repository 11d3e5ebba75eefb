// Package controller provides output adapters for displaying analysis
// and improvement results.
package controller

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	m "github.com/mouse-blink/refit/internal/model"
)

// UI defines the interface for rendering batch progress and results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start() error
	Close()
	DisplayBatchInfo(files int, workers int)
	DisplayProgress(done int, total int, path m.Path, state m.FileState)
	DisplayResults(results []m.FileResult) error
	DisplayHistory(path m.Path, records []m.ImprovementRecord) error
}

// NewUI selects the UI implementation: the interactive TUI on a
// terminal, plain text otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY checks if the given writer is a terminal (TTY). Redirected
// output gets the plain UI.
func IsTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return false
	}

	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
