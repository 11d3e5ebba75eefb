package controller

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/mouse-blink/refit/internal/model"
)

// progressMsg reports one finished file to the model.
type progressMsg struct {
	done  int
	total int
	path  m.Path
	state m.FileState
}

// batchInfoMsg carries the batch header.
type batchInfoMsg struct {
	files   int
	workers int
}

// finishedMsg tells the model the batch is over.
type finishedMsg struct{}

var stateColors = map[m.FileState]lipgloss.Color{
	m.StateCommitted:  lipgloss.Color("2"),
	m.StateUnchanged:  lipgloss.Color("8"),
	m.StateAnalyzed:   lipgloss.Color("6"),
	m.StateRolledBack: lipgloss.Color("3"),
	m.StateUnsafe:     lipgloss.Color("1"),
	m.StateFailed:     lipgloss.Color("1"),
}

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    sync.WaitGroup
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the Bubble Tea event loop in the background.
func (t *TUI) Start() error {
	t.program = tea.NewProgram(newBatchModel(), tea.WithOutput(t.output))

	t.done.Add(1)

	go func() {
		defer t.done.Done()

		_, _ = t.program.Run()
	}()

	return nil
}

// Close stops the event loop and waits for the final frame.
func (t *TUI) Close() {
	if t.program == nil {
		return
	}

	t.program.Send(finishedMsg{})
	t.done.Wait()
}

// DisplayBatchInfo shows the batch size and worker count.
func (t *TUI) DisplayBatchInfo(files int, workers int) {
	if t.program != nil {
		t.program.Send(batchInfoMsg{files: files, workers: workers})
	}
}

// DisplayProgress advances the progress bar.
func (t *TUI) DisplayProgress(done int, total int, path m.Path, state m.FileState) {
	if t.program != nil {
		t.program.Send(progressMsg{done: done, total: total, path: path, state: state})
	}
}

// DisplayResults renders the final summary after the event loop ends.
func (t *TUI) DisplayResults(results []m.FileResult) error {
	t.Close()

	counts := make(map[m.FileState]int)
	for _, result := range results {
		counts[result.State]++
	}

	order := []m.FileState{
		m.StateCommitted, m.StateRolledBack, m.StateUnchanged,
		m.StateAnalyzed, m.StateUnsafe, m.StateFailed,
	}

	for _, state := range order {
		if counts[state] == 0 {
			continue
		}

		style := lipgloss.NewStyle().Foreground(stateColors[state]).Bold(true)
		_, _ = fmt.Fprintf(t.output, "%s %d\n", style.Render(string(state)), counts[state])
	}

	for _, result := range results {
		for _, finding := range result.Findings {
			_, _ = fmt.Fprintf(t.output, "%s:%d [%s] %s\n", result.Path, finding.Line, finding.Kind, finding.Message)
		}
	}

	return nil
}

// DisplayHistory renders the improvement ledger for one file.
func (t *TUI) DisplayHistory(path m.Path, records []m.ImprovementRecord) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintf(t.output, "no recorded improvements for %s\n", path)

		return nil
	}

	for _, rec := range records {
		_, _ = fmt.Fprintf(t.output, "%s  %-20s %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04"), rec.Kind, rec.Description)
	}

	return nil
}

// batchModel handles the TUI display while files are processed.
type batchModel struct {
	width       int
	progressBar progress.Model
	files       int
	workers     int
	done        int
	total       int
	currentPath m.Path
	lastState   m.FileState
	finished    bool
}

func newBatchModel() batchModel {
	prog := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)

	return batchModel{progressBar: prog}
}

func (b batchModel) Init() tea.Cmd {
	return nil
}

func (b batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width

		return b, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return b, tea.Quit
		}

		return b, nil
	case batchInfoMsg:
		b.files = msg.files
		b.workers = msg.workers

		return b, nil
	case progressMsg:
		b.done = msg.done
		b.total = msg.total
		b.currentPath = msg.path
		b.lastState = msg.state

		return b, nil
	case finishedMsg:
		b.finished = true

		return b, tea.Quit
	}

	return b, nil
}

func (b batchModel) View() string {
	if b.finished {
		return ""
	}

	header := lipgloss.NewStyle().Bold(true).
		Render(fmt.Sprintf("refit: %d file(s), %d worker(s)", b.files, b.workers))

	percent := 0.0
	if b.total > 0 {
		percent = float64(b.done) / float64(b.total)
	}

	line := fmt.Sprintf("%d/%d", b.done, b.total)
	if b.currentPath != "" {
		style := lipgloss.NewStyle().Foreground(stateColors[b.lastState])
		line += fmt.Sprintf("  %s %s", style.Render(string(b.lastState)), b.currentPath)
	}

	return header + "\n" + b.progressBar.ViewAs(percent) + "\n" + line + "\n"
}
