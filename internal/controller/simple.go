package controller

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/mouse-blink/refit/internal/model"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start() error {
	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close() {

}

// DisplayBatchInfo shows the batch size and worker count.
func (s *SimpleUI) DisplayBatchInfo(files int, workers int) {
	s.printf("Processing %d file(s) with %d worker(s)\n", files, workers)
}

// DisplayProgress prints one line per finished file.
func (s *SimpleUI) DisplayProgress(done int, total int, path m.Path, state m.FileState) {
	s.printf("[%d/%d] %-11s %s\n", done, total, state, path)
}

// DisplayResults renders the per-file outcome table followed by
// details for files that carry findings, issues or suggestions.
func (s *SimpleUI) DisplayResults(results []m.FileResult) error {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "State", "Findings", "Applied", "Rejected"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})

	totals := struct{ findings, applied, rejected int }{}

	for _, result := range results {
		table.Append([]string{
			string(result.Path),
			string(result.State),
			fmt.Sprintf("%d", len(result.Findings)),
			fmt.Sprintf("%d", len(result.Applied)),
			fmt.Sprintf("%d", len(result.Rejected)),
		})

		totals.findings += len(result.Findings)
		totals.applied += len(result.Applied)
		totals.rejected += len(result.Rejected)
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(results)),
		"",
		fmt.Sprintf("%d", totals.findings),
		fmt.Sprintf("%d", totals.applied),
		fmt.Sprintf("%d", totals.rejected),
	})

	table.Render()
	s.printf("\n%s\n", tableBuffer.String())

	for _, result := range results {
		s.displayDetails(result)
	}

	return nil
}

func (s *SimpleUI) displayDetails(result m.FileResult) {
	if len(result.Findings) == 0 && len(result.Issues) == 0 &&
		len(result.Suggestions) == 0 && result.Err == nil {
		return
	}

	s.printf("%s:\n", result.Path)

	if result.Err != nil {
		s.printf("  error: %v\n", result.Err)
	}

	for _, finding := range result.Findings {
		s.printf("  line %d: [%s] %s\n", finding.Line, finding.Kind, finding.Message)
	}

	for _, applied := range result.Applied {
		s.printf("  applied: %s\n", applied.Description)
	}

	for _, issue := range result.Issues {
		s.printf("  note: %s\n", issue)
	}

	for _, suggestion := range result.Suggestions {
		if suggestion.OK {
			s.printf("  suggestion for %s:\n%s\n", suggestion.Unit, indent(suggestion.Text, "    "))
		}
	}

	s.printf("\n")
}

// DisplayHistory renders the improvement ledger for one file.
func (s *SimpleUI) DisplayHistory(path m.Path, records []m.ImprovementRecord) error {
	if len(records) == 0 {
		s.printf("no recorded improvements for %s\n", path)

		return nil
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"When", "Fix", "Description"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, rec := range records {
		table.Append([]string{
			rec.CreatedAt.Format("2006-01-02 15:04"),
			string(rec.Kind),
			rec.Description,
		})
	}

	table.Render()
	s.printf("\n%s", tableBuffer.String())

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func indent(text string, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}

	return strings.Join(lines, "\n")
}
