package cmd

import (
	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command.
var analyzeCmd = newAnalyzeCmd()

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze Python files without modifying them",
		Long: `Analyze parses each Python file, measures its structural metrics and
reports every finding. No file is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := parsePaths(args)

			if err := ui.Start(); err != nil {
				return err
			}
			defer ui.Close()

			results, err := orchestrator.Run(cmd.Context(), paths, false, batchProgress())
			if err != nil {
				return err
			}

			return ui.DisplayResults(results)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
