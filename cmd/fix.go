package cmd

import (
	"github.com/spf13/cobra"
)

var fixMaxFilesFlag int
var fixNoTestsFlag bool

// fixCmd represents the fix command.
var fixCmd = newFixCmd()

func newFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix [paths...]",
		Short: "Apply safe mechanical fixes",
		Long: `Fix analyzes each Python file and applies the mechanically safe
improvements: docstrings, type hints, function splits and duplicate
extraction. Every file is backed up first; a file whose rewrite fails
the post-checks is restored bit for bit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := parsePaths(args)

			if fixMaxFilesFlag > 0 || fixNoTestsFlag {
				if fixMaxFilesFlag > 0 {
					cfg.Batch.MaxFiles = fixMaxFilesFlag
				}

				if fixNoTestsFlag {
					cfg.Safety.RunTests = false
				}

				rewire()
			}

			if err := ui.Start(); err != nil {
				return err
			}
			defer ui.Close()

			results, err := orchestrator.Run(cmd.Context(), paths, true, batchProgress())
			if err != nil {
				return err
			}

			return ui.DisplayResults(results)
		},
	}

	cmd.Flags().IntVarP(&fixMaxFilesFlag, "max-files", "n", 0, "limit the number of files to fix")
	cmd.Flags().BoolVar(&fixNoTestsFlag, "no-tests", false, "skip running tests in the post-check")

	return cmd
}

func init() {
	rootCmd.AddCommand(fixCmd)
}
