package cmd

import (
	"github.com/spf13/cobra"

	m "github.com/mouse-blink/refit/internal/model"
)

var historyLimitFlag int

// historyCmd represents the history command.
var historyCmd = newHistoryCmd()

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <file>",
		Short: "Show recorded improvements for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := m.Path(args[0])

			records, err := workflow.History(cmd.Context(), path, historyLimitFlag)
			if err != nil {
				return err
			}

			return ui.DisplayHistory(path, records)
		},
	}

	cmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "maximum number of records to show")

	return cmd
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
