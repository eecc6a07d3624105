package tui

import (
	"github.com/spf13/cobra"

	"github.com/pkeller/modelharness/internal/command"
	"github.com/pkeller/modelharness/internal/config"
	tuilib "github.com/pkeller/modelharness/internal/tui"
)

var journalPath string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Monitor a run in the terminal",
	Long: `Tails the run journal and renders live per-environment progress and
per-test statuses. Start it next to a running 'modelharness run'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Get().Headless {
			cmd.Println("headless mode is enabled; unset MODELHARNESS_HEADLESS to use the monitor")
			return nil
		}

		path := journalPath
		if path == "" {
			path = command.JournalPath()
		}
		return tuilib.Run(path)
	},
}

func init() {
	tuiCmd.Flags().StringVarP(&journalPath, "journal", "j", "", "Journal path (default <work-dir>/run.jsonl)")
	command.RootCmd.AddCommand(tuiCmd)
}
