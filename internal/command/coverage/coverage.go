package coverage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkeller/modelharness/internal/command"
	coveragelib "github.com/pkeller/modelharness/internal/coverage"
	"github.com/pkeller/modelharness/internal/errors"
)

var threshold float64

// reportDoc mirrors the coverage section of a written run report.
type reportDoc struct {
	RunID    string              `json:"run_id"`
	Coverage *coveragelib.Report `json:"coverage"`
}

var coverageCmd = &cobra.Command{
	Use:   "coverage <report.json>",
	Short: "Inspect the coverage of a finished run",
	Long: `Reads a run report and prints per-model coverage with every gap: the
mandatory states and transitions no executed test exercised. A threshold
different from the one the run used can be applied retroactively.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			if os.IsNotExist(err) {
				return errors.IONotExists(args[0])
			}
			return errors.IOReadFailed(args[0], err)
		}

		var doc reportDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return errors.Wrap(errors.CategoryIO, "DECODE_FAILED", "malformed run report", err)
		}
		if doc.Coverage == nil {
			return errors.New(errors.CategoryIO, "DECODE_FAILED", "report carries no coverage section")
		}

		gate := doc.Coverage.Threshold
		if cmd.Flags().Changed("threshold") {
			gate = threshold
		}

		fmt.Printf("Run %s coverage: %.1f%%\n", doc.RunID, doc.Coverage.Percent)
		for _, mc := range doc.Coverage.Models {
			fmt.Printf("  %s: %d/%d mandatory elements (%.1f%%)\n",
				mc.ModelID, mc.MandatoryCovered, mc.MandatoryTotal, mc.Percent)
			for _, gap := range mc.Gaps {
				if gap.Kind == "transition" {
					fmt.Printf("    gap: transition %s (%s -> %s)\n", gap.ElementID, gap.From, gap.To)
				} else {
					fmt.Printf("    gap: state %s (%s)\n", gap.ElementID, gap.Name)
				}
			}
		}

		if doc.Coverage.Percent < gate {
			return fmt.Errorf("coverage %.1f%% below threshold %.1f%%", doc.Coverage.Percent, gate)
		}
		fmt.Printf("PASSED (threshold %.1f%%)\n", gate)
		return nil
	},
}

func init() {
	coverageCmd.Flags().Float64VarP(&threshold, "threshold", "t", coveragelib.DefaultThreshold, "Gate percentage to apply")
	command.RootCmd.AddCommand(coverageCmd)
}
