package generate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkeller/modelharness/internal/command"
	"github.com/pkeller/modelharness/internal/generator"
	"github.com/pkeller/modelharness/internal/model"
	"github.com/pkeller/modelharness/internal/schema"
)

var (
	getWorkDirFunc   = command.GetWorkDir
	getSchemaDirFunc = command.GetSchemaDir

	outPath string
)

var generateCmd = &cobra.Command{
	Use:   "generate <models-dir> [out-dir]",
	Short: "Synthesize a test suite from behavioral models",
	Long: `Validates the models and synthesizes one deterministic test suite: a test
per state, per transition, per error scenario, and per timing requirement.
The suite is written as JSON for later runs.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var validator *schema.Validator
		if dir := getSchemaDirFunc(); dir != "" {
			validator = schema.New(dir)
		}

		result, err := model.LoadAndValidate(args[0], validator)
		if err != nil {
			return err
		}
		if len(result.Errors) > 0 {
			for _, validationErr := range result.Errors {
				fmt.Printf("  ERROR: %s\n", validationErr.Error())
			}
			return fmt.Errorf("cannot generate from invalid models (%d errors)", len(result.Errors))
		}

		suite, genErrs := generator.Generate(result.Models)
		for _, genErr := range genErrs {
			fmt.Printf("  ERROR: %s\n", genErr.Error())
		}

		target := outPath
		if target == "" {
			if len(args) == 2 {
				target = filepath.Join(args[1], "suite.json")
			} else {
				target = filepath.Join(getWorkDirFunc(), "suite.json")
			}
		}
		if err := generator.WriteSuite(target, suite); err != nil {
			return err
		}

		fmt.Printf("Suite %s: %d tests written to %s\n", suite.SuiteID, len(suite.Tests), target)
		if len(genErrs) > 0 {
			return fmt.Errorf("synthesis finished with %d errors", len(genErrs))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Suite output path (default <work-dir>/suite.json)")
	command.RootCmd.AddCommand(generateCmd)
}
