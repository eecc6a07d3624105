package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkeller/modelharness/internal/command"
	"github.com/pkeller/modelharness/internal/model"
	"github.com/pkeller/modelharness/internal/schema"
)

var getSchemaDirFunc = command.GetSchemaDir

var validateCmd = &cobra.Command{
	Use:   "validate <models-dir>",
	Short: "Validate behavioral model documents",
	Long: `Loads every model document under the given directory, checks it against
the model schema and the semantic rules (exactly one initial state, no
dangling transition endpoints, per-type required sections), and reports
errors and reachability warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var validator *schema.Validator
		if dir := getSchemaDirFunc(); dir != "" {
			validator = schema.New(dir)
		}

		result, err := model.LoadAndValidate(args[0], validator)
		if err != nil {
			return err
		}

		fmt.Printf("Models validated: %d\n", len(result.Models))
		for _, m := range result.Models {
			fmt.Printf("  %s (%s): %d states, %d transitions\n",
				m.ID, m.Type, len(m.States), len(m.Transitions))
		}

		for _, w := range result.Warnings {
			fmt.Printf("  WARNING: %s\n", w.Message)
		}

		if len(result.Errors) > 0 {
			fmt.Println("Validation failed")
			for _, validationErr := range result.Errors {
				fmt.Printf("  ERROR: %s\n", validationErr.Error())
			}
			return fmt.Errorf("model validation failed with %d errors", len(result.Errors))
		}

		fmt.Println("Validation passed")
		return nil
	},
}

func init() {
	command.RootCmd.AddCommand(validateCmd)
}
