package command

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkeller/modelharness/internal/config"
	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/logging"
)

var (
	workDir   string
	schemaDir string
)

var RootCmd = &cobra.Command{
	Use:   "modelharness",
	Short: "Model-based test generation and coverage pipeline",
	Long: `modelharness loads behavioral models, synthesizes executable test suites
from their state graphs, drives the suites across execution environments,
and gates the run on coverage of every mandatory model element.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitFromEnv()
		if config.Get().Debug {
			logging.SetLevel(logging.LevelDebug)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&workDir, "work-dir", "w", "", "Path to the harness work directory (default ./harness-work)")
	RootCmd.PersistentFlags().StringVar(&schemaDir, "schema-dir", "", "Path to the JSON schema directory (default ./schemas)")
}

// GetWorkDir resolves the work directory: flag, then environment, then the
// default under the current directory.
func GetWorkDir() string {
	if workDir != "" {
		return workDir
	}
	return config.Get().ResolveWorkDir()
}

// GetSchemaDir resolves the schema directory, empty when none is available.
func GetSchemaDir() string {
	if schemaDir != "" {
		return schemaDir
	}
	return config.Get().ResolveSchemaDir()
}

// JournalPath is where run commands append events and the monitor reads them.
func JournalPath() string {
	return filepath.Join(GetWorkDir(), "run.jsonl")
}

// ReportDir is where run artifacts land.
func ReportDir() string {
	return filepath.Join(GetWorkDir(), "reports")
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		errors.PrintToStderr(err)
		os.Exit(1)
	}
}
