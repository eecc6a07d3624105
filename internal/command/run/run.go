package run

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkeller/modelharness/internal/command"
	"github.com/pkeller/modelharness/internal/coverage"
	"github.com/pkeller/modelharness/internal/generator"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/model"
	"github.com/pkeller/modelharness/internal/orchestrator"
	"github.com/pkeller/modelharness/internal/report"
	"github.com/pkeller/modelharness/internal/schema"
	"github.com/pkeller/modelharness/internal/trace"
)

var (
	getSchemaDirFunc = command.GetSchemaDir

	envsPath    string
	suitePath   string
	headless    bool
	threshold   float64
	retries     int
	stepTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <models-dir>",
	Short: "Generate, execute, and gate a full test run",
	Long: `Runs the whole pipeline: validates the models, synthesizes the suite,
drives it through every environment in the manifest (concurrently across
environments, sequentially within each), aggregates coverage, and writes
the run report. The command fails when any test fails, any environment
cannot launch, or coverage misses the threshold.`,
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
		if len(result.Errors) > 0 {
			for _, validationErr := range result.Errors {
				fmt.Printf("  ERROR: %s\n", validationErr.Error())
			}
			return fmt.Errorf("cannot run against invalid models (%d errors)", len(result.Errors))
		}

		var suite *generator.Suite
		if suitePath != "" {
			suite, err = generator.LoadSuite(suitePath, validator)
			if err != nil {
				return err
			}
		} else {
			var genErrs []error
			suite, genErrs = generator.Generate(result.Models)
			if len(genErrs) > 0 {
				for _, genErr := range genErrs {
					fmt.Printf("  ERROR: %s\n", genErr.Error())
				}
				return fmt.Errorf("synthesis failed with %d errors", len(genErrs))
			}
		}

		envs := []orchestrator.EnvSpec{{Name: "local"}}
		if envsPath != "" {
			manifest, err := orchestrator.LoadManifest(envsPath, validator)
			if err != nil {
				return err
			}
			envs = manifest.Environments
		}
		if cmd.Flags().Changed("headless") {
			for i := range envs {
				envs[i].Headless = &headless
			}
		}

		o := &orchestrator.Orchestrator{
			Launcher:    orchestrator.ExecLauncher{},
			Journal:     logging.NewJournal(command.JournalPath()),
			StepTimeout: stepTimeout,
			Retries:     retries,
		}

		runReport, err := o.RunAll(context.Background(), suite, envs)
		if err != nil {
			return err
		}

		tracker := coverage.NewTracker()
		coverage.RegisterModels(tracker, result.Models)
		if err := orchestrator.AggregateCoverage(suite, runReport, tracker); err != nil {
			return err
		}
		cov := coverage.Analyze(result.Models, tracker, threshold)
		matrix := trace.BuildFromSuite(suite)

		paths, err := report.Write(command.ReportDir(), report.Input{
			Run:      runReport,
			Coverage: cov,
			Matrix:   matrix,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Run %s finished\n", runReport.RunID)
		for _, env := range runReport.Environments {
			if env.LaunchError != "" {
				fmt.Printf("  %s: LAUNCH FAILED: %s\n", env.Environment, env.LaunchError)
				continue
			}
			fmt.Printf("  %s: %d passed, %d failed, %d skipped\n",
				env.Environment, env.Passed, env.Failed, env.Skipped)
		}
		fmt.Printf("Coverage: %.1f%% (threshold %.1f%%)\n", cov.Percent, cov.Threshold)
		fmt.Printf("Report: %s\n", paths.Markdown)

		if runReport.Failed() {
			return fmt.Errorf("run %s had failures", runReport.RunID)
		}
		if !cov.Passed {
			return fmt.Errorf("coverage %.1f%% below threshold %.1f%%", cov.Percent, cov.Threshold)
		}
		fmt.Println("PASSED")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&envsPath, "environments", "e", "", "Environment manifest (default: one in-process environment)")
	runCmd.Flags().StringVar(&suitePath, "suite", "", "Run a previously generated suite instead of synthesizing one")
	runCmd.Flags().BoolVar(&headless, "headless", true, "Force headless mode on every environment")
	runCmd.Flags().Float64VarP(&threshold, "threshold", "t", coverage.DefaultThreshold, "Coverage gate percentage")
	runCmd.Flags().IntVarP(&retries, "retries", "r", 0, "Extra attempts for failing tests")
	runCmd.Flags().DurationVar(&stepTimeout, "timeout", 0, "Bound on every engine dispatch (default 10s)")
	command.RootCmd.AddCommand(runCmd)
}
