// Package report renders run artifacts: a machine-readable JSON report, a
// human-readable Markdown summary, and the traceability matrix as CSV.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkeller/modelharness/internal/coverage"
	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/orchestrator"
	"github.com/pkeller/modelharness/internal/runtime"
	"github.com/pkeller/modelharness/internal/trace"
)

// Input bundles everything a finished run produced.
type Input struct {
	Run      *orchestrator.RunReport
	Coverage *coverage.Report
	Matrix   *trace.Matrix
}

// Paths names the artifacts written for one run.
type Paths struct {
	JSON      string `json:"json"`
	Markdown  string `json:"markdown"`
	MatrixCSV string `json:"matrix_csv"`
}

// document is the persisted JSON shape.
type document struct {
	RunID        string                   `json:"run_id"`
	SuiteID      string                   `json:"suite_id"`
	StartedAt    time.Time                `json:"started_at"`
	FinishedAt   time.Time                `json:"finished_at"`
	Passed       bool                     `json:"passed"`
	Environments []orchestrator.EnvResult `json:"environments"`
	Coverage     *coverage.Report         `json:"coverage"`
}

// Write renders all artifacts into dir, named by run id.
func Write(dir string, in Input) (*Paths, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.IOWriteFailed(dir, err)
	}

	paths := &Paths{
		JSON:      filepath.Join(dir, fmt.Sprintf("report-%s.json", in.Run.RunID)),
		Markdown:  filepath.Join(dir, fmt.Sprintf("report-%s.md", in.Run.RunID)),
		MatrixCSV: filepath.Join(dir, fmt.Sprintf("traceability-%s.csv", in.Run.RunID)),
	}

	doc := document{
		RunID:        in.Run.RunID,
		SuiteID:      in.Run.SuiteID,
		StartedAt:    in.Run.StartedAt,
		FinishedAt:   in.Run.FinishedAt,
		Passed:       !in.Run.Failed() && in.Coverage.Passed,
		Environments: in.Run.Environments,
		Coverage:     in.Coverage,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Internal("failed to marshal report", err)
	}
	if err := os.WriteFile(paths.JSON, data, 0644); err != nil {
		return nil, errors.IOWriteFailed(paths.JSON, err)
	}

	if err := os.WriteFile(paths.Markdown, []byte(renderMarkdown(in, doc.Passed)), 0644); err != nil {
		return nil, errors.IOWriteFailed(paths.Markdown, err)
	}

	f, err := os.Create(paths.MatrixCSV)
	if err != nil {
		return nil, errors.IOWriteFailed(paths.MatrixCSV, err)
	}
	defer f.Close()
	if err := in.Matrix.ExportCSV(f); err != nil {
		return nil, err
	}

	logging.Info("report artifacts written to %s", dir)
	return paths, nil
}

func renderMarkdown(in Input, passed bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run Report %s\n\n", in.Run.RunID)
	fmt.Fprintf(&sb, "- Suite: %s\n", in.Run.SuiteID)
	fmt.Fprintf(&sb, "- Started: %s\n", in.Run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Finished: %s\n", in.Run.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Verdict: **%s**\n\n", verdict(passed))

	sb.WriteString("## Environments\n\n")
	sb.WriteString("| Environment | Passed | Failed | Skipped | Launch |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, env := range in.Run.Environments {
		launch := "ok"
		if env.LaunchError != "" {
			launch = env.LaunchError
		}
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %s |\n",
			env.Environment, env.Passed, env.Failed, env.Skipped, launch)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## Coverage\n\n%.1f%% against a %.1f%% threshold (%s)\n\n",
		in.Coverage.Percent, in.Coverage.Threshold, verdict(in.Coverage.Passed))
	for _, mc := range in.Coverage.Models {
		fmt.Fprintf(&sb, "- %s: %d/%d mandatory elements (%.1f%%)\n",
			mc.ModelID, mc.MandatoryCovered, mc.MandatoryTotal, mc.Percent)
		for _, gap := range mc.Gaps {
			if gap.Kind == "transition" {
				fmt.Fprintf(&sb, "  - gap: transition %s (%s -> %s)\n", gap.ElementID, gap.From, gap.To)
			} else {
				fmt.Fprintf(&sb, "  - gap: state %s (%s)\n", gap.ElementID, gap.Name)
			}
		}
	}
	sb.WriteString("\n")

	if failures := collectFailures(in.Run); len(failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, f := range failures {
			sb.WriteString("- " + f + "\n")
		}
		sb.WriteString("\n")
	}

	if reqs := in.Matrix.Requirements(); len(reqs) > 0 {
		sb.WriteString("## Traceability\n\n")
		for _, req := range reqs {
			fmt.Fprintf(&sb, "- %s: %s\n", req, strings.Join(in.Matrix.TestsFor(req), ", "))
		}
	}

	return sb.String()
}

func collectFailures(run *orchestrator.RunReport) []string {
	var failures []string
	for _, env := range run.Environments {
		if env.LaunchError != "" {
			failures = append(failures, fmt.Sprintf("%s: launch: %s", env.Environment, env.LaunchError))
		}
		for _, r := range env.Results {
			if r.Status == runtime.StatusFailed {
				failures = append(failures, fmt.Sprintf("%s: %s: %s", env.Environment, r.TestID, r.FailureReason))
			}
		}
	}
	return failures
}

func verdict(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}
