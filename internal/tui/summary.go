package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pkeller/modelharness/internal/logging"
)

var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	progressBarEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("238"))

	progressBarFillStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("46"))

	statusIndicators = map[string]string{
		"running": "●",
		"passed":  "✓",
		"failed":  "✗",
		"skipped": "⊖",
	}
)

// TestRow is one test's latest known status within one environment.
type TestRow struct {
	Environment string
	TestID      string
	Status      string
	Detail      string
}

type EnvMetrics struct {
	Name        string
	Passed      int
	Failed      int
	Skipped     int
	Running     int
	LaunchError string
	Finished    bool
}

type Metrics struct {
	RunID        string
	TotalTests   int
	Environments []EnvMetrics
}

// CalculateMetrics folds the journal into per-environment progress. Later
// entries win: a test_finished supersedes its test_started.
func CalculateMetrics(entries []logging.JournalEntry) Metrics {
	metrics := Metrics{}
	envs := make(map[string]*EnvMetrics)
	running := make(map[string]map[string]bool)

	order := []string{}
	for _, e := range entries {
		if e.RunID != "" && metrics.RunID == "" {
			metrics.RunID = e.RunID
		}
		if e.Environment == "" {
			continue
		}

		em, ok := envs[e.Environment]
		if !ok {
			em = &EnvMetrics{Name: e.Environment}
			envs[e.Environment] = em
			running[e.Environment] = make(map[string]bool)
			order = append(order, e.Environment)
		}

		switch e.Event {
		case "env_failed":
			em.LaunchError = e.Detail
			em.Finished = true
		case "env_finished":
			em.Finished = true
		case "test_started":
			running[e.Environment][e.TestID] = true
		case "test_finished":
			delete(running[e.Environment], e.TestID)
			switch e.Status {
			case "passed":
				em.Passed++
			case "failed":
				em.Failed++
			case "skipped":
				em.Skipped++
			}
			metrics.TotalTests++
		}
	}

	for _, name := range order {
		em := envs[name]
		em.Running = len(running[name])
		metrics.Environments = append(metrics.Environments, *em)
	}
	return metrics
}

// BuildRows lists every test's latest status across environments, stable by
// environment then test id.
func BuildRows(entries []logging.JournalEntry) []TestRow {
	latest := make(map[string]TestRow)
	for _, e := range entries {
		if e.TestID == "" {
			continue
		}
		key := e.Environment + "/" + e.TestID
		switch e.Event {
		case "test_started":
			latest[key] = TestRow{Environment: e.Environment, TestID: e.TestID, Status: "running"}
		case "test_finished":
			latest[key] = TestRow{Environment: e.Environment, TestID: e.TestID, Status: e.Status, Detail: e.Detail}
		}
	}

	rows := make([]TestRow, 0, len(latest))
	for _, row := range latest {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Environment != rows[j].Environment {
			return rows[i].Environment < rows[j].Environment
		}
		return rows[i].TestID < rows[j].TestID
	})
	return rows
}

// RenderProgressBar creates a visual progress bar.
func RenderProgressBar(completed, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	fillWidth := (completed * width) / total
	emptyWidth := width - fillWidth

	filled := progressBarFillStyle.Render(strings.Repeat("█", fillWidth))
	empty := progressBarEmptyStyle.Render(strings.Repeat("░", emptyWidth))

	return filled + empty
}

// RenderSummary renders the per-environment progress block.
func RenderSummary(metrics Metrics, width int) string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Environments"))
	b.WriteString("\n")

	barWidth := 20
	if width > 80 {
		barWidth = 30
	}

	for _, em := range metrics.Environments {
		if em.LaunchError != "" {
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				labelStyle.Render(fmt.Sprintf("%-12s", em.Name)),
				statusStyles["failed"].Render(statusIndicators["failed"]),
				truncateString(em.LaunchError, 60)))
			continue
		}

		done := em.Passed + em.Failed + em.Skipped
		total := done + em.Running
		bar := RenderProgressBar(done, max(total, 1), barWidth)
		b.WriteString(fmt.Sprintf("  %s %s %d passed, %d failed, %d skipped",
			labelStyle.Render(fmt.Sprintf("%-12s", em.Name)),
			bar,
			em.Passed, em.Failed, em.Skipped))
		if em.Running > 0 {
			b.WriteString(fmt.Sprintf("  %s %d active",
				statusStyles["running"].Render(statusIndicators["running"]),
				em.Running))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func statusIndicator(status string) string {
	if ind, ok := statusIndicators[status]; ok {
		return ind
	}
	return "?"
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
