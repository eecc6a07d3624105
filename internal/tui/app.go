// Package tui is the live run monitor. It tails the run journal and renders
// per-environment progress while the orchestrator works.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pkeller/modelharness/internal/logging"
)

// JournalProvider abstracts journal access so tests can feed entries directly.
type JournalProvider interface {
	Load() ([]logging.JournalEntry, error)
}

type fileJournal struct {
	path string
}

func (f fileJournal) Load() ([]logging.JournalEntry, error) {
	return logging.ReadJournal(f.path)
}

type Model struct {
	journalPath string
	provider    JournalProvider
	entries     []logging.JournalEntry
	rows        []TestRow
	cursor      int
	err         error
	width       int
	height      int
	quitting    bool
}

type journalMsg struct {
	entries []logging.JournalEntry
	err     error
}

type tickMsg time.Time

const pollInterval = 500 * time.Millisecond

func NewModel(journalPath string) Model {
	return Model{
		journalPath: journalPath,
		provider:    fileJournal{path: journalPath},
	}
}

func NewModelWithProvider(journalPath string, provider JournalProvider) Model {
	return Model{
		journalPath: journalPath,
		provider:    provider,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchJournalCmd(), tickCmd())
}

func (m Model) fetchJournalCmd() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.provider.Load()
		return journalMsg{entries: entries, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchJournalCmd(), tickCmd())

	case journalMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.entries = msg.entries
		m.rows = BuildRows(msg.entries)
		if m.cursor >= len(m.rows) {
			m.cursor = max(0, len(m.rows)-1)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyboard(msg)
	}

	return m, nil
}

func (m Model) handleKeyboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "j", "down":
		if len(m.rows) > 0 {
			m.cursor = min(m.cursor+1, len(m.rows)-1)
		}
		return m, nil

	case "k", "up":
		if len(m.rows) > 0 {
			m.cursor = max(m.cursor-1, 0)
		}
		return m, nil

	case "r":
		return m, m.fetchJournalCmd()
	}

	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	statusStyles = map[string]lipgloss.Style{
		"running": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"passed":  lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		"failed":  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		"skipped": lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	if len(m.entries) == 0 {
		return "Waiting for run journal at " + m.journalPath + "..."
	}

	var s string
	metrics := CalculateMetrics(m.entries)

	s += titleStyle.Render("Run Monitor") + "\n"
	s += fmt.Sprintf("Run: %s | Environments: %d | Tests: %d\n\n",
		metrics.RunID, len(metrics.Environments), metrics.TotalTests)

	s += RenderSummary(metrics, m.width)
	s += "\n"

	maxRows := 15
	if m.height > 25 {
		maxRows = m.height - 15
	}
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}

	for i := start; i < len(m.rows) && i < start+maxRows; i++ {
		row := m.rows[i]
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}

		statusStyle, ok := statusStyles[row.Status]
		if !ok {
			statusStyle = normalStyle
		}

		line := fmt.Sprintf("%s%s %s [%s] %s",
			cursor,
			statusStyle.Render(statusIndicator(row.Status)),
			style.Render(row.TestID),
			statusStyle.Render(row.Status),
			normalStyle.Render(truncateString(row.Detail, 50)),
		)
		s += line + "\n"
	}
	if len(m.rows) > start+maxRows {
		s += fmt.Sprintf("  ... and %d more tests\n", len(m.rows)-start-maxRows)
	}

	s += "\n" + helpStyle.Render("j/k: navigate | r: refresh | q: quit")

	return s
}

func Run(journalPath string) error {
	m := NewModel(journalPath)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
