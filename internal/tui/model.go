// Package tui is a live AFL-style dashboard built on bubbletea and
// lipgloss, mirroring the teacher's terminal dashboard shape but
// rendering a fuzzing run's stats instead of an attack's.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/genfuzz/genfuzz/pkg/trial"
)

// SnapshotSource supplies the live data the dashboard polls each tick.
type SnapshotSource interface {
	Snapshot() trial.Snapshot
}

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model for the run dashboard.
type Model struct {
	source   SnapshotSource
	interval time.Duration
	snap     trial.Snapshot
	started  time.Time
	quitting bool
}

// New builds a dashboard Model polling source every interval.
func New(source SnapshotSource, interval time.Duration) Model {
	return Model{source: source, interval: interval, started: time.Now()}
}

// Init starts the polling loop.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

// Update handles ticks and key presses (q / ctrl+c to quit).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		m.snap = m.source.Snapshot()
		return m, tickCmd(m.interval)
	}
	return m, nil
}

// View renders the dashboard frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-16s", label)) + valueStyle.Render(value)
	}

	lines := []string{
		titleStyle.Render("genfuzz"),
		"",
		row("run time", time.Since(m.started).Truncate(time.Second).String()),
		row("total execs", fmt.Sprintf("%d", m.snap.Stats.TotalExecs)),
		row("exec/s", fmt.Sprintf("%.1f", m.snap.ExecsPerSec)),
		row("corpus size", fmt.Sprintf("%d", m.snap.CorpusSize)),
		row("H0 / H1 / H2", fmt.Sprintf("%.0f / %.2f / %.2f", m.snap.Diversity.H0, m.snap.Diversity.H1, m.snap.Diversity.H2)),
	}

	if m.snap.Failures > 0 {
		lines = append(lines, failureStyle.Render(fmt.Sprintf("failures: %d", m.snap.Failures)))
	} else {
		lines = append(lines, row("failures", "0"))
	}

	lines = append(lines, "", labelStyle.Render("press q to quit"))

	body := ""
	for i, l := range lines {
		if i > 0 {
			body += "\n"
		}
		body += l
	}
	return borderStyle.Render(body)
}

// Run starts the bubbletea program and blocks until the user quits.
func Run(source SnapshotSource, interval time.Duration) error {
	_, err := tea.NewProgram(New(source, interval)).Run()
	return err
}
