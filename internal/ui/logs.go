package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/rollcall/internal/logtail"
)

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logFollow = !m.logFollow
		if m.logFollow {
			m.logViewport.GotoBottom()
			return m, readLogsCmd(m.logPath)
		}
	case key.Matches(msg, m.keys.Up):
		m.logFollow = false
		m.logViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logFollow = false
		m.logViewport.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
	case key.Matches(msg, m.keys.Top):
		m.logFollow = false
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
	}
	return m, nil
}

func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	lines := make([]string, 0, len(m.logEntries))
	for _, e := range m.logEntries {
		lines = append(lines, m.formatLogEntry(e))
	}
	if len(lines) == 0 {
		empty := "No log entries yet."
		if m.logPath != "" {
			empty = "No log entries yet in " + truncateMiddle(m.logPath, max(m.width-24, 16)) + "."
		}
		lines = []string{m.theme.Styles().FaintText.Render(empty)}
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	if m.logFollow {
		m.logViewport.GotoBottom()
	}
}

// formatLogEntry renders one entry as "15:04:05 LEVEL logger msg k=v".
func (m Model) formatLogEntry(e logtail.Entry) string {
	styles := m.theme.Styles()
	if !e.Structured() {
		return styles.MutedText.Render(e.Raw)
	}
	parts := make([]string, 0, 5)
	if !e.Time.IsZero() {
		parts = append(parts, styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
	}
	parts = append(parts, m.levelStyle(e.Level).Render(padRight(e.Level, 5)))
	if e.Logger != "" {
		parts = append(parts, styles.AccentText.Render("["+e.Logger+"]"))
	}
	parts = append(parts, styles.Text.Render(e.Msg))
	if fields := e.FieldString(); fields != "" {
		parts = append(parts, styles.MutedText.Render(fields))
	}
	return strings.Join(parts, " ")
}

func (m Model) levelStyle(level string) lipgloss.Style {
	styles := m.theme.Styles()
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText.Bold(true)
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.SuccessText
	}
}

func (m Model) renderLogs() string {
	if m.logErr != nil {
		styles := m.theme.Styles()
		return styles.DangerText.Render("Could not read log: ") + styles.MutedText.Render(m.logErr.Error())
	}
	return m.logViewport.View()
}
