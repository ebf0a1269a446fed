package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// renderWelcome greets the user and shows the day's tally.
func (m Model) renderWelcome() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	now := snap.Now
	if now.IsZero() {
		now = m.now()
	}
	name := m.identity
	if name == "" {
		name = "there"
	}

	title := styles.Logo.Render(fmt.Sprintf("%s, %s", greeting(now), name))
	date := styles.MutedText.Render(now.Format("Monday, January 2, 2006"))

	s := snap.Summary
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		m.statCard("Present", fmt.Sprintf("%d", s.Present), m.theme.Success),
		m.statCard("Absent", fmt.Sprintf("%d", s.Absent), m.theme.Danger),
		m.statCard("Total", fmt.Sprintf("%d", s.Total), m.theme.Accent),
		m.statCard("Attendance", s.PercentString(), m.theme.Info),
	)

	lines := []string{title, date, "", cards, ""}
	if snap.HasOverall {
		lines = append(lines, m.renderOverallLine(styles), "")
	}
	lines = append(lines,
		styles.Text.Bold(true).Render("How it works"),
		styles.MutedText.Render(strings.Join([]string{
			"1. Attendance opens when a period starts and closes when it ends.",
			"2. Switch to Attendance (a) and press c to capture your face.",
			"3. Each period can be marked once; breaks are never marked.",
		}, "\n")),
	)
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

func (m Model) statCard(label, value, color string) string {
	styles := m.theme.Styles()
	body := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(value) + "\n" +
		styles.MutedText.Render(label)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		Padding(0, 2).
		MarginRight(1).
		Width(16).
		Render(body)
}
