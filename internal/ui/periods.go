package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/rollcall/internal/status"
)

func rowKey(s status.RowStatus) string {
	switch s {
	case status.RowOpen:
		return "open"
	case status.RowMarked:
		return "marked"
	case status.RowMissed:
		return "missed"
	case status.RowBreak:
		return "break"
	default:
		return "upcoming"
	}
}

// renderPeriods draws today's timetable with each period's standing.
func (m Model) renderPeriods() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	if len(snap.Timeline) == 0 {
		msg := "No periods scheduled today."
		if !snap.Loaded() {
			msg = "Loading today's periods..."
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(styles.MutedText.Render(msg))
	}

	const (
		numW    = 4
		nameW   = 18
		windowW = 15
		statusW = 26
	)
	header := styles.FaintText.Render(
		padRight("  #", numW+2) + padRight("Period", nameW) + padRight("Time", windowW) + padRight("Status", statusW) + "Marked")
	lines := []string{header, styles.FaintText.Render("  " + strings.Repeat("─", numW+nameW+windowW+statusW+8))}

	active, activeOK := snap.Active.Period()
	for _, row := range snap.Timeline {
		marked := ""
		if row.Marked {
			marked = titleCase(string(row.Record.Status))
			if !row.Record.MarkedAt.IsZero() {
				marked += " " + row.Record.MarkedAt.Format("15:04")
			}
			if row.Record.Pending {
				marked += " (syncing)"
			}
		}
		lead := padRight(fmt.Sprintf("  %d", row.Period.Number), numW+2) +
			padRight(truncate(row.Period.Label(), nameW-1), nameW) +
			padRight(row.Period.Window(), windowW)
		if activeOK && row.Period.ID == active.ID {
			lead = styles.Selected.Render("▸" + stripLeading(lead, 1))
		}
		line := lead +
			styles.StatusText(rowKey(row.Status)).Render(padRight(row.Status.String(), statusW)) +
			styles.MutedText.Render(marked)
		lines = append(lines, line)
	}

	lines = append(lines, "", m.renderSummaryLine(styles))
	if snap.HasOverall {
		lines = append(lines, m.renderOverallLine(styles))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderSummaryLine(styles Styles) string {
	s := m.snapshot.Summary
	return styles.MutedText.Render("Today  ") +
		styles.SuccessText.Render(fmt.Sprintf("%d present", s.Present)) + styles.FaintText.Render(" · ") +
		styles.DangerText.Render(fmt.Sprintf("%d absent", s.Absent)) + styles.FaintText.Render(" · ") +
		styles.Text.Render(fmt.Sprintf("%d periods", s.Total)) + styles.FaintText.Render(" · ") +
		styles.AccentText.Render(s.PercentString())
}

func (m Model) renderOverallLine(styles Styles) string {
	o := m.snapshot.Overall
	return styles.MutedText.Render("Overall ") +
		styles.Text.Render(fmt.Sprintf("%d/%d days", o.PresentDays, o.TotalDays)) + styles.FaintText.Render(" · ") +
		styles.AccentText.Render(o.Percentage.String()+"%")
}

// stripLeading drops n leading runes.
func stripLeading(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return ""
	}
	return string(runes[n:])
}
