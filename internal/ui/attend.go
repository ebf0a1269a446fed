package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/rollcall/internal/attendance"
	"github.com/five82/rollcall/internal/period"
	"github.com/five82/rollcall/internal/status"
)

func badgeKey(b status.Badge) string {
	switch b {
	case status.BadgeProcessing:
		return "processing"
	case status.BadgeSuccess:
		return "success"
	case status.BadgeError:
		return "error"
	case status.BadgeAlreadyMarked:
		return "already_marked"
	case status.BadgeNoActivePeriod:
		return "no_active_period"
	default:
		return "ready"
	}
}

// renderAttend draws the status card for the period open right now.
func (m Model) renderAttend() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	proj := snap.Status

	if !snap.Loaded() {
		msg := "Loading today's periods..."
		if snap.LastError != nil {
			msg = "Could not load today's periods. Retrying..."
		}
		return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	var lines []string

	title := "No period in progress"
	if proj.HasPeriod {
		title = proj.Period.Label() + "  " + styles.MutedText.Render(proj.Period.Window())
	}
	lines = append(lines,
		styles.StatusStyle(badgeKey(proj.Badge)).Render(proj.Badge.String())+"  "+styles.Text.Bold(true).Render(title),
		"",
		styles.Text.Render(proj.Description),
	)

	if proj.HasPeriod && proj.Period.Markable() {
		left := int(proj.Period.End - period.At(snap.Now))
		lines = append(lines, styles.FaintText.Render("Closes in "+formatMinutes(left)))
	}

	lines = append(lines, "")
	switch {
	case m.capturing || proj.Label == status.LabelProcessing:
		lines = append(lines, m.spinner.View()+" "+styles.InfoText.Render("Capturing and verifying..."))
	case proj.CanCapture:
		lines = append(lines, styles.AccentText.Render("Press c to capture your face and mark attendance."))
	case proj.Label == status.LabelOpenMarked:
		lines = append(lines, styles.SuccessText.Render("You're all set for this period."))
	default:
		lines = append(lines, styles.FaintText.Render("Capture is available while a period is open."))
	}

	border := m.theme.Border
	if proj.CanCapture {
		border = m.theme.BorderFocus
	}
	cardWidth := m.width - 4
	if cardWidth > 72 {
		cardWidth = 72
	}
	if cardWidth < 20 {
		cardWidth = 20
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(1, 2).
		Width(cardWidth).
		Render(strings.Join(lines, "\n"))

	sections := []string{card}
	if notice := m.renderNotice(styles); notice != "" {
		sections = append(sections, notice)
	}
	if next, ok := nextPeriod(snap.Now, snap.Periods); ok {
		sections = append(sections, styles.MutedText.Render(
			fmt.Sprintf("Next: %s at %s", next.Label(), next.Start)))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderNotice shows the latest outcome while the pipeline still displays
// it, or a local notice such as a busy warning.
func (m Model) renderNotice(styles Styles) string {
	var n attendance.Notice
	switch {
	case m.noticeVisible():
		n = m.notice
	case m.snapshot.Pipeline.Showing:
		n = m.snapshot.Pipeline.Last.Notice
	default:
		return ""
	}
	titleStyle := styles.DangerText
	if n.Success {
		titleStyle = styles.SuccessText
	}
	if n.Category == attendance.CategoryAlreadyMarked {
		titleStyle = styles.WarningText.Bold(true)
	}
	line := titleStyle.Render(n.Title) + "  " + styles.Text.Render(n.Description)
	if !n.Success && n.Category.Retryable() {
		line += "  " + styles.FaintText.Render("Press c to try again.")
	}
	return line
}

// nextPeriod returns the first markable period that has not started yet.
func nextPeriod(now time.Time, periods []period.Period) (period.Period, bool) {
	tod := period.At(now)
	for _, p := range periods {
		if p.Markable() && period.PhaseAt(tod, p) == period.PhaseUpcoming {
			return p, true
		}
	}
	return period.Period{}, false
}
