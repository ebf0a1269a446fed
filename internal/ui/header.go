package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/rollcall/internal/session"
)

// renderHeader draws the status bar: logo, backend state, user, clock, face
// service and the last refresh.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("rollcall", styles.Logo)}

	switch {
	case !snap.Loaded() && snap.LastError == nil:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	case snap.IsOffline():
		parts = append(parts, bg.Render("● "+classifyConnectionError(snap.LastError), styles.DangerText))
	default:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if m.identity != "" {
		parts = append(parts, bg.Label("User:", m.identity, styles, styles.Text))
	}

	if !snap.Now.IsZero() {
		clock := snap.Now.Format("15:04:05")
		if !compact {
			clock = snap.Now.Format("Mon Jan 2 15:04:05")
		}
		parts = append(parts, bg.Render(clock, styles.AccentText))
	}

	if face := m.renderFaceStatus(snap.Face, styles, bg, compact); face != "" {
		parts = append(parts, face)
	}

	if !snap.LastRefresh.IsZero() {
		parts = append(parts, bg.Label("Synced", formatAgo(snap.FetchedAt, snap.Now), styles, styles.MutedText))
	}

	if snap.LastError != nil {
		limit := 80
		if compact {
			limit = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), limit), styles.DangerText.Bold(false)))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func (m Model) renderFaceStatus(face session.FaceStatus, styles Styles, bg BgStyle, compact bool) string {
	if face.Checked.IsZero() {
		return ""
	}
	label := "Face:"
	if compact {
		label = "F:"
	}
	if !face.Online {
		return bg.Label(label, "offline", styles, styles.DangerText)
	}
	value := "ok"
	if !compact {
		value = fmt.Sprintf("ok (%d known)", face.KnownFaces)
	}
	return bg.Label(label, value, styles, styles.SuccessText)
}

// classifyConnectionError shortens a refresh error for the status dot.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case strings.Contains(msg, "unauthorized"):
		return "SIGNED OUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar lists the keys that matter in the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd
	switch m.view {
	case ViewLogs:
		follow := "Pause"
		if !m.logFollow {
			follow = "Follow"
		}
		commands = []cmd{{"Space", follow}, {"j/k", "Scroll"}, {"g/G", "Top/Bottom"}}
	default:
		commands = []cmd{{"c", "Capture"}, {"r", "Refresh"}}
	}
	commands = append(commands, cmd{"Tab", "Views"}, cmd{"?", "More"})

	colon := lipgloss.NewStyle().Background(lipgloss.Color(m.theme.Surface)).Render(":")
	segments := make([]string, 0, len(commands)+2)
	segments = append(segments, m.renderTabs(styles, bg))
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}

func (m Model) renderTabs(styles Styles, bg BgStyle) string {
	tabs := make([]string, 0, len(viewOrder))
	for _, v := range viewOrder {
		if v == m.view {
			tabs = append(tabs, bg.Render("["+v.String()+"]", styles.AccentText.Bold(true)))
			continue
		}
		tabs = append(tabs, bg.Render(v.String(), styles.FaintText))
	}
	return bg.Join(tabs, " ")
}
