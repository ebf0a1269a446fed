package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding the dashboard understands.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding

	ViewWelcome key.Binding
	ViewAttend  key.Binding
	ViewPeriods key.Binding
	ViewLogs    key.Binding

	Capture key.Binding
	Refresh key.Binding

	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding
	ToggleFollow key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "e"), key.WithHelp("e", "Quit")),
		Help:       key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h/?", "Toggle help")),
		CycleTheme: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "Cycle theme")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "Next view")),
		ShiftTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "Previous view")),

		ViewWelcome: key.NewBinding(key.WithKeys("w", "1"), key.WithHelp("w", "Welcome")),
		ViewAttend:  key.NewBinding(key.WithKeys("a", "2"), key.WithHelp("a", "Attendance")),
		ViewPeriods: key.NewBinding(key.WithKeys("p", "3"), key.WithHelp("p", "Timetable")),
		ViewLogs:    key.NewBinding(key.WithKeys("l", "4"), key.WithHelp("l", "Logs")),

		Capture: key.NewBinding(key.WithKeys("c", "enter"), key.WithHelp("c", "Capture and mark")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Refresh now")),

		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "Scroll up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "Scroll down")),
		Top:          key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "Top")),
		Bottom:       key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "Bottom")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "Half page up")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "Half page down")),
		ToggleFollow: key.NewBinding(key.WithKeys(" "), key.WithHelp("Space", "Toggle follow")),
	}
}

// ShortHelp returns bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Capture, k.Help, k.Quit}
}

// FullHelp returns bindings grouped the way the help overlay shows them.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.ViewWelcome, k.ViewAttend, k.ViewPeriods, k.ViewLogs},
		{k.Capture, k.Refresh},
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageUp, k.HalfPageDown, k.ToggleFollow},
		{k.CycleTheme, k.Help, k.Quit},
	}
}

var helpTitles = []string{"Views", "Attendance", "Logs", "General"}
