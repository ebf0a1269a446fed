package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a local wall-clock time expressed as minutes since midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" (a trailing ":SS" is accepted and ignored).
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(value)
	parts := strings.Split(trimmed, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("parse time of day %q: want HH:MM", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("parse time of day %q: bad hour", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("parse time of day %q: bad minute", value)
	}
	return TimeOfDay(hours*60 + minutes), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals; it panics on bad input.
func MustTimeOfDay(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// At truncates t to the minute in its own location.
func At(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// String formats the value as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	m := int(t) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Period is an administrative window during which attendance may be recorded.
type Period struct {
	ID     int64
	Number int
	Name   string
	Start  TimeOfDay
	End    TimeOfDay
	Break  bool
}

// Markable reports whether attendance may be submitted for the period at all.
func (p Period) Markable() bool {
	return !p.Break
}

// Contains reports whether now falls inside the window, both bounds inclusive.
func (p Period) Contains(now TimeOfDay) bool {
	return p.Start <= now && now <= p.End
}

// Label returns the display name, falling back to "Period N".
func (p Period) Label() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Period %d", p.Number)
}

// Window renders "HH:MM - HH:MM".
func (p Period) Window() string {
	return p.Start.String() + " - " + p.End.String()
}

// Phase places a period relative to the current time.
type Phase int

const (
	PhaseUpcoming Phase = iota
	PhaseOpen
	PhaseOver
)

func (ph Phase) String() string {
	switch ph {
	case PhaseOpen:
		return "open"
	case PhaseOver:
		return "over"
	default:
		return "upcoming"
	}
}

// PhaseAt reports whether p has not started, is open, or has ended at now.
func PhaseAt(now TimeOfDay, p Period) Phase {
	switch {
	case p.Contains(now):
		return PhaseOpen
	case now > p.End:
		return PhaseOver
	default:
		return PhaseUpcoming
	}
}
