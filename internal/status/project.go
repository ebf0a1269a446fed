package status

import (
	"fmt"

	"github.com/five82/rollcall/internal/attendance"
	"github.com/five82/rollcall/internal/period"
)

// Label is the coarse status of the dashboard.
type Label int

const (
	LabelNoActivePeriod Label = iota
	LabelOpenUnmarked
	LabelOpenMarked
	LabelProcessing
	LabelError
)

func (l Label) String() string {
	switch l {
	case LabelOpenUnmarked:
		return "open_unmarked"
	case LabelOpenMarked:
		return "open_marked"
	case LabelProcessing:
		return "processing"
	case LabelError:
		return "error"
	default:
		return "no_active_period"
	}
}

// Badge is the short indicator shown next to the status line.
type Badge int

const (
	BadgeReady Badge = iota
	BadgeProcessing
	BadgeSuccess
	BadgeError
	BadgeAlreadyMarked
	BadgeNoActivePeriod
)

func (b Badge) String() string {
	switch b {
	case BadgeProcessing:
		return "Processing"
	case BadgeSuccess:
		return "Success"
	case BadgeError:
		return "Error"
	case BadgeAlreadyMarked:
		return "Already Marked"
	case BadgeNoActivePeriod:
		return "No Active Period"
	default:
		return "Ready"
	}
}

// MarkReader answers whether a period is marked. *ledger.Ledger satisfies it.
type MarkReader interface {
	IsMarked(periodID int64) bool
}

// Projection is everything the UI needs to draw the status line.
type Projection struct {
	Label       Label
	Badge       Badge
	Description string
	Period      period.Period
	HasPeriod   bool
	// CanCapture is true when a capture attempt could reach the server.
	CanCapture bool
}

// Project derives the status line. Precedence, highest first: an attempt in
// flight, a failed outcome still on display, a marked period, no markable
// period, an open unmarked period.
func Project(active period.ActiveState, marks MarkReader, view attendance.View) Projection {
	per, ok := active.Period()
	proj := Projection{Period: per, HasPeriod: ok}

	if view.State.InFlight() {
		proj.Label = LabelProcessing
		proj.Badge = BadgeProcessing
		proj.Description = "Processing attendance..."
		if ok {
			proj.Description = fmt.Sprintf("Processing attendance for %s...", per.Label())
		}
		return proj
	}

	if view.State == attendance.StateRejected || view.State == attendance.StateFailed {
		proj.Label = LabelError
		proj.Badge = BadgeError
		proj.Description = view.Last.Notice.Description
		proj.CanCapture = ok && per.Markable() && (marks == nil || !marks.IsMarked(per.ID))
		return proj
	}

	if ok && per.Markable() && marks != nil && marks.IsMarked(per.ID) {
		proj.Label = LabelOpenMarked
		proj.Badge = BadgeSuccess
		if view.State == attendance.StateAlreadyMarked {
			proj.Badge = BadgeAlreadyMarked
		}
		proj.Description = fmt.Sprintf("Attendance already marked for %s.", per.Label())
		return proj
	}

	if !ok {
		proj.Label = LabelNoActivePeriod
		proj.Badge = BadgeNoActivePeriod
		proj.Description = "No active period for attendance."
		return proj
	}
	if !per.Markable() {
		proj.Label = LabelNoActivePeriod
		proj.Badge = BadgeNoActivePeriod
		proj.Description = fmt.Sprintf("%s is in progress. Attendance is not taken.", per.Label())
		return proj
	}

	proj.Label = LabelOpenUnmarked
	proj.Badge = BadgeReady
	proj.Description = fmt.Sprintf("You can mark attendance for %s.", per.Label())
	proj.CanCapture = true
	return proj
}
