package status

import (
	"github.com/shopspring/decimal"

	"github.com/five82/rollcall/internal/api"
	"github.com/five82/rollcall/internal/ledger"
	"github.com/five82/rollcall/internal/period"
)

// RowStatus is one period's standing for the day.
type RowStatus int

const (
	RowUpcoming RowStatus = iota
	RowOpen
	RowMarked
	RowMissed
	RowBreak
)

func (s RowStatus) String() string {
	switch s {
	case RowOpen:
		return "Open"
	case RowMarked:
		return "Marked"
	case RowMissed:
		return "Period over, not marked"
	case RowBreak:
		return "Break"
	default:
		return "Upcoming"
	}
}

// Row is one line of the day's timetable.
type Row struct {
	Period period.Period
	Status RowStatus
	Record ledger.MarkRecord
	Marked bool
}

// Timeline lays out periods in catalog order with their status at now.
func Timeline(now period.TimeOfDay, periods []period.Period, records []ledger.MarkRecord) []Row {
	byPeriod := indexRecords(records)
	rows := make([]Row, 0, len(periods))
	for _, p := range periods {
		row := Row{Period: p}
		if rec, ok := byPeriod[p.ID]; ok {
			row.Record = rec
			row.Marked = true
		}
		switch {
		case !p.Markable():
			row.Status = RowBreak
		case row.Marked:
			row.Status = RowMarked
		default:
			switch period.PhaseAt(now, p) {
			case period.PhaseOpen:
				row.Status = RowOpen
			case period.PhaseOver:
				row.Status = RowMissed
			default:
				row.Status = RowUpcoming
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Summary is the day's tally for the welcome view.
type Summary struct {
	Present    int
	Absent     int
	Total      int
	Percentage decimal.Decimal
}

// PercentString renders the percentage as a whole number, e.g. "67%".
func (s Summary) PercentString() string {
	return s.Percentage.StringFixed(0) + "%"
}

var hundred = decimal.NewFromInt(100)

// Summarize counts markable periods. Absent only counts periods whose end
// has passed without a mark; the percentage rounds half away from zero.
func Summarize(now period.TimeOfDay, periods []period.Period, records []ledger.MarkRecord) Summary {
	byPeriod := indexRecords(records)
	var s Summary
	for _, p := range periods {
		if !p.Markable() {
			continue
		}
		s.Total++
		if rec, ok := byPeriod[p.ID]; ok {
			if rec.Status.Attended() {
				s.Present++
			} else {
				s.Absent++
			}
			continue
		}
		if period.PhaseAt(now, p) == period.PhaseOver {
			s.Absent++
		}
	}
	s.Percentage = percentage(s.Present, s.Total)
	return s
}

// Overall is the server's long-range attendance tally.
type Overall struct {
	TotalDays   int
	PresentDays int
	AbsentDays  int
	Percentage  decimal.Decimal
}

// FromStats normalizes a stats reply. The percentage is recomputed from
// the day counts when the server omitted it.
func FromStats(stats api.Stats) Overall {
	o := Overall{
		TotalDays:   stats.TotalDays,
		PresentDays: stats.PresentDays,
		AbsentDays:  stats.AbsentDays,
		Percentage:  decimal.NewFromFloat(stats.AttendancePercentage).Round(1),
	}
	if o.TotalDays == 0 && len(stats.AttendanceList) > 0 {
		for _, entry := range stats.AttendanceList {
			o.TotalDays++
			if ledger.ParseStatus(entry.Status).Attended() {
				o.PresentDays++
			} else {
				o.AbsentDays++
			}
		}
	}
	if stats.AttendancePercentage == 0 && o.TotalDays > 0 {
		o.Percentage = percentage(o.PresentDays, o.TotalDays)
	}
	return o
}

func percentage(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(whole))).
		Round(0)
}

func indexRecords(records []ledger.MarkRecord) map[int64]ledger.MarkRecord {
	out := make(map[int64]ledger.MarkRecord, len(records))
	for _, rec := range records {
		if _, seen := out[rec.PeriodID]; !seen {
			out[rec.PeriodID] = rec
		}
	}
	return out
}
