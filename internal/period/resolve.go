package period

// ActiveState is the result of resolving the catalog against the current time.
// The zero value is NoActivePeriod.
type ActiveState struct {
	period *Period
}

// NoActivePeriod is returned when no window contains the current time.
var NoActivePeriod = ActiveState{}

// OpenForMarking wraps p as the active period.
func OpenForMarking(p Period) ActiveState {
	return ActiveState{period: &p}
}

// Open reports whether a period is currently open.
func (s ActiveState) Open() bool {
	return s.period != nil
}

// Period returns the open period, if any.
func (s ActiveState) Period() (Period, bool) {
	if s.period == nil {
		return Period{}, false
	}
	return *s.period, true
}

// Resolve returns the first period in catalog order whose window contains now.
// Overlapping windows are a data problem upstream; the first match wins.
func Resolve(now TimeOfDay, periods []Period) ActiveState {
	for _, p := range periods {
		if p.Contains(now) {
			return OpenForMarking(p)
		}
	}
	return NoActivePeriod
}
