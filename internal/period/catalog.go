package period

import "time"

// Catalog is the ordered period list from a single fetch. It is never patched
// in place; a refresh builds a new Catalog.
type Catalog struct {
	periods   []Period
	fetchedAt time.Time
}

// NewCatalog copies periods, keeping the order the server returned them in.
func NewCatalog(periods []Period, fetchedAt time.Time) Catalog {
	dup := make([]Period, len(periods))
	copy(dup, periods)
	return Catalog{periods: dup, fetchedAt: fetchedAt}
}

// Periods returns a copy of the ordered periods.
func (c Catalog) Periods() []Period {
	if len(c.periods) == 0 {
		return nil
	}
	dup := make([]Period, len(c.periods))
	copy(dup, c.periods)
	return dup
}

func (c Catalog) Len() int { return len(c.periods) }

// FetchedAt is the time the catalog was received.
func (c Catalog) FetchedAt() time.Time { return c.fetchedAt }

// Find looks a period up by id.
func (c Catalog) Find(id int64) (Period, bool) {
	for _, p := range c.periods {
		if p.ID == id {
			return p, true
		}
	}
	return Period{}, false
}

// Resolve is shorthand for Resolve(now, c.Periods()) without the copy.
func (c Catalog) Resolve(now TimeOfDay) ActiveState {
	return Resolve(now, c.periods)
}
