package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Status is the recorded attendance outcome for a period.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusLate    Status = "LATE"
	StatusAbsent  Status = "ABSENT"
	StatusExcused Status = "EXCUSED"
)

// ParseStatus normalises server spellings ("present", " Late ") to a Status.
// Unknown values map to Present, matching how the backend records a bare mark.
func ParseStatus(value string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusLate:
		return StatusLate
	case StatusAbsent:
		return StatusAbsent
	case StatusExcused:
		return StatusExcused
	default:
		return StatusPresent
	}
}

// Attended reports whether the status counts as having attended.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate || s == StatusExcused
}

// MarkRecord is one period's attendance entry for today.
type MarkRecord struct {
	PeriodID int64
	Status   Status
	MarkedAt time.Time // zero when the server did not say
	Pending  bool      // optimistic, not yet confirmed by a refresh
}

// ErrFetch wraps transport failures while refreshing the ledger.
var ErrFetch = errors.New("fetch today's attendance")

// TodaySource returns the authoritative attendance for today.
type TodaySource interface {
	FetchToday(ctx context.Context) ([]MarkRecord, error)
}

// Ledger is the client-side view of today's marks. Confirmed entries come
// only from Reconcile or ReconcileFrom; pending entries only from ApplyOptimistic.
type Ledger struct {
	mu        sync.RWMutex
	confirmed []MarkRecord
	pending   map[int64]MarkRecord
	gen       uint64
	now       func() time.Time
}

// New returns an empty ledger. now may be nil.
func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{pending: make(map[int64]MarkRecord), now: now}
}

// Refresh fetches the authoritative records and reconciles against them.
// Nothing changes when the fetch fails.
func (l *Ledger) Refresh(ctx context.Context, src TodaySource) ([]MarkRecord, error) {
	gen := l.Generation()
	records, err := src.FetchToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	l.ReconcileFrom(records, gen)
	return l.Records(), nil
}

// IsMarked is true when a confirmed or pending record exists for periodID.
func (l *Ledger) IsMarked(periodID int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.pending[periodID]; ok {
		return true
	}
	return l.confirmedIndex(periodID) >= 0
}

// Confirmed returns the confirmed record for periodID, if any.
func (l *Ledger) Confirmed(periodID int64) (MarkRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.confirmedIndex(periodID); i >= 0 {
		return l.confirmed[i], true
	}
	return MarkRecord{}, false
}

// ApplyOptimistic records a pending Present mark. It returns false and leaves
// the ledger untouched when the period is already marked either way.
func (l *Ledger) ApplyOptimistic(periodID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.pending[periodID]; ok {
		return false
	}
	if l.confirmedIndex(periodID) >= 0 {
		return false
	}
	l.pending[periodID] = MarkRecord{
		PeriodID: periodID,
		Status:   StatusPresent,
		MarkedAt: l.now(),
		Pending:  true,
	}
	l.gen++
	return true
}

// Generation counts optimistic writes. Callers read it before fetching so
// ReconcileFrom can tell whether the fetched view predates a newer mark.
func (l *Ledger) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gen
}

// ReconcileFrom is Reconcile for a server view fetched when the ledger was
// at generation gen. If an optimistic write happened since, the view may not
// include it and is discarded; ok is false and nothing changes.
func (l *Ledger) ReconcileFrom(server []MarkRecord, gen uint64) (dropped []int64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return nil, false
	}
	return l.reconcileLocked(server), true
}

// Reconcile replaces the confirmed set with server and settles pending
// entries: those the server now reports are absorbed, the rest are dropped
// and returned so the caller can re-enable submission for them.
func (l *Ledger) Reconcile(server []MarkRecord) (dropped []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reconcileLocked(server)
}

func (l *Ledger) reconcileLocked(server []MarkRecord) (dropped []int64) {
	confirmed := make([]MarkRecord, 0, len(server))
	seen := make(map[int64]struct{}, len(server))
	for _, rec := range server {
		if _, dup := seen[rec.PeriodID]; dup {
			continue
		}
		seen[rec.PeriodID] = struct{}{}
		rec.Pending = false
		confirmed = append(confirmed, rec)
	}

	for id := range l.pending {
		if _, ok := seen[id]; !ok {
			dropped = append(dropped, id)
		}
	}
	l.confirmed = confirmed
	l.pending = make(map[int64]MarkRecord)
	return dropped
}

// Records returns confirmed records in server order followed by pending ones.
func (l *Ledger) Records() []MarkRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]MarkRecord, 0, len(l.confirmed)+len(l.pending))
	out = append(out, l.confirmed...)
	for _, rec := range l.pending {
		out = append(out, rec)
	}
	return out
}

// Pending returns the ids of unconfirmed marks.
func (l *Ledger) Pending() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]int64, 0, len(l.pending))
	for id := range l.pending {
		ids = append(ids, id)
	}
	return ids
}

func (l *Ledger) confirmedIndex(periodID int64) int {
	for i, rec := range l.confirmed {
		if rec.PeriodID == periodID {
			return i
		}
	}
	return -1
}
