package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type stubSource struct {
	records []MarkRecord
	err     error
}

func (s stubSource) FetchToday(context.Context) ([]MarkRecord, error) {
	return s.records, s.err
}

func TestApplyOptimistic_Idempotent(t *testing.T) {
	l := New(nil)

	if !l.ApplyOptimistic(1) {
		t.Fatal("first ApplyOptimistic returned false")
	}
	if l.ApplyOptimistic(1) {
		t.Fatal("second ApplyOptimistic returned true, want no-op")
	}
	if !l.IsMarked(1) {
		t.Fatal("IsMarked(1) = false after optimistic apply")
	}
	if got := len(l.Records()); got != 1 {
		t.Fatalf("Records() len = %d, want 1", got)
	}
	if ids := l.Pending(); len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("Pending() = %v, want [1]", ids)
	}
}

func TestApplyOptimistic_DoesNotShadowConfirmed(t *testing.T) {
	l := New(nil)
	l.Reconcile([]MarkRecord{{PeriodID: 2, Status: StatusLate}})

	if l.ApplyOptimistic(2) {
		t.Fatal("ApplyOptimistic over a confirmed record returned true")
	}
	rec, ok := l.Confirmed(2)
	if !ok || rec.Status != StatusLate {
		t.Fatalf("Confirmed(2) = %+v ok=%v, want LATE", rec, ok)
	}
	if len(l.Pending()) != 0 {
		t.Fatalf("Pending() = %v, want empty", l.Pending())
	}
}

func TestReconcile_ConfirmsAndDrops(t *testing.T) {
	l := New(nil)
	l.ApplyOptimistic(1)
	l.ApplyOptimistic(2)

	dropped := l.Reconcile([]MarkRecord{{PeriodID: 1, Status: StatusPresent}})

	if len(dropped) != 1 || dropped[0] != 2 {
		t.Fatalf("dropped = %v, want [2]", dropped)
	}
	if !l.IsMarked(1) {
		t.Fatal("period 1 should be confirmed")
	}
	if l.IsMarked(2) {
		t.Fatal("period 2 should be submittable again after reconcile")
	}
	if len(l.Pending()) != 0 {
		t.Fatalf("Pending() = %v, want empty", l.Pending())
	}
}

func TestReconcile_ServerTruthReplacesWholesale(t *testing.T) {
	l := New(nil)
	l.Reconcile([]MarkRecord{{PeriodID: 1}, {PeriodID: 2}})
	l.Reconcile([]MarkRecord{{PeriodID: 3, Pending: true}, {PeriodID: 3}})

	records := l.Records()
	if len(records) != 1 || records[0].PeriodID != 3 {
		t.Fatalf("Records() = %+v, want only period 3", records)
	}
	if records[0].Pending {
		t.Fatal("server records must never be pending")
	}
	if l.IsMarked(1) || l.IsMarked(2) {
		t.Fatal("stale confirmed records survived reconcile")
	}
}

func TestRefresh_FetchFailureKeepsState(t *testing.T) {
	l := New(nil)
	l.ApplyOptimistic(5)

	cause := errors.New("connection refused")
	_, err := l.Refresh(context.Background(), stubSource{err: cause})
	if !errors.Is(err, ErrFetch) || !errors.Is(err, cause) {
		t.Fatalf("Refresh error = %v, want ErrFetch wrapping cause", err)
	}
	if !l.IsMarked(5) {
		t.Fatal("pending record lost on fetch failure")
	}
}

func TestRefresh_ReturnsReconciledRecords(t *testing.T) {
	l := New(nil)
	l.ApplyOptimistic(5)

	records, err := l.Refresh(context.Background(), stubSource{records: []MarkRecord{{PeriodID: 5}, {PeriodID: 6}}})
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	ids := make([]int, 0, len(records))
	for _, r := range records {
		ids = append(ids, int(r.PeriodID))
	}
	sort.Ints(ids)
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 6 {
		t.Fatalf("Refresh records = %v, want [5 6]", ids)
	}
}

func TestApplyOptimistic_StampsClock(t *testing.T) {
	at := time.Date(2025, 7, 1, 9, 45, 0, 0, time.UTC)
	l := New(func() time.Time { return at })
	l.ApplyOptimistic(1)
	recs := l.Records()
	if !recs[0].MarkedAt.Equal(at) || !recs[0].Pending || recs[0].Status != StatusPresent {
		t.Fatalf("pending record = %+v", recs[0])
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"PRESENT":  StatusPresent,
		" late ":   StatusLate,
		"Absent":   StatusAbsent,
		"excused":  StatusExcused,
		"":         StatusPresent,
		"whatever": StatusPresent,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
	if StatusAbsent.Attended() {
		t.Fatal("ABSENT should not count as attended")
	}
}

func TestReconcileFrom_DiscardsViewOlderThanOptimisticWrite(t *testing.T) {
	l := New(nil)
	before := l.Generation()

	if !l.ApplyOptimistic(1) {
		t.Fatal("ApplyOptimistic(1) = false, want true")
	}
	if l.Generation() == before {
		t.Fatal("optimistic write did not advance the generation")
	}

	// A view fetched before the write must not drop the pending mark.
	if dropped, ok := l.ReconcileFrom(nil, before); ok || dropped != nil {
		t.Fatalf("ReconcileFrom(stale) = %v, %v; want nil, false", dropped, ok)
	}
	if !l.IsMarked(1) {
		t.Fatal("stale view dropped the pending mark")
	}

	// A view fetched after it settles normally.
	current := l.Generation()
	dropped, ok := l.ReconcileFrom([]MarkRecord{{PeriodID: 1, Status: StatusPresent}}, current)
	if !ok || len(dropped) != 0 {
		t.Fatalf("ReconcileFrom(current) = %v, %v; want none dropped, true", dropped, ok)
	}
	if _, confirmed := l.Confirmed(1); !confirmed {
		t.Fatal("current view did not confirm the mark")
	}

	// Re-applying a confirmed mark is a no-op and leaves the generation alone.
	if l.ApplyOptimistic(1) || l.Generation() != current {
		t.Fatal("no-op ApplyOptimistic changed the generation")
	}
}
