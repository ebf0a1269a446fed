package attendance

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/five82/rollcall/internal/api"
	"github.com/five82/rollcall/internal/ledger"
	"github.com/five82/rollcall/internal/period"
)

type fakeMarker struct {
	mu    sync.Mutex
	calls []api.MarkRequest
	resp  api.MarkResponse
	err   error
	block chan struct{}
}

func (f *fakeMarker) MarkAttendance(ctx context.Context, req api.MarkRequest) (api.MarkResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.resp, f.err
}

func (f *fakeMarker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) AttendanceChanged(id int64) {
	n.mu.Lock()
	n.ids = append(n.ids, id)
	n.mu.Unlock()
}

var (
	lecture = period.Period{ID: 11, Number: 1, Start: period.MustTimeOfDay("09:30"), End: period.MustTimeOfDay("10:20")}
	recess  = period.Period{ID: 12, Number: 2, Name: "Break", Start: period.MustTimeOfDay("10:20"), End: period.MustTimeOfDay("10:35"), Break: true}
)

func validFrame() string {
	payload := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("jpeg-bytes", 20)))
	return "data:image/jpeg;base64," + payload
}

type harness struct {
	pipeline *Pipeline
	marker   *fakeMarker
	ledger   *ledger.Ledger
	notifier *recordingNotifier
	clock    *period.ManualClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := period.NewManualClock(time.Date(2025, 7, 1, 9, 41, 0, 0, time.Local))
	h := &harness{
		marker:   &fakeMarker{resp: api.MarkResponse{Success: true, Message: "Attendance marked successfully"}},
		ledger:   ledger.New(clock.Now),
		notifier: &recordingNotifier{},
		clock:    clock,
	}
	p, err := New(Options{
		Marker:   h.marker,
		Ledger:   h.ledger,
		Notifier: h.notifier,
		Clock:    clock,
		Logger:   zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	h.pipeline = p
	return h
}

func TestCapture_SuccessAppliesOptimisticAndNotifies(t *testing.T) {
	h := newHarness(t)

	out, err := h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame())
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if out.Result.Kind != ResultSuccess || !out.Notice.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}
	if h.marker.callCount() != 1 {
		t.Fatalf("marker calls = %d, want 1", h.marker.callCount())
	}
	req := h.marker.calls[0]
	if strings.HasPrefix(req.Image, "data:") || req.PeriodID != lecture.ID {
		t.Fatalf("request = %+v, want stripped image for period %d", req, lecture.ID)
	}
	if !h.ledger.IsMarked(lecture.ID) {
		t.Fatal("ledger does not show the period as marked")
	}
	if got := h.ledger.Pending(); len(got) != 1 || got[0] != lecture.ID {
		t.Fatalf("pending = %v, want [%d]", got, lecture.ID)
	}
	if len(h.notifier.ids) != 1 || h.notifier.ids[0] != lecture.ID {
		t.Fatalf("notifications = %v", h.notifier.ids)
	}
	if h.pipeline.State() != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", h.pipeline.State())
	}
}

func TestCapture_PreflightFailuresNeverCallServer(t *testing.T) {
	tests := []struct {
		name   string
		active period.ActiveState
		frame  string
		want   *Error
	}{
		{name: "no active period", active: period.NoActivePeriod, frame: validFrame(), want: ErrNoActivePeriod},
		{name: "break period", active: period.OpenForMarking(recess), frame: validFrame(), want: ErrNonMarkablePeriod},
		{name: "empty frame", active: period.OpenForMarking(lecture), frame: "", want: ErrInvalidCapture},
		{name: "short frame", active: period.OpenForMarking(lecture), frame: "data:image/jpeg;base64,AAAA", want: ErrInvalidCapture},
		{name: "not a data uri", active: period.OpenForMarking(lecture), frame: strings.Repeat("A", 200), want: ErrInvalidCapture},
		{name: "bad base64", active: period.OpenForMarking(lecture), frame: "data:image/jpeg;base64," + strings.Repeat("!", 200), want: ErrInvalidCapture},
		// Period checks come first even when the frame is also bad.
		{name: "no period and no frame", active: period.NoActivePeriod, frame: "", want: ErrNoActivePeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			out, err := h.pipeline.Capture(context.Background(), tt.active, tt.frame)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var perr *Error
			if !errors.As(err, &perr) || out.Notice.Category != perr.Category {
				t.Fatalf("notice category = %v, err = %v", out.Notice.Category, err)
			}
			if h.marker.callCount() != 0 {
				t.Fatalf("marker called %d times on a pre-flight failure", h.marker.callCount())
			}
			if h.pipeline.State() != StateIdle {
				t.Fatalf("state = %v, want idle", h.pipeline.State())
			}
		})
	}
}

func TestCapture_ServerAlreadyMarked(t *testing.T) {
	h := newHarness(t)
	h.marker.resp = api.MarkResponse{Success: false, Message: "Attendance already marked for this period"}

	out, err := h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame())
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if out.Result.Kind != ResultAlreadyMarked {
		t.Fatalf("kind = %v, want already marked", out.Result.Kind)
	}
	if out.Notice.Description != "Attendance already marked for Period 1." {
		t.Fatalf("description = %q", out.Notice.Description)
	}
	if !h.ledger.IsMarked(lecture.ID) {
		t.Fatal("already marked period not treated as marked")
	}
	if h.pipeline.State() != StateAlreadyMarked {
		t.Fatalf("state = %v", h.pipeline.State())
	}
}

func TestCapture_LocallyMarkedShortCircuits(t *testing.T) {
	h := newHarness(t)
	h.ledger.ApplyOptimistic(lecture.ID)

	out, err := h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame())
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if out.Result.Kind != ResultAlreadyMarked {
		t.Fatalf("kind = %v, want already marked", out.Result.Kind)
	}
	if h.marker.callCount() != 0 {
		t.Fatal("duplicate attempt reached the server")
	}
}

func TestCapture_FaceMismatchFromErrorBody(t *testing.T) {
	h := newHarness(t)
	h.marker.err = &api.Error{Status: 400, Path: "/api/attendance/mark", Message: "Face recognized does not match"}

	out, err := h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame())
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if out.Result.Kind != ResultRejected {
		t.Fatalf("kind = %v, want rejected", out.Result.Kind)
	}
	if out.Notice.Description != "Face does not match the logged-in user. Please try again." {
		t.Fatalf("description = %q", out.Notice.Description)
	}
	if h.ledger.IsMarked(lecture.ID) {
		t.Fatal("rejected attempt marked the ledger")
	}
	if len(h.notifier.ids) != 0 {
		t.Fatal("rejected attempt published a change")
	}
	if h.pipeline.State() != StateRejected {
		t.Fatalf("state = %v", h.pipeline.State())
	}
}

func TestCapture_ResponseClassification(t *testing.T) {
	tests := []struct {
		name     string
		resp     api.MarkResponse
		err      error
		wantKind ResultKind
		wantText string
	}{
		{
			name:     "rejected with server message",
			resp:     api.MarkResponse{Success: false, Message: "No face detected"},
			wantKind: ResultRejected,
			wantText: "No face detected",
		},
		{
			name:     "rejected without message",
			resp:     api.MarkResponse{Success: false},
			wantKind: ResultRejected,
			wantText: genericFailure,
		},
		{
			name:     "already marked in error body",
			err:      &api.Error{Status: 409, Message: "ATTENDANCE ALREADY MARKED"},
			wantKind: ResultAlreadyMarked,
			wantText: "Attendance already marked for Period 1.",
		},
		{
			name:     "transport failure keeps error text",
			err:      errors.New("execute request: dial tcp 127.0.0.1:8080: connection refused"),
			wantKind: ResultTransportFailure,
			wantText: "execute request: dial tcp 127.0.0.1:8080: connection refused",
		},
		{
			name:     "expired token asks for sign in",
			err:      &api.Error{Status: 401, Path: "/api/attendance/mark"},
			wantKind: ResultTransportFailure,
			wantText: signedOut,
		},
		{
			name:     "server error message",
			err:      &api.Error{Status: 500, Message: "Internal server error"},
			wantKind: ResultTransportFailure,
			wantText: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.marker.resp = tt.resp
			h.marker.err = tt.err
			out, err := h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame())
			if err != nil {
				t.Fatalf("Capture returned error: %v", err)
			}
			if out.Result.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", out.Result.Kind, tt.wantKind)
			}
			if out.Notice.Description != tt.wantText {
				t.Fatalf("description = %q, want %q", out.Notice.Description, tt.wantText)
			}
		})
	}
}

func TestCapture_BusyWhileSubmitting(t *testing.T) {
	h := newHarness(t)
	h.marker.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.pipeline.State() != StateSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("pipeline never reached submitting")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second capture err = %v, want ErrBusy", err)
	}
	close(h.marker.block)
	<-done

	if h.marker.callCount() != 1 {
		t.Fatalf("marker calls = %d, want 1", h.marker.callCount())
	}
}

func TestState_TerminalReturnsToIdleAfterDisplay(t *testing.T) {
	h := newHarness(t)
	h.marker.resp = api.MarkResponse{Success: false, Message: "No face detected"}

	if _, err := h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame()); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if h.pipeline.State() != StateRejected {
		t.Fatalf("state = %v, want rejected", h.pipeline.State())
	}
	view := h.pipeline.View()
	if !view.Showing || view.Last.Result.Kind != ResultRejected {
		t.Fatalf("view = %+v, want rejected outcome showing", view)
	}

	h.clock.Advance(DefaultDisplayFor - time.Millisecond)
	if h.pipeline.State() != StateRejected {
		t.Fatal("terminal state cleared before display window ended")
	}
	h.clock.Advance(time.Millisecond)
	if h.pipeline.State() != StateIdle {
		t.Fatalf("state = %v, want idle after display window", h.pipeline.State())
	}
	if h.pipeline.View().Showing {
		t.Fatal("outcome still showing after display window")
	}
}

func TestCapture_ClearsTerminalImmediately(t *testing.T) {
	h := newHarness(t)
	h.marker.resp = api.MarkResponse{Success: false}
	_, _ = h.pipeline.Capture(context.Background(), period.OpenForMarking(lecture), validFrame())

	_, err := h.pipeline.Capture(context.Background(), period.NoActivePeriod, validFrame())
	if !errors.Is(err, ErrNoActivePeriod) {
		t.Fatalf("err = %v", err)
	}
	if h.pipeline.State() != StateIdle {
		t.Fatalf("state = %v, want idle", h.pipeline.State())
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Options{Ledger: ledger.New(nil)}); err == nil {
		t.Fatal("New without marker returned nil error")
	}
	if _, err := New(Options{Marker: &fakeMarker{}}); err == nil {
		t.Fatal("New without ledger returned nil error")
	}
}

func TestStripDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("px", 60)))

	got, err := StripDataURI("  data:image/jpeg;base64,"+payload+"\n", 100)
	if err != nil {
		t.Fatalf("StripDataURI returned error: %v", err)
	}
	if got != payload {
		t.Fatalf("payload = %q, want %q", got, payload)
	}

	tests := []struct {
		name  string
		frame string
	}{
		{name: "empty", frame: "   "},
		{name: "too short", frame: "data:image/jpeg;base64,AAAA"},
		{name: "not an image", frame: "data:text/plain;base64," + payload},
		{name: "no comma", frame: "data:image/jpeg;base64" + payload},
		{name: "bad base64", frame: "data:image/jpeg;base64," + strings.Repeat("*", 120)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StripDataURI(tt.frame, 100)
			if !errors.Is(err, ErrInvalidCapture) {
				t.Fatalf("err = %v, want ErrInvalidCapture", err)
			}
		})
	}
}
