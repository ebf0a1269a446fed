package attendance

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/rollcall/internal/api"
	"github.com/five82/rollcall/internal/ledger"
	"github.com/five82/rollcall/internal/period"
)

const (
	// DefaultMinImageBytes rejects frames too short to hold a real image.
	DefaultMinImageBytes = 100
	// DefaultDisplayFor is how long a terminal outcome stays on screen.
	DefaultDisplayFor = 3 * time.Second

	dataURIPrefix  = "data:image/"
	genericFailure = "Could not mark attendance. Please try again."
	signedOut      = "Your sign-in has expired. Please sign in again."
)

// Marker submits a capture to the attendance backend.
type Marker interface {
	MarkAttendance(ctx context.Context, req api.MarkRequest) (api.MarkResponse, error)
}

// Notifier hears about every attempt that left the period marked.
type Notifier interface {
	AttendanceChanged(periodID int64)
}

// State is the pipeline's position in one capture attempt.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateAlreadyMarked
	StateRejected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateAlreadyMarked:
		return "already_marked"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// InFlight reports whether a capture is being validated or submitted.
func (s State) InFlight() bool { return s == StateValidating || s == StateSubmitting }

// Terminal reports whether s is a displayed outcome.
func (s State) Terminal() bool { return s >= StateSucceeded }

// ResultKind classifies a submission that reached the backend.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultAlreadyMarked
	ResultRejected
	ResultTransportFailure
)

// Result is the normalized outcome of one submission.
type Result struct {
	Kind     ResultKind
	PeriodID int64
	Record   ledger.MarkRecord // ResultSuccess only
	Reason   string            // ResultRejected
	Detail   string            // ResultTransportFailure
}

// Notice is what the user is told about an attempt.
type Notice struct {
	Title       string
	Description string
	Category    Category
	Success     bool
}

// Outcome pairs the normalized result with its notice. Result is the zero
// value for pre-flight rejections.
type Outcome struct {
	Result Result
	Notice Notice
	At     time.Time
}

// View is a consistent read of the pipeline for rendering.
type View struct {
	State State
	Last  Outcome
	// Showing is true while Last is still inside its display window.
	Showing bool
}

// Options configures a Pipeline. Marker and Ledger are required.
type Options struct {
	Marker        Marker
	Ledger        *ledger.Ledger
	Notifier      Notifier
	Clock         period.Clock
	Rules         []Rule
	MinImageBytes int
	DisplayFor    time.Duration
	Logger        *zap.Logger
}

// Pipeline runs capture attempts one at a time.
type Pipeline struct {
	marker     Marker
	ledger     *ledger.Ledger
	notifier   Notifier
	clock      period.Clock
	rules      []Rule
	minBytes   int
	displayFor time.Duration
	log        *zap.Logger

	mu        sync.Mutex
	state     State
	enteredAt time.Time
	last      Outcome
}

// New builds a Pipeline, filling unset options with defaults.
func New(opts Options) (*Pipeline, error) {
	if opts.Marker == nil {
		return nil, errors.New("attendance: marker is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("attendance: ledger is required")
	}
	p := &Pipeline{
		marker:     opts.Marker,
		ledger:     opts.Ledger,
		notifier:   opts.Notifier,
		clock:      opts.Clock,
		rules:      opts.Rules,
		minBytes:   opts.MinImageBytes,
		displayFor: opts.DisplayFor,
		log:        opts.Logger,
	}
	if p.clock == nil {
		p.clock = period.SystemClock{}
	}
	if p.rules == nil {
		p.rules = DefaultRules
	}
	if p.minBytes <= 0 {
		p.minBytes = DefaultMinImageBytes
	}
	if p.displayFor <= 0 {
		p.displayFor = DefaultDisplayFor
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p, nil
}

// State returns the current state; an expired terminal state reads as Idle.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settleLocked()
	return p.state
}

// View returns state and last outcome together.
func (p *Pipeline) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settleLocked()
	showing := !p.last.At.IsZero() && p.clock.Now().Sub(p.last.At) < p.displayFor
	return View{State: p.state, Last: p.last, Showing: showing}
}

// Capture validates frame against active and, when it passes, submits it.
// Pre-flight rejections return an *Error and never touch the network. A
// capture while another is in flight returns ErrBusy.
func (p *Pipeline) Capture(ctx context.Context, active period.ActiveState, frame string) (Outcome, error) {
	p.mu.Lock()
	p.settleLocked()
	if p.state.InFlight() {
		p.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	// The next attempt clears any outcome still on display.
	p.state = StateIdle

	per, image, err := p.validate(active, frame)
	if err != nil {
		out := p.preflightOutcome(err)
		p.last = out
		p.mu.Unlock()
		p.log.Info("capture rejected before submit",
			zap.String("category", out.Notice.Category.String()),
			zap.Error(err))
		return out, err
	}
	p.enterLocked(StateValidating)

	if p.ledger.IsMarked(per.ID) {
		out := p.outcome(per, Result{Kind: ResultAlreadyMarked, PeriodID: per.ID})
		p.finishLocked(StateAlreadyMarked, out)
		p.mu.Unlock()
		p.log.Info("period already marked locally", zap.Int64("period_id", per.ID))
		return out, nil
	}
	p.enterLocked(StateSubmitting)
	p.mu.Unlock()

	p.log.Info("submitting attendance",
		zap.Int64("period_id", per.ID),
		zap.Int("period_number", per.Number),
		zap.Int("image_bytes", len(image)))
	resp, err := p.marker.MarkAttendance(ctx, api.MarkRequest{Image: image, PeriodID: per.ID})

	var result Result
	if err != nil {
		result = p.fromError(per, err)
	} else {
		result = p.fromResponse(per, resp)
	}

	if result.Kind == ResultSuccess || result.Kind == ResultAlreadyMarked {
		p.ledger.ApplyOptimistic(per.ID)
	}

	out := p.outcome(per, result)
	p.mu.Lock()
	p.finishLocked(stateFor(result.Kind), out)
	p.mu.Unlock()

	switch result.Kind {
	case ResultSuccess, ResultAlreadyMarked:
		p.log.Info("attendance marked",
			zap.Int64("period_id", per.ID),
			zap.String("category", out.Notice.Category.String()))
		if p.notifier != nil {
			p.notifier.AttendanceChanged(per.ID)
		}
	case ResultRejected:
		p.log.Warn("attendance rejected", zap.Int64("period_id", per.ID), zap.String("reason", result.Reason))
	default:
		p.log.Warn("attendance submit failed", zap.Int64("period_id", per.ID), zap.String("detail", result.Detail), zap.Error(err))
	}
	return out, nil
}

func (p *Pipeline) validate(active period.ActiveState, frame string) (period.Period, string, error) {
	per, ok := active.Period()
	if !ok {
		return period.Period{}, "", ErrNoActivePeriod
	}
	if !per.Markable() {
		return per, "", &Error{Category: CategoryNonMarkablePeriod, Message: ErrNonMarkablePeriod.Message + ": " + per.Label()}
	}
	image, err := StripDataURI(frame, p.minBytes)
	if err != nil {
		return per, "", err
	}
	return per, image, nil
}

// StripDataURI checks that frame is a base64 image data URI of at least
// minBytes characters and returns the payload after the comma.
func StripDataURI(frame string, minBytes int) (string, error) {
	frame = strings.TrimSpace(frame)
	switch {
	case frame == "":
		return "", invalidCapture(errors.New("frame is empty"))
	case len(frame) < minBytes:
		return "", invalidCapture(fmt.Errorf("frame is %d bytes, need at least %d", len(frame), minBytes))
	case !strings.HasPrefix(frame, dataURIPrefix):
		return "", invalidCapture(errors.New("frame is not an image data uri"))
	}
	comma := strings.IndexByte(frame, ',')
	if comma < 0 {
		return "", invalidCapture(errors.New("frame has no payload"))
	}
	payload := frame[comma+1:]
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", invalidCapture(fmt.Errorf("frame payload: %w", err))
	}
	return payload, nil
}

func (p *Pipeline) fromResponse(per period.Period, resp api.MarkResponse) Result {
	if resp.Success {
		return Result{Kind: ResultSuccess, PeriodID: per.ID, Record: p.recordFrom(per, resp.Data)}
	}
	msg := strings.TrimSpace(resp.Message)
	if rule, ok := Classify(p.rules, msg); ok {
		return p.fromRule(per, rule, msg)
	}
	if msg == "" {
		msg = genericFailure
	}
	return Result{Kind: ResultRejected, PeriodID: per.ID, Reason: msg}
}

func (p *Pipeline) fromError(per period.Period, err error) Result {
	if errors.Is(err, api.ErrUnauthorized) {
		return Result{Kind: ResultTransportFailure, PeriodID: per.ID, Detail: signedOut}
	}
	msg := api.MessageOf(err)
	if msg == "" {
		msg = genericFailure
	}
	if rule, ok := Classify(p.rules, msg); ok {
		return p.fromRule(per, rule, msg)
	}
	return Result{Kind: ResultTransportFailure, PeriodID: per.ID, Detail: msg}
}

func (p *Pipeline) fromRule(per period.Period, rule Rule, msg string) Result {
	text := msg
	if rule.Message != "" {
		text = rule.Render(per.Label())
	}
	switch rule.Category {
	case CategoryAlreadyMarked:
		return Result{Kind: ResultAlreadyMarked, PeriodID: per.ID}
	case CategoryTransportFailure:
		return Result{Kind: ResultTransportFailure, PeriodID: per.ID, Detail: text}
	default:
		return Result{Kind: ResultRejected, PeriodID: per.ID, Reason: text}
	}
}

func (p *Pipeline) recordFrom(per period.Period, data *api.MarkData) ledger.MarkRecord {
	rec := ledger.MarkRecord{PeriodID: per.ID, Status: ledger.StatusPresent, MarkedAt: p.clock.Now()}
	if data == nil {
		return rec
	}
	if data.Status != "" {
		rec.Status = ledger.ParseStatus(data.Status)
	}
	if data.MarkedAt != "" {
		if t, err := time.Parse(time.RFC3339, data.MarkedAt); err == nil {
			rec.MarkedAt = t
		}
	}
	return rec
}

func (p *Pipeline) outcome(per period.Period, result Result) Outcome {
	out := Outcome{Result: result, At: p.clock.Now()}
	switch result.Kind {
	case ResultSuccess:
		out.Notice = Notice{
			Title:       "Attendance Marked Successfully",
			Description: fmt.Sprintf("Your attendance has been recorded for %s.", per.Label()),
			Success:     true,
		}
	case ResultAlreadyMarked:
		out.Notice = Notice{
			Title:       "Attendance Already Marked",
			Description: fmt.Sprintf("Attendance already marked for %s.", per.Label()),
			Category:    CategoryAlreadyMarked,
			Success:     true,
		}
	case ResultRejected:
		out.Notice = Notice{Title: "Attendance Failed", Description: result.Reason, Category: CategoryRejected}
	default:
		out.Notice = Notice{Title: "Error", Description: result.Detail, Category: CategoryTransportFailure}
	}
	return out
}

func (p *Pipeline) preflightOutcome(err error) Outcome {
	out := Outcome{At: p.clock.Now()}
	var perr *Error
	if !errors.As(err, &perr) {
		out.Notice = Notice{Title: "Error", Description: genericFailure, Category: CategoryTransportFailure}
		return out
	}
	switch perr.Category {
	case CategoryNoActivePeriod:
		out.Notice = Notice{Title: "No Active Period", Description: "There is no active period to mark attendance for."}
	case CategoryNonMarkablePeriod:
		out.Notice = Notice{Title: "Cannot Mark Attendance", Description: "No valid period is active. Please wait for a valid period."}
	default:
		out.Notice = Notice{Title: "No Image Captured", Description: "Please capture a clear image before submitting."}
	}
	out.Notice.Category = perr.Category
	return out
}

func stateFor(kind ResultKind) State {
	switch kind {
	case ResultSuccess:
		return StateSucceeded
	case ResultAlreadyMarked:
		return StateAlreadyMarked
	case ResultRejected:
		return StateRejected
	default:
		return StateFailed
	}
}

func (p *Pipeline) enterLocked(s State) {
	p.state = s
	p.enteredAt = p.clock.Now()
}

func (p *Pipeline) finishLocked(s State, out Outcome) {
	p.enterLocked(s)
	p.last = out
}

func (p *Pipeline) settleLocked() {
	if p.state.Terminal() && p.clock.Now().Sub(p.enteredAt) >= p.displayFor {
		p.state = StateIdle
	}
}
