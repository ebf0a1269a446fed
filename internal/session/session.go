package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/five82/rollcall/internal/api"
	"github.com/five82/rollcall/internal/attendance"
	"github.com/five82/rollcall/internal/ledger"
	"github.com/five82/rollcall/internal/period"
	"github.com/five82/rollcall/internal/status"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// FrameSource produces one image data URI per call.
type FrameSource interface {
	Frame(ctx context.Context) (string, error)
}

// Options configures a Session. Service is required.
type Options struct {
	Service       api.AttendanceService
	Source        FrameSource
	Clock         period.Clock
	Logger        *zap.Logger
	Rules         []attendance.Rule
	MinImageBytes int
	DisplayFor    time.Duration
	// Reauth, when set, is called once after a 401 before the refresh is
	// retried.
	Reauth func(ctx context.Context) error
}

// Session ties the catalog, ledger, and pipeline to one signed-in user.
type Session struct {
	svc      api.AttendanceService
	source   FrameSource
	clock    period.Clock
	sampler  period.Sampler
	log      *zap.Logger
	reauth   func(ctx context.Context) error
	bus      *Bus
	ledger   *ledger.Ledger
	pipeline *attendance.Pipeline
	group    singleflight.Group

	mu          sync.RWMutex
	catalog     period.Catalog
	stats       api.Stats
	hasStats    bool
	face        FaceStatus
	lastRefresh time.Time
	lastErr     error
	failures    int
	closed      bool
	stop        context.CancelFunc
}

// New builds a Session. Call Start to react to bus events and Close when
// done.
func New(opts Options) (*Session, error) {
	if opts.Service == nil {
		return nil, errors.New("session: service is required")
	}
	s := &Session{
		svc:    opts.Service,
		source: opts.Source,
		clock:  opts.Clock,
		log:    opts.Logger,
		reauth: opts.Reauth,
		bus:    NewBus(),
	}
	if s.clock == nil {
		s.clock = period.SystemClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.sampler = period.NewSampler(s.clock)
	s.ledger = ledger.New(s.clock.Now)

	pipeline, err := attendance.New(attendance.Options{
		Marker:        opts.Service,
		Ledger:        s.ledger,
		Notifier:      s,
		Clock:         s.clock,
		Rules:         opts.Rules,
		MinImageBytes: opts.MinImageBytes,
		DisplayFor:    opts.DisplayFor,
		Logger:        s.log.Named("pipeline"),
	})
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	s.pipeline = pipeline
	return s, nil
}

// Bus exposes the session's notification bus.
func (s *Session) Bus() *Bus { return s.bus }

// Ledger exposes the attendance ledger for reads.
func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

// Start refreshes whenever a capture changes attendance. It returns
// immediately; the listener stops on Close or when ctx ends.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.stop != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.mu.Unlock()

	events, unsubscribe := s.bus.Subscribe(8)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Kind != EventAttendanceChanged {
					continue
				}
				if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) && ctx.Err() == nil {
					s.log.Warn("refresh after mark failed", zap.Int64("period_id", ev.PeriodID), zap.Error(err))
				}
			}
		}
	}()
}

// Close stops the listener and drops subscribers. In-flight refreshes finish
// without touching state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.bus.Close()
}

// AttendanceChanged publishes the change on the bus.
func (s *Session) AttendanceChanged(periodID int64) {
	s.mu.RLock()
	p, ok := s.catalog.Find(periodID)
	s.mu.RUnlock()
	if ok {
		s.log.Info("attendance changed", zap.String("period", p.Label()), zap.Int64("period_id", periodID))
	}
	// A refresh already in flight may have fetched before the mark landed;
	// the refresh this event triggers must start its own fetch.
	s.group.Forget("refresh")
	s.bus.Publish(Event{Kind: EventAttendanceChanged, PeriodID: periodID})
}

// Refresh reloads the catalog and today's marks. Overlapping calls share one
// fetch.
func (s *Session) Refresh(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		err := s.refresh(ctx)
		if errors.Is(err, api.ErrUnauthorized) && s.reauth != nil {
			s.bus.Publish(Event{Kind: EventUnauthorized})
			if rerr := s.reauth(ctx); rerr != nil {
				return nil, fmt.Errorf("reauthenticate: %w", rerr)
			}
			err = s.refresh(ctx)
		}
		return nil, err
	})
	return err
}

func (s *Session) refresh(ctx context.Context) error {
	var (
		periods []period.Period
		records []ledger.MarkRecord
		stats   api.Stats
		statsOK bool
	)

	gen := s.ledger.Generation()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.svc.FetchPeriods(gctx)
		if err != nil {
			return fmt.Errorf("fetch periods: %w", err)
		}
		periods = p
		return nil
	})
	g.Go(func() error {
		r, err := s.svc.FetchToday(gctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ledger.ErrFetch, err)
		}
		records = r
		return nil
	})
	g.Go(func() error {
		today := s.clock.Now()
		st, err := s.svc.FetchStats(gctx, api.StatsQuery{Start: today, End: today})
		if err != nil {
			// Stats are decorative; a failure never fails the refresh.
			if gctx.Err() == nil {
				s.log.Debug("stats fetch failed", zap.Error(err))
			}
			return nil
		}
		stats, statsOK = st, true
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	now := s.clock.Now()
	s.lastRefresh = now
	if err != nil {
		s.lastErr = err
		s.failures++
		s.log.Warn("refresh failed", zap.Int("consecutive_failures", s.failures), zap.Error(err))
		return err
	}

	s.catalog = period.NewCatalog(periods, now)
	dropped, fresh := s.ledger.ReconcileFrom(records, gen)
	if !fresh {
		s.log.Debug("skipped ledger snapshot older than a local mark", zap.Int("records", len(records)))
	}
	if statsOK {
		s.stats, s.hasStats = stats, true
	}
	s.lastErr = nil
	s.failures = 0
	s.log.Debug("refreshed",
		zap.Int("periods", len(periods)),
		zap.Int("records", len(records)),
		zap.Int64s("dropped_pending", dropped))
	s.bus.Publish(Event{Kind: EventRefreshed})
	return nil
}

// Active resolves the period open right now.
func (s *Session) Active() period.ActiveState {
	s.mu.RLock()
	catalog := s.catalog
	s.mu.RUnlock()
	return catalog.Resolve(s.sampler.Sample())
}

// Watch samples the clock every interval and publishes EventPeriodChanged
// whenever the open period differs from the previous sample. It blocks until
// ctx ends or the session closes.
func (s *Session) Watch(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		last    int64
		sampled bool
	)
	s.sampler.Run(ctx, interval, func(now period.TimeOfDay) {
		if s.isClosed() {
			cancel()
			return
		}
		s.mu.RLock()
		catalog := s.catalog
		s.mu.RUnlock()
		if catalog.Len() == 0 {
			return
		}

		var id int64
		p, open := catalog.Resolve(now).Period()
		if open {
			id = p.ID
		}
		if sampled && id == last {
			return
		}
		first := !sampled
		sampled, last = true, id
		if first {
			return
		}
		if open {
			s.log.Info("period opened", zap.String("period", p.Label()), zap.Stringer("at", now))
		} else {
			s.log.Info("period closed", zap.Stringer("at", now))
		}
		s.bus.Publish(Event{Kind: EventPeriodChanged, PeriodID: id})
	})
}

// Capture grabs a frame from the source and runs it through the pipeline.
// The frame is only taken when a markable period is open.
func (s *Session) Capture(ctx context.Context) (attendance.Outcome, error) {
	if s.isClosed() {
		return attendance.Outcome{}, ErrClosed
	}
	// A second press while submitting must not start the camera again.
	if s.pipeline.State().InFlight() {
		return attendance.Outcome{}, attendance.ErrBusy
	}
	active := s.Active()

	var frame string
	if per, ok := active.Period(); ok && per.Markable() && s.source != nil {
		f, err := s.source.Frame(ctx)
		if err != nil {
			s.log.Warn("frame capture failed", zap.Error(err))
		} else {
			frame = f
		}
	}
	return s.pipeline.Capture(ctx, active, frame)
}

// FaceStatus is the last face service probe.
type FaceStatus struct {
	Checked    time.Time
	Online     bool
	KnownFaces int
	Err        error
}

// SetFaceHealth records a face service probe result.
func (s *Session) SetFaceHealth(health api.FaceHealth, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.face = FaceStatus{Checked: s.clock.Now(), Err: err}
	if err == nil {
		s.face.Online = true
		s.face.KnownFaces = health.KnownFaces
	}
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Snapshot is everything the UI renders, read at one instant.
type Snapshot struct {
	Now                 time.Time
	Periods             []period.Period
	Active              period.ActiveState
	Records             []ledger.MarkRecord
	Pipeline            attendance.View
	Status              status.Projection
	Timeline            []status.Row
	Summary             status.Summary
	Overall             status.Overall
	HasOverall          bool
	Face                FaceStatus
	FetchedAt           time.Time
	LastRefresh         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the backend has been unreachable for multiple
// refreshes.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Loaded reports whether a refresh has ever succeeded.
func (s Snapshot) Loaded() bool {
	return !s.FetchedAt.IsZero()
}

// Snapshot returns a copy of the current state with derived views.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Periods:             s.catalog.Periods(),
		FetchedAt:           s.catalog.FetchedAt(),
		Face:                s.face,
		LastRefresh:         s.lastRefresh,
		ConsecutiveFailures: s.failures,
	}
	if s.lastErr != nil {
		snap.LastError = fmt.Errorf("%w", s.lastErr)
	}
	if s.hasStats {
		snap.Overall = status.FromStats(s.stats)
		snap.HasOverall = true
	}
	s.mu.RUnlock()

	snap.Now = s.sampler.Now()
	tod := period.At(snap.Now)
	snap.Active = period.Resolve(tod, snap.Periods)
	snap.Records = s.ledger.Records()
	snap.Pipeline = s.pipeline.View()
	snap.Status = status.Project(snap.Active, s.ledger, snap.Pipeline)
	snap.Timeline = status.Timeline(tod, snap.Periods, snap.Records)
	snap.Summary = status.Summarize(tod, snap.Periods, snap.Records)
	return snap
}
