package period

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a settable clock for tests and demos.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Sampler turns a Clock into comparable time-of-day samples.
type Sampler struct {
	clock Clock
}

// NewSampler wraps clock; nil uses the system clock.
func NewSampler(clock Clock) Sampler {
	if clock == nil {
		clock = SystemClock{}
	}
	return Sampler{clock: clock}
}

// Sample reads the clock once.
func (s Sampler) Sample() TimeOfDay {
	return At(s.clock.Now())
}

// Now exposes the underlying instant.
func (s Sampler) Now() time.Time {
	return s.clock.Now()
}

// Run calls fn with a fresh sample immediately and then every interval until
// ctx is cancelled. It blocks.
func (s Sampler) Run(ctx context.Context, interval time.Duration, fn func(TimeOfDay)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(s.Sample())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
