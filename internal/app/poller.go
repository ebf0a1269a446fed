package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// maxBackoff caps the wait between attempts while a poll keeps failing.
const maxBackoff = 5 * time.Minute

type pollFunc func(ctx context.Context) error

// StartPoller runs fn every interval until ctx ends; the caller does the
// first run itself. Consecutive failures stretch the wait exponentially. It
// returns immediately.
func StartPoller(ctx context.Context, name string, interval time.Duration, log *zap.Logger, fn pollFunc) {
	if interval <= 0 || fn == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		failures := 0
		for {
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				log.Warn("poll failed", zap.String("poller", name), zap.Int("failures", failures), zap.Error(err))
				continue
			}
			failures = 0
		}
	}()
}

// calculateBackoff doubles base per failure, capped at maxBackoff. A base
// already above the cap is returned unchanged.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
