package tracker

import (
	"context"
	"time"
)

// Ticker is what a Driver drives. *Synchronizer implements it.
type Ticker interface {
	Tick(ctx context.Context)
	Invalidate()
}

// Driver decides when ticks happen. Run blocks until ctx is cancelled.
type Driver interface {
	Run(ctx context.Context, t Ticker)
}

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 2500 * time.Millisecond

// PollDriver ticks once immediately and then on a fixed interval.
type PollDriver struct {
	Interval time.Duration
}

func (d PollDriver) Run(ctx context.Context, t Ticker) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// EventDriver ticks whenever the foreground window changes and re-reads the
// game geometry whenever a window finishes moving or resizing. A slow
// fallback poll covers events the hook misses. Nil channels are never
// signalled, which leaves only the fallback.
type EventDriver struct {
	Foreground <-chan struct{}
	MoveSize   <-chan struct{}
	Fallback   time.Duration
}

func (d EventDriver) Run(ctx context.Context, t Ticker) {
	fallback := d.Fallback
	if fallback <= 0 {
		fallback = 4 * DefaultInterval
	}

	ticker := time.NewTicker(fallback)
	defer ticker.Stop()

	foreground, moveSize := d.Foreground, d.MoveSize

	t.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-foreground:
			if !ok {
				foreground = nil
				continue
			}
			t.Tick(ctx)
			ticker.Reset(fallback)
		case _, ok := <-moveSize:
			if !ok {
				moveSize = nil
				continue
			}
			t.Invalidate()
			t.Tick(ctx)
			ticker.Reset(fallback)
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}
