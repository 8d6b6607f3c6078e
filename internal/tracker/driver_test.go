package tracker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingTicker struct {
	ticks       atomic.Int32
	invalidates atomic.Int32
}

func (c *countingTicker) Tick(context.Context) { c.ticks.Add(1) }
func (c *countingTicker) Invalidate()          { c.invalidates.Add(1) }

func runDriver(d Driver, t Ticker) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, t)
	}()
	return cancel, done
}

func TestPollDriver_TicksOnInterval(t *testing.T) {
	ticker := &countingTicker{}
	cancel, done := runDriver(PollDriver{Interval: 10 * time.Millisecond}, ticker)

	assert.Eventually(t, func() bool { return ticker.ticks.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("driver did not stop after cancel")
	}
}

func TestPollDriver_TicksImmediately(t *testing.T) {
	ticker := &countingTicker{}
	cancel, done := runDriver(PollDriver{Interval: time.Hour}, ticker)
	defer func() { cancel(); <-done }()

	assert.Eventually(t, func() bool { return ticker.ticks.Load() == 1 }, time.Second, time.Millisecond)
}

func TestEventDriver_ForegroundAndMoveSize(t *testing.T) {
	foreground := make(chan struct{})
	moveSize := make(chan struct{})
	ticker := &countingTicker{}

	cancel, done := runDriver(EventDriver{
		Foreground: foreground,
		MoveSize:   moveSize,
		Fallback:   time.Hour,
	}, ticker)
	defer func() { cancel(); <-done }()

	assert.Eventually(t, func() bool { return ticker.ticks.Load() == 1 }, time.Second, time.Millisecond)

	foreground <- struct{}{}
	foreground <- struct{}{}
	assert.Eventually(t, func() bool { return ticker.ticks.Load() == 3 }, time.Second, time.Millisecond)
	assert.Zero(t, ticker.invalidates.Load())

	moveSize <- struct{}{}
	assert.Eventually(t, func() bool { return ticker.ticks.Load() == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), ticker.invalidates.Load())
}

func TestEventDriver_FallsBackToPolling(t *testing.T) {
	foreground := make(chan struct{})
	close(foreground)
	ticker := &countingTicker{}

	cancel, done := runDriver(EventDriver{Foreground: foreground, Fallback: 10 * time.Millisecond}, ticker)

	assert.Eventually(t, func() bool { return ticker.ticks.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
