// Package tracker keeps the overlay window in step with the game window.
//
// A Synchronizer is ticked by a Driver. Each tick classifies the foreground
// window, binds the overlay to the game geometry when a window of interest is
// focused, and hides it again when focus moves elsewhere.
package tracker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"grimvault/internal/geometry"
	"grimvault/internal/metrics"
	"grimvault/internal/native"
)

// EventGameBounds carries the monitor-relative game rectangle to the UI shell.
const EventGameBounds = "game:bounds"

// State is the tracker's classification of the desktop.
type State int32

const (
	// Inactive means no window of interest has focus.
	Inactive State = iota
	// ActiveUnbound means a window of interest has focus but the overlay is
	// not bound to game geometry yet.
	ActiveUnbound
	// ActiveBound means the overlay is shown over the game window.
	ActiveBound
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case ActiveUnbound:
		return "active_unbound"
	case ActiveBound:
		return "active_bound"
	default:
		return "unknown"
	}
}

// Sensor answers the window queries a tick needs.
type Sensor interface {
	ActiveWindowTitle() (string, error)
	GameWindowInfo() (*native.WindowInfo, error)
}

// Window is the overlay window as the tracker drives it.
type Window interface {
	SetClickThrough(enabled bool)
	SetAlwaysOnTop(enabled bool)
	SetVisibleOnAllWorkspaces(enabled bool)
	Show()
	MoveTop()
	Hide()
	SetBounds(bounds geometry.Rect)
}

// Notifier pushes events to the UI shell.
type Notifier interface {
	Emit(event string, payload any)
}

// Options configures a Synchronizer.
type Options struct {
	// AllowedTitles are matched case-insensitively as substrings of the
	// foreground window title.
	AllowedTitles []string
	// Debug keeps the overlay visible when focus leaves the game.
	Debug bool
}

// Synchronizer owns the tracker state. Tick is its only mutator.
type Synchronizer struct {
	sensor   Sensor
	window   Window
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	allowed []string
	debug   bool

	state   atomic.Int32
	running atomic.Bool
	stale   atomic.Bool

	// Only touched inside Tick.
	shown    bool
	resolver *geometry.Resolver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Synchronizer in the Inactive state.
func New(sensor Sensor, window Window, notifier Notifier, opts Options, m *metrics.Metrics, logger *zap.Logger) *Synchronizer {
	allowed := make([]string, 0, len(opts.AllowedTitles))
	for _, title := range opts.AllowedTitles {
		title = strings.ToLower(strings.TrimSpace(title))
		if title != "" {
			allowed = append(allowed, title)
		}
	}

	return &Synchronizer{
		sensor:   sensor,
		window:   window,
		notifier: notifier,
		metrics:  m,
		logger:   logger.Named("tracker"),
		allowed:  allowed,
		debug:    opts.Debug,
		resolver: geometry.NewResolver(),
	}
}

// State returns the current state. Safe for concurrent use.
func (s *Synchronizer) State() State {
	return State(s.state.Load())
}

// IsGameOpen reports whether the overlay is bound to the game window. Safe
// for concurrent use.
func (s *Synchronizer) IsGameOpen() bool {
	return s.State() == ActiveBound
}

// Invalidate makes the next tick re-read the game geometry even if the
// overlay is already bound. Drivers call it when the game window moves.
func (s *Synchronizer) Invalidate() {
	s.stale.Store(true)
}

// Tick runs one evaluation. If the previous tick is still running the call
// returns immediately. Panics are recovered and logged; the state is left as
// it was.
func (s *Synchronizer) Tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.TicksSkipped.Inc()
		s.logger.Debug("Skipping tick, previous tick still running")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tracker tick panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		s.metrics.Ticks.WithLabelValues(s.State().String()).Inc()
		metrics.ObserveSince(s.metrics.TickDuration, start)
	}()

	if ctx.Err() != nil {
		return
	}
	s.tick()
}

func (s *Synchronizer) tick() {
	stale := s.stale.Swap(false)

	title, err := s.sensor.ActiveWindowTitle()
	if err != nil {
		s.logger.Warn("Failed to get active window", zap.Error(err))
		s.deactivate()
		return
	}

	s.logger.Debug("Active window", zap.String("title", title))

	if !s.ofInterest(title) {
		if s.State() != Inactive {
			s.logger.Debug("Active window is not of interest")
			s.deactivate()
		}
		return
	}

	if s.State() == ActiveBound && !stale {
		return
	}

	// The game is not always the foreground window: the overlay itself may
	// hold focus, so the game window is looked up by its own title.
	info, err := s.sensor.GameWindowInfo()
	if err != nil {
		s.logger.Warn("Found a valid active window but could not find the game window", zap.Error(err))
		if stale {
			// Keep the invalidation until a re-read succeeds.
			s.stale.Store(true)
		}
		if s.State() == Inactive {
			s.setState(ActiveUnbound)
		}
		return
	}

	s.bind(info)
}

// bind resolves geometry, pushes it and shows the overlay if needed.
func (s *Synchronizer) bind(info *native.WindowInfo) {
	res := s.resolver.Resolve(info.Bounds, info.Monitor)

	s.notifier.Emit(EventGameBounds, res.Relative)

	if res.Changed {
		s.logger.Info("Updating overlay bounds", zap.Stringer("bounds", res.Physical))
		s.window.SetBounds(res.Physical)
		s.metrics.BoundsPushes.Inc()
	}

	if !s.shown {
		s.window.SetClickThrough(true)
		s.window.SetAlwaysOnTop(true)
		s.window.SetVisibleOnAllWorkspaces(true)
		s.window.Show()
		s.window.MoveTop()
		s.shown = true
	}

	s.setState(ActiveBound)
}

// deactivate is the hide transition.
func (s *Synchronizer) deactivate() {
	if s.shown {
		if !s.debug {
			s.window.Hide()
		}
		s.shown = false
	}
	s.resolver.Reset()
	s.setState(Inactive)
}

func (s *Synchronizer) ofInterest(title string) bool {
	title = strings.ToLower(title)
	if title == "" {
		return false
	}
	for _, allowed := range s.allowed {
		if strings.Contains(title, allowed) {
			return true
		}
	}
	return false
}

func (s *Synchronizer) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev == next {
		return
	}

	s.logger.Info("Overlay state changed", zap.Stringer("from", prev), zap.Stringer("to", next))
	s.metrics.Transitions.WithLabelValues(prev.String(), next.String()).Inc()
	if next == ActiveBound {
		s.metrics.GameOpen.Set(1)
	} else {
		s.metrics.GameOpen.Set(0)
	}
}

// Start runs driver in the background until Stop. Calling Start while
// running does nothing.
func (s *Synchronizer) Start(driver Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		driver.Run(ctx, s)
	}()
	s.logger.Info("Window tracker started")
}

// Stop stops the driver and waits for the loop to exit.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Window tracker stopped")
}
