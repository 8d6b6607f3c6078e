package scan

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventMode carries the current Mode to the UI shell.
const EventMode = "mode"

// Mode decides whether scans happen on their own.
type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
	ModeDisabled  Mode = "disabled"
)

// ParseMode returns the Mode named s, or ModeAutomatic for anything unknown.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case ModeAutomatic, ModeManual, ModeDisabled:
		return m
	default:
		return ModeAutomatic
	}
}

// Next cycles automatic, manual, disabled.
func (m Mode) Next() Mode {
	switch m {
	case ModeAutomatic:
		return ModeManual
	case ModeManual:
		return ModeDisabled
	default:
		return ModeAutomatic
	}
}

// Runner starts a scan. *Orchestrator implements it.
type Runner interface {
	Run(trigger Trigger) (Outcome, error)
}

// AutoScanner holds the scan mode and, while it is automatic, scans on a
// fixed interval.
type AutoScanner struct {
	runner   Runner
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	mode     Mode
	stopChan chan struct{}
	done     chan struct{}
}

// NewAutoScanner creates a scanner starting in mode.
func NewAutoScanner(runner Runner, notifier Notifier, mode Mode, interval time.Duration, logger *zap.Logger) *AutoScanner {
	if interval <= 0 {
		interval = time.Second
	}
	return &AutoScanner{
		runner:   runner,
		notifier: notifier,
		interval: interval,
		logger:   logger.Named("scan"),
		mode:     mode,
	}
}

// Mode returns the current mode.
func (a *AutoScanner) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SetMode changes the mode and emits it.
func (a *AutoScanner) SetMode(m Mode) {
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()

	a.logger.Info("Scan mode changed", zap.String("mode", string(m)))
	a.notifier.Emit(EventMode, m)
}

// Toggle advances to the next mode and returns it.
func (a *AutoScanner) Toggle() Mode {
	a.mu.Lock()
	next := a.mode.Next()
	a.mode = next
	a.mu.Unlock()

	a.logger.Info("Scan mode changed", zap.String("mode", string(next)))
	a.notifier.Emit(EventMode, next)
	return next
}

// Start begins the scan loop.
func (a *AutoScanner) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopChan != nil {
		return
	}
	a.stopChan = make(chan struct{})
	a.done = make(chan struct{})
	go a.loop(a.stopChan, a.done)
}

// Stop ends the scan loop and waits for an in-progress scan to finish.
func (a *AutoScanner) Stop() {
	a.mu.Lock()
	stop, done := a.stopChan, a.done
	a.stopChan, a.done = nil, nil
	a.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (a *AutoScanner) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if a.Mode() != ModeAutomatic {
				continue
			}
			if _, err := a.runner.Run(TriggerAuto); err != nil && !errors.Is(err, ErrGameNotOpen) && !errors.Is(err, ErrBusy) {
				a.logger.Warn("Automatic scan failed", zap.Error(err))
			}
		}
	}
}
