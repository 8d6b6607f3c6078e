// Package scan runs price checks: capture a tooltip through the native module,
// look its text up remotely and tell the UI shell what happened.
package scan

import (
	"context"
	"errors"
	"maps"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grimvault/internal/metrics"
	"grimvault/internal/native"
)

// UI shell events.
const (
	EventScanStart  = "scan:start"
	EventScanFinish = "scan:finish"
	EventHoverItem  = "hover:item"
	EventClear      = "clear"
)

var (
	// ErrBusy is returned when a scan is already in flight.
	ErrBusy = errors.New("scan already in progress")
	// ErrGameNotOpen is returned for hotkey and auto triggers while the
	// overlay is not bound to the game.
	ErrGameNotOpen = errors.New("game is not open")
)

// Trigger says what started a scan.
type Trigger string

const (
	TriggerHotkey  Trigger = "hotkey"
	TriggerRequest Trigger = "request"
	TriggerAuto    Trigger = "auto"
)

// Outcome is how a scan ended.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeMissed   Outcome = "missed"
	OutcomeNoResult Outcome = "no_result"
	OutcomeRejected Outcome = "rejected"
	OutcomeBusy     Outcome = "busy"
)

// DefaultTimeout bounds a whole scan so a hung capture cannot hold the
// in-flight slot forever.
const DefaultTimeout = 30 * time.Second

// Capturer finds and reads a tooltip on screen. A nil tooltip with a nil
// error means nothing was found.
type Capturer interface {
	Tooltip(ctx context.Context) (*native.Tooltip, error)
}

// Lookup resolves tooltip text into item data. A nil map with a nil error
// means the service had nothing for the text.
type Lookup interface {
	Lookup(ctx context.Context, text string) (map[string]any, error)
}

// GameState reports whether the overlay is over the game.
type GameState interface {
	IsGameOpen() bool
}

// Notifier pushes events to the UI shell.
type Notifier interface {
	Emit(event string, payload any)
}

// Orchestrator runs at most one scan at a time.
type Orchestrator struct {
	capturer Capturer
	lookup   Lookup
	game     GameState
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	timeout  time.Duration
	inFlight atomic.Bool
}

// New creates an Orchestrator.
func New(capturer Capturer, lookup Lookup, game GameState, notifier Notifier, m *metrics.Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		capturer: capturer,
		lookup:   lookup,
		game:     game,
		notifier: notifier,
		metrics:  m,
		logger:   logger.Named("scan"),
		timeout:  DefaultTimeout,
	}
}

// InFlight reports whether a scan is running.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Run performs one scan for trigger. Once started a scan always runs to the
// end and emits scan:finish; the caller cannot cancel it.
func (o *Orchestrator) Run(trigger Trigger) (Outcome, error) {
	if trigger != TriggerRequest && !o.game.IsGameOpen() {
		o.logger.Debug("Tried to check for tooltips but the game is not open", zap.String("trigger", string(trigger)))
		o.count(trigger, OutcomeRejected)
		return OutcomeRejected, ErrGameNotOpen
	}

	if !o.inFlight.CompareAndSwap(false, true) {
		o.logger.Debug("Scan already in progress, dropping trigger", zap.String("trigger", string(trigger)))
		o.count(trigger, OutcomeBusy)
		return OutcomeBusy, ErrBusy
	}
	defer o.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	logger := o.logger.With(
		zap.String("scan_id", uuid.NewString()),
		zap.String("trigger", string(trigger)),
	)

	start := time.Now()
	outcome := o.contain(ctx, trigger, logger)
	metrics.ObserveSince(o.metrics.ScanDuration, start)
	o.count(trigger, outcome)

	logger.Debug("Scan finished", zap.String("outcome", string(outcome)), zap.Duration("took", time.Since(start)))
	return outcome, nil
}

// contain turns a panic in the capturer or the lookup into a no-result scan.
// run has already emitted scan:finish by the time the panic reaches here.
func (o *Orchestrator) contain(ctx context.Context, trigger Trigger, logger *zap.Logger) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic during scan", zap.Any("panic", r), zap.Stack("stack"))
			outcome = OutcomeNoResult
		}
	}()
	return o.run(ctx, trigger, logger)
}

func (o *Orchestrator) run(ctx context.Context, trigger Trigger, logger *zap.Logger) Outcome {
	o.notifier.Emit(EventScanStart, nil)
	defer o.notifier.Emit(EventScanFinish, nil)

	tooltip, err := o.capturer.Tooltip(ctx)
	if err != nil {
		logger.Error("Error getting tooltip", zap.Error(err))
		o.metrics.CaptureErrors.Inc()
		tooltip = nil
	}

	if tooltip == nil {
		if trigger == TriggerRequest {
			o.notifier.Emit(EventClear, nil)
		}
		return OutcomeMissed
	}

	logger.Debug("Tooltip found", zap.String("text", tooltip.Text), zap.Stringer("bounds", tooltip.Bounds()))

	result, err := o.lookup.Lookup(ctx, tooltip.Text)
	if err != nil {
		logger.Error("Price check failed", zap.Error(err))
		return OutcomeNoResult
	}
	if len(result) == 0 {
		return OutcomeNoResult
	}

	payload := tooltip.Fields()
	maps.Copy(payload, result)
	o.notifier.Emit(EventHoverItem, payload)
	return OutcomeFound
}

func (o *Orchestrator) count(trigger Trigger, outcome Outcome) {
	o.metrics.Scans.WithLabelValues(string(trigger), string(outcome)).Inc()
}
