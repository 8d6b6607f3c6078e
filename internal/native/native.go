// Package native wraps the native capture module: the screen capture,
// tooltip detection and OCR backend, plus the cheap window queries the
// overlay tracker polls.
//
// The module itself is opaque. Service is the only way the rest of the
// application talks to it, and it guarantees that nothing the module does
// (failing, returning garbage, panicking) escapes as anything but an error.
package native

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"grimvault/internal/geometry"
	"grimvault/internal/logging"
)

var (
	ErrNotInitialized     = errors.New("native module not initialized")
	ErrAlreadyInitialized = errors.New("native module already initialized")
	ErrInitFailed         = errors.New("native module failed to initialize")
	ErrUnsupported        = errors.New("native module is not available on this platform")
)

// Options configures Initialize.
type Options struct {
	TesseractPath      string
	DetectionModelPath string
	CaptureMode        string // "wgc", "d3d", "gdi"
	GameTitle          string
	// OnMessage receives diagnostics from inside the module. Service sets it.
	OnMessage func(level, message string)
}

// Tooltip is a tooltip located and read by the module, in screen pixels.
type Tooltip struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds returns the tooltip rectangle.
func (t *Tooltip) Bounds() geometry.Rect {
	return geometry.Rect{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height}
}

// Fields returns the tooltip as a loosely typed map, the shape merged into
// hover:item notifications.
func (t *Tooltip) Fields() map[string]any {
	return map[string]any{
		"text":   t.Text,
		"x":      t.X,
		"y":      t.Y,
		"width":  t.Width,
		"height": t.Height,
	}
}

// WindowInfo describes the game window and the monitor hosting it. Bounds are
// in logical pixels.
type WindowInfo struct {
	Bounds  geometry.Rect    `json:"bounds"`
	Monitor geometry.Monitor `json:"monitor"`
}

// Module is the raw contract every backend implements. Implementations may
// block, fail or panic; Service deals with all of it.
type Module interface {
	// Initialize loads models and prepares the capture backend. It is called
	// exactly once.
	Initialize(opts Options) (bool, error)
	// ActiveWindowTitle returns the title of the foreground window, or "" if
	// there is none.
	ActiveWindowTitle() (string, error)
	// GameWindowInfo returns nil when the game window does not exist or is not
	// visible.
	GameWindowInfo() (*WindowInfo, error)
	// Tooltip captures the screen and returns the first tooltip found, or nil.
	// It can take hundreds of milliseconds.
	Tooltip() (*Tooltip, error)
}

// Service is the safe call surface over a Module.
type Service struct {
	module Module
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
	initCalled  bool
}

// New wraps module.
func New(module Module, logger *zap.Logger) *Service {
	return &Service{
		module: module,
		logger: logger.Named("native"),
	}
}

// Initialize initializes the module. It may only be called once; a failure is
// meant to be fatal for the caller.
func (s *Service) Initialize(opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initCalled {
		return ErrAlreadyInitialized
	}
	s.initCalled = true

	opts.OnMessage = s.onMessage

	s.logger.Info("Initializing native screen module",
		zap.String("capture_mode", opts.CaptureMode),
		zap.String("tesseract", opts.TesseractPath),
		zap.String("model", opts.DetectionModelPath),
	)

	ok, err := guard("initialize", func() (bool, error) {
		return s.module.Initialize(opts)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	if !ok {
		return ErrInitFailed
	}

	s.initialized = true
	return nil
}

// onMessage forwards module diagnostics into the log.
func (s *Service) onMessage(level, message string) {
	if ce := s.logger.Check(logging.ParseLevel(level), message); ce != nil {
		ce.Write()
	}
}

func (s *Service) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

// ActiveWindowTitle returns the trimmed title of the foreground window. The
// desktop, the taskbar and untitled windows report an empty title with a nil
// error; only a failed query is an error.
func (s *Service) ActiveWindowTitle() (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	title, err := guard("getActiveWindowTitle", s.module.ActiveWindowTitle)
	if err != nil {
		s.logger.Debug("Active window query failed", zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(title), nil
}

// GameWindowInfo returns the game window bounds and monitor. A missing game
// window is reported as an error.
func (s *Service) GameWindowInfo() (*WindowInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	info, err := guard("getGameWindowInfo", s.module.GameWindowInfo)
	if err != nil {
		s.logger.Debug("Game window query failed", zap.Error(err))
		return nil, err
	}
	if info == nil {
		return nil, errors.New("game window not found")
	}
	if info.Bounds.Empty() {
		return nil, fmt.Errorf("game window has no area: %s", info.Bounds)
	}
	return info, nil
}

type tooltipResult struct {
	tooltip *Tooltip
	err     error
}

// Tooltip runs the capture pipeline on its own goroutine and waits for it or
// for ctx. A nil tooltip with a nil error means nothing was found.
func (s *Service) Tooltip(ctx context.Context) (*Tooltip, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	done := make(chan tooltipResult, 1)
	go func() {
		t, err := guard("getTooltip", s.module.Tooltip)
		done <- tooltipResult{t, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.logger.Warn("Tooltip capture failed", zap.Error(r.err))
			return nil, r.err
		}
		if r.tooltip == nil || strings.TrimSpace(r.tooltip.Text) == "" {
			return nil, nil
		}
		return r.tooltip, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// guard calls fn, converting a panic into an error.
func guard[T any](op string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%s panicked: %v", op, r)
		}
	}()
	return fn()
}
