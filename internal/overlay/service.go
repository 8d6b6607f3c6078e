// Package overlay drives the transparent overlay window and forwards
// notifications to the UI shell running inside it.
package overlay

import (
	"context"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"grimvault/internal/geometry"
)

// Title is the overlay window title. The tracker's allow-list contains it so
// focusing the overlay does not hide it.
const Title = "GrimVault Overlay"

// Shell is the subset of the Wails runtime the overlay uses.
type Shell interface {
	WindowShow()
	WindowHide()
	WindowSetAlwaysOnTop(enabled bool)
	WindowSetPosition(x, y int)
	WindowSetSize(width, height int)
	EventsEmit(event string, data ...any)
}

// NewShell binds the Wails runtime to the application context passed to
// OnStartup.
func NewShell(ctx context.Context) Shell {
	return wailsShell{ctx}
}

type wailsShell struct {
	ctx context.Context
}

func (s wailsShell) WindowShow()                     { runtime.WindowShow(s.ctx) }
func (s wailsShell) WindowHide()                     { runtime.WindowHide(s.ctx) }
func (s wailsShell) WindowSetAlwaysOnTop(b bool)     { runtime.WindowSetAlwaysOnTop(s.ctx, b) }
func (s wailsShell) WindowSetPosition(x, y int)      { runtime.WindowSetPosition(s.ctx, x, y) }
func (s wailsShell) WindowSetSize(width, height int) { runtime.WindowSetSize(s.ctx, width, height) }
func (s wailsShell) EventsEmit(event string, data ...any) {
	runtime.EventsEmit(s.ctx, event, data...)
}

// Window is the overlay window as the tracker sees it. Win32 styles are used
// where the Wails runtime has no equivalent; elsewhere the runtime is used
// directly.
type Window struct {
	shell  Shell
	logger *zap.Logger

	mu           sync.Mutex
	native       *nativeWindow
	clickThrough bool
	visible      bool
}

// NewWindow creates the overlay window controller. The OS window is located
// lazily by title the first time a native style is needed.
func NewWindow(shell Shell, logger *zap.Logger) *Window {
	return &Window{
		shell:  shell,
		logger: logger.Named("overlay"),
		native: newNativeWindow(Title),
	}
}

// SetClickThrough makes mouse input fall through to the game.
func (w *Window) SetClickThrough(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.native.setClickThrough(enabled) {
		w.logger.Debug("Click-through not applied", zap.Bool("enabled", enabled))
		return
	}
	w.clickThrough = enabled
}

// SetAlwaysOnTop keeps the overlay above the game, including fullscreen
// borderless windows.
func (w *Window) SetAlwaysOnTop(enabled bool) {
	w.shell.WindowSetAlwaysOnTop(enabled)
	w.native.setTopmost(enabled)
}

// SetVisibleOnAllWorkspaces has no Windows equivalent; topmost windows are
// already shown on every virtual desktop the game can run on.
func (w *Window) SetVisibleOnAllWorkspaces(enabled bool) {
	w.logger.Debug("Visible on all workspaces", zap.Bool("enabled", enabled))
}

func (w *Window) Show() {
	w.shell.WindowShow()
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
}

func (w *Window) Hide() {
	w.shell.WindowHide()
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
}

// MoveTop raises the overlay above every other topmost window.
func (w *Window) MoveTop() {
	if !w.native.raise() {
		w.shell.WindowSetAlwaysOnTop(true)
	}
}

// SetBounds places the overlay at physical pixel bounds.
func (w *Window) SetBounds(b geometry.Rect) {
	if w.native.setBounds(b) {
		return
	}
	w.shell.WindowSetPosition(int(b.X), int(b.Y))
	w.shell.WindowSetSize(int(b.Width), int(b.Height))
}

// shown reports whether Show was called more recently than Hide.
func (w *Window) shown() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// ClickThrough reports whether click-through is in effect.
func (w *Window) ClickThrough() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clickThrough
}

// Release turns click-through off so the window is usable again, as on
// shutdown.
func (w *Window) Release() {
	if w.ClickThrough() {
		w.SetClickThrough(false)
	}
}
