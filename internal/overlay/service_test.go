package overlay

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"grimvault/internal/geometry"
)

type fakeShell struct {
	mu     sync.Mutex
	calls  []string
	events [][]any
}

func (f *fakeShell) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeShell) WindowShow()                 { f.record("show") }
func (f *fakeShell) WindowHide()                 { f.record("hide") }
func (f *fakeShell) WindowSetAlwaysOnTop(b bool) { f.record("alwaysOnTop(%t)", b) }
func (f *fakeShell) WindowSetPosition(x, y int)  { f.record("position(%d,%d)", x, y) }
func (f *fakeShell) WindowSetSize(w, h int)      { f.record("size(%d,%d)", w, h) }
func (f *fakeShell) EventsEmit(event string, data ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, append([]any{event}, data...))
}

func TestWindow_ShowHide(t *testing.T) {
	shell := &fakeShell{}
	w := NewWindow(shell, zap.NewNop())

	w.Show()
	assert.True(t, w.shown())
	w.Hide()
	assert.False(t, w.shown())
	assert.Equal(t, []string{"show", "hide"}, shell.calls)
}

func TestWindow_FallsBackToRuntime(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Win32 styles apply when the overlay window exists")
	}

	shell := &fakeShell{}
	w := NewWindow(shell, zap.NewNop())

	w.SetBounds(geometry.Rect{X: 125, Y: 125, Width: 2400, Height: 1350})
	w.SetAlwaysOnTop(true)
	w.MoveTop()
	w.SetClickThrough(true)
	w.SetVisibleOnAllWorkspaces(true)

	assert.Equal(t, []string{
		"position(125,125)",
		"size(2400,1350)",
		"alwaysOnTop(true)",
		"alwaysOnTop(true)",
	}, shell.calls)
	assert.False(t, w.ClickThrough(), "click-through needs a native window")

	w.Release()
}

func TestEmitter_Emit(t *testing.T) {
	shell := &fakeShell{}
	e := NewEmitter(shell, zap.NewNop())

	e.Emit("scan:start", nil)
	e.Emit("game:bounds", geometry.Rect{Width: 10, Height: 10})

	assert.Equal(t, [][]any{
		{"scan:start"},
		{"game:bounds", geometry.Rect{Width: 10, Height: 10}},
	}, shell.events)

	last, ok := e.Last("game:bounds")
	assert.True(t, ok)
	assert.Equal(t, geometry.Rect{Width: 10, Height: 10}, last)

	_, ok = e.Last("hover:item")
	assert.False(t, ok)
}
