package native

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"grimvault/internal/geometry"
)

type fakeModule struct {
	initOK   bool
	initErr  error
	initOpts Options
	title    string
	titleErr error
	info     *WindowInfo
	tooltip  *Tooltip
	tipErr   error
	tipDelay time.Duration
	panicOn  string
}

func (f *fakeModule) Initialize(opts Options) (bool, error) {
	f.initOpts = opts
	if f.panicOn == "init" {
		panic("boom")
	}
	if opts.OnMessage != nil {
		opts.OnMessage("warn", "model warmup slow")
	}
	return f.initOK, f.initErr
}

func (f *fakeModule) ActiveWindowTitle() (string, error) {
	if f.panicOn == "title" {
		panic("access violation")
	}
	return f.title, f.titleErr
}

func (f *fakeModule) GameWindowInfo() (*WindowInfo, error) {
	return f.info, nil
}

func (f *fakeModule) Tooltip() (*Tooltip, error) {
	if f.tipDelay > 0 {
		time.Sleep(f.tipDelay)
	}
	if f.panicOn == "tooltip" {
		panic("opencv exception")
	}
	return f.tooltip, f.tipErr
}

func TestService_InitializeOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mod := &fakeModule{initOK: true}
	svc := New(mod, zap.New(core))

	require.NoError(t, svc.Initialize(Options{CaptureMode: "wgc"}))
	assert.Equal(t, "wgc", mod.initOpts.CaptureMode)
	assert.ErrorIs(t, svc.Initialize(Options{}), ErrAlreadyInitialized)

	// Native diagnostics land in the log at the level the module asked for.
	entries := logs.FilterMessage("model warmup slow").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "native", entries[0].LoggerName)
}

func TestService_InitializeFailure(t *testing.T) {
	svc := New(&fakeModule{initOK: false}, zap.NewNop())
	assert.ErrorIs(t, svc.Initialize(Options{}), ErrInitFailed)

	svc = New(&fakeModule{initErr: errors.New("missing model")}, zap.NewNop())
	assert.ErrorIs(t, svc.Initialize(Options{}), ErrInitFailed)

	svc = New(&fakeModule{panicOn: "init"}, zap.NewNop())
	assert.ErrorIs(t, svc.Initialize(Options{}), ErrInitFailed)

	// A failed init leaves every other call unavailable.
	_, err := svc.ActiveWindowTitle()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestService_RequiresInitialize(t *testing.T) {
	svc := New(&fakeModule{initOK: true, title: "Dark and Darker"}, zap.NewNop())

	_, err := svc.ActiveWindowTitle()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.GameWindowInfo()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.Tooltip(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestService_ActiveWindowTitle(t *testing.T) {
	mod := &fakeModule{initOK: true, title: "  Dark and Darker  "}
	svc := New(mod, zap.NewNop())
	require.NoError(t, svc.Initialize(Options{}))

	title, err := svc.ActiveWindowTitle()
	require.NoError(t, err)
	assert.Equal(t, "Dark and Darker", title)

	mod.title = "   "
	title, err = svc.ActiveWindowTitle()
	require.NoError(t, err, "an untitled foreground window is not a failure")
	assert.Empty(t, title)

	mod.titleErr = errors.New("access denied")
	_, err = svc.ActiveWindowTitle()
	assert.ErrorContains(t, err, "access denied")
	mod.titleErr = nil

	mod.panicOn = "title"
	_, err = svc.ActiveWindowTitle()
	assert.ErrorContains(t, err, "panicked")
}

func TestService_GameWindowInfo(t *testing.T) {
	mod := &fakeModule{initOK: true}
	svc := New(mod, zap.NewNop())
	require.NoError(t, svc.Initialize(Options{}))

	_, err := svc.GameWindowInfo()
	assert.Error(t, err, "missing window is an error")

	mod.info = &WindowInfo{Bounds: geometry.Rect{Width: 0, Height: 1080}}
	_, err = svc.GameWindowInfo()
	assert.Error(t, err, "zero-area window is an error")

	mod.info = &WindowInfo{
		Bounds:  geometry.Rect{X: 100, Y: 100, Width: 1920, Height: 1080},
		Monitor: geometry.Monitor{Scale: 1.25},
	}
	info, err := svc.GameWindowInfo()
	require.NoError(t, err)
	assert.Equal(t, 1.25, info.Monitor.Scale)
}

func TestService_Tooltip(t *testing.T) {
	mod := &fakeModule{initOK: true}
	svc := New(mod, zap.NewNop())
	require.NoError(t, svc.Initialize(Options{}))
	ctx := context.Background()

	tip, err := svc.Tooltip(ctx)
	require.NoError(t, err)
	assert.Nil(t, tip, "no tooltip found")

	mod.tooltip = &Tooltip{Text: "   "}
	tip, err = svc.Tooltip(ctx)
	require.NoError(t, err)
	assert.Nil(t, tip, "blank OCR output counts as no tooltip")

	mod.tooltip = &Tooltip{Text: "Arming Sword", X: 10, Y: 20, Width: 300, Height: 400}
	tip, err = svc.Tooltip(ctx)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, geometry.Rect{X: 10, Y: 20, Width: 300, Height: 400}, tip.Bounds())
	assert.Equal(t, "Arming Sword", tip.Fields()["text"])

	mod.tipErr = errors.New("Failed to capture the screen")
	_, err = svc.Tooltip(ctx)
	assert.EqualError(t, err, "Failed to capture the screen")

	mod.tipErr = nil
	mod.panicOn = "tooltip"
	_, err = svc.Tooltip(ctx)
	assert.ErrorContains(t, err, "panicked")
}

func TestService_TooltipHonoursContext(t *testing.T) {
	mod := &fakeModule{initOK: true, tipDelay: time.Second, tooltip: &Tooltip{Text: "late"}}
	svc := New(mod, zap.NewNop())
	require.NoError(t, svc.Initialize(Options{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Tooltip(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
