//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const (
	_EVENT_SYSTEM_FOREGROUND  = 0x0003
	_EVENT_SYSTEM_MOVESIZEEND = 0x000B
	_WINEVENT_OUTOFCONTEXT    = 0x0000
	_WINEVENT_SKIPOWNPROCESS  = 0x0002
	_OBJID_WINDOW             = 0
	_WM_QUIT                  = 0x0012
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procSetWinEventHook    = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent     = user32.NewProc("UnhookWinEvent")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

type winMsg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	ptX      int32
	ptY      int32
	lPrivate uint32
}

var (
	// Out-of-context WinEvent callbacks carry no user data, so the active
	// channels live at package level. Only one hook set exists per process.
	hookMu         sync.Mutex
	hookForeground chan struct{}
	hookMoveSize   chan struct{}
	hookCB         = windows.NewCallback(onWinEvent)
)

func onWinEvent(hook, event, hwnd, idObject, idChild, thread, timestamp uintptr) uintptr {
	if int32(idObject) != _OBJID_WINDOW {
		return 0
	}

	hookMu.Lock()
	foreground, moveSize := hookForeground, hookMoveSize
	hookMu.Unlock()

	switch event {
	case _EVENT_SYSTEM_FOREGROUND:
		if foreground != nil {
			notify(foreground)
		}
	case _EVENT_SYSTEM_MOVESIZEEND:
		if moveSize != nil {
			notify(moveSize)
		}
	}
	return 0
}

// HookWindowEvents installs WinEvent hooks for foreground changes and for the
// end of window move/resize. The hooks run on a dedicated message-loop thread
// until ctx is cancelled or Close is called.
func HookWindowEvents(ctx context.Context, logger *zap.Logger) (*WindowEvents, error) {
	hookMu.Lock()
	if hookForeground != nil {
		hookMu.Unlock()
		return nil, fmt.Errorf("window events already hooked")
	}
	foreground := make(chan struct{}, 1)
	moveSize := make(chan struct{}, 1)
	hookForeground, hookMoveSize = foreground, moveSize
	hookMu.Unlock()

	ready := make(chan error, 1)
	done := make(chan struct{})
	var threadID uint32

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		threadID = windows.GetCurrentThreadId()

		var hooks []uintptr
		for _, event := range []uintptr{_EVENT_SYSTEM_FOREGROUND, _EVENT_SYSTEM_MOVESIZEEND} {
			h, _, err := procSetWinEventHook.Call(event, event, 0, hookCB, 0, 0, _WINEVENT_OUTOFCONTEXT|_WINEVENT_SKIPOWNPROCESS)
			if h == 0 {
				for _, prev := range hooks {
					procUnhookWinEvent.Call(prev)
				}
				ready <- fmt.Errorf("SetWinEventHook(0x%x) failed: %w", event, err)
				return
			}
			hooks = append(hooks, h)
		}
		ready <- nil

		var msg winMsg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}

		for _, h := range hooks {
			procUnhookWinEvent.Call(h)
		}
	}()

	release := func() {
		hookMu.Lock()
		hookForeground, hookMoveSize = nil, nil
		hookMu.Unlock()
	}

	if err := <-ready; err != nil {
		release()
		return nil, err
	}
	logger.Info("Window event hooks installed")

	var once sync.Once
	stop := func() {
		once.Do(func() {
			procPostThreadMessageW.Call(uintptr(threadID), _WM_QUIT, 0, 0)
			<-done
			release()
			logger.Info("Window event hooks removed")
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	return &WindowEvents{
		Foreground: foreground,
		MoveSize:   moveSize,
		close:      stop,
	}, nil
}
