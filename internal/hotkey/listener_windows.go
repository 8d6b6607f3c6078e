//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const (
	_WM_HOTKEY = 0x0312
	_WM_QUIT   = 0x0012
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procGetMessageW        = user32.NewProc("GetMessageW")
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

// platform holds the message-loop thread. RegisterHotKey binds hotkeys to the
// calling thread, so registration and GetMessageW must share one locked OS
// thread.
type platform struct {
	threadID uint32
	done     chan struct{}
}

func (l *Listener) start(regs []registration) error {
	ready := make(chan error, 1)
	l.done = make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(l.done)

		l.threadID = windows.GetCurrentThreadId()

		for i, r := range regs {
			ret, _, err := procRegisterHotKey.Call(0, uintptr(r.id), uintptr(r.binding.Modifiers|modNoRepeat), uintptr(r.binding.VK))
			if ret == 0 {
				for _, prev := range regs[:i] {
					procUnregisterHotKey.Call(0, uintptr(prev.id))
				}
				ready <- fmt.Errorf("failed to register hotkey %s: %w", r.binding, err)
				return
			}
			l.logger.Info("Registered hotkey", zap.String("hotkey", r.binding.Accelerator))
		}
		ready <- nil

		var msg winMsg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			// 0 is WM_QUIT, -1 is an error; both end the loop.
			if int32(ret) <= 0 {
				break
			}
			if msg.message == _WM_HOTKEY {
				l.dispatch(regs, int(msg.wParam))
			}
		}

		for _, r := range regs {
			procUnregisterHotKey.Call(0, uintptr(r.id))
		}
	}()

	return <-ready
}

func (l *Listener) stop() {
	if l.done == nil {
		return
	}
	procPostThreadMessageW.Call(uintptr(l.threadID), _WM_QUIT, 0, 0)
	<-l.done
}
