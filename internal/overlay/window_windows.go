//go:build windows

package overlay

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"grimvault/internal/geometry"
)

// Windows constants for extended window styles
const (
	_GWL_EXSTYLE       int32 = -20
	_WS_EX_TRANSPARENT int32 = 0x00000020
	_WS_EX_LAYERED     int32 = 0x00080000
	_WS_EX_NOACTIVATE  int32 = 0x08000000

	_HWND_TOPMOST   = ^uintptr(0) // (HWND)-1
	_HWND_NOTOPMOST = ^uintptr(1) // (HWND)-2

	_SWP_NOSIZE     = 0x0001
	_SWP_NOMOVE     = 0x0002
	_SWP_NOACTIVATE = 0x0010
	_SWP_SHOWWINDOW = 0x0040
)

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW   = user32.NewProc("FindWindowW")
	procGetWindowLong = user32.NewProc("GetWindowLongW")
	procSetWindowLong = user32.NewProc("SetWindowLongW")
	procSetWindowPos  = user32.NewProc("SetWindowPos")
)

type nativeWindow struct {
	title string

	mu   sync.Mutex
	hwnd uintptr
}

func newNativeWindow(title string) *nativeWindow {
	return &nativeWindow{title: title}
}

// handle finds and caches the HWND of the overlay window by its title.
func (n *nativeWindow) handle() uintptr {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hwnd != 0 {
		return n.hwnd
	}

	title, err := windows.UTF16PtrFromString(n.title)
	if err != nil {
		return 0
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(title)))
	n.hwnd = hwnd
	return hwnd
}

// setClickThrough toggles WS_EX_TRANSPARENT so mouse events pass through the
// window.
func (n *nativeWindow) setClickThrough(enable bool) bool {
	hwnd := n.handle()
	if hwnd == 0 {
		return false
	}

	idx := _GWL_EXSTYLE
	exStyle, _, _ := procGetWindowLong.Call(hwnd, uintptr(idx))
	style := int32(exStyle) | _WS_EX_LAYERED
	if enable {
		style |= _WS_EX_TRANSPARENT | _WS_EX_NOACTIVATE
	} else {
		style &^= _WS_EX_TRANSPARENT | _WS_EX_NOACTIVATE
	}

	procSetWindowLong.Call(hwnd, uintptr(idx), uintptr(style))
	return true
}

func (n *nativeWindow) setTopmost(enable bool) bool {
	hwnd := n.handle()
	if hwnd == 0 {
		return false
	}

	after := _HWND_NOTOPMOST
	if enable {
		after = _HWND_TOPMOST
	}
	ret, _, _ := procSetWindowPos.Call(hwnd, after, 0, 0, 0, 0, _SWP_NOMOVE|_SWP_NOSIZE|_SWP_NOACTIVATE)
	return ret != 0
}

func (n *nativeWindow) raise() bool {
	hwnd := n.handle()
	if hwnd == 0 {
		return false
	}
	ret, _, _ := procSetWindowPos.Call(hwnd, _HWND_TOPMOST, 0, 0, 0, 0, _SWP_NOMOVE|_SWP_NOSIZE|_SWP_NOACTIVATE|_SWP_SHOWWINDOW)
	return ret != 0
}

// setBounds moves the window in physical pixels. The rect is the logical game
// bounds already multiplied by the monitor scale (see the DPI note on the
// native module's GameWindowInfo). The Wails runtime works in DIPs, which
// would apply the monitor scale twice.
func (n *nativeWindow) setBounds(b geometry.Rect) bool {
	hwnd := n.handle()
	if hwnd == 0 {
		return false
	}
	ret, _, _ := procSetWindowPos.Call(
		hwnd,
		_HWND_TOPMOST,
		uintptr(int32(b.X)),
		uintptr(int32(b.Y)),
		uintptr(int32(b.Width)),
		uintptr(int32(b.Height)),
		_SWP_NOACTIVATE,
	)
	return ret != 0
}
