//go:build windows

package native

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"grimvault/internal/geometry"
)

const (
	_MONITOR_DEFAULTTONEAREST = 2
	_MDT_EFFECTIVE_DPI        = 0
	tooltipBufferSize         = 64 * 1024
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	shcore                   = windows.NewLazySystemDLL("shcore.dll")
	procGetForegroundWindow  = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procEnumWindows          = user32.NewProc("EnumWindows")
	procIsWindowVisible      = user32.NewProc("IsWindowVisible")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
	procMonitorFromWindow    = user32.NewProc("MonitorFromWindow")
	procGetMonitorInfoW      = user32.NewProc("GetMonitorInfoW")
	procGetDpiForMonitor     = shcore.NewProc("GetDpiForMonitor")
)

type monitorInfo struct {
	cbSize    uint32
	rcMonitor windows.Rect
	rcWork    windows.Rect
	dwFlags   uint32
}

// dllModule drives the native screen DLL for capture and OCR, and answers
// window queries straight from user32.
type dllModule struct {
	dll            *windows.LazyDLL
	procInitialize *windows.LazyProc
	procGetTooltip *windows.LazyProc

	gameTitle string

	// The DLL keeps one capture pipeline; calls into it are serialized.
	captureMu sync.Mutex
}

// NewPlatformModule returns the Windows module backed by the DLL at path.
func NewPlatformModule(path string) Module {
	dll := windows.NewLazyDLL(path)
	return &dllModule{
		dll:            dll,
		procInitialize: dll.NewProc("Initialize"),
		procGetTooltip: dll.NewProc("GetTooltip"),
	}
}

var (
	// Only one module exists per process, so the DLL's log callback is a
	// package-level trampoline into the current handler.
	messageMu      sync.RWMutex
	messageHandler func(level, message string)
	messageCB      = windows.NewCallback(onNativeMessage)
)

var nativeLevels = []string{"debug", "info", "warn", "error"}

func onNativeMessage(level, msg, n uintptr) uintptr {
	messageMu.RLock()
	handler := messageHandler
	messageMu.RUnlock()

	if handler == nil || msg == 0 || n == 0 {
		return 0
	}

	text := string(unsafe.Slice((*byte)(unsafe.Pointer(msg)), int(n)))
	name := "info"
	if int(level) < len(nativeLevels) {
		name = nativeLevels[level]
	}
	handler(name, text)
	return 0
}

func (m *dllModule) Initialize(opts Options) (bool, error) {
	if err := m.dll.Load(); err != nil {
		return false, fmt.Errorf("failed to load %s: %w", m.dll.Name, err)
	}
	if err := m.procInitialize.Find(); err != nil {
		return false, err
	}
	if err := m.procGetTooltip.Find(); err != nil {
		return false, err
	}

	m.gameTitle = opts.GameTitle

	messageMu.Lock()
	messageHandler = opts.OnMessage
	messageMu.Unlock()

	tesseract, err := windows.UTF16PtrFromString(opts.TesseractPath)
	if err != nil {
		return false, err
	}
	model, err := windows.UTF16PtrFromString(opts.DetectionModelPath)
	if err != nil {
		return false, err
	}
	mode, err := windows.UTF16PtrFromString(opts.CaptureMode)
	if err != nil {
		return false, err
	}

	ret, _, _ := m.procInitialize.Call(
		uintptr(unsafe.Pointer(tesseract)),
		uintptr(unsafe.Pointer(model)),
		messageCB,
		uintptr(unsafe.Pointer(mode)),
	)
	return ret != 0, nil
}

func (m *dllModule) Tooltip() (*Tooltip, error) {
	m.captureMu.Lock()
	defer m.captureMu.Unlock()

	buf := make([]byte, tooltipBufferSize)
	ret, _, _ := m.procGetTooltip.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	n := int32(ret)

	switch {
	case n == 0:
		return nil, nil
	case n < 0:
		size := min(int(-n), len(buf))
		return nil, errors.New(string(buf[:size]))
	case int(n) > len(buf):
		return nil, fmt.Errorf("tooltip result of %d bytes overflows buffer", n)
	}

	var t Tooltip
	if err := json.Unmarshal(buf[:n], &t); err != nil {
		return nil, fmt.Errorf("failed to decode tooltip: %w", err)
	}
	return &t, nil
}

func (m *dllModule) ActiveWindowTitle() (string, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return "", nil
	}
	return windowText(hwnd)
}

func windowText(hwnd uintptr) (string, error) {
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if int32(length) <= 0 {
		return "", nil
	}

	buf := make([]uint16, length+1)
	ret, _, err := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if ret == 0 {
		return "", fmt.Errorf("failed to get window title: %w", err)
	}
	return windows.UTF16ToString(buf), nil
}

var (
	findMu     sync.Mutex
	findTitle  string
	findResult uintptr
	enumCB     = windows.NewCallback(enumWindow)
)

// enumWindow stops enumeration at the first visible window whose trimmed
// title equals findTitle. The game pads its title with trailing spaces.
func enumWindow(hwnd, _ uintptr) uintptr {
	visible, _, _ := procIsWindowVisible.Call(hwnd)
	if visible == 0 {
		return 1
	}
	title, err := windowText(hwnd)
	if err != nil || strings.TrimSpace(title) != findTitle {
		return 1
	}
	findResult = hwnd
	return 0
}

func findWindow(title string) uintptr {
	findMu.Lock()
	defer findMu.Unlock()

	findTitle = title
	findResult = 0
	procEnumWindows.Call(enumCB, 0)
	return findResult
}

// GameWindowInfo reports the game window bounds as logical (96 DPI) pixels
// plus the effective DPI scale of its monitor, so callers multiply by Scale to
// reach physical pixels. GetWindowRect returns logical coordinates only in a
// DPI-unaware or system-aware calling context. Under per-monitor awareness it
// already returns physical pixels and Scale would be applied twice; the fix
// there is to query from a DPI-unaware thread context
// (SetThreadDpiAwarenessContext), not to drop the scale, since tooltip
// coordinates from the DLL follow the same logical convention.
func (m *dllModule) GameWindowInfo() (*WindowInfo, error) {
	hwnd := findWindow(m.gameTitle)
	if hwnd == 0 {
		return nil, nil
	}

	var rect windows.Rect
	if ret, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect))); ret == 0 {
		return nil, fmt.Errorf("game window rectangle not available: %w", err)
	}

	info := &WindowInfo{
		Bounds: geometry.Rect{
			X:      float64(rect.Left),
			Y:      float64(rect.Top),
			Width:  float64(rect.Right - rect.Left),
			Height: float64(rect.Bottom - rect.Top),
		},
		Monitor: geometry.Monitor{Scale: 1},
	}

	monitor, _, _ := procMonitorFromWindow.Call(hwnd, _MONITOR_DEFAULTTONEAREST)
	if monitor == 0 {
		return info, nil
	}

	mi := monitorInfo{cbSize: uint32(unsafe.Sizeof(monitorInfo{}))}
	if ret, _, _ := procGetMonitorInfoW.Call(monitor, uintptr(unsafe.Pointer(&mi))); ret != 0 {
		info.Monitor.X = float64(mi.rcWork.Left)
		info.Monitor.Y = float64(mi.rcWork.Top)
		info.Monitor.Width = float64(mi.rcWork.Right - mi.rcWork.Left)
		info.Monitor.Height = float64(mi.rcWork.Bottom - mi.rcWork.Top)
	}

	var dpiX, dpiY uint32
	if procGetDpiForMonitor.Find() == nil {
		hr, _, _ := procGetDpiForMonitor.Call(monitor, _MDT_EFFECTIVE_DPI, uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
		if hr == 0 && dpiX > 0 {
			info.Monitor.Scale = float64(dpiX) / 96.0
		}
	}

	return info, nil
}
