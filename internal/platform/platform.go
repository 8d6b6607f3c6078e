// Package platform holds the small OS-specific pieces the app needs at
// startup and while tracking windows.
package platform

import (
	"errors"
	"os"
	"runtime"

	"go.uber.org/zap"
)

// RedistURL is where players can get the Visual C++ runtime the native module
// links against.
const RedistURL = "https://aka.ms/vs/17/release/vc_redist.x64.exe"

// ErrRedistMissing means the Visual C++ 2015-2022 x64 runtime is not
// installed.
var ErrRedistMissing = errors.New("Visual C++ Redistributable 2015-2022 (x64) is required but not installed")

// SystemInfo is what LogSystemInformation reports.
type SystemInfo struct {
	OS         string
	Arch       string
	GoVersion  string
	CPUs       int
	Hostname   string
	HeapAlloc  uint64
	SysMemory  uint64
	Goroutines int
}

// CollectSystemInfo reads SystemInfo from the Go runtime.
func CollectSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	host, _ := os.Hostname()

	return SystemInfo{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		GoVersion:  runtime.Version(),
		CPUs:       runtime.NumCPU(),
		Hostname:   host,
		HeapAlloc:  m.HeapAlloc,
		SysMemory:  m.Sys,
		Goroutines: runtime.NumGoroutine(),
	}
}

// LogSystemInformation writes one info line describing the machine.
func LogSystemInformation(logger *zap.Logger) {
	info := CollectSystemInfo()
	logger.Info("System information",
		zap.String("os", info.OS),
		zap.String("arch", info.Arch),
		zap.String("go_version", info.GoVersion),
		zap.Int("cpus", info.CPUs),
		zap.String("hostname", info.Hostname),
		zap.Uint64("heap_alloc", info.HeapAlloc),
		zap.Uint64("sys_memory", info.SysMemory),
		zap.Int("goroutines", info.Goroutines),
	)
}

// WindowEvents delivers desktop window notifications. Channels are never
// closed by the sender before Close; a nil channel means the platform has no
// such event.
type WindowEvents struct {
	Foreground <-chan struct{}
	MoveSize   <-chan struct{}

	close func()
}

// Close unhooks the events. It is safe to call on a nil *WindowEvents.
func (w *WindowEvents) Close() {
	if w == nil || w.close == nil {
		return
	}
	w.close()
}

// notify does a non-blocking send; a pending signal already covers this one.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
