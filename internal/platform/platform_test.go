package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCollectSystemInfo(t *testing.T) {
	info := CollectSystemInfo()

	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Positive(t, info.CPUs)
	assert.Positive(t, info.SysMemory)
}

func TestLogSystemInformation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogSystemInformation(zap.New(core))

	entries := logs.FilterMessage("System information").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, runtime.GOOS, fields["os"])
		assert.Contains(t, fields, "cpus")
	}
}

func TestNotify_DoesNotBlock(t *testing.T) {
	ch := make(chan struct{}, 1)
	notify(ch)
	notify(ch)
	notify(ch)
	assert.Len(t, ch, 1)
}

func TestWindowEvents_CloseNil(t *testing.T) {
	var w *WindowEvents
	assert.NotPanics(t, w.Close)

	calls := 0
	w = &WindowEvents{close: func() { calls++ }}
	w.Close()
	assert.Equal(t, 1, calls)
}
