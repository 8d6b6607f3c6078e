package overlay

import (
	"sync"

	"go.uber.org/zap"
)

// Emitter sends fire-and-forget notifications to the UI shell.
type Emitter struct {
	shell  Shell
	logger *zap.Logger

	mu   sync.RWMutex
	last map[string]any
}

// NewEmitter creates an Emitter over shell.
func NewEmitter(shell Shell, logger *zap.Logger) *Emitter {
	return &Emitter{
		shell:  shell,
		logger: logger.Named("ui"),
		last:   make(map[string]any),
	}
}

// Emit sends event with an optional payload. A nil payload sends the bare
// event.
func (e *Emitter) Emit(event string, payload any) {
	e.logger.Debug("Emitting event", zap.String("event", event), zap.Any("payload", payload))

	e.mu.Lock()
	e.last[event] = payload
	e.mu.Unlock()

	if payload == nil {
		e.shell.EventsEmit(event)
		return
	}
	e.shell.EventsEmit(event, payload)
}

// Last returns the most recent payload sent for event.
func (e *Emitter) Last(event string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.last[event]
	return v, ok
}
