// Package hotkey parses accelerator strings such as "Ctrl+Shift+F5" and
// registers them as system-wide hotkeys.
package hotkey

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Modifier is a bit set of modifier keys, using the Win32 MOD_* values.
type Modifier uint32

const (
	ModAlt      Modifier = 0x0001
	ModCtrl     Modifier = 0x0002
	ModShift    Modifier = 0x0004
	modNoRepeat Modifier = 0x4000
)

var (
	// ErrInvalid is returned for accelerators outside the supported grammar.
	ErrInvalid = errors.New("invalid hotkey")
	// ErrUnsupported is returned by Start on platforms without global hotkeys.
	ErrUnsupported = errors.New("global hotkeys are not supported on this platform")
)

var acceleratorRe = regexp.MustCompile(`^((Ctrl|Alt|Shift)\+)*([A-Za-z0-9]|F[1-9]|F1[0-2])$`)

// Binding is a parsed accelerator.
type Binding struct {
	Accelerator string
	Modifiers   Modifier
	Key         string
	// VK is the Windows virtual-key code of Key.
	VK uint32
}

func (b Binding) String() string {
	return b.Accelerator
}

// Parse validates an accelerator and resolves its virtual-key code.
func Parse(accelerator string) (Binding, error) {
	accelerator = strings.TrimSpace(accelerator)
	if !acceleratorRe.MatchString(accelerator) {
		return Binding{}, fmt.Errorf("%w: %q", ErrInvalid, accelerator)
	}

	parts := strings.Split(accelerator, "+")
	key := parts[len(parts)-1]

	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "Ctrl":
			mods |= ModCtrl
		case "Alt":
			mods |= ModAlt
		case "Shift":
			mods |= ModShift
		}
	}

	return Binding{
		Accelerator: accelerator,
		Modifiers:   mods,
		Key:         strings.ToUpper(key),
		VK:          virtualKey(key),
	}, nil
}

// virtualKey maps a key accepted by acceleratorRe to its virtual-key code.
func virtualKey(key string) uint32 {
	if len(key) == 1 {
		// VK codes for 0-9 and A-Z are their ASCII uppercase values.
		return uint32(strings.ToUpper(key)[0])
	}
	var n uint32
	fmt.Sscanf(key[1:], "%d", &n)
	return 0x70 + n - 1 // VK_F1
}

type registration struct {
	id      int
	binding Binding
	fn      func()
}

// Listener dispatches registered hotkeys to callbacks. Callbacks run on their
// own goroutine and must not block the listener.
type Listener struct {
	logger *zap.Logger

	mu            sync.Mutex
	registrations []registration
	running       bool

	platform
}

// NewListener creates an idle listener.
func NewListener(logger *zap.Logger) *Listener {
	return &Listener{logger: logger}
}

// Register adds a binding. It must be called before Start.
func (l *Listener) Register(b Binding, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return errors.New("hotkey listener already started")
	}
	for _, r := range l.registrations {
		if r.binding.VK == b.VK && r.binding.Modifiers == b.Modifiers {
			return fmt.Errorf("hotkey %s registered twice", b)
		}
	}

	l.registrations = append(l.registrations, registration{
		id:      len(l.registrations) + 1,
		binding: b,
		fn:      fn,
	})
	return nil
}

// Start registers every binding with the OS and begins dispatching.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	regs := append([]registration(nil), l.registrations...)
	l.mu.Unlock()

	if err := l.start(regs); err != nil {
		return err
	}

	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	return nil
}

// Stop unregisters the hotkeys and ends the dispatch loop.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	l.stop()
}

// dispatch runs the callback registered under id.
func (l *Listener) dispatch(regs []registration, id int) {
	for _, r := range regs {
		if r.id == id {
			l.logger.Debug("Hotkey pressed", zap.String("hotkey", r.binding.Accelerator))
			go r.fn()
			return
		}
	}
}
