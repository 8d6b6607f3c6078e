//go:build !windows

package hotkey

// platform is empty on platforms without global hotkey support.
type platform struct{}

func (l *Listener) start(regs []registration) error {
	return ErrUnsupported
}

func (l *Listener) stop() {}
