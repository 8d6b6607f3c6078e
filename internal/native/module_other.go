//go:build !windows

package native

// unsupportedModule stands in on platforms the native module was never built
// for. Initialize fails, which the host treats as fatal.
type unsupportedModule struct{}

// NewPlatformModule returns a module whose every call fails with
// ErrUnsupported.
func NewPlatformModule(path string) Module {
	return unsupportedModule{}
}

func (unsupportedModule) Initialize(Options) (bool, error) { return false, ErrUnsupported }

func (unsupportedModule) ActiveWindowTitle() (string, error) { return "", ErrUnsupported }

func (unsupportedModule) GameWindowInfo() (*WindowInfo, error) { return nil, ErrUnsupported }

func (unsupportedModule) Tooltip() (*Tooltip, error) { return nil, ErrUnsupported }
