//go:build !windows

package platform

import "go.uber.org/zap"

// CheckRedistributable is a no-op: the Visual C++ runtime only exists on
// Windows.
func CheckRedistributable(logger *zap.Logger) error {
	logger.Debug("Skipping VC++ redistributable check on this platform")
	return nil
}
