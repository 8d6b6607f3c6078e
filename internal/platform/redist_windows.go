//go:build windows

package platform

import (
	"go.uber.org/zap"
	"golang.org/x/sys/windows/registry"
)

// VC++ 2015-2022 x64 runtime keys (Visual Studio 2015, 2017, 2019 and 2022).
var redistKeys = []string{
	`SOFTWARE\Microsoft\VisualStudio\14.0\VC\Runtimes\x64`,
	`SOFTWARE\WOW6432Node\Microsoft\VisualStudio\14.0\VC\Runtimes\x64`,
}

// CheckRedistributable returns ErrRedistMissing when none of the runtime
// registry keys has a Version value.
func CheckRedistributable(logger *zap.Logger) error {
	logger.Info("Checking registry for VC++ redistributable")

	for _, path := range redistKeys {
		version, err := readVersion(path)
		if err != nil {
			logger.Debug("Registry key not usable", zap.String("key", path), zap.Error(err))
			continue
		}
		logger.Info("VC++ redistributable found", zap.String("key", path), zap.String("version", version))
		return nil
	}

	return ErrRedistMissing
}

func readVersion(path string) (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer key.Close()

	version, _, err := key.GetStringValue("Version")
	return version, err
}
