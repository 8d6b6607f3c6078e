//go:build !windows

package platform

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// HookWindowEvents is not available outside Windows; callers fall back to
// polling.
func HookWindowEvents(ctx context.Context, logger *zap.Logger) (*WindowEvents, error) {
	return nil, errors.New("window events are not supported on this platform")
}
