//go:build !windows

package overlay

import "grimvault/internal/geometry"

// nativeWindow has no platform styles outside Windows; every call reports
// that nothing was applied so Window falls back to the Wails runtime.
type nativeWindow struct{}

func newNativeWindow(string) *nativeWindow { return &nativeWindow{} }

func (*nativeWindow) setClickThrough(bool) bool    { return false }
func (*nativeWindow) setTopmost(bool) bool         { return false }
func (*nativeWindow) raise() bool                  { return false }
func (*nativeWindow) setBounds(geometry.Rect) bool { return false }
