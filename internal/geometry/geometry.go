// Package geometry converts raw window bounds reported by the OS into the
// coordinate frames the overlay consumes.
//
// Raw bounds come in logical pixels. The overlay window is placed in physical
// pixels (raw bounds times the monitor scale factor), while the UI shell draws
// its anchors relative to the monitor hosting the game.
package geometry

import "fmt"

// Rect is an axis-aligned rectangle. Fields are float64 because scaled
// coordinates are not guaranteed to be integral.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Monitor describes the display hosting a window.
type Monitor struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Equal compares all four fields exactly.
func (r Rect) Equal(o Rect) bool {
	return r.X == o.X && r.Y == o.Y && r.Width == o.Width && r.Height == o.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("{x:%g y:%g w:%g h:%g}", r.X, r.Y, r.Width, r.Height)
}

// Scale multiplies every field of r by factor. A non-positive factor is
// treated as 1.
func Scale(r Rect, factor float64) Rect {
	if factor <= 0 {
		factor = 1
	}
	return Rect{
		X:      r.X * factor,
		Y:      r.Y * factor,
		Width:  r.Width * factor,
		Height: r.Height * factor,
	}
}

// Relative translates r so that it is expressed relative to the monitor origin.
func Relative(r Rect, m Monitor) Rect {
	return Rect{
		X:      r.X - m.X,
		Y:      r.Y - m.Y,
		Width:  r.Width,
		Height: r.Height,
	}
}

// Resolution is the outcome of resolving one set of raw bounds.
type Resolution struct {
	Physical Rect
	Relative Rect
	// Changed is true when Physical differs from the previously resolved
	// bounds, or when there are no previous bounds.
	Changed bool
}

// Resolver remembers the last applied physical bounds so callers can skip
// redundant window moves.
type Resolver struct {
	previous *Rect
}

// NewResolver creates a resolver with no previous bounds.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve scales raw by the monitor's scale factor, derives the
// monitor-relative frame and records the physical bounds as the new previous
// value.
func (r *Resolver) Resolve(raw Rect, monitor Monitor) Resolution {
	physical := Scale(raw, monitor.Scale)

	changed := r.previous == nil || !r.previous.Equal(physical)
	r.previous = &physical

	return Resolution{
		Physical: physical,
		Relative: Relative(physical, monitor),
		Changed:  changed,
	}
}

// Previous returns the last resolved physical bounds.
func (r *Resolver) Previous() (Rect, bool) {
	if r.previous == nil {
		return Rect{}, false
	}
	return *r.previous, true
}

// Reset forgets the previous bounds so the next Resolve reports a change.
func (r *Resolver) Reset() {
	r.previous = nil
}
