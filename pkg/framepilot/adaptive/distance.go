package adaptive

import (
	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
)

// Render distance bounds in chunks.
const (
	MinDistance = 2
	MaxDistance = 16
)

// Clamp bounds d to [MinDistance, MaxDistance].
func Clamp(d int) int {
	return min(max(d, MinDistance), MaxDistance)
}

// Distance is the only writer of the host render-distance setting. Every
// write is clamped to [MinDistance, MaxDistance]. It is not safe for
// concurrent use; callers write from the driving thread.
type Distance struct {
	settings host.Settings
}

// NewDistance wraps s, pulling an out-of-range host value back into bounds.
func NewDistance(s host.Settings) *Distance {
	d := &Distance{settings: s}
	if cur := s.RenderDistance(); cur != Clamp(cur) {
		s.SetRenderDistance(Clamp(cur))
	}
	return d
}

// Get returns the current render distance.
func (d *Distance) Get() int {
	return d.settings.RenderDistance()
}

// Set writes v, clamped, and returns the value written.
func (d *Distance) Set(v int) int {
	v = Clamp(v)
	if v != d.settings.RenderDistance() {
		d.settings.SetRenderDistance(v)
	}
	return v
}

// Step moves the distance by delta, clamped.
func (d *Distance) Step(delta int) int {
	return d.Set(d.Get() + delta)
}

// Cap lowers the distance to limit if it is above it. It never raises the
// distance, except that the result is always within bounds.
func (d *Distance) Cap(limit int) int {
	return d.Set(min(d.Get(), limit))
}
