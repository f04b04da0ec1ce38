package scene

import (
	"image/color"
	"time"
)

// Surface is the drawing primitive a host hands to the scene.
// Coordinates are surface pixels, which are also the fluid's world units.
type Surface interface {
	Size() (width, height float64)
	Clear(c color.Color)
	FillRect(x, y, w, h float64, c color.Color)
	StrokeLine(x0, y0, x1, y1 float64, c color.Color)
	StrokeArc(x, y, radius float64, c color.Color)
	FillText(x, y float64, text string, c color.Color)
}

// PointerEvent is a pointer sample in surface-local coordinates.
// Time must increase monotonically across events.
type PointerEvent struct {
	X, Y float64
	Time time.Duration
}

// Overlay is a set of independent render layers.
type Overlay uint

const (
	ShowSmoke Overlay = 1 << iota
	ShowVelocityColors
	ShowVelocities
	ShowCenterVelocities
	ShowDivergence
	ShowObstacles
	ShowGridLines
	ShowParticles
	ShowBrush
)

var overlayNames = []struct {
	o    Overlay
	name string
}{
	{ShowSmoke, "smoke"},
	{ShowVelocityColors, "velocity-colors"},
	{ShowVelocities, "velocities"},
	{ShowCenterVelocities, "center-velocities"},
	{ShowDivergence, "divergence"},
	{ShowObstacles, "obstacles"},
	{ShowGridLines, "grid-lines"},
	{ShowParticles, "particles"},
	{ShowBrush, "brush"},
}

// ParseOverlay returns the overlay with the given name.
func ParseOverlay(name string) (Overlay, bool) {
	for _, on := range overlayNames {
		if on.name == name {
			return on.o, true
		}
	}
	return 0, false
}

func (o Overlay) String() string {
	s := ""
	for _, on := range overlayNames {
		if o&on.o == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += on.name
	}
	return s
}

// Pace decides whether a tick arriving elapsed after the previous one may
// run. A tick that comes too early is deferred by the remaining budget.
func Pace(elapsed, deltaT time.Duration) (run bool, wait time.Duration) {
	if elapsed >= deltaT || elapsed < 0 {
		return true, 0
	}
	return false, deltaT - elapsed
}

func duration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
