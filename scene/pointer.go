package scene

import (
	"fmt"
	"math"

	fluid "github.com/esimov/smoke-fluid/fluid-solver"
)

const particlesPerMove = 4

// PointerDown starts a drag and anchors it at ev.
func (s *Scene) PointerDown(ev PointerEvent) {
	if s.destroyed {
		return
	}
	s.dragging = true
	s.pointer = ev
	s.dirty = true
}

// PointerUp ends the current drag.
func (s *Scene) PointerUp(ev PointerEvent) {
	if s.destroyed {
		return
	}
	s.dragging = false
	s.dirty = true
}

// PointerMove injects the drag velocity into the cells around the pointer.
// Samples closer than DeltaT to the previous accepted one are dropped.
func (s *Scene) PointerMove(ev PointerEvent) error {
	if s.destroyed || !s.dragging {
		return nil
	}
	elapsed := ev.Time - s.pointer.Time
	if elapsed < s.DeltaT() || elapsed <= 0 {
		return nil
	}
	dx, dy := ev.X-s.pointer.X, ev.Y-s.pointer.Y
	s.pointer = ev

	sec := elapsed.Seconds()
	i, k := s.fluid.CellAt(ev.X, ev.Y)
	if err := s.inject(i, k, dx/sec, dy/sec); err != nil {
		return err
	}
	s.emitParticles(ev.X, ev.Y)
	s.dirty = true
	return nil
}

// Dragging reports whether a pointer drag is in progress.
func (s *Scene) Dragging() bool { return s.dragging }

// gaussian is the kernel weight at cell offset (di, dk), 1 at the centre.
func gaussian(di, dk int, sigma float64) float64 {
	if sigma == 0 {
		if di == 0 && dk == 0 {
			return 1
		}
		return 0
	}
	d2 := float64(di*di + dk*dk)
	return math.Exp(-d2 / (2 * sigma * sigma))
}

// inject adds (vx, vy) and dye to the (2r+1)² cells around (i, k), weighted
// by a Gaussian of the offset. Cells that are solid or border a solid are skipped.
func (s *Scene) inject(i, k int, vx, vy float64) error {
	fs := s.fluid
	r := s.opts.MouseRadius
	sigma := float64(r) / 2
	dye := s.opts.DyeAmount

	for dk := -r; dk <= r; dk++ {
		for di := -r; di <= r; di++ {
			ci, ck := i+di, k+dk
			if fs.TouchesSolid(ci, ck) {
				continue
			}
			w := gaussian(di, dk, sigma)
			if err := fs.U().Update(ci, ck, func(u float64) float64 { return u + vx*w }); err != nil {
				return fmt.Errorf("inject u: %w", err)
			}
			if err := fs.V().Update(ci, ck, func(v float64) float64 { return v + vy*w }); err != nil {
				return fmt.Errorf("inject v: %w", err)
			}
			if dye > 0 {
				if err := fs.S().Update(ci, ck, func(d float64) float64 { return d + dye*w }); err != nil {
					return fmt.Errorf("inject dye: %w", err)
				}
			}
		}
	}
	return nil
}

func (s *Scene) emitParticles(x, y float64) {
	if s.opts.ParticleLifetime <= 0 {
		return
	}
	jitter := s.fluid.SquareSize()
	for n := 0; n < particlesPerMove && len(s.particles) < s.opts.MaxParticles; n++ {
		px := x + (s.rng.Float64()-0.5)*jitter
		py := y + (s.rng.Float64()-0.5)*jitter
		if i, k := s.fluid.CellAt(px, py); !s.fluid.IsFluid(i, k) {
			continue
		}
		s.particles = append(s.particles, fluid.NewParticle(px, py))
	}
}
