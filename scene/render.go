package scene

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	fluid "github.com/esimov/smoke-fluid/fluid-solver"
)

// Render draws the current fields with every active overlay.
func (s *Scene) Render() {
	s.dirty = false
	o := s.opts.Overlays

	s.surface.Clear(s.palette.background)
	if o&(ShowSmoke|ShowVelocityColors) != 0 {
		s.drawFields(o)
	}
	if o&ShowObstacles != 0 {
		s.drawObstacles()
	}
	if o&ShowGridLines != 0 {
		s.drawGridLines()
	}
	if o&ShowVelocities != 0 {
		s.drawFaceVelocities()
	}
	if o&ShowCenterVelocities != 0 {
		s.drawCenterVelocities()
	}
	if o&ShowDivergence != 0 {
		s.drawDivergence()
	}
	if o&ShowParticles != 0 {
		s.drawParticles()
	}
	if o&ShowBrush != 0 && s.dragging {
		r := float64(s.opts.MouseRadius) * s.fluid.SquareSize()
		s.surface.StrokeArc(s.pointer.X, s.pointer.Y, r, s.palette.brush)
	}
}

// eachVisible calls fn for every cell inside the surface, border excluded.
func (s *Scene) eachVisible(fn func(i, k int)) {
	fs := s.fluid
	bo := fs.BlockOffset()
	for k := bo; k < fs.Height()-bo; k++ {
		for i := bo; i < fs.Width()-bo; i++ {
			fn(i, k)
		}
	}
}

func (s *Scene) drawFields(o Overlay) {
	fs := s.fluid
	n := s.opts.Subdivisions
	sub := fs.SquareSize() / float64(n)

	var maxSpeed float64
	if o&ShowVelocityColors != 0 {
		s.eachVisible(func(i, k int) {
			x, y := fs.GridToWorld(float64(i), float64(k), fluid.FieldS)
			maxSpeed = math.Max(maxSpeed, s.speedAt(x, y))
		})
	}

	s.eachVisible(func(i, k int) {
		if !fs.IsFluid(i, k) {
			return
		}
		x0, y0 := fs.GridToWorld(float64(i), float64(k), fluid.Node)
		for b := 0; b < n; b++ {
			for a := 0; a < n; a++ {
				x := x0 + (float64(a)+0.5)*sub
				y := y0 + (float64(b)+0.5)*sub
				c := s.sampleColor(x, y, maxSpeed, o)
				s.surface.FillRect(x0+float64(a)*sub, y0+float64(b)*sub, sub, sub, c)
			}
		}
	})
}

func (s *Scene) speedAt(x, y float64) float64 {
	u := s.fluid.Interpolate(x, y, fluid.FieldU)
	v := s.fluid.Interpolate(x, y, fluid.FieldV)
	return math.Hypot(u, v)
}

func (s *Scene) sampleColor(x, y, maxSpeed float64, o Overlay) colorful.Color {
	density := s.fluid.Interpolate(x, y, fluid.FieldS)
	if o&ShowVelocityColors == 0 {
		return lookup(s.palette.smoke, density)
	}
	var t float64
	if maxSpeed > 0 {
		t = s.speedAt(x, y) / maxSpeed
	}
	c := lookup(s.palette.speed, t)
	if o&ShowSmoke != 0 {
		c = c.BlendRgb(s.palette.smoke[paletteSize-1], math.Min(math.Max(density, 0), 1))
	}
	return c
}

func (s *Scene) drawObstacles() {
	fs := s.fluid
	size := fs.SquareSize()
	s.eachVisible(func(i, k int) {
		if fs.IsFluid(i, k) {
			return
		}
		x, y := fs.GridToWorld(float64(i), float64(k), fluid.Node)
		s.surface.FillRect(x, y, size, size, s.palette.obstacle)
	})
}

func (s *Scene) drawGridLines() {
	fs := s.fluid
	w, h := s.surface.Size()
	size := fs.SquareSize()
	cols := fs.Width() - 2*fs.BlockOffset()
	rows := fs.Height() - 2*fs.BlockOffset()
	for c := 0; c <= cols; c++ {
		x := float64(c) * size
		s.surface.StrokeLine(x, 0, x, h, s.palette.grid)
	}
	for r := 0; r <= rows; r++ {
		y := float64(r) * size
		s.surface.StrokeLine(0, y, w, y, s.palette.grid)
	}
}

// drawFaceVelocities draws every non-zero face sample as a segment along its axis.
func (s *Scene) drawFaceVelocities() {
	fs := s.fluid
	scale := s.opts.ArrowScale
	bo := fs.BlockOffset()
	for k := bo; k < fs.Height()-bo; k++ {
		for i := bo; i <= fs.Width()-bo; i++ {
			if u := fs.U().Get(i, k); u != 0 {
				x, y := fs.GridToWorld(float64(i), float64(k), fluid.FieldU)
				s.surface.StrokeLine(x, y, x+u*scale, y, s.palette.arrow)
			}
		}
	}
	for k := bo; k <= fs.Height()-bo; k++ {
		for i := bo; i < fs.Width()-bo; i++ {
			if v := fs.V().Get(i, k); v != 0 {
				x, y := fs.GridToWorld(float64(i), float64(k), fluid.FieldV)
				s.surface.StrokeLine(x, y, x, y+v*scale, s.palette.arrow)
			}
		}
	}
}

func (s *Scene) drawCenterVelocities() {
	fs := s.fluid
	scale := s.opts.ArrowScale
	s.eachVisible(func(i, k int) {
		if !fs.IsFluid(i, k) {
			return
		}
		u := (fs.U().Get(i, k) + fs.U().Get(i+1, k)) / 2
		v := (fs.V().Get(i, k) + fs.V().Get(i, k+1)) / 2
		if u == 0 && v == 0 {
			return
		}
		x, y := fs.GridToWorld(float64(i), float64(k), fluid.FieldS)
		s.surface.StrokeLine(x, y, x+u*scale, y+v*scale, s.palette.arrow)
	})
}

func (s *Scene) drawDivergence() {
	fs := s.fluid
	s.eachVisible(func(i, k int) {
		if !fs.IsFluid(i, k) {
			return
		}
		x, y := fs.GridToWorld(float64(i), float64(k), fluid.FieldS)
		s.surface.FillText(x, y, fmt.Sprintf("%.2f", fs.Divergence(i, k)), s.palette.text)
	})
}

func (s *Scene) drawParticles() {
	for _, p := range s.particles {
		s.surface.FillRect(p.X-1, p.Y-1, 2, 2, s.palette.particle)
	}
}
