package fluid

import (
	"math"

	"github.com/esimov/smoke-fluid/grid"
)

// Field selects which staggered sample convention a coordinate refers to.
type Field int

const (
	// Node is the lower-left corner of a cell.
	Node Field = iota
	// FieldU samples sit on vertical faces, half a cell down from the node.
	FieldU
	// FieldV samples sit on horizontal faces, half a cell right of the node.
	FieldV
	// FieldS samples sit at cell centres. The obstacle mask uses it too.
	FieldS
)

func (f Field) String() string {
	switch f {
	case FieldU:
		return "u"
	case FieldV:
		return "v"
	case FieldS:
		return "s"
	}
	return "node"
}

func (f Field) offset() (ox, oy float64) {
	switch f {
	case FieldU:
		return 0, 0.5
	case FieldV:
		return 0.5, 0
	case FieldS:
		return 0.5, 0.5
	}
	return 0, 0
}

// GridToWorld maps the (possibly fractional) sample index (gi, gk) of the
// given field to world coordinates.
func (fs *Fluid) GridToWorld(gi, gk float64, kind Field) (x, y float64) {
	ox, oy := kind.offset()
	b := float64(fs.blockOffset)
	return (gi + ox - b) * fs.squareSize, (gk + oy - b) * fs.squareSize
}

// WorldToGrid is the inverse of GridToWorld.
func (fs *Fluid) WorldToGrid(x, y float64, kind Field) (gi, gk float64) {
	ox, oy := kind.offset()
	b := float64(fs.blockOffset)
	return x/fs.squareSize + b - ox, y/fs.squareSize + b - oy
}

// CellAt returns the cell containing the world point (x, y).
func (fs *Fluid) CellAt(x, y float64) (i, k int) {
	gi, gk := fs.WorldToGrid(x, y, Node)
	return int(math.Floor(gi)), int(math.Floor(gk))
}

func (fs *Fluid) field(kind Field) *grid.Grid {
	switch kind {
	case FieldU:
		return fs.u
	case FieldV:
		return fs.v
	case FieldS:
		return fs.s
	}
	return nil
}

// Interpolate bilinearly samples the field at world position (x, y).
// The position is clamped to the field's sample extent.
func (fs *Fluid) Interpolate(x, y float64, kind Field) float64 {
	g := fs.field(kind)
	if g == nil {
		return 0
	}
	gi, gk := fs.WorldToGrid(x, y, kind)
	gi = clamp(gi, 0, float64(g.Width()-1))
	gk = clamp(gk, 0, float64(g.Height()-1))

	fi, fk := math.Floor(gi), math.Floor(gk)
	wx, wy := gi-fi, gk-fk
	i, k := int(fi), int(fk)

	return (1-wx)*(1-wy)*g.Get(i, k) +
		wx*(1-wy)*g.Get(i+1, k) +
		(1-wx)*wy*g.Get(i, k+1) +
		wx*wy*g.Get(i+1, k+1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
