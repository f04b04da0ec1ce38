package terminal

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
)

// Surface rasterizes scene draw calls into a termbox back buffer. Every
// terminal cell covers cellW x cellH surface pixels.
type Surface struct {
	cellW, cellH float64
	bbw, bbh     int
	backbuf      []termbox.Cell
}

// NewSurface creates a back buffer of cols x rows cells.
func NewSurface(cols, rows, cellW, cellH int) *Surface {
	s := &Surface{cellW: float64(cellW), cellH: float64(cellH)}
	s.Resize(cols, rows)
	return s
}

// Resize reallocates the back buffer.
func (s *Surface) Resize(cols, rows int) {
	s.bbw, s.bbh = max(cols, 1), max(rows, 1)
	s.backbuf = make([]termbox.Cell, s.bbw*s.bbh)
}

func (s *Surface) Size() (float64, float64) {
	return float64(s.bbw) * s.cellW, float64(s.bbh) * s.cellH
}

// Cells returns the terminal size of the back buffer.
func (s *Surface) Cells() (cols, rows int) { return s.bbw, s.bbh }

// Cell returns the back buffer cell at (col, row).
func (s *Surface) Cell(col, row int) termbox.Cell {
	if col < 0 || row < 0 || col >= s.bbw || row >= s.bbh {
		return termbox.Cell{}
	}
	return s.backbuf[row*s.bbw+col]
}

// ToPixels maps a terminal cell to the surface pixel at its centre.
func (s *Surface) ToPixels(col, row int) (x, y float64) {
	return (float64(col) + 0.5) * s.cellW, (float64(row) + 0.5) * s.cellH
}

func (s *Surface) cellAt(x, y float64) (int, int) {
	return int(math.Floor(x / s.cellW)), int(math.Floor(y / s.cellH))
}

func (s *Surface) set(col, row int, fn func(c *termbox.Cell)) {
	if col < 0 || row < 0 || col >= s.bbw || row >= s.bbh {
		return
	}
	fn(&s.backbuf[row*s.bbw+col])
}

func (s *Surface) Clear(c color.Color) {
	bg := attribute(c)
	for i := range s.backbuf {
		s.backbuf[i] = termbox.Cell{Ch: ' ', Fg: termbox.ColorDefault, Bg: bg}
	}
}

// FillRect paints the background of every cell the rectangle touches.
func (s *Surface) FillRect(x, y, w, h float64, c color.Color) {
	bg := attribute(c)
	c0, r0 := s.cellAt(x, y)
	c1 := max(int(math.Ceil((x+w)/s.cellW)), c0+1)
	r1 := max(int(math.Ceil((y+h)/s.cellH)), r0+1)
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			s.set(col, row, func(cell *termbox.Cell) {
				cell.Ch = ' '
				cell.Bg = bg
			})
		}
	}
}

// StrokeLine draws a Bresenham line with a glyph matching its slope.
func (s *Surface) StrokeLine(x0, y0, x1, y1 float64, c color.Color) {
	fg := attribute(c)
	ch := lineRune(x1-x0, y1-y0)
	ax, ay := s.cellAt(x0, y0)
	bx, by := s.cellAt(x1, y1)

	dx, dy := abs(bx-ax), -abs(by-ay)
	sx, sy := 1, 1
	if ax > bx {
		sx = -1
	}
	if ay > by {
		sy = -1
	}
	e := dx + dy
	for {
		s.set(ax, ay, func(cell *termbox.Cell) {
			cell.Ch = ch
			cell.Fg = fg
		})
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			ax += sx
		}
		if e2 <= dx {
			e += dx
			ay += sy
		}
	}
}

// StrokeArc marks the cells along a circle of the given pixel radius.
func (s *Surface) StrokeArc(x, y, radius float64, c color.Color) {
	fg := attribute(c)
	n := max(int(2*math.Pi*radius/min(s.cellW, s.cellH)), 8)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		col, row := s.cellAt(x+radius*math.Cos(a), y+radius*math.Sin(a))
		s.set(col, row, func(cell *termbox.Cell) {
			cell.Ch = '·'
			cell.Fg = fg
		})
	}
}

// FillText writes text from the cell containing (x, y). Wide runes take two cells.
func (s *Surface) FillText(x, y float64, text string, c color.Color) {
	fg := attribute(c)
	col, row := s.cellAt(x, y)
	for _, r := range text {
		s.set(col, row, func(cell *termbox.Cell) {
			cell.Ch = r
			cell.Fg = fg
		})
		col += max(runewidth.RuneWidth(r), 1)
	}
}

// Flush copies the back buffer to the terminal.
func (s *Surface) Flush() error {
	copy(termbox.CellBuffer(), s.backbuf)
	return termbox.Flush()
}

func lineRune(dx, dy float64) rune {
	switch {
	case math.Abs(dy) <= math.Abs(dx)/2:
		return '─'
	case math.Abs(dx) <= math.Abs(dy)/2:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// attribute maps c to the xterm 256 colour palette used in Output256 mode,
// where attribute n selects palette entry n-1.
func attribute(c color.Color) termbox.Attribute {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return termbox.ColorDefault
	}
	r, g, b := cc.Clamped().RGB255()
	if r == g && g == b {
		// 24 step grey ramp, with the cube corners for black and white.
		switch {
		case r < 8:
			return termbox.Attribute(16 + 1)
		case r > 238:
			return termbox.Attribute(231 + 1)
		default:
			return termbox.Attribute(232 + (int(r)-8)/10 + 1)
		}
	}
	q := func(v uint8) int { return (int(v)*5 + 127) / 255 }
	return termbox.Attribute(16 + 36*q(r) + 6*q(g) + q(b) + 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
