// Package raster implements a scene surface on top of an RGBA pixel buffer.
// Hosts that can upload raw pixels (ebiten, the browser canvas) blit the
// buffer and draw the collected text labels with their own font.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Label is a piece of text queued by FillText.
type Label struct {
	X, Y  int
	Text  string
	Color color.Color
}

// Surface draws into an *image.RGBA.
type Surface struct {
	img    *image.RGBA
	labels []Label
}

// New creates a w x h surface.
func New(w, h int) *Surface {
	s := &Surface{}
	s.Resize(w, h)
	return s
}

// Resize reallocates the pixel buffer.
func (s *Surface) Resize(w, h int) {
	s.img = image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	s.labels = s.labels[:0]
}

// Image returns the pixel buffer. It is replaced by Resize.
func (s *Surface) Image() *image.RGBA { return s.img }

// Pix returns the raw RGBA bytes of the buffer.
func (s *Surface) Pix() []byte { return s.img.Pix }

// Labels returns the text drawn since the last Clear.
func (s *Surface) Labels() []Label { return s.labels }

func (s *Surface) Size() (float64, float64) {
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (s *Surface) Clear(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	s.labels = s.labels[:0]
}

// FillRect fills the pixels whose centres fall inside the rectangle.
func (s *Surface) FillRect(x, y, w, h float64, c color.Color) {
	r := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

// StrokeLine draws a one pixel Bresenham line.
func (s *Surface) StrokeLine(x0, y0, x1, y1 float64, c color.Color) {
	ax, ay := int(math.Floor(x0)), int(math.Floor(y0))
	bx, by := int(math.Floor(x1)), int(math.Floor(y1))

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
		s.img.Set(ax, ay, c)
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

// StrokeArc draws a full circle outline.
func (s *Surface) StrokeArc(x, y, radius float64, c color.Color) {
	n := max(int(2*math.Pi*radius), 8)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		s.img.Set(int(math.Floor(x+radius*math.Cos(a))), int(math.Floor(y+radius*math.Sin(a))), c)
	}
}

func (s *Surface) FillText(x, y float64, text string, c color.Color) {
	s.labels = append(s.labels, Label{X: int(x), Y: int(y), Text: text, Color: c})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
