package websocket

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Op is one recorded draw call. K is one of clear, rect, line, arc, text.
type Op struct {
	K  string  `json:"k"`
	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
	W  float64 `json:"w,omitempty"`
	H  float64 `json:"h,omitempty"`
	X1 float64 `json:"x1,omitempty"`
	Y1 float64 `json:"y1,omitempty"`
	R  float64 `json:"r,omitempty"`
	T  string  `json:"t,omitempty"`
	C  string  `json:"c"`
}

// DisplayList is a surface that records draw calls so a browser can
// replay them on its canvas.
type DisplayList struct {
	w, h  float64
	ops   []Op
	dirty bool
}

func NewDisplayList(w, h int) *DisplayList {
	return &DisplayList{w: float64(w), h: float64(h)}
}

// Resize changes the reported size. The next frame uses it.
func (d *DisplayList) Resize(w, h int) {
	d.w, d.h = float64(max(w, 1)), float64(max(h, 1))
}

func (d *DisplayList) Size() (float64, float64) { return d.w, d.h }

// Take returns the ops of the last complete frame, or nil when nothing was
// drawn since the previous call.
func (d *DisplayList) Take() []Op {
	if !d.dirty {
		return nil
	}
	d.dirty = false
	return d.ops
}

func (d *DisplayList) Clear(c color.Color) {
	d.ops = append(d.ops[:0], Op{K: "clear", C: hex(c)})
	d.dirty = true
}

func (d *DisplayList) FillRect(x, y, w, h float64, c color.Color) {
	d.ops = append(d.ops, Op{K: "rect", X: x, Y: y, W: w, H: h, C: hex(c)})
}

func (d *DisplayList) StrokeLine(x0, y0, x1, y1 float64, c color.Color) {
	d.ops = append(d.ops, Op{K: "line", X: x0, Y: y0, X1: x1, Y1: y1, C: hex(c)})
}

func (d *DisplayList) StrokeArc(x, y, radius float64, c color.Color) {
	d.ops = append(d.ops, Op{K: "arc", X: x, Y: y, R: radius, C: hex(c)})
}

func (d *DisplayList) FillText(x, y float64, text string, c color.Color) {
	d.ops = append(d.ops, Op{K: "text", X: x, Y: y, T: text, C: hex(c)})
}

func hex(c color.Color) string {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cc.Clamped().Hex()
}
