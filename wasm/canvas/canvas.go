//go:build js && wasm

// Package canvas draws the simulation on an HTML canvas and forwards its
// pointer events.
package canvas

import (
	"syscall/js"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/esimov/smoke-fluid/raster"
	"github.com/esimov/smoke-fluid/scene"
)

// Pointer receives the canvas pointer events in canvas pixels.
type Pointer interface {
	PointerDown(ev scene.PointerEvent)
	PointerMove(ev scene.PointerEvent) error
	PointerUp(ev scene.PointerEvent)
}

// Canvas blits a raster surface to a 2D canvas context.
type Canvas struct {
	*raster.Surface

	window js.Value
	doc    js.Value
	canvas js.Value
	ctx    js.Value

	imageData js.Value
	data      js.Value
}

// NewCanvas binds the canvas element with the given id, creating one
// when the page has none.
func NewCanvas(id string) *Canvas {
	c := &Canvas{
		window: js.Global(),
		doc:    js.Global().Get("document"),
	}
	c.canvas = c.doc.Call("getElementById", id)
	if c.canvas.IsNull() {
		c.canvas = c.doc.Call("createElement", "canvas")
		c.canvas.Set("id", id)
		c.doc.Get("body").Call("appendChild", c.canvas)
	}
	c.ctx = c.canvas.Call("getContext", "2d")
	w, h := c.clientSize()
	c.Surface = raster.New(w, h)
	c.alloc()
	return c
}

func (c *Canvas) clientSize() (int, int) {
	w := c.canvas.Get("clientWidth").Int()
	h := c.canvas.Get("clientHeight").Int()
	if w == 0 || h == 0 {
		w = c.window.Get("innerWidth").Int()
		h = c.window.Get("innerHeight").Int()
	}
	return w, h
}

func (c *Canvas) alloc() {
	b := c.Image().Bounds()
	c.canvas.Set("width", b.Dx())
	c.canvas.Set("height", b.Dy())
	c.imageData = c.ctx.Call("createImageData", b.Dx(), b.Dy())
	c.data = c.imageData.Get("data")
}

// Fit resizes the pixel buffer to the canvas' layout size. It reports
// whether the size changed.
func (c *Canvas) Fit() bool {
	w, h := c.clientSize()
	b := c.Image().Bounds()
	if w == b.Dx() && h == b.Dy() {
		return false
	}
	c.Resize(w, h)
	c.alloc()
	return true
}

// Blit uploads the pixel buffer and draws the queued labels.
func (c *Canvas) Blit() {
	js.CopyBytesToJS(c.data, c.Pix())
	c.ctx.Call("putImageData", c.imageData, 0, 0)
	c.ctx.Set("font", "10px monospace")
	for _, l := range c.Labels() {
		cc, _ := colorful.MakeColor(l.Color)
		c.ctx.Set("fillStyle", cc.Hex())
		c.ctx.Call("fillText", l.Text, l.X, l.Y+10)
	}
}

// Listen forwards mouse and touch events to p, stamped with clock.
func (c *Canvas) Listen(p Pointer, clock func() time.Duration, onError func(error)) {
	event := func(e js.Value) scene.PointerEvent {
		rect := c.canvas.Call("getBoundingClientRect")
		src := e
		for _, key := range []string{"touches", "changedTouches"} {
			if t := e.Get(key); !t.IsUndefined() && t.Length() > 0 {
				src = t.Index(0)
				break
			}
		}
		return scene.PointerEvent{
			X:    src.Get("clientX").Float() - rect.Get("left").Float(),
			Y:    src.Get("clientY").Float() - rect.Get("top").Float(),
			Time: clock(),
		}
	}
	on := func(name string, fn func(e js.Value)) {
		f := js.FuncOf(func(this js.Value, args []js.Value) any {
			args[0].Call("preventDefault")
			fn(args[0])
			return nil
		})
		c.canvas.Call("addEventListener", name, f)
	}

	down := func(e js.Value) { p.PointerDown(event(e)) }
	move := func(e js.Value) {
		if err := p.PointerMove(event(e)); err != nil {
			onError(err)
		}
	}
	up := func(e js.Value) { p.PointerUp(event(e)) }

	on("mousedown", down)
	on("mousemove", move)
	on("mouseup", up)
	on("mouseleave", up)
	on("touchstart", down)
	on("touchmove", move)
	on("touchend", up)
}

// Alert calls the `alert` Javascript function.
func (c *Canvas) Alert(message string) {
	c.window.Call("alert", message)
}

// Log calls the `console.log` Javascript function.
func (c *Canvas) Log(args ...any) {
	c.window.Get("console").Call("log", args...)
}

// Write implements io.Writer over console.log.
func (c *Canvas) Write(p []byte) (int, error) {
	c.Log(string(p))
	return len(p), nil
}
