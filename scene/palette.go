package scene

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/colorgrad"
)

const paletteSize = 256

type palette struct {
	background colorful.Color
	obstacle   colorful.Color
	grid       colorful.Color
	arrow      colorful.Color
	text       colorful.Color
	brush      colorful.Color
	particle   colorful.Color

	smoke []colorful.Color
	speed []colorful.Color
}

func newPalette() palette {
	bg := colorful.Color{R: 0.02, G: 0.03, B: 0.08}
	white := colorful.Color{R: 1, G: 1, B: 1}

	p := palette{
		background: bg,
		obstacle:   colorful.Color{R: 0.55, G: 0.55, B: 0.5},
		grid:       colorful.Color{R: 0.25, G: 0.25, B: 0.3},
		arrow:      colorful.Color{R: 0.1, G: 0.6, B: 1},
		text:       colorful.Color{R: 1, G: 0.85, B: 0.3},
		brush:      colorful.Color{R: 1, G: 0.4, B: 0.3},
		particle:   colorful.Color{R: 0.9, G: 0.95, B: 1},
		smoke:      make([]colorful.Color, paletteSize),
	}
	for i := range p.smoke {
		p.smoke[i] = bg.BlendHcl(white, float64(i)/(paletteSize-1)).Clamped()
	}
	for _, c := range colorgrad.Viridis().Colors(paletteSize) {
		cc, _ := colorful.MakeColor(c)
		p.speed = append(p.speed, cc)
	}
	return p
}

// lookup maps t in [0, 1] onto a colour table. Out of range values are clamped.
func lookup(tbl []colorful.Color, t float64) colorful.Color {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return tbl[int(t*float64(len(tbl)-1))]
}
