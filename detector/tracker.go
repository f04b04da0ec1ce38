package detector

import (
	"time"

	"github.com/esimov/smoke-fluid/scene"
)

// Action is the kind of pointer event produced by the tracker.
type Action int

const (
	None Action = iota
	Down
	Move
	Up
)

func (a Action) String() string {
	switch a {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	}
	return "none"
}

// Tracker follows the strongest face across frames. A face appearing
// presses the pointer, moving it drags and losing it releases. The pointer
// sits between the pupils when both were localized, at the face centre
// otherwise.
type Tracker struct {
	// MinQ is the detection score below which faces are ignored.
	MinQ float32
	// Mirror flips the horizontal axis, as for a front camera.
	Mirror bool

	active bool
}

func NewTracker() *Tracker {
	return &Tracker{MinQ: 5, Mirror: true}
}

// Active reports whether a face is currently tracked.
func (t *Tracker) Active() bool { return t.active }

// Track maps the best face of a frameW x frameH frame onto a surface of
// the given size.
func (t *Tracker) Track(faces []Face, frameW, frameH int, surfaceW, surfaceH float64, now time.Duration) (Action, scene.PointerEvent) {
	best := -1
	for i, f := range faces {
		if f.Q < t.MinQ {
			continue
		}
		if best < 0 || f.Q > faces[best].Q {
			best = i
		}
	}
	if best < 0 || frameW <= 0 || frameH <= 0 {
		if t.active {
			t.active = false
			return Up, scene.PointerEvent{Time: now}
		}
		return None, scene.PointerEvent{}
	}

	row, col := anchor(faces[best])
	fx := col / float64(frameW)
	if t.Mirror {
		fx = 1 - fx
	}
	ev := scene.PointerEvent{
		X:    fx * surfaceW,
		Y:    row / float64(frameH) * surfaceH,
		Time: now,
	}
	if !t.active {
		t.active = true
		return Down, ev
	}
	return Move, ev
}

func anchor(f Face) (row, col float64) {
	if p := f.Pupils; p != nil {
		return float64(p[0].Row+p[1].Row) / 2, float64(p[0].Col+p[1].Col) / 2
	}
	return float64(f.Row), float64(f.Col)
}
