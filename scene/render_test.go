package scene

import (
	"testing"
	"time"
)

const visibleCells = 20 * 20

func renderWith(t *testing.T, o Overlay, prepare func(sc *Scene)) *recorder {
	t.Helper()
	opts := DefaultOptions()
	opts.Overlays = o
	sc, surf := newTestScene(t, opts)
	if prepare != nil {
		prepare(sc)
	}
	surf.reset()
	sc.Render()
	if surf.count("clear") != 1 {
		t.Fatalf("render cleared the surface %d times", surf.count("clear"))
	}
	return surf
}

func TestRenderSmokeSubdivisions(t *testing.T) {
	surf := renderWith(t, ShowSmoke, func(sc *Scene) {
		if err := sc.Reconfigure(20, 3); err != nil {
			t.Fatal(err)
		}
	})
	if got := surf.count("rect"); got != visibleCells*9 {
		t.Errorf("smoke rects = %d, want %d", got, visibleCells*9)
	}
}

func TestRenderSmokeIntensity(t *testing.T) {
	surf := renderWith(t, ShowSmoke, func(sc *Scene) {
		_ = sc.Fluid().S().Fill(1)
	})
	for _, c := range surf.calls {
		if c.op != "rect" {
			continue
		}
		r, g, b, _ := c.c.RGBA()
		if r < 0xfe00 || g < 0xfe00 || b < 0xfe00 {
			t.Fatalf("dense smoke drawn as %v", c.c)
		}
	}
}

func TestRenderSkipsSolidCells(t *testing.T) {
	surf := renderWith(t, ShowSmoke|ShowObstacles, func(sc *Scene) {
		sc.Fluid().SetObstacle(5, 5, true)
		sc.Fluid().SetObstacle(6, 5, true)
		sc.Fluid().SetObstacle(7, 5, true)
	})
	// 397 fluid cells at 2x2 samples plus 3 obstacle squares.
	if got := surf.count("rect"); got != (visibleCells-3)*4+3 {
		t.Errorf("rects = %d, want %d", got, (visibleCells-3)*4+3)
	}
}

func TestRenderGridLines(t *testing.T) {
	surf := renderWith(t, ShowGridLines, nil)
	if got := surf.count("line"); got != 42 {
		t.Errorf("grid lines = %d, want 42", got)
	}
	if surf.count("rect") != 0 {
		t.Error("grid overlay drew rects")
	}
}

func TestRenderDivergence(t *testing.T) {
	surf := renderWith(t, ShowDivergence, func(sc *Scene) {
		_ = sc.Fluid().U().Set(5, 5, 1)
	})
	if got := surf.count("text"); got != visibleCells {
		t.Fatalf("divergence labels = %d, want %d", got, visibleCells)
	}
	found := map[string]bool{}
	for _, c := range surf.calls {
		if c.op == "text" {
			found[c.text] = true
		}
	}
	if !found["-1.00"] || !found["1.00"] || !found["0.00"] {
		t.Errorf("missing divergence labels, got %v", found)
	}
}

func TestRenderVelocities(t *testing.T) {
	surf := renderWith(t, ShowVelocities, func(sc *Scene) {
		_ = sc.Fluid().U().Set(5, 5, 1)
		_ = sc.Fluid().V().Set(6, 6, -2)
	})
	if got := surf.count("line"); got != 2 {
		t.Errorf("face arrows = %d, want 2", got)
	}

	surf = renderWith(t, ShowCenterVelocities, func(sc *Scene) {
		_ = sc.Fluid().U().Set(5, 5, 1)
	})
	// The face is shared by cells (4,5) and (5,5).
	if got := surf.count("line"); got != 2 {
		t.Errorf("centre arrows = %d, want 2", got)
	}
}

func TestRenderOverlaysCombine(t *testing.T) {
	surf := renderWith(t, ShowGridLines|ShowDivergence|ShowSmoke, nil)
	if surf.count("line") != 42 || surf.count("text") != visibleCells || surf.count("rect") != visibleCells*4 {
		t.Errorf("overlays did not all render: %d lines, %d labels, %d rects",
			surf.count("line"), surf.count("text"), surf.count("rect"))
	}
}

func TestRenderBrushAndParticles(t *testing.T) {
	opts := DefaultOptions()
	opts.Overlays = ShowBrush | ShowParticles
	sc, surf := newTestScene(t, opts)

	sc.Render()
	if surf.count("arc") != 0 {
		t.Error("brush drawn without a drag")
	}

	sc.PointerDown(PointerEvent{X: 50, Y: 50})
	if err := sc.PointerMove(PointerEvent{X: 55, Y: 50, Time: 100 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	surf.reset()
	sc.Render()
	if surf.count("arc") != 1 {
		t.Errorf("brush arcs = %d, want 1", surf.count("arc"))
	}
	if got := surf.count("rect"); got != len(sc.Particles()) || got == 0 {
		t.Errorf("particle rects = %d, particles = %d", got, len(sc.Particles()))
	}
}
