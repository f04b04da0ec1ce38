package control

import (
	"bytes"
	"errors"
	"image/color"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/grid"
	"github.com/esimov/smoke-fluid/perf"
	"github.com/esimov/smoke-fluid/scene"
)

type blankSurface struct{ w, h float64 }

func (s blankSurface) Size() (float64, float64) { return s.w, s.h }

func (blankSurface) Clear(color.Color) {}

func (blankSurface) FillRect(_, _, _, _ float64, _ color.Color) {}

func (blankSurface) StrokeLine(_, _, _, _ float64, _ color.Color) {}

func (blankSurface) StrokeArc(_, _, _ float64, _ color.Color) {}

func (blankSurface) FillText(_, _ float64, _ string, _ color.Color) {}

type fakeClock struct{ now time.Duration }

func (c *fakeClock) read() time.Duration { return c.now }

func newTestApp(t *testing.T) (*App, *fakeClock, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Fluid.Iterations = 10
	clock := &fakeClock{}
	var out bytes.Buffer
	app := New(blankSurface{w: 100, h: 100}, cfg, clock.read, &out, nil)
	return app, clock, &out
}

// run ticks the app every step until the clock reaches end.
func run(t *testing.T, app *App, clock *fakeClock, end, step time.Duration) {
	t.Helper()
	for ; clock.now <= end; clock.now += step {
		if _, err := app.Tick(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCallsBeforeMain(t *testing.T) {
	app, _, out := newTestApp(t)

	if _, err := app.Tick(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Tick = %v, want ErrNotInitialized", err)
	}
	if err := app.NextFrame(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NextFrame = %v, want ErrNotInitialized", err)
	}
	if err := app.SetStats(40, 2); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SetStats = %v, want ErrNotInitialized", err)
	}
	if _, ok := app.GetStats(); ok {
		t.Error("GetStats reported stats before main")
	}
	if _, ok := app.AdjustToDevicePerformance(); ok {
		t.Error("calibrated before main")
	}
	app.Play()
	if app.Running() {
		t.Error("running before main")
	}
	app.PrintFluidInfo()
	if !strings.Contains(out.String(), ErrNotInitialized.Error()) {
		t.Errorf("info output = %q", out.String())
	}
}

func TestFailedMainLeavesAppUninitialized(t *testing.T) {
	app, clock, _ := newTestApp(t)
	dir := t.TempDir()
	app.cfg.Perf.CSVPath = filepath.Join(dir, "missing", "perf.csv")

	if err := app.Main(); err == nil {
		t.Fatal("Main succeeded without a writable perf csv")
	}
	if app.Running() {
		t.Error("failed Main left the loop running")
	}
	if _, err := app.Tick(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Tick after failed Main = %v, want ErrNotInitialized", err)
	}
	if _, ok := app.GetStats(); ok {
		t.Error("GetStats reported stats after failed Main")
	}
	if _, ok := app.Step(10, 0); ok {
		t.Error("Step built a command after failed Main")
	}
	if got := app.FluidInfo(); got != "simulation not initialized\n" {
		t.Errorf("FluidInfo() = %q", got)
	}

	app.cfg.Perf.CSVPath = filepath.Join(dir, "perf.csv")
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	run(t, app, clock, 100*time.Millisecond, 40*time.Millisecond)
	if err := app.Close(); err != nil {
		t.Error(err)
	}
}

func TestMainStartsLoop(t *testing.T) {
	app, clock, _ := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	if !app.Running() {
		t.Fatal("main did not start the loop")
	}
	res, err := app.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stepped || !res.Rendered {
		t.Errorf("first tick = %+v", res)
	}

	clock.now = 10 * time.Millisecond
	res, err = app.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if res.Stepped || res.Wait <= 0 {
		t.Errorf("early tick = %+v, want deferred", res)
	}

	app.TogglePlaying()
	if app.Running() {
		t.Error("toggle did not pause")
	}
	if err := app.NextFrame(); err != nil {
		t.Errorf("NextFrame while paused: %v", err)
	}
}

func TestSetStats(t *testing.T) {
	app, clock, _ := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}

	if err := app.SetStats(10, 1); !errors.Is(err, perf.ErrInvalidStats) {
		t.Errorf("SetStats(10, 1) = %v, want ErrInvalidStats", err)
	}
	if err := app.SetStats(40, 0); !errors.Is(err, perf.ErrInvalidStats) {
		t.Errorf("SetStats(40, 0) = %v, want ErrInvalidStats", err)
	}
	if err := app.SetStats(1<<40, 1); !errors.Is(err, perf.ErrInvalidStats) {
		t.Errorf("SetStats(1<<40, 1) = %v, want ErrInvalidStats", err)
	}
	if st, _ := app.GetStats(); st.Resolution != 40 || st.Subdivisions != 2 {
		t.Fatalf("rejected requests changed stats: %+v", st)
	}

	if err := app.SetStats(60, 3); err != nil {
		t.Fatal(err)
	}
	run(t, app, clock, 200*time.Millisecond, 50*time.Millisecond)
	if st, _ := app.GetStats(); st.Resolution != 40 {
		t.Fatalf("applied before the debounce: %+v", st)
	}
	run(t, app, clock, 400*time.Millisecond, 50*time.Millisecond)
	st, _ := app.GetStats()
	if st.Resolution != 60 || st.Subdivisions != 3 {
		t.Fatalf("stats = %+v, want resolution 60 and 3 subdivisions", st)
	}
	if got := app.Scene().Fluid().Resolution(); got != 60 {
		t.Errorf("fluid resolution = %d", got)
	}
}

func TestSetStatsWhilePaused(t *testing.T) {
	app, clock, _ := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	app.Stop()
	if err := app.SetStats(30, 1); err != nil {
		t.Fatal(err)
	}
	run(t, app, clock, 500*time.Millisecond, 100*time.Millisecond)
	if st, _ := app.GetStats(); st.Resolution != 30 || st.Subdivisions != 1 {
		t.Errorf("paused app did not apply the request: %+v", st)
	}
	if app.Running() {
		t.Error("applying the request resumed the loop")
	}
}

func TestAverageFPS(t *testing.T) {
	app, clock, out := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	run(t, app, clock, 2*time.Second, 40*time.Millisecond)

	st, ok := app.GetStats()
	if !ok {
		t.Fatal("no stats")
	}
	if st.AverageFPS != 25 {
		t.Errorf("average fps = %v, want 25", st.AverageFPS)
	}

	app.PrintFluidInfo()
	for _, want := range []string{"cells", "42x42", "average fps", "fps"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("info output misses %q:\n%s", want, out.String())
		}
	}
}

func TestAdjustToDevicePerformance(t *testing.T) {
	app, clock, _ := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	if _, ok := app.AdjustToDevicePerformance(); ok {
		t.Fatal("calibrated without samples")
	}
	run(t, app, clock, 2*time.Second, 40*time.Millisecond)

	// 25 fps against a budget of 30: 40*sqrt(25/30) rounds to 37.
	st, ok := app.AdjustToDevicePerformance()
	if !ok {
		t.Fatal("calibration refused")
	}
	if st.Resolution != 37 || st.Subdivisions != 1 {
		t.Errorf("calibrated stats = %+v, want resolution 37 and 1 subdivision", st)
	}
	if got, _ := app.GetStats(); got.Resolution != 37 || got.Subdivisions != 1 {
		t.Errorf("stats after calibration = %+v", got)
	}
	if _, ok := app.AdjustToDevicePerformance(); ok {
		t.Error("calibration ran twice")
	}
}

func TestFailureNeedsMain(t *testing.T) {
	app, _, _ := newTestApp(t)
	if app.Halted() {
		t.Error("halted before main")
	}
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	if app.Halted() {
		t.Error("halted after main")
	}
	app.Scene().Fluid().Params.Overrelaxation = math.Inf(1)

	err := app.NextFrame()
	if !errors.Is(err, ErrFluidFailed) || !errors.Is(err, grid.ErrNonFinite) {
		t.Fatalf("NextFrame = %v, want ErrFluidFailed wrapping ErrNonFinite", err)
	}
	if app.Running() {
		t.Error("failed app still running")
	}
	if !app.Halted() {
		t.Error("failed app not halted")
	}
	if _, err := app.Tick(); !errors.Is(err, ErrFluidFailed) {
		t.Errorf("Tick after failure = %v, want ErrFluidFailed", err)
	}
	if err := app.RunProjection(); !errors.Is(err, ErrFluidFailed) {
		t.Errorf("RunProjection after failure = %v, want ErrFluidFailed", err)
	}
	app.Play()
	if app.Running() {
		t.Error("Play revived a failed fluid")
	}

	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	if err := app.NextFrame(); err != nil {
		t.Errorf("NextFrame after main = %v", err)
	}
	if app.Halted() {
		t.Error("still halted after main")
	}
}

func TestDebugStages(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	if err := app.GenerateRandomVelocities(); err != nil {
		t.Fatal(err)
	}
	f := app.Scene().Fluid()
	before := f.MeanAbsDivergence()
	if before == 0 {
		t.Fatal("random velocities are divergence free")
	}
	if err := app.RunSolveDivergenceForAll(); err != nil {
		t.Fatal(err)
	}
	if err := app.RunProjection(); err != nil {
		t.Fatal(err)
	}
	if after := f.MeanAbsDivergence(); after >= before {
		t.Errorf("mean divergence %v -> %v, want a reduction", before, after)
	}
	if err := app.RunAdvection(); err != nil {
		t.Fatal(err)
	}

	app.ClearScene()
	if f.MeanAbsDivergence() != 0 || f.Info().TotalSmoke != 0 {
		t.Error("clear left velocity or smoke behind")
	}
}

func TestPointerInjectsThroughApp(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	app.PointerDown(scene.PointerEvent{X: 50, Y: 50})
	if err := app.PointerMove(scene.PointerEvent{X: 60, Y: 50, Time: 100 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	app.PointerUp(scene.PointerEvent{X: 60, Y: 50, Time: 120 * time.Millisecond})
	if app.Scene().Fluid().Info().TotalSmoke == 0 {
		t.Error("drag injected no dye")
	}
}

func TestExec(t *testing.T) {
	app, clock, _ := newTestApp(t)

	if r := app.Exec(Command{Op: "get_stats"}); r.Stats != nil {
		t.Errorf("get_stats before main = %+v", r)
	}
	if r := app.Exec(Command{Op: "main"}); r.Error != "" {
		t.Fatalf("main: %s", r.Error)
	}
	if r := app.Exec(Command{Op: "toggle_playing"}); app.Running() || r.Error != "" {
		t.Errorf("toggle_playing = %+v, running %v", r, app.Running())
	}
	for _, op := range []string{"next_frame", "run_projection", "run_advection",
		"run_solve_divergence_for_all", "generate_random_velocities", "clear_scene", "play", "stop"} {
		if r := app.Exec(Command{Op: op}); r.Error != "" {
			t.Errorf("%s: %s", op, r.Error)
		}
	}
	if r := app.Exec(Command{Op: "print_fluid_info"}); !strings.Contains(r.Info, "cells") {
		t.Errorf("print_fluid_info = %q", r.Info)
	}
	if r := app.Exec(Command{Op: "set_stats", Resolution: 10, Subdivisions: 1}); r.Error == "" {
		t.Error("set_stats(10, 1) accepted")
	}
	if r := app.Exec(Command{Op: "toggle_overlay", Overlay: "grid-lines"}); r.Error != "" {
		t.Error(r.Error)
	}
	if app.Scene().Overlays()&scene.ShowGridLines == 0 {
		t.Error("grid lines not toggled")
	}
	if r := app.Exec(Command{Op: "toggle_overlay", Overlay: "fog"}); r.Error == "" {
		t.Error("unknown overlay accepted")
	}
	if r := app.Exec(Command{Op: "explode"}); r.Error == "" {
		t.Error("unknown op accepted")
	}

	// Repeated steps accumulate on the pending request.
	for i := 0; i < 2; i++ {
		cmd, ok := app.Step(10, 1)
		if !ok {
			t.Fatal("Step refused after main")
		}
		if r := app.Exec(cmd); r.Error != "" {
			t.Fatal(r.Error)
		}
	}
	clock.now = time.Second
	if _, err := app.Tick(); err != nil {
		t.Fatal(err)
	}
	r := app.Exec(Command{Op: "get_stats"})
	if r.Stats == nil || r.Stats.Resolution != 60 || r.Stats.Subdivisions != 4 {
		t.Errorf("get_stats = %+v, want resolution 60 and 4 subdivisions", r.Stats)
	}
}

func TestStepClampsResolution(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Main(); err != nil {
		t.Fatal(err)
	}
	limit := app.perf.MaxResolution()
	if err := app.SetStats(uint(limit), 2); err != nil {
		t.Fatal(err)
	}
	cmd, ok := app.Step(10, 0)
	if !ok || cmd.Resolution != uint(limit) {
		t.Fatalf("Step(10, 0) = %+v, %v, want resolution %d", cmd, ok, limit)
	}
	if r := app.Exec(cmd); r.Error != "" {
		t.Errorf("clamped set_stats rejected: %s", r.Error)
	}
}
