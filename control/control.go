// Package control exposes the simulator's host-facing API. Every host
// (terminal, desktop, websocket, browser) drives the simulation through an App.
package control

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/perf"
	"github.com/esimov/smoke-fluid/scene"
)

var (
	// ErrNotInitialized is returned by every operation called before Main.
	ErrNotInitialized = errors.New("simulation not initialized")
	// ErrFluidFailed is returned once a step failed. Main recreates the fluid.
	ErrFluidFailed = errors.New("fluid failed")
)

// Clock returns the host's monotonic time.
type Clock func() time.Duration

// SystemClock returns a Clock counting from the moment it is created.
func SystemClock() Clock {
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}

// App owns the scene and the performance controller of a single host.
// It is not safe for concurrent use.
type App struct {
	cfg     *config.Config
	surface scene.Surface
	clock   Clock
	out     io.Writer
	logger  *slog.Logger

	scene  *scene.Scene
	perf   *perf.Controller
	failed error

	csv *os.File
}

// New prepares an app drawing on surface. Nothing is simulated before Main.
// Debug dumps go to out, os.Stdout when nil.
func New(surface scene.Surface, cfg *config.Config, clock Clock, out io.Writer, logger *slog.Logger) *App {
	if clock == nil {
		clock = SystemClock()
	}
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		surface: surface,
		clock:   clock,
		out:     out,
		logger:  logger,
	}
}

// Main (re)initializes the simulation and starts the render loop. The
// previous scene, if any, is destroyed. Main is also how a failed fluid is
// recreated. On error the app is left as it was.
func (a *App) Main() error {
	sc, err := scene.New(a.surface, a.cfg.FluidParams(), a.cfg.SceneOptions(), a.logger)
	if err != nil {
		return fmt.Errorf("creating scene: %w", err)
	}
	if a.perf == nil {
		sink, err := a.openSink()
		if err != nil {
			sc.Destroy()
			return err
		}
		a.perf = perf.New(sc, a.cfg.PerfOptions(), sink, a.logger)
	} else {
		a.perf.SetTarget(sc)
	}

	if a.scene != nil {
		a.scene.Destroy()
	}
	a.scene = sc
	a.failed = nil
	sc.Play()

	f := sc.Fluid()
	a.logger.Info("simulation initialized",
		"cells_x", f.Width(),
		"cells_y", f.Height(),
		"square_size", f.SquareSize(),
		"subdivisions", sc.Subdivisions(),
	)
	return nil
}

func (a *App) openSink() (perf.Sink, error) {
	path := a.cfg.Perf.CSVPath
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating perf csv: %w", err)
	}
	a.csv = f
	return perf.NewCSVSink(f), nil
}

// Close releases the perf log and destroys the scene.
func (a *App) Close() error {
	if a.scene != nil {
		a.scene.Destroy()
	}
	if a.csv != nil {
		return a.csv.Close()
	}
	return nil
}

func (a *App) ready() error {
	if a.scene == nil {
		return ErrNotInitialized
	}
	if a.failed != nil {
		return fmt.Errorf("%w: %w", ErrFluidFailed, a.failed)
	}
	return nil
}

// fail marks the fluid as dead after a numerical failure.
func (a *App) fail(err error) error {
	a.failed = err
	a.scene.Stop()
	a.logger.Error("fluid failed, call main to recreate it", "error", err)
	return fmt.Errorf("%w: %w", ErrFluidFailed, err)
}

// Scene returns the live scene, nil before Main.
func (a *App) Scene() *scene.Scene { return a.scene }

// Running reports whether the animation loop is playing.
func (a *App) Running() bool {
	return a.scene != nil && a.failed == nil && a.scene.Playing()
}

// Halted reports whether the fluid failed and waits for Main.
func (a *App) Halted() bool {
	return a.scene != nil && a.failed != nil
}

func (a *App) Play() {
	if a.ready() != nil {
		return
	}
	a.scene.Play()
}

func (a *App) Stop() {
	if a.scene == nil {
		return
	}
	a.scene.Stop()
}

func (a *App) TogglePlaying() {
	if a.ready() != nil {
		return
	}
	a.scene.TogglePlaying()
}

// Tick runs one iteration of the animation loop at the current clock time.
func (a *App) Tick() (scene.TickResult, error) {
	if err := a.ready(); err != nil {
		return scene.TickResult{}, err
	}
	now := a.clock()
	res, err := a.scene.Tick(now)
	if err != nil {
		return res, a.fail(err)
	}

	var perr error
	switch {
	case !a.scene.Playing():
		perr = a.perf.Idle(now)
	case res.Stepped:
		perr = a.perf.Observe(now)
	}
	if perr != nil {
		a.logger.Warn("applying stats failed", "error", perr)
		return res, perr
	}
	return res, nil
}

// NextFrame advances exactly one step and renders.
func (a *App) NextFrame() error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.scene.NextFrame(); err != nil {
		return a.fail(err)
	}
	return nil
}

// RunProjection forces a projection stage in isolation.
func (a *App) RunProjection() error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.scene.RunProjection(); err != nil {
		return a.fail(err)
	}
	return nil
}

// RunAdvection forces an advection stage in isolation.
func (a *App) RunAdvection() error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.scene.RunAdvection(); err != nil {
		return a.fail(err)
	}
	return nil
}

// RunSolveDivergenceForAll forces one relaxation sweep.
func (a *App) RunSolveDivergenceForAll() error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.scene.RunSolveDivergenceAll(); err != nil {
		return a.fail(err)
	}
	return nil
}

// GenerateRandomVelocities fills the velocity field with bounded noise.
func (a *App) GenerateRandomVelocities() error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.scene.GenerateRandomVelocities(); err != nil {
		return a.fail(err)
	}
	return nil
}

// ClearScene zeroes all fields.
func (a *App) ClearScene() {
	if a.ready() != nil {
		return
	}
	a.scene.Clear()
}

// GetStats returns the current performance snapshot, false before Main.
func (a *App) GetStats() (perf.Stats, bool) {
	if a.scene == nil {
		return perf.Stats{}, false
	}
	return a.perf.Stats(), true
}

// SetStats requests a new resolution and subdivision count. The request is
// validated now and applied by a later Tick once the debounce period passed.
func (a *App) SetStats(resolution, subdivisions uint) error {
	if a.scene == nil {
		return ErrNotInitialized
	}
	return a.perf.SetStats(int(resolution), int(subdivisions), a.clock())
}

// AdjustToDevicePerformance runs the one-shot device calibration.
func (a *App) AdjustToDevicePerformance() (perf.Stats, bool) {
	if a.ready() != nil {
		return perf.Stats{}, false
	}
	return a.perf.AdjustToDevicePerformance(a.clock())
}

// Resize reallocates the fluid after the host surface changed size.
func (a *App) Resize() error {
	if a.scene == nil {
		return ErrNotInitialized
	}
	return a.scene.Resize()
}

// Toggle flips render overlays.
func (a *App) Toggle(o scene.Overlay) {
	if a.scene == nil {
		return
	}
	a.scene.Toggle(o)
}

func (a *App) PointerDown(ev scene.PointerEvent) {
	if a.ready() != nil {
		return
	}
	a.scene.PointerDown(ev)
}

func (a *App) PointerUp(ev scene.PointerEvent) {
	if a.scene == nil {
		return
	}
	a.scene.PointerUp(ev)
}

func (a *App) PointerMove(ev scene.PointerEvent) error {
	if a.ready() != nil {
		return nil
	}
	if err := a.scene.PointerMove(ev); err != nil {
		return a.fail(err)
	}
	return nil
}

// Now returns the app clock, for hosts stamping pointer events.
func (a *App) Now() time.Duration { return a.clock() }
