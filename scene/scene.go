// Package scene drives a fluid on a host surface: it paces the simulation,
// turns pointer drags into velocity and dye injections and renders the fields.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	fluid "github.com/esimov/smoke-fluid/fluid-solver"
)

// ErrInvalidOptions is returned for degenerate scene options.
var ErrInvalidOptions = errors.New("invalid scene options")

// Options configure the interactive layer on top of the fluid.
type Options struct {
	MouseRadius      int     // pointer kernel radius in cells
	Subdivisions     int     // smoke samples per cell side
	DyeAmount        float64 // smoke added at the kernel peak on every injection
	ParticleLifetime float64 // seconds
	MaxParticles     int
	ArrowScale       float64 // glyph length per unit of velocity
	Overlays         Overlay
	Inlet            *Inlet
	Seed             uint64
}

// Inlet is a force and smoke source given in fractions of the surface size.
type Inlet struct {
	X0, Y0, X1, Y1 float64
	Smoke          float64
}

// DefaultOptions returns the options used by the hosts when no config is given.
func DefaultOptions() Options {
	return Options{
		MouseRadius:      10,
		Subdivisions:     2,
		DyeAmount:        1,
		ParticleLifetime: 4,
		MaxParticles:     2000,
		ArrowScale:       0.1,
		Overlays:         ShowSmoke | ShowVelocityColors | ShowBrush,
	}
}

func (o Options) validate() error {
	switch {
	case o.MouseRadius < 0:
		return fmt.Errorf("%w: mouse radius %d", ErrInvalidOptions, o.MouseRadius)
	case o.Subdivisions < 1:
		return fmt.Errorf("%w: subdivisions %d", ErrInvalidOptions, o.Subdivisions)
	case o.DyeAmount < 0:
		return fmt.Errorf("%w: dye amount %v", ErrInvalidOptions, o.DyeAmount)
	case o.MaxParticles < 0:
		return fmt.Errorf("%w: max particles %d", ErrInvalidOptions, o.MaxParticles)
	}
	return nil
}

// TickResult reports what a call to Tick did.
type TickResult struct {
	Stepped  bool
	Rendered bool
	// Wait is how long the host should wait before the next tick.
	Wait time.Duration
}

// Scene owns a fluid and the surface it is drawn on. All methods must be
// called from the host's loop goroutine.
type Scene struct {
	opts    Options
	fluid   *fluid.Fluid
	surface Surface
	logger  *slog.Logger
	rng     *rand.Rand
	palette palette

	playing   bool
	destroyed bool
	dirty     bool

	ticked   bool
	lastTick time.Duration

	dragging bool
	pointer  PointerEvent

	particles []*fluid.Particle
}

// New creates a scene covering the whole surface.
func New(surface Surface, p fluid.Params, opts Options, logger *slog.Logger) (*Scene, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scene{
		opts:    opts,
		surface: surface,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		palette: newPalette(),
	}
	if err := s.rebuild(p); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild allocates a new fluid for the current surface size. The old fluid
// is kept when allocation fails.
func (s *Scene) rebuild(p fluid.Params) error {
	w, h := s.surface.Size()
	fs, err := fluid.New(w, h, p)
	if err != nil {
		return err
	}
	if s.opts.Inlet != nil {
		fs.Inlet = inletRegion(fs, s.opts.Inlet, w, h)
	}
	s.fluid = fs
	s.particles = s.particles[:0]
	s.dirty = true

	s.logger.Debug("fluid allocated",
		"cells_x", fs.Width(),
		"cells_y", fs.Height(),
		"square_size", fs.SquareSize(),
		"resolution", fs.Resolution(),
	)
	return nil
}

func inletRegion(fs *fluid.Fluid, in *Inlet, w, h float64) *fluid.Region {
	x0, y0 := fs.CellAt(in.X0*w, in.Y0*h)
	x1, y1 := fs.CellAt(in.X1*w, in.Y1*h)
	return &fluid.Region{
		X0: x0, Y0: y0,
		X1: max(x1, x0+1), Y1: max(y1, y0+1),
		Smoke: in.Smoke,
	}
}

// Fluid returns the live fluid. It is replaced by Reconfigure and Resize.
func (s *Scene) Fluid() *fluid.Fluid { return s.fluid }

func (s *Scene) Resolution() int   { return s.fluid.Resolution() }
func (s *Scene) Subdivisions() int { return s.opts.Subdivisions }
func (s *Scene) Playing() bool     { return s.playing }
func (s *Scene) Destroyed() bool   { return s.destroyed }
func (s *Scene) Overlays() Overlay { return s.opts.Overlays }
func (s *Scene) Options() Options  { return s.opts }

// Particles returns the live tracer particles.
func (s *Scene) Particles() []*fluid.Particle { return s.particles }

// DeltaT returns the simulation step as a duration.
func (s *Scene) DeltaT() time.Duration { return duration(s.fluid.Params.DeltaT) }

// Toggle flips the given overlays.
func (s *Scene) Toggle(o Overlay) {
	s.opts.Overlays ^= o
	s.dirty = true
}

// SetOverlays replaces the active overlay set.
func (s *Scene) SetOverlays(o Overlay) {
	s.opts.Overlays = o
	s.dirty = true
}

// Reconfigure reallocates the fluid at a new resolution and changes the
// render subdivisions. Nothing changes when either value is rejected.
func (s *Scene) Reconfigure(resolution, subdivisions int) error {
	if subdivisions < 1 {
		return fmt.Errorf("%w: subdivisions %d", ErrInvalidOptions, subdivisions)
	}
	p := s.fluid.Params
	p.Resolution = resolution
	if err := s.rebuild(p); err != nil {
		return err
	}
	s.opts.Subdivisions = subdivisions
	s.logger.Info("scene reconfigured", "resolution", resolution, "subdivisions", subdivisions)
	return nil
}

// Resize reallocates the fluid after the surface changed size.
func (s *Scene) Resize() error {
	return s.rebuild(s.fluid.Params)
}

// Tick runs one iteration of the animation loop at host time now. Ticks
// arriving sooner than DeltaT after the last accepted one are deferred.
// A paused scene only renders when something changed since the last frame.
func (s *Scene) Tick(now time.Duration) (TickResult, error) {
	dt := s.DeltaT()
	if s.ticked {
		if run, wait := Pace(now-s.lastTick, dt); !run {
			return TickResult{Wait: wait}, nil
		}
	}
	s.ticked = true
	s.lastTick = now

	res := TickResult{Wait: dt}
	if s.playing {
		if err := s.step(); err != nil {
			return res, err
		}
		res.Stepped = true
	}
	if res.Stepped || s.dirty {
		s.Render()
		res.Rendered = true
	}
	return res, nil
}

func (s *Scene) step() error {
	if err := s.fluid.Simulate(); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	s.particles = s.fluid.AdvectParticles(s.particles, s.opts.ParticleLifetime)
	return nil
}

// NextFrame advances exactly one step and renders, whether playing or not.
func (s *Scene) NextFrame() error {
	if err := s.step(); err != nil {
		return err
	}
	s.Render()
	return nil
}

func (s *Scene) Play() {
	if s.destroyed {
		return
	}
	s.playing = true
}

func (s *Scene) Stop() { s.playing = false }

func (s *Scene) TogglePlaying() {
	if s.playing {
		s.Stop()
		return
	}
	s.Play()
}

// RunProjection runs the projection stage alone and redraws.
func (s *Scene) RunProjection() error {
	if err := s.fluid.Projection(); err != nil {
		return err
	}
	s.Render()
	return nil
}

// RunAdvection runs the advection stage alone and redraws.
func (s *Scene) RunAdvection() error {
	if err := s.fluid.Advection(); err != nil {
		return err
	}
	s.Render()
	return nil
}

// RunSolveDivergenceAll runs a single relaxation sweep and redraws.
func (s *Scene) RunSolveDivergenceAll() error {
	if err := s.fluid.SolveDivergenceAll(); err != nil {
		return err
	}
	s.Render()
	return nil
}

// GenerateRandomVelocities fills the velocity field with noise bounded by the cell size.
func (s *Scene) GenerateRandomVelocities() error {
	if err := s.fluid.RandomizeVelocities(s.rng); err != nil {
		return err
	}
	s.Render()
	return nil
}

// Clear zeroes velocity and smoke and drops all particles.
func (s *Scene) Clear() {
	s.fluid.Clear()
	s.particles = s.particles[:0]
	s.Render()
}

// Destroy stops the scene and detaches pointer input: later pointer events
// are ignored and Play has no effect.
func (s *Scene) Destroy() {
	s.destroyed = true
	s.dragging = false
	s.playing = false
}
