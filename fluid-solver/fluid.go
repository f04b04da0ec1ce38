package fluid

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/esimov/smoke-fluid/grid"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidParams is returned when a Fluid is configured with degenerate parameters.
var ErrInvalidParams = errors.New("invalid fluid parameters")

// MaxCells bounds the number of cells, border included, a Fluid may allocate.
const MaxCells = 1 << 20

// Params holds the tunable simulation parameters.
// Resolution and BlockOffset are only read when the Fluid is created.
type Params struct {
	Resolution     int     // cells along the shorter side of the surface
	Iterations     int     // relaxation sweeps per projection
	DeltaT         float64 // seconds per step
	Overrelaxation float64
	Gravity        float64 // acceleration applied to v inside the inlet
	ApplyForces    bool
	SmokeDecay     float64 // subtracted from every advected smoke sample
	BlockOffset    int     // border cells lying outside the visible surface
}

// DefaultParams returns the parameters used by the interactive scene.
func DefaultParams() Params {
	return Params{
		Resolution:     40,
		Iterations:     40,
		DeltaT:         1.0 / 30.0,
		Overrelaxation: 1.7,
		Gravity:        -9.81,
		BlockOffset:    1,
	}
}

// Validate checks p for values the solver cannot work with.
func (p Params) Validate() error {
	switch {
	case p.Resolution < 1:
		return fmt.Errorf("%w: resolution %d", ErrInvalidParams, p.Resolution)
	case p.Iterations < 0:
		return fmt.Errorf("%w: iterations %d", ErrInvalidParams, p.Iterations)
	case !finite(p.DeltaT) || p.DeltaT <= 0:
		return fmt.Errorf("%w: delta t %v", ErrInvalidParams, p.DeltaT)
	case !finite(p.Overrelaxation) || p.Overrelaxation <= 1 || p.Overrelaxation >= 2:
		return fmt.Errorf("%w: overrelaxation %v", ErrInvalidParams, p.Overrelaxation)
	case !finite(p.Gravity):
		return fmt.Errorf("%w: gravity %v", ErrInvalidParams, p.Gravity)
	case !finite(p.SmokeDecay) || p.SmokeDecay < 0:
		return fmt.Errorf("%w: smoke decay %v", ErrInvalidParams, p.SmokeDecay)
	case p.BlockOffset < 0:
		return fmt.Errorf("%w: block offset %d", ErrInvalidParams, p.BlockOffset)
	}
	return nil
}

// Region is a rectangle of cells, X0/Y0 inclusive and X1/Y1 exclusive.
type Region struct {
	X0, Y0, X1, Y1 int
	Smoke          float64 // density emitted into the region on every force step
}

// Fluid is a staggered (MAC) grid holding the velocity, obstacle and smoke fields.
type Fluid struct {
	Params Params
	// Inlet restricts force integration. A nil inlet covers the whole domain.
	Inlet *Region

	resolution    int
	blockOffset   int
	squareSize    float64
	width, height int

	u, v, b, s          *grid.Grid
	nextU, nextV, nextS *grid.Grid
}

// New creates a fluid covering a surface of the given size in world units.
func New(width, height float64, p Params) (*Fluid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !finite(width) || !finite(height) || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: surface %vx%v", ErrInvalidParams, width, height)
	}
	size := math.Min(width, height) / float64(p.Resolution)
	fx := math.Floor(width/size+1e-9) + float64(2*p.BlockOffset)
	fy := math.Floor(height/size+1e-9) + float64(2*p.BlockOffset)
	if fx*fy > MaxCells {
		return nil, fmt.Errorf("%w: %.0fx%.0f cells exceed %d", ErrInvalidParams, fx, fy, MaxCells)
	}
	nx, ny := int(fx), int(fy)

	fs := &Fluid{
		Params:      p,
		resolution:  p.Resolution,
		blockOffset: p.BlockOffset,
		squareSize:  size,
		width:       nx,
		height:      ny,

		u: grid.New(nx+1, ny),
		v: grid.New(nx, ny+1),
		b: grid.New(nx, ny),
		s: grid.New(nx, ny),

		nextU: grid.New(nx+1, ny),
		nextV: grid.New(nx, ny+1),
		nextS: grid.New(nx, ny),
	}
	fs.ClearObstacles()
	fs.FillEdgesWithObstacles()

	return fs, nil
}

func (fs *Fluid) U() *grid.Grid { return fs.u }
func (fs *Fluid) V() *grid.Grid { return fs.v }
func (fs *Fluid) B() *grid.Grid { return fs.b }
func (fs *Fluid) S() *grid.Grid { return fs.s }

// Width and Height return the number of cells, border included.
func (fs *Fluid) Width() int  { return fs.width }
func (fs *Fluid) Height() int { return fs.height }

func (fs *Fluid) SquareSize() float64 { return fs.squareSize }
func (fs *Fluid) Resolution() int     { return fs.resolution }
func (fs *Fluid) BlockOffset() int    { return fs.blockOffset }

// IsFluid reports whether cell (i, k) carries fluid. Cells outside the grid are solid.
func (fs *Fluid) IsFluid(i, k int) bool {
	return fs.b.Get(i, k) != 0
}

// TouchesSolid reports whether cell (i, k) is solid or has a solid axis neighbour.
func (fs *Fluid) TouchesSolid(i, k int) bool {
	return !fs.IsFluid(i, k) || !fs.IsFluid(i-1, k) || !fs.IsFluid(i+1, k) ||
		!fs.IsFluid(i, k-1) || !fs.IsFluid(i, k+1)
}

// ClearObstacles marks every cell as fluid, border included.
func (fs *Fluid) ClearObstacles() {
	_ = fs.b.Fill(1)
}

// FillEdgesWithObstacles closes the domain with a ring of solid cells.
func (fs *Fluid) FillEdgesWithObstacles() {
	for i := 0; i < fs.width; i++ {
		fs.SetObstacle(i, 0, true)
		fs.SetObstacle(i, fs.height-1, true)
	}
	for k := 0; k < fs.height; k++ {
		fs.SetObstacle(0, k, true)
		fs.SetObstacle(fs.width-1, k, true)
	}
}

// SetObstacle marks cell (i, k) as solid or fluid. A solid cell loses its
// smoke and the four faces around it are zeroed.
func (fs *Fluid) SetObstacle(i, k int, solid bool) {
	if !fs.b.Has(i, k) {
		return
	}
	if !solid {
		_ = fs.b.Set(i, k, 1)
		return
	}
	_ = fs.b.Set(i, k, 0)
	_ = fs.s.Set(i, k, 0)
	fs.zeroFaces(i, k)
}

func (fs *Fluid) zeroFaces(i, k int) {
	_ = fs.u.Set(i, k, 0)
	_ = fs.u.Set(i+1, k, 0)
	_ = fs.v.Set(i, k, 0)
	_ = fs.v.Set(i, k+1, 0)
}

// Clear zeroes velocity and smoke. Obstacles are kept.
func (fs *Fluid) Clear() {
	for _, g := range []*grid.Grid{fs.u, fs.v, fs.s, fs.nextU, fs.nextV, fs.nextS} {
		_ = g.Fill(0)
	}
}

// RandomizeVelocities fills every face not touching a solid cell with a
// uniform random velocity in [-SquareSize, SquareSize].
func (fs *Fluid) RandomizeVelocities(rng *rand.Rand) error {
	size := fs.squareSize
	for k := 0; k < fs.u.Height(); k++ {
		for i := 0; i < fs.u.Width(); i++ {
			if !fs.IsFluid(i, k) || !fs.IsFluid(i-1, k) {
				continue
			}
			if err := fs.u.Set(i, k, (2*rng.Float64()-1)*size); err != nil {
				return err
			}
		}
	}
	for k := 0; k < fs.v.Height(); k++ {
		for i := 0; i < fs.v.Width(); i++ {
			if !fs.IsFluid(i, k) || !fs.IsFluid(i, k-1) {
				continue
			}
			if err := fs.v.Set(i, k, (2*rng.Float64()-1)*size); err != nil {
				return err
			}
		}
	}
	return nil
}

// Simulate advances the fluid by one DeltaT.
func (fs *Fluid) Simulate() error {
	if err := fs.IntegrateForces(); err != nil {
		return err
	}
	if err := fs.Projection(); err != nil {
		return err
	}
	return fs.Advection()
}

// IntegrateForces adds Gravity*DeltaT to the v faces inside the inlet whose
// two neighbouring cells are fluid, and emits the inlet smoke.
func (fs *Fluid) IntegrateForces() error {
	if !fs.Params.ApplyForces {
		return nil
	}
	r := Region{X1: fs.width, Y1: fs.height}
	if fs.Inlet != nil {
		r = *fs.Inlet
	}
	dv := fs.Params.Gravity * fs.Params.DeltaT
	for k := r.Y0; k < r.Y1; k++ {
		for i := r.X0; i < r.X1; i++ {
			if !fs.IsFluid(i, k) {
				continue
			}
			if fs.IsFluid(i, k-1) {
				if err := fs.v.Update(i, k, func(v float64) float64 { return v + dv }); err != nil {
					return fmt.Errorf("force integration: %w", err)
				}
			}
			if r.Smoke > 0 {
				if err := fs.s.Set(i, k, r.Smoke); err != nil {
					return fmt.Errorf("force integration: %w", err)
				}
			}
		}
	}
	return nil
}

// Divergence returns the net outflow of cell (i, k).
func (fs *Fluid) Divergence(i, k int) float64 {
	return fs.u.Get(i+1, k) - fs.u.Get(i, k) + fs.v.Get(i, k+1) - fs.v.Get(i, k)
}

// MeanAbsDivergence averages |Divergence| over the fluid cells.
func (fs *Fluid) MeanAbsDivergence() float64 {
	vals := make([]float64, 0, fs.width*fs.height)
	for k := 0; k < fs.height; k++ {
		for i := 0; i < fs.width; i++ {
			if fs.IsFluid(i, k) {
				vals = append(vals, math.Abs(fs.Divergence(i, k)))
			}
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

// Info is a snapshot of the fluid configuration used for debug dumps.
type Info struct {
	Width, Height     int
	SquareSize        float64
	Resolution        int
	BlockOffset       int
	Params            Params
	TotalSmoke        float64
	MeanAbsDivergence float64
}

func (fs *Fluid) Info() Info {
	return Info{
		Width:             fs.width,
		Height:            fs.height,
		SquareSize:        fs.squareSize,
		Resolution:        fs.resolution,
		BlockOffset:       fs.blockOffset,
		Params:            fs.Params,
		TotalSmoke:        fs.s.Sum(),
		MeanAbsDivergence: fs.MeanAbsDivergence(),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
