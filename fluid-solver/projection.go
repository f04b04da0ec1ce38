package fluid

import "fmt"

// Projection runs Params.Iterations relaxation sweeps pushing the velocity
// field towards zero divergence. Faces touching solid cells are zeroed
// before every sweep.
func (fs *Fluid) Projection() error {
	fs.ZeroObstacleFaces()
	for n := 0; n < fs.Params.Iterations; n++ {
		if n > 0 {
			fs.ZeroObstacleFaces()
		}
		if err := fs.SolveDivergenceAll(); err != nil {
			return fmt.Errorf("projection sweep %d: %w", n, err)
		}
	}
	return nil
}

// ZeroObstacleFaces clears the four faces of every solid cell.
func (fs *Fluid) ZeroObstacleFaces() {
	for k := 0; k < fs.height; k++ {
		for i := 0; i < fs.width; i++ {
			if !fs.IsFluid(i, k) {
				fs.zeroFaces(i, k)
			}
		}
	}
}

// SolveDivergenceAll performs one in-place sweep over every fluid cell.
func (fs *Fluid) SolveDivergenceAll() error {
	for k := 0; k < fs.height; k++ {
		for i := 0; i < fs.width; i++ {
			if !fs.IsFluid(i, k) {
				continue
			}
			if err := fs.SolveDivergence(i, k); err != nil {
				return err
			}
		}
	}
	return nil
}

// SolveDivergence removes the overrelaxed divergence of cell (i, k) by
// spreading the correction over its faces in proportion to the neighbour
// weights. Solid cells and cells enclosed on all four sides are left alone.
func (fs *Fluid) SolveDivergence(i, k int) error {
	if !fs.IsFluid(i, k) {
		return nil
	}
	b0 := fs.b.Get(i-1, k)
	b1 := fs.b.Get(i+1, k)
	b2 := fs.b.Get(i, k-1)
	b3 := fs.b.Get(i, k+1)
	bSum := b0 + b1 + b2 + b3
	if bSum == 0 {
		return nil
	}

	d := fs.Divergence(i, k) * fs.Params.Overrelaxation / bSum

	if err := fs.u.Update(i, k, func(u float64) float64 { return u + d*b0 }); err != nil {
		return fmt.Errorf("solve divergence (%d,%d): %w", i, k, err)
	}
	if err := fs.u.Update(i+1, k, func(u float64) float64 { return u - d*b1 }); err != nil {
		return fmt.Errorf("solve divergence (%d,%d): %w", i, k, err)
	}
	if err := fs.v.Update(i, k, func(v float64) float64 { return v + d*b2 }); err != nil {
		return fmt.Errorf("solve divergence (%d,%d): %w", i, k, err)
	}
	if err := fs.v.Update(i, k+1, func(v float64) float64 { return v - d*b3 }); err != nil {
		return fmt.Errorf("solve divergence (%d,%d): %w", i, k, err)
	}
	return nil
}
