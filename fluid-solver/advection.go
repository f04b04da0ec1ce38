package fluid

import (
	"fmt"
	"math"
)

// Advection transports u, v and smoke along the current velocity field.
// All three next buffers are filled from the live fields before any of
// them is swapped in, so a failed step leaves the live fields untouched.
func (fs *Fluid) Advection() error {
	if err := fs.advectU(); err != nil {
		return err
	}
	if err := fs.advectV(); err != nil {
		return err
	}
	if err := fs.advectSmoke(); err != nil {
		return err
	}
	fs.swapU()
	fs.swapV()
	fs.swapS()
	return nil
}

// AdvectU advects the horizontal velocity alone.
func (fs *Fluid) AdvectU() error {
	if err := fs.advectU(); err != nil {
		return err
	}
	fs.swapU()
	return nil
}

// AdvectV advects the vertical velocity alone.
func (fs *Fluid) AdvectV() error {
	if err := fs.advectV(); err != nil {
		return err
	}
	fs.swapV()
	return nil
}

// AdvectSmoke advects the smoke density alone.
func (fs *Fluid) AdvectSmoke() error {
	if err := fs.advectSmoke(); err != nil {
		return err
	}
	fs.swapS()
	return nil
}

func (fs *Fluid) swapU() { fs.u, fs.nextU = fs.nextU, fs.u }
func (fs *Fluid) swapV() { fs.v, fs.nextV = fs.nextV, fs.v }
func (fs *Fluid) swapS() { fs.s, fs.nextS = fs.nextS, fs.s }

func (fs *Fluid) advectU() error {
	dt := fs.Params.DeltaT
	for k := 0; k < fs.u.Height(); k++ {
		for i := 0; i < fs.u.Width(); i++ {
			val := fs.u.Get(i, k)
			// u(i,k) separates cells i-1 and i.
			if fs.IsFluid(i, k) && fs.IsFluid(i-1, k) {
				x, y := fs.GridToWorld(float64(i), float64(k), FieldU)
				v := fs.Interpolate(x, y, FieldV)
				val = fs.Interpolate(x-val*dt, y-v*dt, FieldU)
			}
			if err := fs.nextU.Set(i, k, val); err != nil {
				return fmt.Errorf("advect u: %w", err)
			}
		}
	}
	return nil
}

func (fs *Fluid) advectV() error {
	dt := fs.Params.DeltaT
	for k := 0; k < fs.v.Height(); k++ {
		for i := 0; i < fs.v.Width(); i++ {
			val := fs.v.Get(i, k)
			// v(i,k) separates cells k-1 and k.
			if fs.IsFluid(i, k) && fs.IsFluid(i, k-1) {
				x, y := fs.GridToWorld(float64(i), float64(k), FieldV)
				u := fs.Interpolate(x, y, FieldU)
				val = fs.Interpolate(x-u*dt, y-val*dt, FieldV)
			}
			if err := fs.nextV.Set(i, k, val); err != nil {
				return fmt.Errorf("advect v: %w", err)
			}
		}
	}
	return nil
}

func (fs *Fluid) advectSmoke() error {
	dt := fs.Params.DeltaT
	for k := 0; k < fs.height; k++ {
		for i := 0; i < fs.width; i++ {
			val := fs.s.Get(i, k)
			if fs.IsFluid(i, k) {
				x, y := fs.GridToWorld(float64(i), float64(k), FieldS)
				u := fs.Interpolate(x, y, FieldU)
				v := fs.Interpolate(x, y, FieldV)
				val = fs.Interpolate(x-u*dt, y-v*dt, FieldS) - fs.Params.SmokeDecay
				val = math.Max(val, 0)
			}
			if err := fs.nextS.Set(i, k, val); err != nil {
				return fmt.Errorf("advect smoke: %w", err)
			}
		}
	}
	return nil
}
