// Package grid implements the rectangular sample buffer backing every
// physical quantity of the simulation.
package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNonFinite is returned when a NaN or infinite value is written into a grid.
	ErrNonFinite = errors.New("non-finite value")
	// ErrDimensionMismatch is returned by CopyFrom when the two grids differ in size.
	ErrDimensionMismatch = errors.New("grid dimensions do not match")
)

// Grid is a width×height array of float64 samples stored row by row.
type Grid struct {
	width, height int
	samples       []float64
}

// New allocates a zeroed grid.
func New(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid{
		width:   width,
		height:  height,
		samples: make([]float64, width*height),
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Has reports whether (x, y) addresses a stored sample.
func (g *Grid) Has(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid) idx(x, y int) int {
	return y*g.width + x
}

// Get returns the sample at (x, y), or 0 outside the grid.
func (g *Grid) Get(x, y int) float64 {
	if !g.Has(x, y) {
		return 0
	}
	return g.samples[g.idx(x, y)]
}

// Set stores value at (x, y). Writes outside the grid are ignored.
func (g *Grid) Set(x, y int, value float64) error {
	if !g.Has(x, y) {
		return nil
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("grid: %w at (%d,%d): %v", ErrNonFinite, x, y, value)
	}
	g.samples[g.idx(x, y)] = value
	return nil
}

// Update replaces the sample at (x, y) with fn applied to its current value.
func (g *Grid) Update(x, y int, fn func(old float64) float64) error {
	if !g.Has(x, y) {
		return nil
	}
	return g.Set(x, y, fn(g.samples[g.idx(x, y)]))
}

// Fill sets every sample to value.
func (g *Grid) Fill(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("grid: fill: %w: %v", ErrNonFinite, value)
	}
	for i := range g.samples {
		g.samples[i] = value
	}
	return nil
}

// ForEach visits the samples row by row. Returning false from fn stops the iteration.
func (g *Grid) ForEach(fn func(value float64, x, y int) bool) {
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if !fn(g.samples[g.idx(x, y)], x, y) {
				return
			}
		}
	}
}

// CopyFrom copies all samples of other into g.
func (g *Grid) CopyFrom(other *Grid) error {
	if other.width != g.width || other.height != g.height {
		return fmt.Errorf("grid: %w: %dx%d != %dx%d",
			ErrDimensionMismatch, g.width, g.height, other.width, other.height)
	}
	copy(g.samples, other.samples)
	return nil
}

// Samples exposes the backing slice for read-only bulk access.
func (g *Grid) Samples() []float64 {
	return g.samples
}

// Sum returns the sum of all samples.
func (g *Grid) Sum() float64 {
	var sum float64
	for _, v := range g.samples {
		sum += v
	}
	return sum
}
