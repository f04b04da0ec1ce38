package grid

import (
	"errors"
	"math"
	"testing"
)

func TestGetOutOfBounds(t *testing.T) {
	g := New(3, 2)
	if err := g.Fill(7); err != nil {
		t.Fatal(err)
	}
	outside := [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 2}, {3, 2}, {-5, 10}}
	for _, p := range outside {
		if v := g.Get(p[0], p[1]); v != 0 {
			t.Errorf("Get(%d,%d) = %v, want 0", p[0], p[1], v)
		}
	}
	if v := g.Get(2, 1); v != 7 {
		t.Errorf("Get(2,1) = %v, want 7", v)
	}
}

func TestSetRejectsNonFinite(t *testing.T) {
	g := New(2, 2)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := g.Set(1, 1, v)
		if !errors.Is(err, ErrNonFinite) {
			t.Errorf("Set(%v) error = %v, want ErrNonFinite", v, err)
		}
		if g.Get(1, 1) != 0 {
			t.Errorf("Set(%v) stored a value", v)
		}
	}
	if err := g.Update(0, 0, func(float64) float64 { return math.NaN() }); !errors.Is(err, ErrNonFinite) {
		t.Errorf("Update returned %v, want ErrNonFinite", err)
	}
	if err := g.Fill(math.Inf(1)); !errors.Is(err, ErrNonFinite) {
		t.Errorf("Fill returned %v, want ErrNonFinite", err)
	}
}

func TestSetOutOfBoundsIsNoop(t *testing.T) {
	g := New(2, 2)
	if err := g.Set(5, 5, 1); err != nil {
		t.Fatalf("out of range Set returned %v", err)
	}
	if err := g.Set(-1, 0, math.NaN()); err != nil {
		t.Fatalf("out of range Set validated value: %v", err)
	}
	if g.Sum() != 0 {
		t.Errorf("out of range write leaked into the grid")
	}
}

func TestUpdate(t *testing.T) {
	g := New(2, 2)
	_ = g.Set(1, 0, 2)
	if err := g.Update(1, 0, func(old float64) float64 { return old * 3 }); err != nil {
		t.Fatal(err)
	}
	if v := g.Get(1, 0); v != 6 {
		t.Errorf("Update result = %v, want 6", v)
	}
}

func TestForEachStopsEarly(t *testing.T) {
	g := New(4, 4)
	visited := 0
	g.ForEach(func(_ float64, x, y int) bool {
		visited++
		return !(x == 1 && y == 1)
	})
	if visited != 6 {
		t.Errorf("visited %d samples, want 6", visited)
	}
}

func TestForEachOrder(t *testing.T) {
	g := New(2, 2)
	_ = g.Set(0, 0, 1)
	_ = g.Set(1, 0, 2)
	_ = g.Set(0, 1, 3)
	_ = g.Set(1, 1, 4)
	var got []float64
	g.ForEach(func(v float64, _, _ int) bool {
		got = append(got, v)
		return true
	})
	for i, want := range []float64{1, 2, 3, 4} {
		if got[i] != want {
			t.Fatalf("ForEach order = %v", got)
		}
	}
}

func TestCopyFrom(t *testing.T) {
	src := New(3, 3)
	_ = src.Set(2, 1, 5)
	dst := New(3, 3)
	if err := dst.CopyFrom(src); err != nil {
		t.Fatal(err)
	}
	if dst.Get(2, 1) != 5 {
		t.Errorf("CopyFrom did not copy samples")
	}

	other := New(3, 4)
	_ = other.Set(0, 0, 9)
	if err := dst.CopyFrom(other); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("CopyFrom mismatched grid returned %v", err)
	}
	if dst.Get(0, 0) != 0 {
		t.Errorf("mismatched CopyFrom modified the destination")
	}
}
