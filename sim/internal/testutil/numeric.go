// Package testutil provides shared numeric assertions for the household
// simulator tests in sim/ and its sub-packages.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertSliceNear compares two slices element-wise with absolute tolerance.
func AssertSliceNear(t *testing.T, name string, want, got []float64, absTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Errorf("%s: got %d entries, want %d", name, len(got), len(want))
		return
	}
	if !floats.EqualApprox(want, got, absTol) {
		for i := range want {
			if math.Abs(want[i]-got[i]) > absTol {
				t.Errorf("%s[%d]: got %v, want %v", name, i, got[i], want[i])
				return
			}
		}
	}
}

// AssertRowSums checks that every row of m sums to want within absTol.
func AssertRowSums(t *testing.T, name string, m mat.Matrix, want, absTol float64) {
	t.Helper()
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		if sum := floats.Sum(mat.Row(nil, i, m)); math.Abs(sum-want) > absTol {
			t.Errorf("%s: row %d sums to %v, want %v", name, i, sum, want)
			return
		}
	}
}
