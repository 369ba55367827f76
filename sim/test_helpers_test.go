package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// testParams returns a two-class parameter set with distinct rates so that
// transitions can be told apart by value.
func testParams() *Params {
	return &Params{
		Susceptibility:             []float64{1, 0.8},
		DetectionProbability:       []float64{0.5, 0.3},
		ProdromalInfectiousness:    0.5,
		AsymptomaticInfectiousness: []float64{0.5, 0.5},
		IncubationRate:             0.2,
		SymptomOnsetRate:           0.5,
		RecoveryRate:               0.25,
		HomeContacts:               [][]float64{{1, 0.5}, {0.5, 1}},
		ExternalContacts:           [][]float64{{0.3, 0.1}, {0.1, 0.3}},
	}
}

// singleClassParams returns a one-class parameter set.
func singleClassParams() *Params {
	return &Params{
		Susceptibility:             []float64{1},
		DetectionProbability:       []float64{0.4},
		ProdromalInfectiousness:    0.5,
		AsymptomaticInfectiousness: []float64{0.5},
		IncubationRate:             0.2,
		SymptomOnsetRate:           0.5,
		RecoveryRate:               0.25,
		HomeContacts:               [][]float64{{1}},
		ExternalContacts:           [][]float64{{0.3}},
	}
}

// mustPopulation builds a population or fails the test.
func mustPopulation(t *testing.T, compositions [][]int, weights []float64, p *Params) *Population {
	t.Helper()
	pop, err := NewPopulation(context.Background(), compositions, weights, p, BuildOptions{})
	require.NoError(t, err)
	return pop
}

// rowOf returns the row of st whose per-present-class counts equal want.
func rowOf(t *testing.T, h *Household, want ...[NumCompartments]int) int {
	t.Helper()
	var state []int
	for _, w := range want {
		state = append(state, w[:]...)
	}
	r, ok := h.Index.Lookup(state)
	require.True(t, ok, "state %v not in table", state)
	return r
}
