package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/inference-sim/household-sim/sim/internal/testutil"
)

func TestNewPopulation_Layout(t *testing.T) {
	// GIVEN three composition rows, two of them identical
	comps := [][]int{{1, 0}, {0, 1}, {1, 0}}
	pop := mustPopulation(t, comps, []float64{0.5, 0.3, 0.2}, testParams())

	// THEN each row gets its own block of six states
	assert.Equal(t, 18, pop.Size())
	assert.Equal(t, []Block{{0, 0, 6}, {1, 6, 6}, {2, 12, 6}}, pop.Blocks)
	// AND identical compositions share one build
	assert.Same(t, pop.Households[0], pop.Households[2])

	// AND each block contributes one S → E move in global indices
	require.Len(t, pop.Infections, 3)
	assert.Equal(t, InfectionEvent{From: 11, To: 10, Class: 1}, pop.Infections[1])
	assert.Equal(t, InfectionEvent{From: 17, To: 16, Class: 0}, pop.Infections[2])
}

func TestNewPopulation_GeneratorIsBlockDiagonal(t *testing.T) {
	// GIVEN two compositions
	pop := mustPopulation(t, [][]int{{2, 1}, {1, 1}}, []float64{0.5, 0.5}, testParams())

	// THEN no generator entry crosses a block boundary
	pop.Generator.DoNonZero(func(i, j int, v float64) {
		bi, _ := pop.BlockOf(i)
		bj, _ := pop.BlockOf(j)
		assert.Equal(t, bi, bj, "entry (%d,%d)=%v crosses blocks", i, j, v)
	})
	testutil.AssertRowSums(t, "global generator", pop.Generator, 0, 1e-12)
}

func TestNewPopulation_OccupancyMatchesTables(t *testing.T) {
	pop := mustPopulation(t, [][]int{{2, 0}, {1, 1}}, []float64{0.4, 0.6}, testParams())

	// THEN compartment occupancies add up to the composition in every state
	var sum mat.Dense
	sum.Add(pop.Occupancy(Susceptible), pop.Occupancy(Exposed))
	for _, c := range []Compartment{Prodromal, Detected, Undetected, Recovered} {
		sum.Add(&sum, pop.Occupancy(c))
	}
	assert.True(t, mat.Equal(&sum, pop.Members()))

	// AND members reflect the composition of the block
	assert.Equal(t, []float64{2, 0}, mat.Row(nil, 0, pop.Members()))
	assert.Equal(t, []float64{1, 1}, mat.Row(nil, pop.Size()-1, pop.Members()))
}

func TestNewPopulation_InvalidInput(t *testing.T) {
	p := testParams()
	tests := []struct {
		name    string
		comps   [][]int
		weights []float64
		target  error
	}{
		{"no compositions", nil, nil, ErrInvalidComposition},
		{"class count mismatch", [][]int{{1}}, []float64{1}, ErrInvalidComposition},
		{"empty household", [][]int{{0, 0}}, []float64{1}, ErrInvalidComposition},
		{"negative count", [][]int{{-1, 2}}, []float64{1}, ErrInvalidComposition},
		{"weights do not sum to one", [][]int{{1, 0}, {0, 1}}, []float64{0.5, 0.2}, nil},
		{"negative weight", [][]int{{1, 0}, {0, 1}}, []float64{1.5, -0.5}, nil},
		{"weight count mismatch", [][]int{{1, 0}}, []float64{0.5, 0.5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPopulation(context.Background(), tt.comps, tt.weights, p, BuildOptions{})
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestNewPopulation_InvalidParams(t *testing.T) {
	p := testParams()
	p.DetectionProbability[0] = 1.5
	_, err := NewPopulation(context.Background(), [][]int{{1, 0}}, []float64{1}, p, BuildOptions{})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestNewPopulation_ParallelBuildMatchesSequential(t *testing.T) {
	comps := [][]int{{2, 1}, {1, 2}, {3, 0}, {0, 2}}
	weights := []float64{0.25, 0.25, 0.25, 0.25}
	seq := mustPopulation(t, comps, weights, testParams())
	par, err := NewPopulation(context.Background(), comps, weights, testParams(), BuildOptions{Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, seq.Blocks, par.Blocks)
	assert.True(t, floats.Equal(seq.Generator.Values(), par.Generator.Values()))
}

type fakeCache struct {
	households []*Household
	loadErr    error
	saved      int
}

func (c *fakeCache) Load(context.Context, [][]int, *Params) ([]*Household, error) {
	return c.households, c.loadErr
}

func (c *fakeCache) Save(_ context.Context, _ [][]int, _ *Params, hs []*Household) error {
	c.saved++
	c.households = hs
	return nil
}

func TestNewPopulation_Cache(t *testing.T) {
	comps := [][]int{{1, 1}, {2, 0}}
	weights := []float64{0.5, 0.5}

	// GIVEN an empty cache
	cache := &fakeCache{loadErr: ErrCacheMiss}
	metrics := NewMetrics()

	// WHEN the population is built twice
	first, err := NewPopulation(context.Background(), comps, weights, testParams(), BuildOptions{Cache: cache, Metrics: metrics})
	require.NoError(t, err)
	cache.loadErr = nil
	second, err := NewPopulation(context.Background(), comps, weights, testParams(), BuildOptions{Cache: cache, Metrics: metrics})
	require.NoError(t, err)

	// THEN the first build is saved once and the second reuses it
	assert.Equal(t, 1, cache.saved)
	assert.Same(t, first.Households[0], second.Households[0])
}

func TestNewPopulation_BrokenCacheFallsBackToBuild(t *testing.T) {
	cache := &fakeCache{loadErr: errors.New("disk on fire")}
	pop, err := NewPopulation(context.Background(), [][]int{{1, 0}}, []float64{1}, testParams(), BuildOptions{Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, 6, pop.Size())
	assert.Equal(t, 1, cache.saved)
}

func TestPopulation_BlockOf(t *testing.T) {
	pop := mustPopulation(t, [][]int{{1, 0}, {2, 0}}, []float64{0.5, 0.5}, testParams())

	b, ok := pop.BlockOf(5)
	assert.True(t, ok)
	assert.Equal(t, 0, b.Composition)
	b, ok = pop.BlockOf(6)
	assert.True(t, ok)
	assert.Equal(t, 1, b.Composition)
	_, ok = pop.BlockOf(pop.Size())
	assert.False(t, ok)
	_, ok = pop.BlockOf(-1)
	assert.False(t, ok)
}
