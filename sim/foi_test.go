package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/inference-sim/household-sim/sim/internal/testutil"
)

// Single-person rows: R=0, U=1, D=2, P=3, E=4, S=5.
const (
	rowR = iota
	rowU
	rowD
	rowP
	rowE
	rowS
)

func TestForceOfInfection_SinglePerson(t *testing.T) {
	pop := mustPopulation(t, [][]int{{1}}, []float64{1}, singleClassParams())
	tr := NewTransmission(singleClassParams())

	tests := []struct {
		name     string
		infected int
		c        Compartment
		want     float64
	}{
		{"detected", rowD, Detected, 0.3},
		{"undetected scaled by τ", rowU, Undetected, 0.3 * 0.5},
		{"prodromal scaled by φ", rowP, Prodromal, 0.3 * 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN half the mass infectious and half susceptible
			h := make([]float64, pop.Size())
			h[tt.infected], h[rowS] = 0.5, 0.5

			// WHEN the force of infection is computed
			foi := pop.ForceOfInfection(h, tr)

			// THEN only the susceptible state feels it, at rate T·prevalence
			got := foi.byCompartment(tt.c)
			testutil.AssertFloat64Equal(t, "susceptible row", tt.want*0.5, got.At(rowS, 0), 1e-12)
			assert.Zero(t, got.At(tt.infected, 0))
			for _, other := range infectious {
				if other != tt.c {
					assert.Zero(t, foi.byCompartment(other).At(rowS, 0), "compartment %s", other)
				}
			}
		})
	}
}

func TestPrevalence_DividesByMembers(t *testing.T) {
	// GIVEN households of size 1 and 2, weighted equally
	p := singleClassParams()
	pop := mustPopulation(t, [][]int{{1}, {2}}, []float64{0.5, 0.5}, p)
	h := make([]float64, pop.Size())
	h[rowD] = 0.5
	couple := pop.Households[1]
	h[pop.Blocks[1].Offset+rowOf(t, couple, [NumCompartments]int{2, 0, 0, 0, 0, 0})] = 0.5

	// WHEN prevalence of detected is computed
	prev := pop.Prevalence(h, Detected)

	// THEN it is 0.5 detected individuals per 1.5 expected members
	testutil.AssertFloat64Equal(t, "prevalence", 0.5/1.5, prev.AtVec(0), 1e-12)
}

func TestPrevalence_AbsentClassIsZero(t *testing.T) {
	pop := mustPopulation(t, [][]int{{1, 0}}, []float64{1}, testParams())
	h := make([]float64, pop.Size())
	h[rowD] = 1

	prev := pop.Prevalence(h, Detected)
	assert.Equal(t, 1.0, prev.AtVec(0))
	assert.Zero(t, prev.AtVec(1))
}

func TestNewTransmission(t *testing.T) {
	tr := NewTransmission(testParams())

	// σ = (1, 0.8), K_ext = [[0.3,0.1],[0.1,0.3]], φ = 0.5, τ = 0.5
	testutil.AssertFloat64Equal(t, "T_D[1][0]", 0.8*0.1, tr.Detected.At(1, 0), 1e-12)
	testutil.AssertFloat64Equal(t, "T_P[0][0]", 0.5*0.3, tr.Prodromal.At(0, 0), 1e-12)
	testutil.AssertFloat64Equal(t, "T_U[1][1]", 0.8*0.3*0.5, tr.Undetected.At(1, 1), 1e-12)
}

func TestImportPattern_Build(t *testing.T) {
	// GIVEN half the population detected
	pop := mustPopulation(t, [][]int{{1}}, []float64{1}, singleClassParams())
	ip := NewImportPattern(pop)
	h := make([]float64, pop.Size())
	h[rowD], h[rowS] = 0.5, 0.5

	// WHEN the import matrices are built
	m := ip.Build(pop.ForceOfInfection(h, NewTransmission(singleClassParams())))

	// THEN the detected import moves S to E at the force of infection
	testutil.AssertFloat64Equal(t, "S→E", 0.15, m.Detected.At(rowS, rowE), 1e-12)
	testutil.AssertFloat64Equal(t, "diagonal", -0.15, m.Detected.At(rowS, rowS), 1e-12)
	assert.Zero(t, m.Prodromal.At(rowS, rowE))
	for _, q := range m.All() {
		testutil.AssertRowSums(t, "import", q, 0, 1e-12)
	}
}

func TestImportPattern_ReusesPattern(t *testing.T) {
	pop := mustPopulation(t, [][]int{{2, 1}, {1, 1}}, []float64{0.5, 0.5}, testParams())
	ip := NewImportPattern(pop)
	tr := NewTransmission(testParams())

	h1, err := InitialCondition(pop, 0.01)
	require.NoError(t, err)
	h2, err := InitialCondition(pop, 0.05)
	require.NoError(t, err)

	// WHEN built twice from different distributions
	a := ip.Build(pop.ForceOfInfection(h1, tr))
	b := ip.Build(pop.ForceOfInfection(h2, tr))

	// THEN the values differ but the first result is untouched by the second build
	assert.Equal(t, a.Detected.NNZ(), b.Detected.NNZ())
	assert.False(t, floats.Equal(a.Detected.Values(), b.Detected.Values()))
	again := ip.Build(pop.ForceOfInfection(h1, tr))
	assert.True(t, floats.Equal(a.Detected.Values(), again.Detected.Values()))
}

func TestRHS_Evaluate_SinglePerson(t *testing.T) {
	// GIVEN half the population susceptible and half detected
	pop := mustPopulation(t, [][]int{{1}}, []float64{1}, singleClassParams())
	rhs := NewRHS(pop, NewTransmission(singleClassParams()), nil)
	h := make([]float64, pop.Size())
	h[rowD], h[rowS] = 0.5, 0.5

	// WHEN the derivative is evaluated
	dh := make([]float64, pop.Size())
	rhs.Evaluate(0, h, dh)

	// THEN susceptibles are infected at 0.5·0.3·0.5 and detected recover at 0.5·γ
	want := []float64{0.125, 0, -0.125, 0, 0.075, -0.075}
	testutil.AssertSliceNear(t, "dh", want, dh, 1e-12)
}

func TestRHS_Evaluate_ConservesMass(t *testing.T) {
	// GIVEN an arbitrary positive distribution
	pop := mustPopulation(t, [][]int{{2, 1}, {1, 2}, {0, 3}}, []float64{0.3, 0.3, 0.4}, testParams())
	metrics := NewMetrics()
	rhs := NewRHS(pop, NewTransmission(testParams()), metrics)
	h := make([]float64, pop.Size())
	for i := range h {
		h[i] = float64(i%7+1) / float64(pop.Size())
	}

	// WHEN evaluated repeatedly at out-of-order times
	dh := make([]float64, pop.Size())
	for _, tm := range []float64{3, 1, 2} {
		rhs.Evaluate(tm, h, dh)
		// THEN the derivative has zero total
		assert.InDelta(t, 0, floats.Sum(dh), 1e-12)
	}
	first := append([]float64(nil), dh...)
	rhs.Evaluate(0, h, dh)
	// AND repeated evaluation is deterministic
	assert.Equal(t, first, dh)
}
