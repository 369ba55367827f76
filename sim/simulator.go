package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/inference-sim/household-sim/sim/ode"
	"github.com/inference-sim/household-sim/sim/trace"
)

// Simulator integrates the household-state distribution of a population.
type Simulator struct {
	Population *Population
	Params     *Params
	Config     RunConfig
	// Metrics and Trace are optional.
	Metrics *Metrics
	Trace   *trace.SimulationTrace
	// Integrator defaults to Dormand–Prince 5(4).
	Integrator ode.Integrator
}

// NewSimulator creates a Simulator with the default integrator.
func NewSimulator(pop *Population, p *Params, cfg RunConfig) *Simulator {
	return &Simulator{
		Population: pop,
		Params:     p,
		Config:     cfg,
		Integrator: ode.DormandPrince{},
	}
}

// Run integrates from the initial condition over [0, Config.Horizon] and
// records every accepted step. If the integrator fails, the accepted steps so
// far are returned together with an error wrapping the integrator's.
func (s *Simulator) Run() (*Solution, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	h, err := InitialCondition(s.Population, s.Config.Prevalence)
	if err != nil {
		return nil, err
	}
	rhs := NewRHS(s.Population, NewTransmission(s.Params), s.Metrics)
	integrator := s.Integrator
	if integrator == nil {
		integrator = ode.DormandPrince{}
	}

	sol := &Solution{pop: s.Population}
	cfg := &ode.Config{
		InitialStepSize:   s.Config.FirstStep,
		MinStepSize:       s.Config.MinStep,
		RelativeTolerance: s.Config.RelTol,
		AbsoluteTolerance: s.Config.AbsTol,
		MaxStepCount:      s.Config.MaxSteps,
		Fcn:               rhs.Evaluate,
		OnAccept: func(t float64, y []float64) {
			sol.Times = append(sol.Times, t)
			sol.States = append(sol.States, append([]float64(nil), y...))
		},
		OnStep: func(t, step, errNorm float64, accepted bool) {
			s.Metrics.ObserveStep(accepted)
			if s.Trace != nil {
				s.Trace.RecordStep(trace.StepRecord{Time: t, StepSize: step, ErrorNorm: errNorm, Accepted: accepted})
			}
		},
	}

	logrus.Infof("Integrating %d states over [0, %g] with %s", s.Population.Size(), s.Config.Horizon, integrator.Info().Name)
	stats, err := integrator.Integrate(0, s.Config.Horizon, h, cfg)
	sol.Stats = stats
	if err != nil {
		return sol, fmt.Errorf("integration stopped at t=%g: %w", stats.CurrentTime, err)
	}
	logrus.Infof("Integration finished: %d accepted, %d rejected steps, %d evaluations",
		stats.StepCount, stats.RejectedCount, stats.EvaluationCount)
	return sol, nil
}

// Run integrates pop with the default integrator and no metrics or trace.
func Run(pop *Population, p *Params, cfg RunConfig) (*Solution, error) {
	return NewSimulator(pop, p, cfg).Run()
}

// IsIntegrationFailure reports whether err came from the integrator giving up
// rather than from invalid inputs.
func IsIntegrationFailure(err error) bool {
	return errors.Is(err, ode.ErrStepSizeTooSmall) ||
		errors.Is(err, ode.ErrMaxStepsExceeded) ||
		errors.Is(err, ode.ErrNonFinite)
}

// Solution is the trajectory of accepted steps, including t=0.
type Solution struct {
	Times  []float64
	States [][]float64 // States[i] is H at Times[i]
	Stats  ode.Statistics

	pop *Population
}

// Project returns the expected number of individuals per class in
// compartment c at every time: row i is Hᵀ·X at Times[i].
func (sol *Solution) Project(c Compartment) *mat.Dense {
	if len(sol.States) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(sol.States), sol.pop.numClasses, nil)
	occ := sol.pop.occupancy[c]
	for i, h := range sol.States {
		var row mat.VecDense
		row.MulVec(occ.T(), mat.NewVecDense(len(h), h))
		out.SetRow(i, row.RawVector().Data)
	}
	return out
}

// Totals returns the expected number of individuals in compartment c summed
// over classes, at every time.
func (sol *Solution) Totals(c Compartment) []float64 {
	out := make([]float64, len(sol.Times))
	if len(sol.Times) == 0 {
		return out
	}
	proj := sol.Project(c)
	for i := range out {
		out[i] = mat.Sum(proj.RowView(i))
	}
	return out
}

// Coarsen sums the class columns of series into buckets: bucket b covers
// classes [bounds[b], bounds[b+1]) and the last bucket runs to the final class.
// Empty bounds leave series unchanged.
func Coarsen(series *mat.Dense, bounds []int) (*mat.Dense, error) {
	if len(bounds) == 0 || series.IsEmpty() {
		return series, nil
	}
	rows, k := series.Dims()
	edges := append(append([]int(nil), bounds...), k)
	for b := 0; b+1 < len(edges); b++ {
		if edges[b] < 0 || edges[b] >= edges[b+1] || edges[b+1] > k {
			return nil, fmt.Errorf("coarse bounds %v invalid for %d classes", bounds, k)
		}
	}
	out := mat.NewDense(rows, len(bounds), nil)
	for b := range bounds {
		cols := series.Slice(0, rows, edges[b], edges[b+1])
		for i := 0; i < rows; i++ {
			out.Set(i, b, mat.Sum(cols.(*mat.Dense).RowView(i)))
		}
	}
	return out, nil
}
