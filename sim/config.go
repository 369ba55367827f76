package sim

import (
	"fmt"
	"math"
)

// RunConfig groups the integration settings of one simulation run.
type RunConfig struct {
	Horizon    float64 // end time of the run, starting at t=0
	FirstStep  float64 // initial step size; 0 lets the integrator estimate one
	RelTol     float64
	AbsTol     float64
	MaxSteps   int     // attempted step budget; 0 = unlimited
	MinStep    float64 // smallest admissible step; 0 = integrator default
	Prevalence float64 // initial infectious mass per seed state, relative to its composition weight
}

// DefaultRunConfig returns the settings used when no flags override them.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Horizon:    100,
		FirstStep:  0.001,
		RelTol:     1e-3,
		AbsTol:     1e-6,
		Prevalence: 1e-5,
	}
}

// NewRunConfig creates a RunConfig with all fields explicitly set.
func NewRunConfig(horizon, firstStep, relTol, absTol float64, maxSteps int, minStep, prevalence float64) RunConfig {
	return RunConfig{
		Horizon:    horizon,
		FirstStep:  firstStep,
		RelTol:     relTol,
		AbsTol:     absTol,
		MaxSteps:   maxSteps,
		MinStep:    minStep,
		Prevalence: prevalence,
	}
}

// Validate reports the first inconsistent setting.
func (c RunConfig) Validate() error {
	finite := func(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
	switch {
	case !finite(c.Horizon) || c.Horizon <= 0:
		return fmt.Errorf("horizon must be a positive finite number, got %f", c.Horizon)
	case !finite(c.FirstStep) || c.FirstStep < 0:
		return fmt.Errorf("first step must be non-negative, got %f", c.FirstStep)
	case !finite(c.RelTol) || c.RelTol <= 0:
		return fmt.Errorf("relative tolerance must be positive, got %g", c.RelTol)
	case !finite(c.AbsTol) || c.AbsTol < 0:
		return fmt.Errorf("absolute tolerance must be non-negative, got %g", c.AbsTol)
	case c.MaxSteps < 0:
		return fmt.Errorf("max steps must be non-negative, got %d", c.MaxSteps)
	case !finite(c.MinStep) || c.MinStep < 0:
		return fmt.Errorf("min step must be non-negative, got %g", c.MinStep)
	case !finite(c.Prevalence) || c.Prevalence < 0:
		return fmt.Errorf("prevalence must be non-negative, got %g", c.Prevalence)
	}
	return nil
}
