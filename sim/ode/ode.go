// Package ode integrates systems of ordinary differential equations
// y'(t) = f(t, y) with adaptive explicit Runge-Kutta methods.
package ode

import "errors"

// Function evaluates the right hand side f(t, y) into dy.
// Implementations must not retain y or dy.
type Function func(t float64, y, dy []float64)

// Observer is called with every accepted (t, y) pair, starting with the
// initial condition. y is reused by the integrator and must be copied if kept.
type Observer func(t float64, y []float64)

// StepObserver is notified of every attempted step, accepted or rejected.
type StepObserver func(t, h, errNorm float64, accepted bool)

var (
	// ErrStepSizeTooSmall is returned when the step size controller would need
	// a step below MinStepSize to satisfy the tolerances.
	ErrStepSizeTooSmall = errors.New("ode: required step size below minimum")
	// ErrMaxStepsExceeded is returned when MaxStepCount steps were attempted
	// without reaching the end time.
	ErrMaxStepsExceeded = errors.New("ode: maximum step count exceeded")
	// ErrNonFinite is returned when the solution or derivative becomes NaN or Inf.
	ErrNonFinite = errors.New("ode: non-finite value in solution")
	// ErrBadConfig is returned for inconsistent integration settings.
	ErrBadConfig = errors.New("ode: invalid configuration")
)

// Config controls a single call to Integrate.
type Config struct {
	// InitialStepSize, if > 0, is the size of the first attempted step.
	// Otherwise a step is estimated from the derivative at the start.
	InitialStepSize float64

	// MinStepSize, if > 0, is the smallest step the controller may take before
	// giving up with ErrStepSizeTooSmall. Otherwise a few ulps of t are used.
	MinStepSize float64

	// MaxStepSize, if > 0, caps every step.
	MaxStepSize float64

	AbsoluteTolerance float64
	RelativeTolerance float64

	// MaxStepCount, if > 0, bounds the number of attempted steps.
	MaxStepCount int

	Fcn Function

	// OnAccept and OnStep are optional.
	OnAccept Observer
	OnStep   StepObserver
}

// Statistics describes the work done by an integration.
type Statistics struct {
	StepCount       int // accepted steps
	RejectedCount   int
	EvaluationCount int // right hand side evaluations

	LastStepSize float64
	NextStepSize float64
	// CurrentTime is the t up to which the integration succeeded.
	CurrentTime float64
}

// IntegratorInfo names a method and its shape.
type IntegratorInfo struct {
	Name          string
	Stages, Order int
}

// Integrator advances y from t to tEnd in place.
type Integrator interface {
	Info() IntegratorInfo
	Integrate(t, tEnd float64, y []float64, cfg *Config) (Statistics, error)
}
