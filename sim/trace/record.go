// Package trace records integrator step decisions for convergence analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// StepRecord captures one attempted integrator step.
type StepRecord struct {
	Time      float64 `json:"time"`       // start of the step
	StepSize  float64 `json:"step_size"`
	ErrorNorm float64 `json:"error_norm"` // scaled local error; accepted when ≤ 1
	Accepted  bool    `json:"accepted"`
}
