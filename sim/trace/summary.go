package trace

import "math"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSteps    int     `json:"total_steps"`
	AcceptedCount int     `json:"accepted"`
	RejectedCount int     `json:"rejected"`
	MinStepSize   float64 `json:"min_step_size"` // over accepted steps
	MaxStepSize   float64 `json:"max_step_size"`
	MeanStepSize  float64 `json:"mean_step_size"`
	MaxErrorNorm  float64 `json:"max_error_norm"` // over accepted steps
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}

	summary.TotalSteps = len(st.Steps)
	total := 0.0
	for _, s := range st.Steps {
		if !s.Accepted {
			summary.RejectedCount++
			continue
		}
		if summary.AcceptedCount == 0 || s.StepSize < summary.MinStepSize {
			summary.MinStepSize = s.StepSize
		}
		summary.MaxStepSize = math.Max(summary.MaxStepSize, s.StepSize)
		summary.MaxErrorNorm = math.Max(summary.MaxErrorNorm, s.ErrorNorm)
		total += s.StepSize
		summary.AcceptedCount++
	}
	if summary.AcceptedCount > 0 {
		summary.MeanStepSize = total / float64(summary.AcceptedCount)
	}

	return summary
}
