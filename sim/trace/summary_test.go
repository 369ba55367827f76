package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelSteps})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalSteps != 0 {
		t.Errorf("expected 0 total steps, got %d", summary.TotalSteps)
	}
	if summary.AcceptedCount != 0 || summary.RejectedCount != 0 {
		t.Error("expected 0 accepted and rejected")
	}
	if summary.MinStepSize != 0 || summary.MaxStepSize != 0 || summary.MeanStepSize != 0 {
		t.Error("expected 0 step sizes")
	}
}

func TestSummarize_PopulatedTrace_CorrectStatistics(t *testing.T) {
	// GIVEN accepted steps of 0.1, 0.3 and 0.2 and one rejected step of 1.0
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelSteps})
	st.RecordStep(StepRecord{Time: 0, StepSize: 0.1, ErrorNorm: 0.2, Accepted: true})
	st.RecordStep(StepRecord{Time: 0.1, StepSize: 1.0, ErrorNorm: 7, Accepted: false})
	st.RecordStep(StepRecord{Time: 0.1, StepSize: 0.3, ErrorNorm: 0.9, Accepted: true})
	st.RecordStep(StepRecord{Time: 0.4, StepSize: 0.2, ErrorNorm: 0.4, Accepted: true})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts and step statistics ignore the rejected step
	if summary.TotalSteps != 4 {
		t.Errorf("expected 4 total steps, got %d", summary.TotalSteps)
	}
	if summary.AcceptedCount != 3 || summary.RejectedCount != 1 {
		t.Errorf("expected 3 accepted and 1 rejected, got %d and %d", summary.AcceptedCount, summary.RejectedCount)
	}
	if summary.MinStepSize != 0.1 || summary.MaxStepSize != 0.3 {
		t.Errorf("expected step range [0.1, 0.3], got [%v, %v]", summary.MinStepSize, summary.MaxStepSize)
	}
	if diff := summary.MeanStepSize - 0.2; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected mean step 0.2, got %v", summary.MeanStepSize)
	}
	if summary.MaxErrorNorm != 0.9 {
		t.Errorf("expected max error norm 0.9, got %v", summary.MaxErrorNorm)
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalSteps != 0 {
		t.Errorf("expected 0 total steps, got %d", summary.TotalSteps)
	}
}
