package trace

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSimulationTrace_RecordStep_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for steps
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelSteps})

	// WHEN a step record is recorded
	st.RecordStep(StepRecord{Time: 0.5, StepSize: 0.01, ErrorNorm: 0.3, Accepted: true})

	// THEN the trace contains one step record with correct data
	if len(st.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(st.Steps))
	}
	if st.Steps[0].Time != 0.5 || st.Steps[0].StepSize != 0.01 {
		t.Errorf("unexpected record %+v", st.Steps[0])
	}
	if !st.Steps[0].Accepted {
		t.Error("expected accepted=true")
	}
}

func TestSimulationTrace_LevelFiltersRecords(t *testing.T) {
	tests := []struct {
		level TraceLevel
		want  int
	}{
		{TraceLevelNone, 0},
		{"", 0},
		{TraceLevelSteps, 3},
		{TraceLevelRejected, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			// GIVEN a trace at the level
			st := NewSimulationTrace(TraceConfig{Level: tt.level})

			// WHEN two accepted and one rejected step are recorded
			st.RecordStep(StepRecord{Time: 0, StepSize: 0.1, Accepted: true})
			st.RecordStep(StepRecord{Time: 0.1, StepSize: 0.5, ErrorNorm: 3, Accepted: false})
			st.RecordStep(StepRecord{Time: 0.1, StepSize: 0.2, Accepted: true})

			// THEN only the records the level keeps are stored
			if len(st.Steps) != tt.want {
				t.Errorf("got %d records, want %d", len(st.Steps), tt.want)
			}
		})
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelSteps})

	// WHEN multiple records are added
	st.RecordStep(StepRecord{Time: 0, StepSize: 0.1, Accepted: true})
	st.RecordStep(StepRecord{Time: 0.1, StepSize: 0.2, Accepted: true})

	// THEN order is preserved
	if st.Steps[0].Time != 0 || st.Steps[1].Time != 0.1 {
		t.Error("step order not preserved")
	}
}

func TestSimulationTrace_WriteJSON_IncludesSummary(t *testing.T) {
	// GIVEN a trace with one rejected and one accepted step
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelSteps})
	st.RecordStep(StepRecord{Time: 0, StepSize: 1, ErrorNorm: 4, Accepted: false})
	st.RecordStep(StepRecord{Time: 0, StepSize: 0.4, ErrorNorm: 0.5, Accepted: true})

	// WHEN written as JSON
	var buf bytes.Buffer
	if err := st.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	// THEN the document decodes with steps and summary
	var doc struct {
		Level   string         `json:"level"`
		Steps   []StepRecord   `json:"steps"`
		Summary map[string]any `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Level != "steps" || len(doc.Steps) != 2 {
		t.Errorf("got level %q with %d steps", doc.Level, len(doc.Steps))
	}
	if doc.Summary["rejected"] != 1.0 {
		t.Errorf("summary rejected = %v, want 1", doc.Summary["rejected"])
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"steps", true},
		{"rejected", true},
		{"", true}, // empty defaults to none
		{"decisions", false},
		{"NONE", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
