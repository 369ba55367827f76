package trace

import (
	"encoding/json"
	"fmt"
	"io"
)

// TraceLevel controls the verbosity of step tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSteps captures every attempted step, accepted or rejected.
	TraceLevelSteps TraceLevel = "steps"
	// TraceLevelRejected captures rejected steps only.
	TraceLevelRejected TraceLevel = "rejected"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelSteps:    true,
	TraceLevelRejected: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects step records during one integration.
type SimulationTrace struct {
	Config TraceConfig
	Steps  []StepRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Steps:  make([]StepRecord, 0),
	}
}

// RecordStep appends a step record if the level keeps it.
func (st *SimulationTrace) RecordStep(record StepRecord) {
	switch st.Config.Level {
	case TraceLevelSteps:
	case TraceLevelRejected:
		if record.Accepted {
			return
		}
	default:
		return
	}
	st.Steps = append(st.Steps, record)
}

// WriteJSON writes the recorded steps as one JSON document.
func (st *SimulationTrace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Level   TraceLevel    `json:"level"`
		Steps   []StepRecord  `json:"steps"`
		Summary *TraceSummary `json:"summary"`
	}{st.Config.Level, st.Steps, Summarize(st)}); err != nil {
		return fmt.Errorf("encoding step trace: %w", err)
	}
	return nil
}
