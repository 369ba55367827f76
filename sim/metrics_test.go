package sim

import (
	"bytes"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRHS()
		m.ObserveStep(true)
		m.ObserveCacheLookup("hit")
		m.ObserveHouseholdBuild(time.Millisecond)
		m.SetStates(3)
		assert.NoError(t, m.WriteText(&bytes.Buffer{}))
	})
}

func TestMetrics_Counts(t *testing.T) {
	// GIVEN fresh metrics
	m := NewMetrics()

	// WHEN events are observed
	m.ObserveRHS()
	m.ObserveRHS()
	m.ObserveStep(true)
	m.ObserveStep(false)
	m.ObserveStep(true)
	m.ObserveCacheLookup("miss")
	m.SetStates(42)

	// THEN the counters reflect them
	assert.Equal(t, 2.0, promtest.ToFloat64(m.rhsEvaluations))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.steps.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.steps.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 42.0, promtest.ToFloat64(m.states))
}

func TestMetrics_WriteText(t *testing.T) {
	m := NewMetrics()
	m.ObserveRHS()

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	assert.Contains(t, buf.String(), "household_sim_rhs_evaluations_total 1")
	assert.Contains(t, buf.String(), "# TYPE household_sim_household_build_seconds histogram")
}
