// Tracks run-wide counters such as right hand side evaluations, integrator
// steps, household builds and cache lookups.

package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics aggregates statistics about one run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rhsEvaluations prometheus.Counter
	steps          *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	buildSeconds   prometheus.Histogram
	states         prometheus.Gauge
}

// NewMetrics registers the run metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rhsEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "household_sim",
			Name:      "rhs_evaluations_total",
			Help:      "Right hand side evaluations.",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "household_sim",
			Name:      "integrator_steps_total",
			Help:      "Integrator steps by outcome.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "household_sim",
			Name:      "cache_lookups_total",
			Help:      "Household cache lookups by outcome.",
		}, []string{"result"}),
		buildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "household_sim",
			Name:      "household_build_seconds",
			Help:      "Time to enumerate one composition and assemble its generator.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		states: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "household_sim",
			Name:      "states",
			Help:      "Global household states.",
		}),
	}
	m.registry.MustRegister(m.rhsEvaluations, m.steps, m.cacheLookups, m.buildSeconds, m.states)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveRHS() {
	if m == nil {
		return
	}
	m.rhsEvaluations.Inc()
}

func (m *Metrics) ObserveStep(accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.steps.WithLabelValues("accepted").Inc()
	} else {
		m.steps.WithLabelValues("rejected").Inc()
	}
}

// ObserveCacheLookup counts a lookup with result "hit", "miss" or "error".
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHouseholdBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.buildSeconds.Observe(d.Seconds())
}

func (m *Metrics) SetStates(n int) {
	if m == nil {
		return
	}
	m.states.Set(float64(n))
}

// WriteText writes every metric in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Print displays a summary of the run on stdout.
func (m *Metrics) Print(sol *Solution) {
	fmt.Println("=== Simulation Metrics ===")
	if sol != nil {
		fmt.Printf("Accepted Steps       : %d\n", sol.Stats.StepCount)
		fmt.Printf("Rejected Steps       : %d\n", sol.Stats.RejectedCount)
		fmt.Printf("RHS Evaluations      : %d\n", sol.Stats.EvaluationCount)
		fmt.Printf("Final Time           : %.4f\n", sol.Stats.CurrentTime)
	}
	if m == nil {
		return
	}
	families, err := m.registry.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		if mf.GetName() == "household_sim_states" && len(mf.GetMetric()) > 0 {
			fmt.Printf("Household States     : %.0f\n", mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}
