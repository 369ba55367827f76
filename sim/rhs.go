package sim

import (
	"github.com/sirupsen/logrus"
)

// RHS evaluates dH/dt = Hᵀ(Q_int + Q_P + Q_D + Q_U), where the import
// generators Q_P, Q_D and Q_U are rebuilt from H on every call.
//
// Evaluate has no side effects on the model and accepts any t, in any order,
// as adaptive integrators probe trial and rejected steps.
type RHS struct {
	pop     *Population
	tr      *Transmission
	imports *ImportPattern
	metrics *Metrics
}

// NewRHS prepares the evaluator for pop. metrics may be nil.
func NewRHS(pop *Population, tr *Transmission, metrics *Metrics) *RHS {
	return &RHS{
		pop:     pop,
		tr:      tr,
		imports: NewImportPattern(pop),
		metrics: metrics,
	}
}

// Evaluate writes dH/dt at (t, h) into dh.
func (r *RHS) Evaluate(t float64, h, dh []float64) {
	logrus.Debugf("Evaluating rates at t=%.6f", t)
	ext := r.imports.Build(r.pop.ForceOfInfection(h, r.tr))
	r.pop.Generator.VecMul(dh, h)
	for _, q := range ext.All() {
		q.AddVecMul(dh, h)
	}
	r.metrics.ObserveRHS()
}

// Imports returns the import matrices at h, for inspection.
func (r *RHS) Imports(h []float64) *ImportMatrices {
	return r.imports.Build(r.pop.ForceOfInfection(h, r.tr))
}
