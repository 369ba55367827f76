package sim

import (
	"github.com/inference-sim/household-sim/sim/sparse"
)

// ImportPattern is the fixed sparsity pattern of the between-household import
// matrices: one entry per S → E move of the population plus every diagonal.
// It is built once; each evaluation only fills in new values.
type ImportPattern struct {
	pattern *sparse.CSR
	events  []InfectionEvent
	slots   []int // value slot of each event
	diag    []int // value slot of the diagonal of each event's source row
}

// NewImportPattern precomputes the import sparsity pattern of pop.
func NewImportPattern(pop *Population) *ImportPattern {
	tr := sparse.NewTriplets(pop.size)
	for _, ev := range pop.Infections {
		tr.Add(ev.From, ev.To, 1)
	}
	pattern := tr.ToGenerator()
	ip := &ImportPattern{
		pattern: pattern,
		events:  pop.Infections,
		slots:   make([]int, len(pop.Infections)),
		diag:    make([]int, len(pop.Infections)),
	}
	for e, ev := range pop.Infections {
		ip.slots[e], _ = pattern.Slot(ev.From, ev.To)
		ip.diag[e], _ = pattern.Slot(ev.From, ev.From)
	}
	return ip
}

// ImportMatrices are the per-compartment external infection generators:
// each row sums to zero and shares the layout of the household generator.
type ImportMatrices struct {
	Prodromal  *sparse.CSR
	Detected   *sparse.CSR
	Undetected *sparse.CSR
}

// Build fills the pattern with rates from foi. For each S → E move of class c
// out of state s, the rate is foi[s][c]. The pattern is not modified.
func (ip *ImportPattern) Build(foi *ForceOfInfection) *ImportMatrices {
	out := &ImportMatrices{}
	for _, c := range infectious {
		rates := foi.byCompartment(c)
		vals := make([]float64, ip.pattern.NNZ())
		for e, ev := range ip.events {
			rate := rates.At(ev.From, ev.Class)
			vals[ip.slots[e]] += rate
			vals[ip.diag[e]] -= rate
		}
		q, _ := ip.pattern.WithValues(vals)
		switch c {
		case Prodromal:
			out.Prodromal = q
		case Detected:
			out.Detected = q
		case Undetected:
			out.Undetected = q
		}
	}
	return out
}

// All returns the three matrices in prodromal, detected, undetected order.
func (m *ImportMatrices) All() []*sparse.CSR {
	return []*sparse.CSR{m.Prodromal, m.Detected, m.Undetected}
}
