package sim

import (
	"fmt"

	"github.com/inference-sim/household-sim/sim/sparse"
)

// InfectionEvent is an S → E transition of one class between two states.
// Indices are rows of a state table, or global state indices once a
// household is placed in a Population.
type InfectionEvent struct {
	From  int
	To    int
	Class int // age class, not present-class position
}

// Household is the immutable model of one composition: its states, their
// index and the within-household generator.
type Household struct {
	Table *StateTable
	Index *StateIndex
	// Q is the CTMC generator: Q[i][j] is the rate from state i to j, and
	// every row sums to zero.
	Q *sparse.CSR
	// Infections lists every S → E move, including those with zero
	// within-household rate; between-household imports reuse them.
	Infections []InfectionEvent
}

// BuildHousehold enumerates the states of a composition and assembles its generator.
func BuildHousehold(composition []int, p *Params) (*Household, error) {
	if len(composition) != p.NumClasses() {
		return nil, fmt.Errorf("%w: composition %v has %d classes, parameters have %d",
			ErrInvalidComposition, composition, len(composition), p.NumClasses())
	}
	st, err := EnumerateStates(composition)
	if err != nil {
		return nil, err
	}
	ix, err := NewStateIndex(st)
	if err != nil {
		return nil, err
	}
	b := newGeneratorBuilder(st, ix, p)
	if err := b.build(); err != nil {
		return nil, fmt.Errorf("composition %v: %w", composition, err)
	}
	return &Household{
		Table:      st,
		Index:      ix,
		Q:          b.triplets.ToGenerator(),
		Infections: b.infections,
	}, nil
}

type generatorBuilder struct {
	st       *StateTable
	ix       *StateIndex
	p        *Params
	rHome    [][]float64 // diag(σ)·K_home restricted to present classes
	tau      []float64
	det      []float64
	scratch  []int
	triplets *sparse.Triplets

	infections []InfectionEvent
}

func newGeneratorBuilder(st *StateTable, ix *StateIndex, p *Params) *generatorBuilder {
	np := len(st.present)
	b := &generatorBuilder{
		st:       st,
		ix:       ix,
		p:        p,
		rHome:    make([][]float64, np),
		tau:      make([]float64, np),
		det:      make([]float64, np),
		scratch:  make([]int, st.width),
		triplets: sparse.NewTriplets(st.rows),
	}
	for a, ca := range st.present {
		b.rHome[a] = make([]float64, np)
		for c, cb := range st.present {
			b.rHome[a][c] = p.Susceptibility[ca] * p.HomeContacts[ca][cb]
		}
		b.tau[a] = p.AsymptomaticInfectiousness[ca]
		b.det[a] = p.DetectionProbability[ca]
	}
	return b
}

func (b *generatorBuilder) build() error {
	for r := 0; r < b.st.rows; r++ {
		pressure := b.infectionPressure(r)
		for pos, class := range b.st.present {
			if s := b.st.Count(r, pos, Susceptible); s > 0 {
				to, err := b.add(r, pos, Susceptible, Exposed, float64(s)*pressure[pos])
				if err != nil {
					return err
				}
				b.infections = append(b.infections, InfectionEvent{From: r, To: to, Class: class})
			}
			if e := b.st.Count(r, pos, Exposed); e > 0 {
				if _, err := b.add(r, pos, Exposed, Prodromal, b.p.IncubationRate*float64(e)); err != nil {
					return err
				}
			}
			if pr := b.st.Count(r, pos, Prodromal); pr > 0 {
				onset := b.p.SymptomOnsetRate * float64(pr)
				if _, err := b.add(r, pos, Prodromal, Detected, b.det[pos]*onset); err != nil {
					return err
				}
				if _, err := b.add(r, pos, Prodromal, Undetected, (1-b.det[pos])*onset); err != nil {
					return err
				}
			}
			if d := b.st.Count(r, pos, Detected); d > 0 {
				if _, err := b.add(r, pos, Detected, Recovered, b.p.RecoveryRate*float64(d)); err != nil {
					return err
				}
			}
			if u := b.st.Count(r, pos, Undetected); u > 0 {
				if _, err := b.add(r, pos, Undetected, Recovered, b.p.RecoveryRate*float64(u)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// infectionPressure returns, per present class, the per-susceptible infection
// rate from household members in state r: Σ_b rHome[a][b]·(φP_b + D_b + τ_b U_b)/n_b.
func (b *generatorBuilder) infectionPressure(r int) []float64 {
	np := len(b.st.present)
	source := make([]float64, np)
	for pos, class := range b.st.present {
		n := float64(b.st.composition[class])
		source[pos] = (b.p.ProdromalInfectiousness*float64(b.st.Count(r, pos, Prodromal)) +
			float64(b.st.Count(r, pos, Detected)) +
			b.tau[pos]*float64(b.st.Count(r, pos, Undetected))) / n
	}
	out := make([]float64, np)
	for a := range out {
		for c, x := range source {
			out[a] += b.rHome[a][c] * x
		}
	}
	return out
}

// add records one individual of present class pos moving between compartments
// and returns the destination row. Zero rates are not stored.
func (b *generatorBuilder) add(r, pos int, from, to Compartment, rate float64) (int, error) {
	copy(b.scratch, b.st.Row(r))
	base := pos * NumCompartments
	b.scratch[base+int(from)]--
	b.scratch[base+int(to)]++
	dest, ok := b.ix.Lookup(b.scratch)
	if !ok {
		return 0, fmt.Errorf("%w: row %d class %d %s→%s gives %v", ErrIndexMiss, r, b.st.present[pos], from, to, b.scratch)
	}
	if rate != 0 {
		b.triplets.Add(r, dest, rate)
	}
	return dest, nil
}

// RestoreHousehold rebuilds a Household from a persisted generator and
// infection list. The state table and index are enumerated again and the
// persisted rows must match them exactly.
func RestoreHousehold(composition []int, states []int, q *sparse.CSR, infections []InfectionEvent) (*Household, error) {
	st, err := EnumerateStates(composition)
	if err != nil {
		return nil, err
	}
	if len(states) != len(st.data) {
		return nil, fmt.Errorf("composition %v: persisted table has %d entries, want %d", composition, len(states), len(st.data))
	}
	for i, x := range states {
		if x != st.data[i] {
			return nil, fmt.Errorf("composition %v: persisted table differs at entry %d", composition, i)
		}
	}
	if n, _ := q.Dims(); n != st.rows {
		return nil, fmt.Errorf("composition %v: generator has %d rows, want %d", composition, n, st.rows)
	}
	for _, ev := range infections {
		if ev.From < 0 || ev.From >= st.rows || ev.To < 0 || ev.To >= st.rows || ev.Class < 0 || ev.Class >= len(composition) {
			return nil, fmt.Errorf("composition %v: infection event %+v out of range", composition, ev)
		}
	}
	ix, err := NewStateIndex(st)
	if err != nil {
		return nil, err
	}
	return &Household{Table: st, Index: ix, Q: q, Infections: infections}, nil
}

// States returns a copy of the flattened state table, row-major.
func (h *Household) States() []int { return append([]int(nil), h.Table.data...) }
