package sim

import "fmt"

// InitialCondition returns the starting household-state distribution H0.
//
// Within each composition block of weight w, every seed state (one member of
// some class Detected or Undetected, everyone else Susceptible) gets
// prevalence·w and the fully susceptible state keeps the rest of w. Each block
// therefore sums to its weight and H0 sums to 1.
func InitialCondition(pop *Population, prevalence float64) ([]float64, error) {
	h := make([]float64, pop.size)
	for _, b := range pop.Blocks {
		w := pop.Weights[b.Composition]
		st := pop.Households[b.Composition].Table
		size := st.Size()
		susceptible := -1
		var seeds []int
		for r := 0; r < st.Len(); r++ {
			switch seedKind(st, r, size) {
			case seedNone:
				susceptible = r
			case seedInfectious:
				seeds = append(seeds, r)
			}
		}
		if susceptible < 0 {
			return nil, fmt.Errorf("composition %v has no fully susceptible state", st.composition)
		}
		rest := w - prevalence*w*float64(len(seeds))
		if rest < 0 {
			return nil, fmt.Errorf("prevalence %g seeds more than the whole of composition %v (%d seed states)",
				prevalence, st.composition, len(seeds))
		}
		for _, r := range seeds {
			h[b.Offset+r] = prevalence * w
		}
		h[b.Offset+susceptible] = rest
	}
	return h, nil
}

const (
	seedOther = iota
	seedNone
	seedInfectious
)

// seedKind classifies row r as fully susceptible, a single symptomatic or
// asymptomatic seed, or anything else.
func seedKind(st *StateTable, r, size int) int {
	s, d, u := 0, 0, 0
	for pos := range st.present {
		s += st.Count(r, pos, Susceptible)
		d += st.Count(r, pos, Detected)
		u += st.Count(r, pos, Undetected)
	}
	switch {
	case s == size:
		return seedNone
	case s == size-1 && d+u == 1:
		return seedInfectious
	}
	return seedOther
}
