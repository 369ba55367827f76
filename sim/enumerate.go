package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// StateTable lists every occupancy state of one household composition.
//
// Each row holds NumCompartments counts per present class, in the order
// S, E, P, D, U, R, and the counts of each class sum to that class's size.
// Rows follow a mixed-radix order: the first present class cycles fastest.
type StateTable struct {
	composition []int
	present     []int
	rows        int
	width       int
	data        []int
}

// EnumerateStates builds the state table of a composition.
// Classes with a zero count are absent: they add no columns and no factor.
func EnumerateStates(composition []int) (*StateTable, error) {
	if err := validateComposition(composition); err != nil {
		return nil, err
	}
	st := &StateTable{composition: append([]int(nil), composition...)}
	for class, n := range composition {
		if n > 0 {
			st.present = append(st.present, class)
		}
	}
	st.width = NumCompartments * len(st.present)

	dists := make([][][NumCompartments]int, len(st.present))
	st.rows = 1
	for pos, class := range st.present {
		dists[pos] = distributions(composition[class])
		if want := combin.Binomial(composition[class]+NumCompartments-1, NumCompartments-1); len(dists[pos]) != want {
			return nil, fmt.Errorf("class %d: %d distributions, expected %d", class, len(dists[pos]), want)
		}
		if st.rows > math.MaxInt32/len(dists[pos]) {
			return nil, fmt.Errorf("%w: composition %v has too many states", ErrInvalidComposition, composition)
		}
		st.rows *= len(dists[pos])
	}

	st.data = make([]int, st.rows*st.width)
	for r := 0; r < st.rows; r++ {
		q := r
		row := st.data[r*st.width : (r+1)*st.width]
		for pos := range st.present {
			size := len(dists[pos])
			copy(row[pos*NumCompartments:], dists[pos][q%size][:])
			q /= size
		}
	}
	return st, nil
}

func validateComposition(composition []int) error {
	total := 0
	for class, n := range composition {
		if n < 0 {
			return fmt.Errorf("%w: class %d has negative count %d", ErrInvalidComposition, class, n)
		}
		total += n
	}
	if total == 0 {
		return fmt.Errorf("%w: household %v has no members", ErrInvalidComposition, composition)
	}
	return nil
}

// distributions lists the ways to place n individuals in the six compartments,
// ordered by s, e, p, d, u ascending with r taking the remainder.
func distributions(n int) [][NumCompartments]int {
	var out [][NumCompartments]int
	for s := 0; s <= n; s++ {
		for e := 0; e <= n-s; e++ {
			for p := 0; p <= n-s-e; p++ {
				for d := 0; d <= n-s-e-p; d++ {
					for u := 0; u <= n-s-e-p-d; u++ {
						out = append(out, [NumCompartments]int{s, e, p, d, u, n - s - e - p - d - u})
					}
				}
			}
		}
	}
	return out
}

// Composition returns a copy of the class counts the table was built from.
func (st *StateTable) Composition() []int { return append([]int(nil), st.composition...) }

// Present returns the indices of classes with a non-zero count.
func (st *StateTable) Present() []int { return append([]int(nil), st.present...) }

// Len returns the number of states.
func (st *StateTable) Len() int { return st.rows }

// Width returns the number of columns, NumCompartments per present class.
func (st *StateTable) Width() int { return st.width }

// Row returns state r. The slice aliases the table and must not be modified.
func (st *StateTable) Row(r int) []int { return st.data[r*st.width : (r+1)*st.width] }

// Count returns the number of members of present class pos in compartment c for state r.
func (st *StateTable) Count(r, pos int, c Compartment) int {
	return st.data[r*st.width+pos*NumCompartments+int(c)]
}

// Size returns the household size.
func (st *StateTable) Size() int {
	total := 0
	for _, n := range st.composition {
		total += n
	}
	return total
}
