package sim

import (
	"fmt"
	"math/bits"
)

// StateIndex maps occupancy vectors of one state table back to their rows.
//
// A vector is encoded as a mixed-radix number whose column j has radix
// n_j+1 (n_j the size of the column's class), so column j is weighted by the
// product of the radices of all later columns. Few codes correspond to valid
// states, so rows are kept in a map rather than a dense array.
type StateIndex struct {
	weights []uint64
	rows    map[uint64]int
}

// NewStateIndex builds the index of every row of st.
func NewStateIndex(st *StateTable) (*StateIndex, error) {
	ix := &StateIndex{
		weights: make([]uint64, st.width),
		rows:    make(map[uint64]int, st.rows),
	}
	w := uint64(1)
	for j := st.width - 1; j >= 0; j-- {
		ix.weights[j] = w
		radix := uint64(st.composition[st.present[j/NumCompartments]] + 1)
		hi, lo := bits.Mul64(w, radix)
		if hi != 0 {
			return nil, fmt.Errorf("%w: composition %v", ErrCodeOverflow, st.composition)
		}
		w = lo
	}
	for r := 0; r < st.rows; r++ {
		code := ix.Encode(st.Row(r))
		if prev, dup := ix.rows[code]; dup {
			return nil, fmt.Errorf("rows %d and %d share code %d", prev, r, code)
		}
		ix.rows[code] = r
	}
	return ix, nil
}

// Encode returns the mixed-radix code of an occupancy vector.
func (ix *StateIndex) Encode(state []int) uint64 {
	var code uint64
	for j, x := range state {
		code += uint64(x) * ix.weights[j]
	}
	return code
}

// LookupCode returns the row with the given code.
func (ix *StateIndex) LookupCode(code uint64) (int, bool) {
	r, ok := ix.rows[code]
	return r, ok
}

// Lookup returns the row holding state.
func (ix *StateIndex) Lookup(state []int) (int, bool) {
	return ix.LookupCode(ix.Encode(state))
}

// Len returns the number of indexed rows.
func (ix *StateIndex) Len() int { return len(ix.rows) }
