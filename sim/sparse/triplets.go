package sparse

import (
	"fmt"
	"sort"
)

// Triplets accumulates matrix entries in coordinate form.
// Entries added at the same (i, j) are summed on conversion.
type Triplets struct {
	n    int
	rows []int
	cols []int
	vals []float64
}

// NewTriplets returns an empty accumulator for an n×n matrix.
func NewTriplets(n int) *Triplets {
	return &Triplets{n: n}
}

// Add records value v at (i, j).
func (t *Triplets) Add(i, j int, v float64) {
	if uint(i) >= uint(t.n) || uint(j) >= uint(t.n) {
		panic(fmt.Sprintf("sparse: entry (%d, %d) outside %d×%d matrix", i, j, t.n, t.n))
	}
	t.rows = append(t.rows, i)
	t.cols = append(t.cols, j)
	t.vals = append(t.vals, v)
}

// Len returns the number of recorded entries, duplicates included.
func (t *Triplets) Len() int { return len(t.vals) }

// ToCSR converts the accumulated entries, summing duplicates.
func (t *Triplets) ToCSR() *CSR {
	return t.compress(false)
}

// ToGenerator converts the off-diagonal entries and sets every diagonal entry
// to the negated sum of its row, so each row of the result sums to zero.
// Entries recorded on the diagonal are ignored.
func (t *Triplets) ToGenerator() *CSR {
	return t.compress(true)
}

func (t *Triplets) compress(generator bool) *CSR {
	n := t.n
	start := make([]int, n+1)
	for _, i := range t.rows {
		start[i+1]++
	}
	for i := 0; i < n; i++ {
		start[i+1] += start[i]
	}
	order := make([]int, len(t.rows))
	next := append([]int(nil), start[:n]...)
	for k, i := range t.rows {
		order[next[i]] = k
		next[i]++
	}

	extra := 0
	if generator {
		extra = n
	}
	m := &CSR{
		n:      n,
		rowPtr: make([]int, n+1),
		colIdx: make([]int, 0, len(t.rows)+extra),
		values: make([]float64, 0, len(t.rows)+extra),
	}
	for i := 0; i < n; i++ {
		seg := order[start[i]:start[i+1]]
		sort.SliceStable(seg, func(a, b int) bool { return t.cols[seg[a]] < t.cols[seg[b]] })

		rowStart := len(m.colIdx)
		diag := -1
		rowSum := 0.0
		if generator {
			// reserve the diagonal slot in column order
			seg = insertDiagonal(seg, t.cols, i)
		}
		for _, k := range seg {
			if k < 0 {
				diag = len(m.colIdx)
				m.colIdx = append(m.colIdx, i)
				m.values = append(m.values, 0)
				continue
			}
			j := t.cols[k]
			if generator {
				if j == i {
					continue
				}
				rowSum += t.vals[k]
			}
			if l := len(m.colIdx); l > rowStart && m.colIdx[l-1] == j {
				m.values[l-1] += t.vals[k]
				continue
			}
			m.colIdx = append(m.colIdx, j)
			m.values = append(m.values, t.vals[k])
		}
		if diag >= 0 {
			m.values[diag] = -rowSum
		}
		m.rowPtr[i+1] = len(m.colIdx)
	}
	return m
}

// insertDiagonal returns seg with a -1 marker placed where column i sorts.
func insertDiagonal(seg, cols []int, i int) []int {
	pos := sort.Search(len(seg), func(a int) bool { return cols[seg[a]] >= i })
	out := make([]int, 0, len(seg)+1)
	out = append(out, seg[:pos]...)
	out = append(out, -1)
	return append(out, seg[pos:]...)
}
