// Package sparse provides the compressed sparse row matrices used for household
// generators and between-household import matrices.
//
// Matrices are square and immutable once built. Construction goes through
// Triplets, which accumulates (row, column, value) entries and sums duplicates
// when converted. CSR satisfies gonum's mat.Matrix so small matrices can be
// inspected with mat.Formatted or copied into a mat.Dense in tests.
package sparse

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is a square matrix in compressed sparse row form.
type CSR struct {
	n      int
	rowPtr []int // len n+1; row i occupies colIdx[rowPtr[i]:rowPtr[i+1]]
	colIdx []int // sorted ascending within each row, no duplicates
	values []float64
}

var _ mat.Matrix = (*CSR)(nil)

// Dims returns the matrix dimensions.
func (m *CSR) Dims() (r, c int) { return m.n, m.n }

// At returns the element at row i, column j.
func (m *CSR) At(i, j int) float64 {
	if uint(i) >= uint(m.n) || uint(j) >= uint(m.n) {
		panic(mat.ErrIndexOutOfRange)
	}
	if k, ok := m.Slot(i, j); ok {
		return m.values[k]
	}
	return 0
}

// T returns an implicit transpose.
func (m *CSR) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NNZ returns the number of stored entries, including explicit zeros.
func (m *CSR) NNZ() int { return len(m.values) }

// Slot returns the position of entry (i, j) in the value array, if stored.
func (m *CSR) Slot(i, j int) (int, bool) {
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	k := lo + sort.SearchInts(m.colIdx[lo:hi], j)
	if k < hi && m.colIdx[k] == j {
		return k, true
	}
	return 0, false
}

// Values returns a copy of the stored values in slot order.
func (m *CSR) Values() []float64 {
	out := make([]float64, len(m.values))
	copy(out, m.values)
	return out
}

// WithValues returns a matrix sharing m's sparsity pattern with new values.
// The pattern slices are shared, not copied; values is owned by the result.
func (m *CSR) WithValues(values []float64) (*CSR, error) {
	if len(values) != len(m.values) {
		return nil, fmt.Errorf("sparse: %d values for a pattern with %d slots", len(values), len(m.values))
	}
	return &CSR{n: m.n, rowPtr: m.rowPtr, colIdx: m.colIdx, values: values}, nil
}

// DoNonZero calls fn for every stored entry in row-major order.
func (m *CSR) DoNonZero(fn func(i, j int, v float64)) {
	for i := 0; i < m.n; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			fn(i, m.colIdx[k], m.values[k])
		}
	}
}

// DoRowNonZero calls fn for every stored entry of row i.
func (m *CSR) DoRowNonZero(i int, fn func(j int, v float64)) {
	for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
		fn(m.colIdx[k], m.values[k])
	}
}

// RowSums returns the sum of every row.
func (m *CSR) RowSums() []float64 {
	sums := make([]float64, m.n)
	for i := 0; i < m.n; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			sums[i] += m.values[k]
		}
	}
	return sums
}

// AddVecMul accumulates dst += xᵀ·m. Both slices must have length n.
func (m *CSR) AddVecMul(dst, x []float64) {
	if len(dst) != m.n || len(x) != m.n {
		panic(mat.ErrShape)
	}
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			dst[m.colIdx[k]] += xi * m.values[k]
		}
	}
}

// VecMul stores xᵀ·m in dst.
func (m *CSR) VecMul(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	m.AddVecMul(dst, x)
}

// Export returns copies of the raw CSR arrays, for serialization.
func (m *CSR) Export() (n int, rowPtr, colIdx []int, values []float64) {
	rowPtr = append([]int(nil), m.rowPtr...)
	colIdx = append([]int(nil), m.colIdx...)
	values = append([]float64(nil), m.values...)
	return m.n, rowPtr, colIdx, values
}

// FromArrays rebuilds a CSR from arrays produced by Export, checking structure.
func FromArrays(n int, rowPtr, colIdx []int, values []float64) (*CSR, error) {
	if n < 0 || len(rowPtr) != n+1 || rowPtr[0] != 0 {
		return nil, fmt.Errorf("sparse: malformed row pointer for n=%d", n)
	}
	if len(colIdx) != len(values) || rowPtr[n] != len(values) {
		return nil, fmt.Errorf("sparse: %d columns, %d values, row pointer ends at %d", len(colIdx), len(values), rowPtr[n])
	}
	for i := 0; i < n; i++ {
		if rowPtr[i+1] < rowPtr[i] {
			return nil, fmt.Errorf("sparse: row pointer decreases at row %d", i)
		}
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			if colIdx[k] < 0 || colIdx[k] >= n {
				return nil, fmt.Errorf("sparse: column %d out of range in row %d", colIdx[k], i)
			}
			if k > rowPtr[i] && colIdx[k] <= colIdx[k-1] {
				return nil, fmt.Errorf("sparse: columns not strictly increasing in row %d", i)
			}
		}
	}
	return &CSR{n: n, rowPtr: rowPtr, colIdx: colIdx, values: values}, nil
}

// BlockDiag places the given square blocks along the diagonal of a new matrix.
func BlockDiag(blocks ...*CSR) *CSR {
	var n, nnz int
	for _, b := range blocks {
		n += b.n
		nnz += len(b.values)
	}
	out := &CSR{
		n:      n,
		rowPtr: make([]int, 1, n+1),
		colIdx: make([]int, 0, nnz),
		values: make([]float64, 0, nnz),
	}
	offset := 0
	for _, b := range blocks {
		base := len(out.colIdx)
		for i := 0; i < b.n; i++ {
			out.rowPtr = append(out.rowPtr, base+b.rowPtr[i+1])
		}
		for _, j := range b.colIdx {
			out.colIdx = append(out.colIdx, j+offset)
		}
		out.values = append(out.values, b.values...)
		offset += b.n
	}
	return out
}
