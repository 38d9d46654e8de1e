package tfidf

import "sort"

// csrMatrix is the term-document matrix in compressed sparse row layout:
// row i occupies Cols[RowPtr[i]:RowPtr[i+1]] / Vals[RowPtr[i]:RowPtr[i+1]],
// column indices ascending within a row.
type csrMatrix struct {
	RowPtr []int
	Cols   []int
	Vals   []float64
}

func newCSRMatrix() csrMatrix {
	return csrMatrix{RowPtr: []int{0}}
}

func (m *csrMatrix) rows() int {
	return len(m.RowPtr) - 1
}

// appendRow adds a sparse row given as a column->value map.
func (m *csrMatrix) appendRow(vec map[int]float64) {
	cols := make([]int, 0, len(vec))
	for col := range vec {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	for _, col := range cols {
		m.Cols = append(m.Cols, col)
		m.Vals = append(m.Vals, vec[col])
	}
	m.RowPtr = append(m.RowPtr, len(m.Cols))
}

// dot computes the dot product of row i with a sparse query vector. Both
// sides are unit length, so this is cosine similarity.
func (m *csrMatrix) dot(i int, q map[int]float64) float64 {
	var sum float64
	for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
		if qv, ok := q[m.Cols[k]]; ok {
			sum += m.Vals[k] * qv
		}
	}
	return sum
}
