package vector

import (
	"fmt"
	"sort"
)

// Matrix is an N x D read-only matrix of product vectors. Row i belongs to product i.
type Matrix struct {
	rows  [][]float32
	norms []float64
	dims  int
}

// NewMatrix copies rows into a Matrix. All rows must share one dimensionality.
// An empty input yields an empty matrix with zero dimensions.
func NewMatrix(rows [][]float32) (*Matrix, error) {
	m := &Matrix{
		rows:  make([][]float32, len(rows)),
		norms: make([]float64, len(rows)),
	}
	for i, row := range rows {
		if i == 0 {
			m.dims = len(row)
		} else if len(row) != m.dims {
			return nil, fmt.Errorf("%w: row %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(row), m.dims)
		}
		cp := make([]float32, len(row))
		copy(cp, row)
		m.rows[i] = cp
		m.norms[i] = L2Norm(cp)
	}
	return m, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// Dims returns the row dimensionality (0 for an empty matrix).
func (m *Matrix) Dims() int {
	if m == nil {
		return 0
	}
	return m.dims
}

// Row returns row i. Callers must not modify it.
func (m *Matrix) Row(i int) []float32 {
	return m.rows[i]
}

// Hit is one ranked row: its index in the matrix and its cosine score.
type Hit struct {
	Index int
	Score float64
}

// TopK scores every row of m against query by cosine similarity and returns the k best,
// highest score first. Equal scores keep ascending row order. k is clamped to m.Len();
// k <= 0 or an empty matrix returns an empty slice.
func TopK(query []float32, m *Matrix, k int) ([]Hit, error) {
	n := m.Len()
	if n > 0 && len(query) != m.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, matrix has %d", ErrDimensionMismatch, len(query), m.dims)
	}
	if k > n {
		k = n
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	qNorm := L2Norm(query)
	hits := make([]Hit, n)
	for i, row := range m.rows {
		var dot float64
		for j, q := range query {
			dot += float64(q) * float64(row[j])
		}
		hits[i] = Hit{Index: i, Score: cosine(dot, qNorm, m.norms[i])}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits[:k:k], nil
}
