package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlate builds the correlation matrix of cols. Each pair uses only the rows
// where both values are finite; pairs with fewer than two such rows, or a
// constant side, are NaN.
func Correlate(names []string, cols [][]float64) *CorrMatrix {
	n := len(cols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := pairwise(cols[a], cols[b])
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			mat[a][b], mat[b][a] = r, r
		}
	}
	return &CorrMatrix{Columns: append([]string(nil), names...), Values: mat}
}

func pairwise(x, y []float64) float64 {
	m := len(x)
	if len(y) < m {
		m = len(y)
	}
	xs := make([]float64, 0, m)
	ys := make([]float64, 0, m)
	for i := 0; i < m; i++ {
		if finite(x[i]) && finite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}

// At returns the coefficient between two named columns.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

func (m *CorrMatrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// TopPairs lists up to n distinct pairs ordered by |r|, skipping NaN.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	k := len(m.Columns)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai := math.Abs(pairs[i].R)
		aj := math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if n >= 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
