package assign

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNonSquareMatrix is returned when the cost matrix is not n×n.
	ErrNonSquareMatrix = errors.New("assign: cost matrix must be square")
	// ErrIncompleteMatching means the solver left a row or column unassigned.
	ErrIncompleteMatching = errors.New("assign: incomplete matching")
	// ErrNonFiniteCost is returned for NaN or infinite matrix entries.
	ErrNonFiniteCost = errors.New("assign: non-finite cost")
)

// Hungarian solves the minimum-cost perfect assignment for a square cost
// matrix and returns rowToCol. Costs are shifted by the matrix minimum first
// so every entry is non-negative; this does not change the optimum.
func Hungarian(cost mat.Matrix) ([]int, error) {
	rows, cols := cost.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: got %dx%d", ErrNonSquareMatrix, rows, cols)
	}
	n := rows
	if n == 0 {
		return []int{}, nil
	}

	shift := math.Inf(1)
	for i := range n {
		for j := range n {
			v := cost.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w at (%d,%d)", ErrNonFiniteCost, i, j)
			}
			shift = min(shift, v)
		}
	}
	a := mat.NewDense(n, n, nil)
	a.Apply(func(_, _ int, v float64) float64 { return v - shift }, cost)

	// Potentials u (rows) and v (columns), 1-indexed with a virtual column 0.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row matched to column j
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := a.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				return nil, ErrIncompleteMatching
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowToCol := make([]int, n)
	for i := range rowToCol {
		rowToCol[i] = -1
	}
	for j := 1; j <= n; j++ {
		if p[j] > 0 {
			rowToCol[p[j]-1] = j - 1
		}
	}
	if err := checkPermutation(rowToCol); err != nil {
		return nil, err
	}
	return rowToCol, nil
}

func checkPermutation(rowToCol []int) error {
	seen := make([]bool, len(rowToCol))
	for row, col := range rowToCol {
		if col < 0 || col >= len(rowToCol) {
			return fmt.Errorf("%w: row %d unassigned", ErrIncompleteMatching, row)
		}
		if seen[col] {
			return fmt.Errorf("%w: column %d assigned twice", ErrIncompleteMatching, col)
		}
		seen[col] = true
	}
	return nil
}
