package pipeline

import (
	"fmt"
	"math"
)

// LinearRegression is ordinary least squares fitted via the normal
// equations.
type LinearRegression struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Fit solves (X'X)b = X'y with an intercept column.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training data: %d rows, %d targets", len(X), len(y))
	}

	p := len(X[0]) + 1 // features plus intercept

	// Build the normal equations.
	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xty := make([]float64, p)

	for r, row := range X {
		aug := make([]float64, p)
		aug[0] = 1
		copy(aug[1:], row)
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				xtx[i][j] += aug[i] * aug[j]
			}
			xty[i] += aug[i] * y[r]
		}
	}

	beta, err := solveLinearSystem(xtx, xty)
	if err != nil {
		return err
	}

	m.Intercept = beta[0]
	m.Coefficients = beta[1:]
	return nil
}

// Predict applies the fitted coefficients.
func (m *LinearRegression) Predict(X [][]float64) []float64 {
	preds := make([]float64, len(X))
	for i, row := range X {
		v := m.Intercept
		for j, c := range m.Coefficients {
			if j < len(row) {
				v += c * row[j]
			}
		}
		preds[i] = v
	}
	return preds
}

// solveLinearSystem runs Gaussian elimination with partial pivoting.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range m {
		m[i] = append(append([]float64(nil), a[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular design matrix, cannot solve normal equations")
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}
