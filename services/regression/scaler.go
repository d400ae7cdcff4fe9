// Package regression fits the ranking models: features are standardized on
// each training window, an OLS and an SGD regressor predict next month's
// rank on the test window, and VIF diagnostics flag collinear features.
package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers and scales columns to unit variance. Fit on the
// training window, apply to both windows; never refit on test data.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// Fit estimates per-column mean and standard deviation.
func (s *StandardScaler) Fit(x *mat.Dense) error {
	rows, cols := x.Dims()
	if rows == 0 {
		return fmt.Errorf("scaler: empty matrix")
	}
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		s.Mean[j] = stat.Mean(col, nil)
		s.Std[j] = stat.PopStdDev(col, nil)
		// A constant column scales by 1 so it maps to zero, not NaN.
		if s.Std[j] == 0 || math.IsNaN(s.Std[j]) {
			s.Std[j] = 1
		}
	}
	return nil
}

// Transform returns a standardized copy of x using the fitted moments.
func (s *StandardScaler) Transform(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.Mean) {
		return nil, fmt.Errorf("scaler: fitted on %d columns, got %d", len(s.Mean), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (x.At(i, j)-s.Mean[j])/s.Std[j])
		}
	}
	return out, nil
}

// FitTransform fits on x and returns its standardized copy.
func (s *StandardScaler) FitTransform(x *mat.Dense) (*mat.Dense, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}
