package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// VIFEntry is the variance inflation factor of one feature.
type VIFEntry struct {
	Feature string
	VIF     float64
}

// VIF regresses each feature on all the others and reports
// 1/(1-R²) per feature. A perfectly collinear feature comes back +Inf.
func VIF(x *mat.Dense, features []string) ([]VIFEntry, error) {
	rows, cols := x.Dims()
	if cols != len(features) {
		return nil, fmt.Errorf("vif: %d columns vs %d feature names", cols, len(features))
	}
	if cols < 2 {
		return nil, fmt.Errorf("vif: need at least two features, got %d", cols)
	}

	out := make([]VIFEntry, cols)
	y := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(y, j, x)

		rest := mat.NewDense(rows, cols-1, nil)
		for i := 0; i < rows; i++ {
			k := 0
			for c := 0; c < cols; c++ {
				if c == j {
					continue
				}
				rest.Set(i, k, x.At(i, c))
				k++
			}
		}

		var ols OLS
		if err := ols.Fit(rest, y); err != nil {
			return nil, fmt.Errorf("vif feature %s: %w", features[j], err)
		}
		v := math.Inf(1)
		if ols.R2 < 1 {
			v = 1 / (1 - ols.R2)
		}
		out[j] = VIFEntry{Feature: features[j], VIF: v}
	}
	return out, nil
}
