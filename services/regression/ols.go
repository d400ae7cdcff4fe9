package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// OLS is an ordinary least squares regressor with intercept, solved by QR.
type OLS struct {
	Intercept float64
	Coef      []float64
	R2        float64
}

// Name implements Model.
func (o *OLS) Name() string { return "OLS" }

// Fit solves min ||Xb - y|| over the design matrix with a prepended
// constant column and stores the in-sample R².
func (o *OLS) Fit(x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows != len(y) {
		return fmt.Errorf("ols: %d rows vs %d targets", rows, len(y))
	}
	if rows < cols+1 {
		return fmt.Errorf("ols: %d rows cannot identify %d coefficients", rows, cols+1)
	}

	design := mat.NewDense(rows, cols+1, nil)
	for i := 0; i < rows; i++ {
		design.Set(i, 0, 1)
		for j := 0; j < cols; j++ {
			design.Set(i, j+1, x.At(i, j))
		}
	}

	var qr mat.QR
	qr.Factorize(design)
	b := mat.NewVecDense(rows, y)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, b); err != nil {
		// An ill-conditioned window still yields a usable least-squares
		// solution; only a hard failure aborts the fit.
		if _, ok := err.(mat.Condition); !ok {
			return fmt.Errorf("ols: %w", err)
		}
	}

	o.Intercept = beta.AtVec(0)
	o.Coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		o.Coef[j] = beta.AtVec(j + 1)
	}

	mean := stat.Mean(y, nil)
	var ssTot, ssRes float64
	for i := 0; i < rows; i++ {
		pred := o.Intercept
		for j := 0; j < cols; j++ {
			pred += o.Coef[j] * x.At(i, j)
		}
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		o.R2 = 0
	} else {
		o.R2 = 1 - ssRes/ssTot
	}
	if math.IsNaN(o.R2) {
		o.R2 = 0
	}
	return nil
}

// Predict applies the fitted coefficients row-wise.
func (o *OLS) Predict(x *mat.Dense) []float64 {
	rows, cols := x.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		pred := o.Intercept
		for j := 0; j < cols && j < len(o.Coef); j++ {
			pred += o.Coef[j] * x.At(i, j)
		}
		out[i] = pred
	}
	return out
}
