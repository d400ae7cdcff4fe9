package regression

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// SGD is a linear regressor trained by stochastic gradient descent on the
// squared loss with L2 regularization and an inverse-scaling learning rate.
// Row order is shuffled each epoch from the fixed seed, so a given seed
// always reproduces the same fit.
type SGD struct {
	Epochs int
	Eta0   float64
	Alpha  float64
	PowerT float64
	Seed   int64

	Intercept float64
	Coef      []float64
}

// NewSGD returns a regressor with the conventional defaults.
func NewSGD(seed int64) *SGD {
	return &SGD{
		Epochs: 1000,
		Eta0:   0.01,
		Alpha:  1e-4,
		PowerT: 0.25,
		Seed:   seed,
	}
}

// Name implements Model.
func (s *SGD) Name() string { return "SGD" }

// Fit runs the configured number of epochs over standardized features.
func (s *SGD) Fit(x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows != len(y) {
		return fmt.Errorf("sgd: %d rows vs %d targets", rows, len(y))
	}
	if rows == 0 {
		return fmt.Errorf("sgd: empty training window")
	}

	s.Coef = make([]float64, cols)
	s.Intercept = 0
	rng := rand.New(rand.NewSource(s.Seed))
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	t := 1.0
	for epoch := 0; epoch < s.Epochs; epoch++ {
		rng.Shuffle(rows, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			eta := s.Eta0 / math.Pow(t, s.PowerT)
			pred := s.Intercept
			for j := 0; j < cols; j++ {
				pred += s.Coef[j] * x.At(i, j)
			}
			grad := pred - y[i]
			for j := 0; j < cols; j++ {
				s.Coef[j] -= eta * (grad*x.At(i, j) + s.Alpha*s.Coef[j])
			}
			s.Intercept -= eta * grad
			t++
		}
	}
	return nil
}

// Predict applies the fitted coefficients row-wise.
func (s *SGD) Predict(x *mat.Dense) []float64 {
	rows, cols := x.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		pred := s.Intercept
		for j := 0; j < cols && j < len(s.Coef); j++ {
			pred += s.Coef[j] * x.At(i, j)
		}
		out[i] = pred
	}
	return out
}
