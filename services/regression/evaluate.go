package regression

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"fxresearch/services/timeseries"
	"fxresearch/services/walkforward"
)

// Model is a per-period regressor: fit on the standardized training window,
// predict on the standardized test window.
type Model interface {
	Name() string
	Fit(x *mat.Dense, y []float64) error
	Predict(x *mat.Dense) []float64
}

// FeatureMatrix extracts the named value columns into a dense matrix,
// returning the indices of rows where every feature is present.
func FeatureMatrix(f *timeseries.Frame, features []string) (*mat.Dense, []int, error) {
	cols := make([][]float64, len(features))
	for j, name := range features {
		c, err := f.Values(name)
		if err != nil {
			return nil, nil, err
		}
		cols[j] = c
	}

	var kept []int
	for i := 0; i < f.Len(); i++ {
		ok := true
		for j := range cols {
			if math.IsNaN(cols[j][i]) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, i)
		}
	}

	if len(kept) == 0 {
		return nil, nil, nil
	}
	x := mat.NewDense(len(kept), len(features), nil)
	for r, i := range kept {
		for j := range cols {
			x.Set(r, j, cols[j][i])
		}
	}
	return x, kept, nil
}

// Evaluate runs the walk-forward model comparison for one strategy: per
// period, standardize the training features, fit every model on the train
// window's target and predict the test window. The result frame carries one
// row per test hour with the actual target and one prediction column per
// model. Periods whose train or test window has no complete feature rows
// are skipped with a warning.
func Evaluate(periods []walkforward.Period, strategy string, x, y *timeseries.Frame,
	features []string, target string, models []Model, logger *zap.Logger) (*timeseries.Frame, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := timeseries.NewFrame("Date", x.Location())
	out.SetLabels("Strategy", nil)
	out.SetValues("Actual", nil)
	for _, m := range models {
		out.SetValues("Predicted_"+m.Name(), nil)
	}

	for _, p := range periods {
		xs, err := walkforward.SliceByPeriod(x, p, x.TimeColumn)
		if err != nil {
			return nil, fmt.Errorf("strategy %s period %s: %w", strategy, p.Label(), err)
		}
		ys, err := walkforward.SliceByPeriod(y, p, y.TimeColumn)
		if err != nil {
			return nil, fmt.Errorf("strategy %s period %s: %w", strategy, p.Label(), err)
		}

		xTrain, trainKept, err := FeatureMatrix(xs.Train, features)
		if err != nil {
			return nil, err
		}
		xTest, testKept, err := FeatureMatrix(xs.Test, features)
		if err != nil {
			return nil, err
		}
		if len(trainKept) == 0 || len(testKept) == 0 {
			logger.Warn("skipping period without complete feature rows",
				zap.String("strategy", strategy),
				zap.String("period", p.Label()),
				zap.Int("train_rows", len(trainKept)),
				zap.Int("test_rows", len(testKept)),
			)
			continue
		}
		if xs.Train.Len() != ys.Train.Len() || xs.Test.Len() != ys.Test.Len() {
			return nil, fmt.Errorf("strategy %s period %s: feature and target tables misaligned (%d/%d vs %d/%d rows)",
				strategy, p.Label(), xs.Train.Len(), xs.Test.Len(), ys.Train.Len(), ys.Test.Len())
		}

		targetCol, err := ys.Train.Values(target)
		if err != nil {
			return nil, err
		}
		yTrain := make([]float64, len(trainKept))
		for r, i := range trainKept {
			yTrain[r] = targetCol[i]
		}
		actualCol, err := ys.Test.Values(target)
		if err != nil {
			return nil, err
		}

		var scaler StandardScaler
		xTrainStd, err := scaler.FitTransform(xTrain)
		if err != nil {
			return nil, fmt.Errorf("strategy %s period %s: %w", strategy, p.Label(), err)
		}
		xTestStd, err := scaler.Transform(xTest)
		if err != nil {
			return nil, fmt.Errorf("strategy %s period %s: %w", strategy, p.Label(), err)
		}

		preds := make(map[string][]float64, len(models))
		for _, m := range models {
			if err := m.Fit(xTrainStd, yTrain); err != nil {
				return nil, fmt.Errorf("strategy %s period %s model %s: %w", strategy, p.Label(), m.Name(), err)
			}
			preds[m.Name()] = m.Predict(xTestStd)
		}

		for r, i := range testKept {
			vals := map[string]float64{"Actual": actualCol[i]}
			for name, pv := range preds {
				vals["Predicted_"+name] = pv[r]
			}
			out.AppendRow(xs.Test.Times[i], vals, map[string]string{"Strategy": strategy})
		}
	}
	return out, nil
}

// ShiftAndPivot rolls hourly predictions up to calendar months, shifts each
// month forward by one and averages per (month, strategy). The output is
// the table the portfolio selection reads.
func ShiftAndPivot(pred *timeseries.Frame) (*timeseries.Frame, error) {
	strategies, err := pred.Labels("Strategy")
	if err != nil {
		return nil, err
	}

	type key struct {
		month    time.Time
		strategy string
	}
	sums := make(map[key]map[string]float64)
	counts := make(map[key]int)
	var order []key

	valueCols := pred.ValueColumns()
	for i, ts := range pred.Times {
		month := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location()).AddDate(0, 1, 0)
		k := key{month, strategies[i]}
		if _, ok := sums[k]; !ok {
			sums[k] = make(map[string]float64, len(valueCols))
			order = append(order, k)
		}
		for _, name := range valueCols {
			col, _ := pred.Values(name)
			if !math.IsNaN(col[i]) {
				sums[k][name] += col[i]
			}
		}
		counts[k]++
	}

	sort.SliceStable(order, func(a, b int) bool {
		if !order[a].month.Equal(order[b].month) {
			return order[a].month.Before(order[b].month)
		}
		return order[a].strategy < order[b].strategy
	})

	out := timeseries.NewFrame("Month", pred.Location())
	out.SetLabels("Strategy", nil)
	for _, name := range valueCols {
		out.SetValues(name, nil)
	}
	for _, k := range order {
		vals := make(map[string]float64, len(valueCols))
		for _, name := range valueCols {
			vals[name] = sums[k][name] / float64(counts[k])
		}
		out.AppendRow(k.month, vals, map[string]string{"Strategy": k.strategy})
	}
	return out, nil
}
