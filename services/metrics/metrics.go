// Package metrics computes the rolling per-strategy performance table:
// hourly cumulative PnL reindexed onto a common clock, rolling moments,
// Sharpe, drawdown and recovery statistics, plus the strategy and calendar
// labels the ranking model consumes as features.
package metrics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"fxresearch/services/timeseries"
)

// DefaultWindow is the rolling window in hours (30 days of hourly bars).
const DefaultWindow = 720

// Params controls the rolling computations.
type Params struct {
	Window int
}

// DefaultParams returns the standard 720h window.
func DefaultParams() Params { return Params{Window: DefaultWindow} }

// StrategyLabels splits a strategy name of the form L_EURUSD_1 into its
// direction and currency pair.
func StrategyLabels(name string) (side, pair string) {
	side = "Short"
	if strings.HasPrefix(name, "L_") {
		side = "Long"
	}
	parts := strings.Split(name, "_")
	if len(parts) >= 2 {
		pair = parts[1]
	}
	return side, pair
}

// RollingMean is the trailing mean over window bars, NaN during warmup.
func RollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = stat.Mean(values[i-window+1:i+1], nil)
	}
	return out
}

// RollingStd is the trailing sample standard deviation over window bars.
func RollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 1 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = stat.StdDev(values[i-window+1:i+1], nil)
	}
	return out
}

// Derivative is the bar-to-bar change of a series, NaN at index zero and
// wherever either operand is NaN.
func Derivative(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

// Momentum is the second difference (derivative of the derivative).
func Momentum(values []float64) []float64 {
	return Derivative(Derivative(values))
}

// Sharpe is the ratio of rolling mean to rolling standard deviation, with
// infinities from a zero std collapsed to zero.
func Sharpe(mean, std []float64) []float64 {
	out := nanSlice(len(mean))
	for i := range mean {
		if math.IsNaN(mean[i]) || math.IsNaN(std[i]) {
			continue
		}
		if std[i] == 0 {
			out[i] = 0
			continue
		}
		v := mean[i] / std[i]
		if math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}

// RollingPeak is the trailing maximum over window bars.
func RollingPeak(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		m := values[i-window+1]
		for _, v := range values[i-window+2 : i+1] {
			if v > m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

// Drawdown is peak minus value, clamped at zero.
func Drawdown(values, peak []float64) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsNaN(peak[i]) {
			continue
		}
		d := peak[i] - values[i]
		if d < 0 {
			d = 0
		}
		out[i] = d
	}
	return out
}

// RecoveryTime is a fold counting consecutive bars spent under water: the
// counter increments while drawdown is positive and resets to zero when the
// series makes a new peak.
func RecoveryTime(drawdown []float64) []float64 {
	out := make([]float64, len(drawdown))
	count := 0.0
	for i, d := range drawdown {
		if !math.IsNaN(d) && d > 0 {
			count++
		} else {
			count = 0
		}
		out[i] = count
	}
	return out
}

// RollingSlope fits a least-squares line through each trailing window and
// returns its slope per bar.
func RollingSlope(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 1 || len(values) < window {
		return out
	}
	xs := make([]float64, window)
	for i := range xs {
		xs[i] = float64(i)
	}
	for i := window - 1; i < len(values); i++ {
		_, slope := stat.LinearRegression(xs, values[i-window+1:i+1], nil, false)
		out[i] = slope
	}
	return out
}

// CumulativeSum treats NaN as zero contribution.
func CumulativeSum(values []float64) []float64 {
	out := make([]float64, len(values))
	acc := 0.0
	for i, v := range values {
		if !math.IsNaN(v) {
			acc += v
		}
		out[i] = acc
	}
	return out
}

// ReindexHourly projects a strategy's PnL observations onto the global
// hourly clock [start, end]. PnL is summed per hour; hours with no trades
// carry zero. The frame's time column must match timeColumn.
func ReindexHourly(f *timeseries.Frame, timeColumn string, start, end time.Time) ([]time.Time, []float64, error) {
	if f.TimeColumn != timeColumn {
		return nil, nil, fmt.Errorf("%w: %q", timeseries.ErrMissingColumn, timeColumn)
	}
	if start.Location().String() != f.Location().String() {
		return nil, nil, fmt.Errorf("%w: range in %s, frame anchored to %s",
			timeseries.ErrZoneMismatch, start.Location(), f.Location())
	}
	pnl, err := f.Values("PnL")
	if err != nil {
		return nil, nil, err
	}

	hours := timeseries.HourlyRange(start, end)
	index := make(map[time.Time]int, len(hours))
	for i, h := range hours {
		index[h] = i
	}
	out := make([]float64, len(hours))
	for i, ts := range f.Times {
		bucket := ts.Truncate(time.Hour)
		j, ok := index[bucket]
		if !ok {
			continue
		}
		if !math.IsNaN(pnl[i]) {
			out[j] += pnl[i]
		}
	}
	return hours, out, nil
}

// Compute builds the full rolling-metric frame for one strategy from its
// hourly PnL series on the global clock.
func Compute(strategy string, hours []time.Time, pnl []float64, p Params, loc *time.Location) (*timeseries.Frame, error) {
	if len(hours) != len(pnl) {
		return nil, fmt.Errorf("strategy %s: %d hours vs %d pnl rows", strategy, len(hours), len(pnl))
	}
	w := p.Window
	if w <= 0 {
		w = DefaultWindow
	}

	cum := CumulativeSum(pnl)
	mean := RollingMean(pnl, w)
	std := RollingStd(pnl, w)
	sharpe := Sharpe(mean, std)
	peak := RollingPeak(cum, w)
	dd := Drawdown(cum, peak)
	recovery := RecoveryTime(dd)
	maxRecovery := RollingPeak(recovery, w)
	slope := RollingSlope(cum, w)

	side, pair := StrategyLabels(strategy)

	f := timeseries.NewFrame("Date", loc)
	f.Times = hours
	f.SetValues("PnL", pnl)
	f.SetValues("Cumulative_PnL", cum)
	f.SetValues("Rolling_Mean", mean)
	f.SetValues("Rolling_Std", std)
	f.SetValues("Rolling_Mean_Derivative", Derivative(mean))
	f.SetValues("Rolling_Mean_Momentum", Momentum(mean))
	f.SetValues("Rolling_Std_Derivative", Derivative(std))
	f.SetValues("Rolling_Std_Momentum", Momentum(std))
	f.SetValues("Sharpe", sharpe)
	f.SetValues("Rolling_Peak", peak)
	f.SetValues("Drawdown", dd)
	f.SetValues("Recovery_Time", recovery)
	f.SetValues("Max_Recovery_Time", maxRecovery)
	f.SetValues("PnL_Slope", slope)
	f.SetValues("PnL_Momentum", Momentum(cum))

	n := len(hours)
	hourCol := make([]float64, n)
	dowCol := make([]float64, n)
	monthCol := make([]float64, n)
	for i, ts := range hours {
		hourCol[i] = float64(ts.Hour())
		dowCol[i] = float64(ts.Weekday())
		monthCol[i] = float64(ts.Month())
	}
	f.SetValues("Hour", hourCol)
	f.SetValues("Day_Of_Week", dowCol)
	f.SetValues("Month", monthCol)

	sideCol := make([]string, n)
	pairCol := make([]string, n)
	nameCol := make([]string, n)
	for i := range sideCol {
		sideCol[i] = side
		pairCol[i] = pair
		nameCol[i] = strategy
	}
	f.SetLabels("Strategy", nameCol)
	f.SetLabels("Long_Short", sideCol)
	f.SetLabels("CCY", pairCol)
	return f, nil
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
