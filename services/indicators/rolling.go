package indicators

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// RollingSum is the trailing sum over window bars, NaN during warmup.
func RollingSum(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum
		}
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
		sub := values[i-window+1 : i+1]
		mean := 0.0
		for _, v := range sub {
			mean += v
		}
		mean /= float64(window)
		var ss float64
		for _, v := range sub {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// RollingMin is the trailing minimum over window bars.
func RollingMin(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		m := values[i-window+1]
		for _, v := range values[i-window+2 : i+1] {
			if v < m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

// RollingMax is the trailing maximum over window bars.
func RollingMax(values []float64, window int) []float64 {
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

// Diff is the bar-to-bar difference, NaN at index zero.
func Diff(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}
