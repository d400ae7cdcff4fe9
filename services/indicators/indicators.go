// Package indicators derives the technical-indicator columns from candle
// frames. Every function is a single forward pass producing a same-length
// series; sequential indicators (OBV, Parabolic SAR) carry one unit of
// state through a fold instead of mutating rows in place. Warmup prefixes
// are NaN, mirroring the rolling-window semantics of the derived tables.
package indicators

import (
	"math"
)

// SMA is the simple moving average over window bars. A NaN warmup prefix
// in the input (e.g. the DX line feeding ADX) shifts the first full window
// past it.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	first := 0
	for first < len(values) && math.IsNaN(values[first]) {
		first++
	}
	if len(values)-first < window {
		return out
	}
	sum := 0.0
	for i := first; i < len(values); i++ {
		sum += values[i]
		if i >= first+window {
			sum -= values[i-window]
		}
		if i >= first+window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA is the exponential moving average with alpha = 2/(span+1), seeded
// with the simple average of the first span values. A NaN warmup prefix in
// the input (e.g. a MACD line) shifts the seed window past it.
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 {
		return out
	}
	first := 0
	for first < len(values) && math.IsNaN(values[first]) {
		first++
	}
	if len(values)-first < span {
		return out
	}
	seed := 0.0
	for _, v := range values[first : first+span] {
		seed += v
	}
	ema := seed / float64(span)
	out[first+span-1] = ema
	alpha := 2.0 / float64(span+1)
	for i := first + span; i < len(values); i++ {
		ema = values[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}
	return out
}

// RSI is the relative strength index over window bars, built from rolling
// mean gain and loss.
func RSI(closes []float64, window int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	delta := Diff(closes)
	for i := 1; i < n; i++ {
		if delta[i] > 0 {
			gains[i] = delta[i]
		} else {
			losses[i] = -delta[i]
		}
	}
	avgGain := SMA(gains, window)
	avgLoss := SMA(losses, window)
	out := nanSlice(n)
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns the MACD line and its signal line.
func MACD(closes []float64, short, long, signal int) (macd, signalLine []float64) {
	shortEMA := EMA(closes, short)
	longEMA := EMA(closes, long)
	macd = make([]float64, len(closes))
	for i := range macd {
		macd[i] = shortEMA[i] - longEMA[i]
	}
	signalLine = EMA(macd, signal)
	return macd, signalLine
}

// Bollinger returns the rolling mean and the upper and lower bands at
// numStdDev sample standard deviations.
func Bollinger(closes []float64, window int, numStdDev float64) (mean, upper, lower []float64) {
	mean = SMA(closes, window)
	std := RollingStd(closes, window)
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(mean[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = mean[i] + std[i]*numStdDev
		lower[i] = mean[i] - std[i]*numStdDev
	}
	return mean, upper, lower
}

// OBV is on-balance volume: a fold carrying the running total, adding
// volume on up closes and subtracting it on down closes.
func OBV(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	acc := 0.0
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			acc += volumes[i]
		case closes[i] < closes[i-1]:
			acc -= volumes[i]
		}
		out[i] = acc
	}
	return out
}

// VWAP returns the cumulative volume-weighted average price together with
// the cumulative volume and cumulative close*volume series the derived
// tables also carry.
func VWAP(closes, volumes []float64) (vwap, cumVolume, cumPV []float64) {
	n := len(closes)
	vwap = nanSlice(n)
	cumVolume = make([]float64, n)
	cumPV = make([]float64, n)
	var vol, pv float64
	for i := 0; i < n; i++ {
		vol += volumes[i]
		pv += closes[i] * volumes[i]
		cumVolume[i] = vol
		cumPV[i] = pv
		if vol != 0 {
			vwap[i] = pv / vol
		}
	}
	return vwap, cumVolume, cumPV
}

// Stochastic returns %K and %D plus the rolling low/high channel bounds.
func Stochastic(highs, lows, closes []float64, kWindow, dWindow int) (k, d, lo, hi []float64) {
	lo = RollingMin(lows, kWindow)
	hi = RollingMax(highs, kWindow)
	k = nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) || hi[i] == lo[i] {
			continue
		}
		k[i] = 100 * (closes[i] - lo[i]) / (hi[i] - lo[i])
	}
	d = SMA(k, dWindow)
	return k, d, lo, hi
}

// ROC is the percentage rate of change over periods bars.
func ROC(closes []float64, periods int) []float64 {
	out := nanSlice(len(closes))
	for i := periods; i < len(closes); i++ {
		if closes[i-periods] != 0 {
			out[i] = (closes[i]/closes[i-periods] - 1) * 100
		}
	}
	return out
}

// CMF is the Chaikin money flow: rolling money-flow volume over rolling
// volume, with degenerate ranges contributing zero.
func CMF(highs, lows, closes, volumes []float64, window int) []float64 {
	n := len(closes)
	mfv := make([]float64, n)
	for i := 0; i < n; i++ {
		rng := highs[i] - lows[i]
		if rng == 0 {
			continue
		}
		mfm := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / rng
		mfv[i] = mfm * volumes[i]
	}
	sumMFV := RollingSum(mfv, window)
	sumVol := RollingSum(volumes, window)
	out := nanSlice(n)
	for i := range out {
		if math.IsNaN(sumMFV[i]) || math.IsNaN(sumVol[i]) || sumVol[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = sumMFV[i] / sumVol[i]
	}
	return out
}

// ADXResult carries the directional-movement family of series.
type ADXResult struct {
	TRSmooth     []float64
	DMUpSmooth   []float64
	DMDownSmooth []float64
	DIUp         []float64
	DIDown       []float64
	DX           []float64
	ADX          []float64
}

// ADX computes the directional movement index family over window bars.
func ADX(highs, lows, closes []float64, window int) ADXResult {
	n := len(closes)
	tr := make([]float64, n)
	dmUp := make([]float64, n)
	dmDown := make([]float64, n)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))

		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			dmUp[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			dmDown[i] = downMove
		}
	}

	res := ADXResult{
		TRSmooth:     RollingSum(tr, window),
		DMUpSmooth:   RollingSum(dmUp, window),
		DMDownSmooth: RollingSum(dmDown, window),
	}
	res.DIUp = nanSlice(n)
	res.DIDown = nanSlice(n)
	res.DX = nanSlice(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(res.TRSmooth[i]) || res.TRSmooth[i] == 0 {
			continue
		}
		res.DIUp[i] = 100 * res.DMUpSmooth[i] / res.TRSmooth[i]
		res.DIDown[i] = 100 * res.DMDownSmooth[i] / res.TRSmooth[i]
		if sum := res.DIUp[i] + res.DIDown[i]; sum != 0 {
			res.DX[i] = 100 * math.Abs(res.DIUp[i]-res.DIDown[i]) / sum
		}
	}
	res.ADX = SMA(res.DX, window)
	return res
}

// PSAR computes the parabolic stop-and-reverse with the given acceleration
// step and cap. Returns the SAR series and the direction series (+1 rising,
// -1 falling). One forward fold: the carried state is (sar, extreme point,
// acceleration factor, direction).
func PSAR(highs, lows []float64, step, maxStep float64) (sar, direction []float64) {
	n := len(highs)
	sar = make([]float64, n)
	direction = make([]float64, n)
	if n == 0 {
		return sar, direction
	}

	up := true
	af := step
	ep := highs[0]
	cur := lows[0]
	sar[0] = cur
	direction[0] = 1

	for i := 1; i < n; i++ {
		cur = cur + af*(ep-cur)
		if up {
			if lows[i] < cur {
				// reverse to falling
				up = false
				cur = ep
				ep = lows[i]
				af = step
			} else if highs[i] > ep {
				ep = highs[i]
				af = math.Min(af+step, maxStep)
			}
		} else {
			if highs[i] > cur {
				// reverse to rising
				up = true
				cur = ep
				ep = highs[i]
				af = step
			} else if lows[i] < ep {
				ep = lows[i]
				af = math.Min(af+step, maxStep)
			}
		}
		sar[i] = cur
		if up {
			direction[i] = 1
		} else {
			direction[i] = -1
		}
	}
	return sar, direction
}

// CrossAbove marks rows where a crosses above b (1 when a[i] > b[i] and
// a[i-1] <= b[i-1], else 0).
func CrossAbove(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := 1; i < len(a); i++ {
		if a[i] > b[i] && a[i-1] <= b[i-1] {
			out[i] = 1
		}
	}
	return out
}
