// Package effectiveness scores strategies per walk-forward period by how
// well their open hours line up with favorable price moves. Each strategy's
// trade log is projected onto the global hourly clock as open/closed flags,
// joined with the hourly close changes of its pair, and reduced to the six
// ratio columns per period.
package effectiveness

import (
	"math"
	"time"

	"fxresearch/services/timeseries"
	"fxresearch/services/walkforward"
)

// Column labels on the merged hourly frame.
const (
	StatusColumn = "Trade_Status"
	UpDownColumn = "Up_Down"
	ChangeColumn = "Close_Change"

	StatusOpen    = "Open"
	StatusNoTrade = "No Trade"
	DirectionUp   = "Up"
	DirectionDown = "Down"
)

// RatioColumns is the output column order of the per-period table.
var RatioColumns = []string{
	"Precision", "Downside_Ratio", "Combined_Ratio",
	"Precision_Magnitude", "Downside_Ratio_Magnitude", "Combined_Ratio_Magnitude",
}

// Ratios are the six effectiveness statistics of one (strategy, period).
// Undefined ratios (zero denominator) are NaN.
type Ratios struct {
	Precision              float64
	DownsideRatio          float64
	CombinedRatio          float64
	PrecisionMagnitude     float64
	DownsideRatioMagnitude float64
	CombinedRatioMagnitude float64
}

// Map renders the ratios under their table column names.
func (r Ratios) Map() map[string]float64 {
	return map[string]float64{
		"Precision":                r.Precision,
		"Downside_Ratio":           r.DownsideRatio,
		"Combined_Ratio":           r.CombinedRatio,
		"Precision_Magnitude":      r.PrecisionMagnitude,
		"Downside_Ratio_Magnitude": r.DownsideRatioMagnitude,
		"Combined_Ratio_Magnitude": r.CombinedRatioMagnitude,
	}
}

// CloseChanges is the forward close-to-close change per hour: change[i] is
// close[i+1]-close[i], NaN on the final bar.
func CloseChanges(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := 0; i+1 < len(closes); i++ {
		out[i] = closes[i+1] - closes[i]
	}
	return out
}

// UpDown labels each hour by the sign of its forward close change. Zero and
// NaN changes label Down, matching the two-way split of the ratio counts.
func UpDown(changes []float64) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		if c > 0 {
			out[i] = DirectionUp
		} else {
			out[i] = DirectionDown
		}
	}
	return out
}

// OpenHours flags every hour of the global clock during which the strategy
// held an open position. A trade spans from the floor of its open time to
// the floor of its close time, both inclusive.
func OpenHours(trades []timeseries.Trade, strategy string, hours []time.Time) []string {
	out := make([]string, len(hours))
	for i := range out {
		out[i] = StatusNoTrade
	}
	index := make(map[time.Time]int, len(hours))
	for i, h := range hours {
		index[h] = i
	}
	for _, tr := range trades {
		if tr.Strategy != strategy {
			continue
		}
		first := tr.OpenTime.Truncate(time.Hour)
		last := tr.CloseTime.Truncate(time.Hour)
		for ts := first; !ts.After(last); ts = ts.Add(time.Hour) {
			if i, ok := index[ts]; ok {
				out[i] = StatusOpen
			}
		}
	}
	return out
}

// MergedFrame joins a strategy's open-hour flags with the price direction
// series onto one hourly frame, the input shape of Calculate.
func MergedFrame(hours []time.Time, status []string, changes []float64, loc *time.Location) *timeseries.Frame {
	f := timeseries.NewFrame("Date", loc)
	f.Times = hours
	// Every column is built from hours, so the length checks cannot fail.
	_ = f.SetLabels(StatusColumn, status)
	_ = f.SetLabels(UpDownColumn, UpDown(changes))
	_ = f.SetValues(ChangeColumn, changes)
	return f
}

// Calculate reduces one window of the merged frame to the six ratios.
// For a long strategy the favorable direction is Up; for a short one it is
// Down. Precision is the share of favorable hours the strategy was open
// for, the downside ratio the share of unfavorable hours it was exposed to,
// and the combined ratio the open hours' split between the two. The
// magnitude variants weight hours by the absolute close change instead of
// counting them.
func Calculate(f *timeseries.Frame, isLong bool) (Ratios, error) {
	status, err := f.Labels(StatusColumn)
	if err != nil {
		return Ratios{}, err
	}
	dir, err := f.Labels(UpDownColumn)
	if err != nil {
		return Ratios{}, err
	}
	changes, err := f.Values(ChangeColumn)
	if err != nil {
		return Ratios{}, err
	}

	favorable := DirectionUp
	if !isLong {
		favorable = DirectionDown
	}

	var openFav, openUnfav, totalFav, totalUnfav float64
	var openFavMag, openUnfavMag, totalFavMag, totalUnfavMag float64
	for i := range status {
		fav := dir[i] == favorable
		mag := changes[i]
		if math.IsNaN(mag) {
			mag = 0
		}
		mag = math.Abs(mag)
		if fav {
			totalFav++
			totalFavMag += mag
		} else {
			totalUnfav++
			totalUnfavMag += mag
		}
		if status[i] != StatusOpen {
			continue
		}
		if fav {
			openFav++
			openFavMag += mag
		} else {
			openUnfav++
			openUnfavMag += mag
		}
	}

	return Ratios{
		Precision:              ratio(openFav, totalFav),
		DownsideRatio:          ratio(openUnfav, totalUnfav),
		CombinedRatio:          ratio(openFav, openFav+openUnfav),
		PrecisionMagnitude:     ratio(openFavMag, totalFavMag),
		DownsideRatioMagnitude: ratio(openUnfavMag, totalUnfavMag),
		CombinedRatioMagnitude: ratio(openFavMag, openFavMag+openUnfavMag),
	}, nil
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return math.NaN()
	}
	return num / den
}

// Stat adapts Calculate to the walk-forward runner: ratios are computed on
// the test window only, one row per period.
func Stat(isLong bool) walkforward.StatFunc {
	return func(p walkforward.Period, train, test *timeseries.Frame) (map[string]float64, error) {
		r, err := Calculate(test, isLong)
		if err != nil {
			return nil, err
		}
		return r.Map(), nil
	}
}
