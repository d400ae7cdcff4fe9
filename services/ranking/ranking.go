// Package ranking builds the regression target: per calendar month the ten
// strategies with the highest net PnL, ranked ascending within the ten, the
// whole table shifted back one month and extrapolated onto the hourly clock
// so the model learns next month's ranking from this month's features.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"time"

	"fxresearch/services/timeseries"
)

// DefaultTopN is the portfolio size per month.
const DefaultTopN = 10

// MonthlyPnL is one (strategy, month) aggregate.
type MonthlyPnL struct {
	Strategy string
	Month    time.Time // first hour of the month, frame zone
	NetPnL   float64
}

// RankedStrategy is one row of the monthly top-N table after the shift.
type RankedStrategy struct {
	Strategy     string
	Month        time.Time // original month of the PnL
	ShiftedMonth time.Time // month the rank is projected onto
	NetPnL       float64
	Rank         int // 1..N ascending by NetPnL within the month's top N
}

// AggregateMonthly sums a strategy-labelled hourly PnL frame into monthly
// net PnL per strategy. The frame needs a PnL value column and the given
// strategy label column.
func AggregateMonthly(f *timeseries.Frame, strategyColumn string) ([]MonthlyPnL, error) {
	pnl, err := f.Values("PnL")
	if err != nil {
		return nil, err
	}
	strategies, err := f.Labels(strategyColumn)
	if err != nil {
		return nil, err
	}

	type key struct {
		strategy string
		month    time.Time
	}
	sums := make(map[key]float64)
	var order []key
	for i, ts := range f.Times {
		m := monthStart(ts)
		k := key{strategies[i], m}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		if !math.IsNaN(pnl[i]) {
			sums[k] += pnl[i]
		}
	}

	out := make([]MonthlyPnL, 0, len(order))
	for _, k := range order {
		out = append(out, MonthlyPnL{Strategy: k.strategy, Month: k.month, NetPnL: sums[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out, nil
}

// TopN selects the n best strategies per month and ranks them 1..n ascending
// by net PnL (n = best). Ties keep input order. Every month is then shifted
// back one month, so a month's winners become the target of the month before.
func TopN(monthly []MonthlyPnL, n int) []RankedStrategy {
	if n <= 0 {
		n = DefaultTopN
	}
	byMonth := make(map[time.Time][]MonthlyPnL)
	var months []time.Time
	for _, m := range monthly {
		if _, ok := byMonth[m.Month]; !ok {
			months = append(months, m.Month)
		}
		byMonth[m.Month] = append(byMonth[m.Month], m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	var out []RankedStrategy
	for _, month := range months {
		rows := byMonth[month]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].NetPnL > rows[j].NetPnL })
		if len(rows) > n {
			rows = rows[:n]
		}
		// Rank ascending within the selection: the best of the month gets
		// the highest rank.
		for i, row := range rows {
			out = append(out, RankedStrategy{
				Strategy:     row.Strategy,
				Month:        month,
				ShiftedMonth: month.AddDate(0, -1, 0),
				NetPnL:       row.NetPnL,
				Rank:         len(rows) - i,
			})
		}
	}
	return out
}

// ExtrapolateHourly projects each ranked row across every hour of its
// shifted month (first day 00:00 through last day 23:00).
func ExtrapolateHourly(ranked []RankedStrategy, loc *time.Location) *timeseries.Frame {
	f := timeseries.NewFrame("Date", loc)
	f.SetLabels("Strategy", nil)
	f.SetValues("Net_PnL", nil)
	f.SetValues("Rank", nil)
	for _, r := range ranked {
		start := time.Date(r.ShiftedMonth.Year(), r.ShiftedMonth.Month(), 1, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 1, 0).Add(-time.Hour)
		for ts := start; !ts.After(end); ts = ts.Add(time.Hour) {
			f.AppendRow(ts,
				map[string]float64{"Net_PnL": r.NetPnL, "Rank": float64(r.Rank)},
				map[string]string{"Strategy": r.Strategy})
		}
	}
	return f
}

// RankSeries aligns the hourly rank table onto a feature frame's clock for
// one strategy. Hours outside the strategy's ranked months get rank 0.
func RankSeries(ranks *timeseries.Frame, strategy string, times []time.Time) ([]float64, error) {
	sub, err := ranks.FilterLabel("Strategy", strategy)
	if err != nil {
		return nil, err
	}
	rankCol, err := sub.Values("Rank")
	if err != nil {
		return nil, err
	}
	index := make(map[time.Time]float64, sub.Len())
	for i, ts := range sub.Times {
		index[ts] = rankCol[i]
	}
	out := make([]float64, len(times))
	for i, ts := range times {
		out[i] = index[ts]
	}
	return out, nil
}

func monthStart(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
}

// Table renders the ranked rows as a monthly frame for CSV output.
func Table(ranked []RankedStrategy, loc *time.Location) *timeseries.Frame {
	f := timeseries.NewFrame("Month", loc)
	f.SetLabels("Strategy", nil)
	f.SetLabels("Shifted_Month", nil)
	f.SetValues("Net_PnL", nil)
	f.SetValues("Rank", nil)
	for _, r := range ranked {
		f.AppendRow(r.Month,
			map[string]float64{"Net_PnL": r.NetPnL, "Rank": float64(r.Rank)},
			map[string]string{
				"Strategy":      r.Strategy,
				"Shifted_Month": fmt.Sprintf("%04d-%02d", r.ShiftedMonth.Year(), r.ShiftedMonth.Month()),
			})
	}
	return f
}
