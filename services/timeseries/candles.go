package timeseries

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar from a broker export.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// ReadCandles loads a broker candle export (Gmt time,Open,High,Low,Close,Volume),
// sorts by timestamp and drops duplicate timestamps keeping the last row.
// Out-of-order data after the sort is impossible; a dedup count is returned so
// callers can log it.
func ReadCandles(path string, loc *time.Location) ([]Candle, int, error) {
	r, closeFn, err := openReader(path)
	if err != nil {
		return nil, 0, err
	}
	defer closeFn()

	var candles []Candle
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read %s line %d: %w", path, line+1, err)
		}
		line++
		if len(rec) < 6 {
			return nil, 0, fmt.Errorf("%s line %d: want 6 columns, got %d", path, line, len(rec))
		}
		first := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		if line == 1 && (strings.EqualFold(first, "Gmt time") || strings.EqualFold(first, "time")) {
			continue
		}
		ts, err := time.ParseInLocation(CandleTimeLayout, first, loc)
		if err != nil {
			return nil, 0, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		c := Candle{Timestamp: ts}
		for i, dst := range []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			v, err := decimal.NewFromString(strings.TrimSpace(rec[i+1]))
			if err != nil {
				return nil, 0, fmt.Errorf("%s line %d column %d: %w", path, line, i+2, err)
			}
			*dst = v
		}
		candles = append(candles, c)
	}

	dropped := 0
	if len(candles) > 1 {
		sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp.Before(candles[j].Timestamp) })
		uniq := candles[:0]
		for _, c := range candles {
			if len(uniq) > 0 && uniq[len(uniq)-1].Timestamp.Equal(c.Timestamp) {
				// duplicate timestamp, keep last
				uniq[len(uniq)-1] = c
				dropped++
				continue
			}
			uniq = append(uniq, c)
		}
		candles = uniq
	}
	return candles, dropped, nil
}

// CandleFrame converts candles into a Frame with Date/Open/High/Low/Close/Volume,
// the shape the indicator passes consume.
func CandleFrame(candles []Candle, loc *time.Location) *Frame {
	f := NewFrame("Date", loc)
	n := len(candles)
	times := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closeC := make([]float64, n)
	volume := make([]float64, n)
	for i, c := range candles {
		times[i] = c.Timestamp
		open[i] = c.Open.InexactFloat64()
		high[i] = c.High.InexactFloat64()
		low[i] = c.Low.InexactFloat64()
		closeC[i] = c.Close.InexactFloat64()
		volume[i] = c.Volume.InexactFloat64()
	}
	f.Times = times
	// All columns share the candle count, so the length checks cannot fail.
	_ = f.SetValues("Open", open)
	_ = f.SetValues("High", high)
	_ = f.SetValues("Low", low)
	_ = f.SetValues("Close", closeC)
	_ = f.SetValues("Volume", volume)
	return f
}

// HourlyRange enumerates every hour from start to end inclusive. Used when
// strategies are reindexed onto a common hourly clock.
func HourlyRange(start, end time.Time) []time.Time {
	var out []time.Time
	for ts := start; !ts.After(end); ts = ts.Add(time.Hour) {
		out = append(out, ts)
	}
	return out
}
