package timeseries

import (
	"testing"
	"time"
)

func TestReadCandlesSortsAndDedupes(t *testing.T) {
	path := writeFile(t, "candles.csv", ""+
		"Gmt time,Open,High,Low,Close,Volume\n"+
		"01.06.2021 02:00:00.000,1.2227,1.2239,1.2221,1.2230,1000\n"+
		"01.06.2021 00:00:00.000,1.2225,1.2231,1.2219,1.2227,1500\n"+
		"01.06.2021 01:00:00.000,1.2227,1.2235,1.2222,1.2229,900\n"+
		"01.06.2021 01:00:00.000,1.2228,1.2236,1.2223,1.2231,950\n")

	candles, dropped, err := ReadCandles(path, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3", len(candles))
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			t.Fatal("candles not strictly ascending")
		}
	}
	// Duplicate timestamp keeps the last row.
	if got := candles[1].Close.String(); got != "1.2231" {
		t.Errorf("dedup kept %s, want the later 1.2231", got)
	}
	if !candles[0].Timestamp.Equal(time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first timestamp = %s", candles[0].Timestamp)
	}
}

func TestReadCandlesRejectsBadPrice(t *testing.T) {
	path := writeFile(t, "bad.csv", ""+
		"Gmt time,Open,High,Low,Close,Volume\n"+
		"01.06.2021 00:00:00.000,abc,1.2231,1.2219,1.2227,1500\n")
	if _, _, err := ReadCandles(path, time.UTC); err == nil {
		t.Fatal("expected decimal parse error")
	}
}

func TestCandleFrame(t *testing.T) {
	path := writeFile(t, "candles.csv", ""+
		"Gmt time,Open,High,Low,Close,Volume\n"+
		"01.06.2021 00:00:00.000,1.2225,1.2231,1.2219,1.2227,1500\n"+
		"01.06.2021 01:00:00.000,1.2227,1.2235,1.2222,1.2229,900\n")
	candles, _, err := ReadCandles(path, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	f := CandleFrame(candles, time.UTC)
	if f.Len() != 2 {
		t.Fatalf("got %d rows, want 2", f.Len())
	}
	for _, col := range []string{"Open", "High", "Low", "Close", "Volume"} {
		if !f.HasColumn(col) {
			t.Errorf("missing column %s", col)
		}
	}
	closes, err := f.Values("Close")
	if err != nil {
		t.Fatal(err)
	}
	if closes[0] != 1.2227 {
		t.Errorf("Close[0] = %v", closes[0])
	}
}

func TestHourlyRangeInclusive(t *testing.T) {
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 6, 1, 5, 0, 0, 0, time.UTC)
	hours := HourlyRange(start, end)
	if len(hours) != 6 {
		t.Fatalf("got %d hours, want 6", len(hours))
	}
	if !hours[5].Equal(end) {
		t.Errorf("last = %s, want %s", hours[5], end)
	}
}
