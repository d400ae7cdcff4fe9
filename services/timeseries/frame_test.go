package timeseries

import (
	"errors"
	"math"
	"testing"
	"time"
)

func hourlyPnLFrame(t *testing.T, start time.Time, n int) *Frame {
	t.Helper()
	f := NewFrame("Date", time.UTC)
	f.SetValues("PnL", nil)
	f.SetLabels("Strategy", nil)
	for i := 0; i < n; i++ {
		err := f.AppendRow(start.Add(time.Duration(i)*time.Hour),
			map[string]float64{"PnL": float64(i)},
			map[string]string{"Strategy": "L_EURUSD_1"})
		if err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestFilterRangeInclusive(t *testing.T) {
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyPnLFrame(t, start, 48)

	from := start.Add(10 * time.Hour)
	to := start.Add(20 * time.Hour)
	got, err := f.FilterRange(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 11 {
		t.Fatalf("got %d rows, want 11 (both bounds inclusive)", got.Len())
	}
	if !got.Times[0].Equal(from) || !got.Times[got.Len()-1].Equal(to) {
		t.Errorf("bounds not honored: %s .. %s", got.Times[0], got.Times[got.Len()-1])
	}
	pnl, err := got.Values("PnL")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range pnl {
		if v != float64(10+i) {
			t.Fatalf("row order disturbed at %d: %v", i, v)
		}
	}
}

func TestFilterRangeEmptyIsValid(t *testing.T) {
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyPnLFrame(t, start, 5)
	got, err := f.FilterRange(start.AddDate(1, 0, 0), start.AddDate(1, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 0 {
		t.Fatalf("got %d rows, want 0", got.Len())
	}
}

func TestFilterRangeZoneMismatch(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyPnLFrame(t, start, 5)
	_, err = f.FilterRange(time.Date(2022, 6, 1, 0, 0, 0, 0, berlin), start.Add(time.Hour))
	if !errors.Is(err, ErrZoneMismatch) {
		t.Fatalf("err = %v, want ErrZoneMismatch", err)
	}
}

func TestAppendRowZoneMismatch(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	f := NewFrame("Date", time.UTC)
	err = f.AppendRow(time.Date(2022, 6, 1, 0, 0, 0, 0, berlin), nil, nil)
	if !errors.Is(err, ErrZoneMismatch) {
		t.Fatalf("err = %v, want ErrZoneMismatch", err)
	}
}

func TestAppendRowMissingCellsBecomeNaN(t *testing.T) {
	f := NewFrame("Date", time.UTC)
	f.SetValues("A", nil)
	f.SetValues("B", nil)
	if err := f.AppendRow(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		map[string]float64{"A": 1}, nil); err != nil {
		t.Fatal(err)
	}
	b, err := f.Values("B")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(b[0]) {
		t.Errorf("B[0] = %v, want NaN", b[0])
	}
}

func TestMissingColumn(t *testing.T) {
	f := NewFrame("Date", time.UTC)
	if _, err := f.Values("Close"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if _, err := f.Labels("Strategy"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
}

func TestFilterLabelAndUniqueLabels(t *testing.T) {
	f := NewFrame("Date", time.UTC)
	f.SetValues("PnL", nil)
	f.SetLabels("Strategy", nil)
	ts := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, s := range []string{"L_EURUSD_1", "S_GBPUSD_2", "L_EURUSD_1", "S_GBPUSD_2", "L_EURUSD_1"} {
		if err := f.AppendRow(ts.Add(time.Duration(i)*time.Hour),
			map[string]float64{"PnL": float64(i)}, map[string]string{"Strategy": s}); err != nil {
			t.Fatal(err)
		}
	}

	uniq, err := f.UniqueLabels("Strategy")
	if err != nil {
		t.Fatal(err)
	}
	if len(uniq) != 2 || uniq[0] != "L_EURUSD_1" || uniq[1] != "S_GBPUSD_2" {
		t.Errorf("unique labels = %v", uniq)
	}

	sub, err := f.FilterLabel("Strategy", "L_EURUSD_1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Len() != 3 {
		t.Fatalf("got %d rows, want 3", sub.Len())
	}
	pnl, _ := sub.Values("PnL")
	if pnl[0] != 0 || pnl[1] != 2 || pnl[2] != 4 {
		t.Errorf("filter reordered rows: %v", pnl)
	}
}

func TestSortByTimeStable(t *testing.T) {
	f := NewFrame("Date", time.UTC)
	f.SetValues("V", nil)
	times := []time.Time{
		time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, ts := range times {
		if err := f.AppendRow(ts, map[string]float64{"V": float64(i)}, nil); err != nil {
			t.Fatal(err)
		}
	}
	f.SortByTime()
	v, _ := f.Values("V")
	if v[0] != 1 || v[1] != 2 || v[2] != 0 {
		t.Errorf("values after sort = %v", v)
	}
	for i := 1; i < f.Len(); i++ {
		if f.Times[i].Before(f.Times[i-1]) {
			t.Fatal("not sorted")
		}
	}
}

func TestDetectGaps(t *testing.T) {
	f := NewFrame("Date", time.UTC)
	ts := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	f.AppendRow(ts, nil, nil)
	f.AppendRow(ts.Add(time.Hour), nil, nil)
	f.AppendRow(ts.Add(4*time.Hour), nil, nil)
	gaps := f.DetectGaps(time.Hour)
	if len(gaps) != 1 || !gaps[0].Equal(ts.Add(time.Hour)) {
		t.Errorf("gaps = %v", gaps)
	}
}

func TestSetValuesLengthMismatch(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyPnLFrame(t, start, 3)
	if err := f.SetValues("Short", []float64{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
