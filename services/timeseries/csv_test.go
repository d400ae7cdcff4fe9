package timeseries

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseTimestampAnchorsToLocation(t *testing.T) {
	got, err := ParseTimestamp("2022-06-01 13:30:00", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2022, 6, 1, 13, 30, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location().String() != "UTC" {
		t.Errorf("got %s in %s", got, got.Location())
	}

	// An explicit offset converts into the anchor zone instead.
	got, err = ParseTimestamp("2022-06-01T15:30:00+02:00", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("offset timestamp = %s, want %s", got, want)
	}
	if got.Location().String() != "UTC" {
		t.Errorf("zone = %s, want UTC", got.Location())
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	if _, err := ParseTimestamp("not a time", time.UTC); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadCSVSplitsValueAndLabelColumns(t *testing.T) {
	path := writeFile(t, "trades.csv", ""+
		"Open_Time,Strategy,PnL,Close_Change\n"+
		"2022-06-01 10:00:00,L_EURUSD_1,12.5,0.0012\n"+
		"2022-06-01 11:00:00,S_GBPUSD_2,-3.25,\n")

	f, err := ReadCSV(path, "Open_Time", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 2 {
		t.Fatalf("got %d rows, want 2", f.Len())
	}
	if !f.Times[0].Equal(time.Date(2022, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("time[0] = %s", f.Times[0])
	}

	pnl, err := f.Values("PnL")
	if err != nil {
		t.Fatal(err)
	}
	if pnl[0] != 12.5 || pnl[1] != -3.25 {
		t.Errorf("PnL = %v", pnl)
	}

	cc, err := f.Values("Close_Change")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(cc[1]) {
		t.Errorf("empty cell should read as NaN, got %v", cc[1])
	}

	strat, err := f.Labels("Strategy")
	if err != nil {
		t.Fatal(err)
	}
	if strat[0] != "L_EURUSD_1" || strat[1] != "S_GBPUSD_2" {
		t.Errorf("Strategy = %v", strat)
	}
}

func TestReadCSVMissingTimeColumn(t *testing.T) {
	path := writeFile(t, "t.csv", "A,B\n1,2\n")
	if _, err := ReadCSV(path, "Date", time.UTC); err == nil {
		t.Fatal("expected missing time column error")
	}
}

func TestReadCSVUTF16(t *testing.T) {
	content := "Date,PnL\n2022-06-01 10:00:00,1.5\n"
	raw := []byte{0xFF, 0xFE}
	for _, r := range content {
		raw = append(raw, byte(r), 0x00)
	}
	path := filepath.Join(t.TempDir(), "utf16.csv")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := ReadCSV(path, "Date", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 1 {
		t.Fatalf("got %d rows, want 1", f.Len())
	}
	pnl, err := f.Values("PnL")
	if err != nil {
		t.Fatal(err)
	}
	if pnl[0] != 1.5 {
		t.Errorf("PnL[0] = %v", pnl[0])
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	f := NewFrame("Date", time.UTC)
	f.SetLabels("Strategy", nil)
	f.SetValues("PnL", nil)
	f.SetValues("Sharpe", nil)
	ts := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	f.AppendRow(ts, map[string]float64{"PnL": 10, "Sharpe": 1.25}, map[string]string{"Strategy": "L_EURUSD_1"})
	f.AppendRow(ts.Add(time.Hour), map[string]float64{"PnL": -4}, map[string]string{"Strategy": "S_GBPUSD_2"})

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteCSV(f, path); err != nil {
		t.Fatal(err)
	}

	back, err := ReadCSV(path, "Date", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != 2 {
		t.Fatalf("got %d rows, want 2", back.Len())
	}
	sharpe, err := back.Values("Sharpe")
	if err != nil {
		t.Fatal(err)
	}
	if sharpe[0] != 1.25 {
		t.Errorf("Sharpe[0] = %v", sharpe[0])
	}
	if !math.IsNaN(sharpe[1]) {
		t.Errorf("NaN cell should round-trip empty, got %v", sharpe[1])
	}
	strat, err := back.Labels("Strategy")
	if err != nil {
		t.Fatal(err)
	}
	if strat[1] != "S_GBPUSD_2" {
		t.Errorf("Strategy[1] = %q", strat[1])
	}
}
