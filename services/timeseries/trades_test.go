package timeseries

import (
	"strings"
	"testing"
	"time"
)

func TestReadTrades(t *testing.T) {
	path := writeFile(t, "trades.csv",
		"pnl,strategy_name,open_time,close_time\n"+
			"1.5,L_EURUSD_1,2022-06-01 10:30:00,2022-06-01 14:00:00\n"+
			"-0.25,S_GBPUSD_2,2022-06-02 09:00:00,2022-06-02 09:45:00\n"+
			"0.75,L_EURUSD_1,2022-06-03 11:00:00,2022-06-03 12:00:00\n")
	trades, err := ReadTrades(path, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 3 {
		t.Fatalf("got %d trades, want 3", len(trades))
	}
	if trades[0].Strategy != "L_EURUSD_1" {
		t.Errorf("strategy = %q", trades[0].Strategy)
	}
	if !trades[0].OpenTime.Equal(time.Date(2022, 6, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("open = %s", trades[0].OpenTime)
	}
	if trades[1].PnL.String() != "-0.25" {
		t.Errorf("pnl = %s", trades[1].PnL)
	}

	names := TradeStrategies(trades)
	if len(names) != 2 || names[0] != "L_EURUSD_1" || names[1] != "S_GBPUSD_2" {
		t.Errorf("strategies = %v", names)
	}
}

func TestReadTradesMissingColumn(t *testing.T) {
	path := writeFile(t, "trades.csv",
		"strategy_name,open_time,close_time\n"+
			"L_EURUSD_1,2022-06-01 10:30:00,2022-06-01 14:00:00\n")
	_, err := ReadTrades(path, time.UTC)
	if err == nil || !strings.Contains(err.Error(), "pnl") {
		t.Fatalf("err = %v, want missing pnl column", err)
	}
}

func TestReadTradesTruncatedRow(t *testing.T) {
	// The reader accepts ragged rows, so a short final row must surface as
	// a descriptive error naming the absent cell, not a panic.
	path := writeFile(t, "trades.csv",
		"strategy_name,open_time,close_time,pnl\n"+
			"L_EURUSD_1,2022-06-01 10:30:00,2022-06-01 14:00:00,1.5\n"+
			"S_GBPUSD_2,2022-06-02 09:00:00\n")
	_, err := ReadTrades(path, time.UTC)
	if err == nil {
		t.Fatal("expected error for truncated row")
	}
	if !strings.Contains(err.Error(), "line 3") || !strings.Contains(err.Error(), "close_time") {
		t.Errorf("err = %v, want line 3 missing close_time", err)
	}
}

func TestReadTradesCloseBeforeOpen(t *testing.T) {
	path := writeFile(t, "trades.csv",
		"strategy_name,open_time,close_time,pnl\n"+
			"L_EURUSD_1,2022-06-01 14:00:00,2022-06-01 10:00:00,1.5\n")
	if _, err := ReadTrades(path, time.UTC); err == nil {
		t.Fatal("expected error for close before open")
	}
}
