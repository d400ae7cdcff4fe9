package walkforward

import (
	"context"
	"fmt"
	"math"
	"testing"

	"fxresearch/services/timeseries"
)

func TestRunnerCollectsOneRowPerPeriod(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Hourly))
	start, end := hour(2021, 6, 1, 0), hour(2022, 12, 31, 23)
	periods, err := g.Periods(start, end)
	if err != nil {
		t.Fatal(err)
	}
	f := hourlyFrame(t, start, end)

	r := NewRunner(periods, "Date", nil)
	rows, err := r.Run("L_EURUSD_1", f, func(p Period, train, test *timeseries.Frame) (map[string]float64, error) {
		return map[string]float64{
			"TrainRows": float64(train.Len()),
			"TestRows":  float64(test.Len()),
		}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(periods) {
		t.Fatalf("got %d rows, want %d", len(rows), len(periods))
	}
	for i, row := range rows {
		if row.Entity != "L_EURUSD_1" {
			t.Errorf("row %d entity = %q", i, row.Entity)
		}
		if row.Values["TestRows"] == 0 {
			t.Errorf("row %d: empty test window inside data range", i)
		}
	}
}

func TestRunnerPropagatesStatErrors(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Hourly))
	periods, err := g.Periods(hour(2021, 6, 1, 0), hour(2022, 12, 31, 23))
	if err != nil {
		t.Fatal(err)
	}
	f := hourlyFrame(t, hour(2021, 6, 1, 0), hour(2022, 12, 31, 23))

	r := NewRunner(periods, "Date", nil)
	wantErr := fmt.Errorf("degenerate ratio")
	_, err = r.Run("S_GBPUSD_2", f, func(Period, *timeseries.Frame, *timeseries.Frame) (map[string]float64, error) {
		return nil, wantErr
	})
	if err == nil {
		t.Fatal("expected error from statistic")
	}
}

func TestRunEntitiesMatchesSequentialOrder(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Hourly))
	start, end := hour(2021, 6, 1, 0), hour(2022, 12, 31, 23)
	periods, err := g.Periods(start, end)
	if err != nil {
		t.Fatal(err)
	}

	entities := []string{"L_EURUSD_1", "S_EURUSD_2", "L_GBPUSD_3", "S_GBPUSD_4"}
	frames := make(map[string]*timeseries.Frame, len(entities))
	for _, e := range entities {
		frames[e] = hourlyFrame(t, start, end)
	}

	stat := func(p Period, train, test *timeseries.Frame) (map[string]float64, error) {
		return map[string]float64{"TestRows": float64(test.Len())}, nil
	}

	r := NewRunner(periods, "Date", nil)
	parallel, err := r.RunEntities(context.Background(), entities, frames, stat, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(parallel) != len(entities)*len(periods) {
		t.Fatalf("got %d rows, want %d", len(parallel), len(entities)*len(periods))
	}
	// Result order must follow entity order, then period order.
	i := 0
	for _, e := range entities {
		for _, p := range periods {
			row := parallel[i]
			if row.Entity != e || !row.Period.TestStart.Equal(p.TestStart) {
				t.Fatalf("row %d out of order: entity %s period %s", i, row.Entity, row.Period.Label())
			}
			i++
		}
	}
}

func TestRunEntitiesZeroPeriodsIsGraceful(t *testing.T) {
	r := NewRunner(nil, "Date", nil)
	rows, err := r.RunEntities(context.Background(), []string{"L_EURUSD_1"},
		map[string]*timeseries.Frame{"L_EURUSD_1": hourlyFrame(t, hour(2022, 1, 1, 0), hour(2022, 1, 1, 5))},
		func(Period, *timeseries.Frame, *timeseries.Frame) (map[string]float64, error) {
			t.Fatal("statistic must not run with zero periods")
			return nil, nil
		}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(rows))
	}
}

func TestRowsFrame(t *testing.T) {
	p := Period{
		TrainStart: hour(2021, 6, 1, 0), TrainEnd: hour(2022, 5, 31, 23),
		TestStart: hour(2022, 6, 1, 0), TestEnd: hour(2022, 6, 30, 23),
	}
	rows := []Row{
		{Period: p, Entity: "L_EURUSD_1", Values: map[string]float64{"Precision": 0.61}},
		{Period: p, Entity: "S_GBPUSD_2", Values: map[string]float64{"Precision": 0.47}},
	}
	f := RowsFrame(rows, "Strategy", []string{"Precision", "Combined_Ratio"})
	if f.Len() != 2 {
		t.Fatalf("got %d rows, want 2", f.Len())
	}
	names, err := f.Labels("Strategy")
	if err != nil {
		t.Fatal(err)
	}
	if names[0] != "L_EURUSD_1" || names[1] != "S_GBPUSD_2" {
		t.Errorf("labels = %v", names)
	}
	combined, err := f.Values("Combined_Ratio")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(combined[0]) {
		t.Error("missing statistic value should be NaN")
	}
}
