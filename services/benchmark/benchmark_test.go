package benchmark

import (
	"context"
	"math"
	"testing"
	"time"

	"fxresearch/services/timeseries"
)

func testAllocation(t *testing.T, strategies int, hours int) *Allocation {
	t.Helper()
	f := timeseries.NewFrame("Date", time.UTC)
	f.SetValues("PnL", nil)
	f.SetLabels("Strategy", nil)
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < hours; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		for s := 0; s < strategies; s++ {
			name := string(rune('A' + s))
			if err := f.AppendRow(ts, map[string]float64{"PnL": float64(s + 1)},
				map[string]string{"Strategy": name}); err != nil {
				t.Fatal(err)
			}
		}
	}
	a, err := FromFrame(f, "Strategy")
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestFromFrame(t *testing.T) {
	a := testAllocation(t, 3, 5)
	if len(a.Strategies) != 3 {
		t.Fatalf("got %d strategies, want 3", len(a.Strategies))
	}
	if len(a.Times) != 5 {
		t.Fatalf("got %d hours, want 5", len(a.Times))
	}
	if a.PnL["B"][0] != 2 {
		t.Errorf("B PnL = %v, want 2", a.PnL["B"][0])
	}
}

func TestEqualWeighted(t *testing.T) {
	// Three strategies paying 1, 2, 3 per hour: mean 2 per hour, cumulative.
	a := testAllocation(t, 3, 4)
	got := EqualWeighted(a)
	want := []float64{2, 4, 6, 8}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("cum[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMonteCarloDeterministicForSeed(t *testing.T) {
	a := testAllocation(t, 8, 50)
	cfg := Config{Trials: 20, Portfolio: 3, Seed: 7, Workers: 4}

	e1, err := MonteCarlo(context.Background(), a, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workers = 1
	e2, err := MonteCarlo(context.Background(), a, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range e1.Mean {
		if e1.Mean[i] != e2.Mean[i] || e1.Min[i] != e2.Min[i] || e1.Max[i] != e2.Max[i] {
			t.Fatal("trial results must not depend on worker count")
		}
	}
}

func TestMonteCarloEnvelopeOrdering(t *testing.T) {
	a := testAllocation(t, 8, 30)
	env, err := MonteCarlo(context.Background(), a, Config{Trials: 50, Portfolio: 3, Seed: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range env.Mean {
		if env.Min[i] > env.Mean[i] || env.Mean[i] > env.Max[i] {
			t.Fatalf("envelope out of order at %d: %v %v %v", i, env.Min[i], env.Mean[i], env.Max[i])
		}
	}
}

func TestMonteCarloMonthlyRebalance(t *testing.T) {
	// Two months of data; with a portfolio equal to the universe every trial
	// must match the equal-weighted benchmark exactly.
	f := timeseries.NewFrame("Date", time.UTC)
	f.SetValues("PnL", nil)
	f.SetLabels("Strategy", nil)
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*61; h += 12 {
		ts := start.Add(time.Duration(h) * time.Hour)
		for s := 0; s < 4; s++ {
			name := string(rune('A' + s))
			f.AppendRow(ts, map[string]float64{"PnL": float64(s)}, map[string]string{"Strategy": name})
		}
	}
	a, err := FromFrame(f, "Strategy")
	if err != nil {
		t.Fatal(err)
	}

	env, err := MonteCarlo(context.Background(), a, Config{Trials: 5, Portfolio: 4, Seed: 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ew := EqualWeighted(a)
	for i := range ew {
		if math.Abs(env.Mean[i]-ew[i]) > 1e-9 || math.Abs(env.Min[i]-env.Max[i]) > 1e-9 {
			t.Fatalf("full-universe portfolio must equal the benchmark at %d", i)
		}
	}
}

func TestMonteCarloRejectsOversizedPortfolio(t *testing.T) {
	a := testAllocation(t, 3, 10)
	if _, err := MonteCarlo(context.Background(), a, Config{Trials: 5, Portfolio: 10, Seed: 1}, nil); err == nil {
		t.Fatal("expected error for portfolio larger than universe")
	}
}

func TestEnvelopeFrame(t *testing.T) {
	a := testAllocation(t, 4, 10)
	env, err := MonteCarlo(context.Background(), a, Config{Trials: 10, Portfolio: 2, Seed: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	frame := env.EnvelopeFrame(EqualWeighted(a), time.UTC)
	for _, col := range []string{"MC_Mean", "MC_Min", "MC_Max", "Equal_Weighted"} {
		if !frame.HasColumn(col) {
			t.Errorf("missing column %s", col)
		}
	}
	if frame.Len() != 10 {
		t.Fatalf("got %d rows, want 10", frame.Len())
	}
}
