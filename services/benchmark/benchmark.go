// Package benchmark produces the passive baselines the ranked portfolio is
// judged against: an equal-weighted portfolio across every strategy and a
// Monte Carlo benchmark that rebalances into a fresh random selection each
// month. Trials are independent and run on a bounded worker pool; the seed
// fixes the whole simulation.
package benchmark

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/timeseries"
)

// Config sizes the Monte Carlo run.
type Config struct {
	Trials     int
	Portfolio  int // strategies picked per month
	Seed       int64
	Workers    int
	Strategies int // total universe size, informational
}

// DefaultConfig mirrors the standard 1000x10 simulation.
func DefaultConfig(seed int64) Config {
	return Config{Trials: 1000, Portfolio: 10, Seed: seed}
}

// Allocation is the input table: per (hour, strategy) PnL change.
type Allocation struct {
	Times      []time.Time
	Strategies []string
	PnL        map[string][]float64 // strategy -> series aligned with Times
}

// FromFrame splits a strategy-labelled hourly PnL frame into per-strategy
// series on the union clock of the frame.
func FromFrame(f *timeseries.Frame, strategyColumn string) (*Allocation, error) {
	pnl, err := f.Values("PnL")
	if err != nil {
		return nil, err
	}
	labels, err := f.Labels(strategyColumn)
	if err != nil {
		return nil, err
	}

	seenTime := make(map[time.Time]int)
	var times []time.Time
	for _, ts := range f.Times {
		if _, ok := seenTime[ts]; !ok {
			seenTime[ts] = len(times)
			times = append(times, ts)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i, ts := range times {
		seenTime[ts] = i
	}

	a := &Allocation{Times: times, PnL: make(map[string][]float64)}
	for i, ts := range f.Times {
		name := labels[i]
		series, ok := a.PnL[name]
		if !ok {
			series = make([]float64, len(times))
			a.PnL[name] = series
			a.Strategies = append(a.Strategies, name)
		}
		if !math.IsNaN(pnl[i]) {
			series[seenTime[ts]] += pnl[i]
		}
	}
	sort.Strings(a.Strategies)
	return a, nil
}

// EqualWeighted is the cumulative mean PnL across the whole universe.
func EqualWeighted(a *Allocation) []float64 {
	n := len(a.Strategies)
	out := make([]float64, len(a.Times))
	if n == 0 {
		return out
	}
	acc := 0.0
	for i := range a.Times {
		hourSum := 0.0
		for _, name := range a.Strategies {
			hourSum += a.PnL[name][i]
		}
		acc += hourSum / float64(n)
		out[i] = acc
	}
	return out
}

// Envelope summarizes the trials per hour.
type Envelope struct {
	Times []time.Time
	Mean  []float64
	Min   []float64
	Max   []float64
}

// MonteCarlo runs cfg.Trials simulations. Each trial walks the months of
// the clock, draws cfg.Portfolio distinct strategies for that month and
// accrues their mean PnL into the trial's cumulative series. Trial t uses
// seed cfg.Seed+t, so results are reproducible regardless of worker count.
func MonteCarlo(ctx context.Context, a *Allocation, cfg Config, logger *zap.Logger) (*Envelope, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("benchmark: %d trials", cfg.Trials)
	}
	if cfg.Portfolio <= 0 || cfg.Portfolio > len(a.Strategies) {
		return nil, fmt.Errorf("benchmark: portfolio size %d against %d strategies", cfg.Portfolio, len(a.Strategies))
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Month boundaries over the clock, in index space.
	var monthStart []int
	var lastMonth time.Time
	for i, ts := range a.Times {
		m := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
		if i == 0 || !m.Equal(lastMonth) {
			monthStart = append(monthStart, i)
			lastMonth = m
		}
	}

	logger.Info("running monte carlo benchmark",
		zap.Int("trials", cfg.Trials),
		zap.Int("portfolio", cfg.Portfolio),
		zap.Int("months", len(monthStart)),
		zap.Int("workers", workers),
	)

	trials := make([][]float64, cfg.Trials)
	jobs := make(chan int, cfg.Trials)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				select {
				case <-ctx.Done():
					select {
					case errCh <- ctx.Err():
					default:
					}
					return
				default:
				}
				trials[t] = runTrial(a, monthStart, cfg.Portfolio, cfg.Seed+int64(t))
			}
		}()
	}
	for t := 0; t < cfg.Trials; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	env := &Envelope{
		Times: a.Times,
		Mean:  make([]float64, len(a.Times)),
		Min:   make([]float64, len(a.Times)),
		Max:   make([]float64, len(a.Times)),
	}
	for i := range a.Times {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for t := 0; t < cfg.Trials; t++ {
			v := trials[t][i]
			sum += v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		env.Mean[i] = sum / float64(cfg.Trials)
		env.Min[i] = lo
		env.Max[i] = hi
	}
	return env, nil
}

func runTrial(a *Allocation, monthStart []int, portfolio int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, len(a.Times))
	acc := 0.0
	for m, start := range monthStart {
		end := len(a.Times)
		if m+1 < len(monthStart) {
			end = monthStart[m+1]
		}
		picks := rng.Perm(len(a.Strategies))[:portfolio]
		for i := start; i < end; i++ {
			hourSum := 0.0
			for _, p := range picks {
				hourSum += a.PnL[a.Strategies[p]][i]
			}
			acc += hourSum / float64(portfolio)
			out[i] = acc
		}
	}
	return out
}

// EnvelopeFrame renders the envelope and the equal-weighted series as one
// output table.
func (e *Envelope) EnvelopeFrame(equalWeighted []float64, loc *time.Location) *timeseries.Frame {
	f := timeseries.NewFrame("Date", loc)
	f.Times = e.Times
	f.SetValues("MC_Mean", e.Mean)
	f.SetValues("MC_Min", e.Min)
	f.SetValues("MC_Max", e.Max)
	if len(equalWeighted) == len(e.Times) {
		f.SetValues("Equal_Weighted", equalWeighted)
	}
	return f
}
