// Computes the rolling performance table for every strategy in the trade
// log, fanned across a worker pool, one combined CSV out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/config"
	"fxresearch/services/metrics"
	"fxresearch/services/timeseries"
)

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("strategyperformance", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	tradesPath := fs.String("trades", "", "trade log CSV (default <data>/trades.csv)")
	window := fs.Int("window", metrics.DefaultWindow, "rolling window in hours")
	fs.Parse(os.Args[1:])
	if err := cfg.Finalize(*start, *end, *gran); err != nil {
		log.Fatal(err)
	}
	if *tradesPath == "" {
		*tradesPath = filepath.Join(cfg.DataDir, "trades.csv")
	}

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	trades, err := timeseries.ReadTrades(*tradesPath, time.UTC)
	if err != nil {
		logger.Fatal("load trades", zap.Error(err))
	}
	strategies := timeseries.TradeStrategies(trades)
	logger.Info("loaded trade log",
		zap.Int("trades", len(trades)),
		zap.Int("strategies", len(strategies)),
	)

	// Hourly PnL per strategy on the shared clock.
	pnlFrames := make(map[string]*timeseries.Frame, len(strategies))
	for _, name := range strategies {
		f := timeseries.NewFrame("Open_Time", time.UTC)
		f.SetValues("PnL", nil)
		for _, tr := range trades {
			if tr.Strategy != name {
				continue
			}
			if err := f.AppendRow(tr.CloseTime, map[string]float64{"PnL": tr.PnL.InexactFloat64()}, nil); err != nil {
				logger.Fatal("append trade", zap.String("strategy", name), zap.Error(err))
			}
		}
		pnlFrames[name] = f
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	params := metrics.Params{Window: *window}

	results := make([]*timeseries.Frame, len(strategies))
	jobs := make(chan int, len(strategies))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				name := strategies[i]
				hours, pnl, err := metrics.ReindexHourly(pnlFrames[name], "Open_Time", cfg.GlobalStart, cfg.GlobalEnd)
				if err == nil {
					results[i], err = metrics.Compute(name, hours, pnl, params, time.UTC)
				}
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("strategy %s: %w", name, err)
					}
					mu.Unlock()
				}
			}
		}()
	}
	for i := range strategies {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if firstErr != nil {
		logger.Fatal("compute metrics", zap.Error(firstErr))
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal(err)
	}
	manifest := cfg.NewManifest("strategyperformance")
	for i, name := range strategies {
		out := filepath.Join(cfg.OutputDir, name+"_performance.csv")
		if err := timeseries.WriteCSV(results[i], out); err != nil {
			logger.Fatal("write", zap.String("strategy", name), zap.Error(err))
		}
		manifest.Outputs = append(manifest.Outputs, out)
	}
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("performance tables written", zap.Int("strategies", len(strategies)))
}
