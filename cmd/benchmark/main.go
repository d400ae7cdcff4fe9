// Runs the passive baselines: the equal-weighted portfolio over every
// strategy and the Monte Carlo envelope of random monthly portfolios.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"fxresearch/services/benchmark"
	"fxresearch/services/config"
	"fxresearch/services/timeseries"
)

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("benchmark", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	pnlPath := fs.String("pnl", "", "strategy PnL CSV (default <out>/strategy_pnl.csv)")
	trials := fs.Int("trials", 1000, "monte carlo trials")
	portfolio := fs.Int("portfolio", 10, "strategies picked per month")
	seed := fs.Int64("seed", 42, "simulation seed")
	fs.Parse(os.Args[1:])
	if err := cfg.Finalize(*start, *end, *gran); err != nil {
		log.Fatal(err)
	}
	if *pnlPath == "" {
		*pnlPath = filepath.Join(cfg.OutputDir, "strategy_pnl.csv")
	}

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	f, err := timeseries.ReadCSV(*pnlPath, "Date", time.UTC)
	if err != nil {
		logger.Fatal("load pnl table", zap.Error(err))
	}
	alloc, err := benchmark.FromFrame(f, "Strategy")
	if err != nil {
		logger.Fatal("build allocation", zap.Error(err))
	}

	equal := benchmark.EqualWeighted(alloc)

	mcCfg := benchmark.DefaultConfig(*seed)
	mcCfg.Trials = *trials
	mcCfg.Portfolio = *portfolio
	mcCfg.Workers = cfg.Workers
	mcCfg.Strategies = len(alloc.Strategies)
	env, err := benchmark.MonteCarlo(context.Background(), alloc, mcCfg, logger)
	if err != nil {
		logger.Fatal("monte carlo", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal(err)
	}
	out := filepath.Join(cfg.OutputDir, "benchmark.csv")
	if err := timeseries.WriteCSV(env.EnvelopeFrame(equal, time.UTC), out); err != nil {
		logger.Fatal("write benchmark", zap.Error(err))
	}

	manifest := cfg.NewManifest("benchmark")
	manifest.Outputs = append(manifest.Outputs, out)
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}

	last := len(env.Times) - 1
	color.Cyan("benchmark over %d strategies, %d trials of %d",
		len(alloc.Strategies), mcCfg.Trials, mcCfg.Portfolio)
	color.Green("equal weighted final PnL: %.4f", equal[last])
	color.Yellow("monte carlo mean:        %.4f  [%.4f, %.4f]",
		env.Mean[last], env.Min[last], env.Max[last])
	logger.Info("benchmark written", zap.String("out", out), zap.Int("hours", len(env.Times)))
}
