// Scores every strategy's trade timing per walk-forward period: trade log
// plus its pair's candles in, six-ratio table per period out.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/config"
	"fxresearch/services/effectiveness"
	"fxresearch/services/timeseries"
	"fxresearch/services/walkforward"
)

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("strategyeffectiveness", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	tradesPath := fs.String("trades", "", "trade log CSV (default <data>/trades.csv)")
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

	gen, err := walkforward.NewGenerator(cfg.WindowConfig())
	if err != nil {
		logger.Fatal("generator", zap.Error(err))
	}
	periods, err := gen.Periods(cfg.GlobalStart, cfg.GlobalEnd)
	if err != nil {
		logger.Fatal("periods", zap.Error(err))
	}
	logger.Info("generated periods", zap.Int("count", len(periods)))

	trades, err := timeseries.ReadTrades(*tradesPath, time.UTC)
	if err != nil {
		logger.Fatal("load trades", zap.Error(err))
	}
	strategies := timeseries.TradeStrategies(trades)
	hours := timeseries.HourlyRange(cfg.GlobalStart, cfg.GlobalEnd)

	// One forward close-change series per symbol.
	changesBySymbol := make(map[string][]float64, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		candles, _, err := timeseries.ReadCandles(filepath.Join(cfg.DataDir, symbol+"_hourly.csv"), time.UTC)
		if err != nil {
			logger.Fatal("load candles", zap.String("symbol", symbol), zap.Error(err))
		}
		frame := timeseries.CandleFrame(candles, time.UTC)
		sub, err := frame.FilterRange(cfg.GlobalStart, cfg.GlobalEnd)
		if err != nil {
			logger.Fatal("filter candles", zap.String("symbol", symbol), zap.Error(err))
		}
		closes, err := sub.Values("Close")
		if err != nil {
			logger.Fatal("close column", zap.String("symbol", symbol), zap.Error(err))
		}
		changes := effectiveness.CloseChanges(closes)
		// Align onto the global clock; hours the broker skipped stay NaN.
		aligned := make([]float64, len(hours))
		index := make(map[time.Time]int, sub.Len())
		for i, ts := range sub.Times {
			index[ts] = i
		}
		for i, ts := range hours {
			if j, ok := index[ts]; ok {
				aligned[i] = changes[j]
			}
		}
		changesBySymbol[symbol] = aligned
	}

	frames := make(map[string]*timeseries.Frame, len(strategies))
	for _, name := range strategies {
		symbol := pairOf(name, cfg.Symbols)
		if symbol == "" {
			logger.Fatal("no candle data for strategy", zap.String("strategy", name))
		}
		status := effectiveness.OpenHours(trades, name, hours)
		frames[name] = effectiveness.MergedFrame(hours, status, changesBySymbol[symbol], time.UTC)
	}

	runner := walkforward.NewRunner(periods, "Date", logger)
	var rows []walkforward.Row
	for _, name := range strategies {
		isLong := strings.HasPrefix(name, "L_")
		out, err := runner.Run(name, frames[name], effectiveness.Stat(isLong))
		if err != nil {
			logger.Fatal("ratio calculation", zap.String("strategy", name), zap.Error(err))
		}
		rows = append(rows, out...)
	}

	table := walkforward.RowsFrame(rows, "Strategy", effectiveness.RatioColumns)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal(err)
	}
	out := filepath.Join(cfg.OutputDir, "strategy_ratios.csv")
	if err := timeseries.WriteCSV(table, out); err != nil {
		logger.Fatal("write", zap.Error(err))
	}

	manifest := cfg.NewManifest("strategyeffectiveness")
	manifest.Outputs = append(manifest.Outputs, out)
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("ratio table written",
		zap.Int("strategies", len(strategies)),
		zap.Int("rows", table.Len()),
	)
}

// pairOf matches a strategy name like L_EURUSD_1 to its symbol.
func pairOf(strategy string, symbols []string) string {
	for _, s := range symbols {
		if strings.Contains(strategy, s) {
			return s
		}
	}
	return ""
}
