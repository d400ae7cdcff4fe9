// Builds the monthly top-N ranking table from the trade log and projects it
// onto the hourly clock as the regression target.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/config"
	"fxresearch/services/metrics"
	"fxresearch/services/ranking"
	"fxresearch/services/timeseries"
)

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("rankstrategies", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	tradesPath := fs.String("trades", "", "trade log CSV (default <data>/trades.csv)")
	topN := fs.Int("top-n", ranking.DefaultTopN, "strategies ranked per month")
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

	// One strategy-labelled hourly PnL table on the shared clock. The
	// benchmark tool reads the same file.
	combined := timeseries.NewFrame("Date", time.UTC)
	combined.SetLabels("Strategy", nil)
	combined.SetValues("PnL", nil)
	for _, name := range strategies {
		f := timeseries.NewFrame("Date", time.UTC)
		f.SetValues("PnL", nil)
		for _, tr := range trades {
			if tr.Strategy != name {
				continue
			}
			if err := f.AppendRow(tr.CloseTime, map[string]float64{"PnL": tr.PnL.InexactFloat64()}, nil); err != nil {
				logger.Fatal("append trade", zap.String("strategy", name), zap.Error(err))
			}
		}
		hours, pnl, err := metrics.ReindexHourly(f, "Date", cfg.GlobalStart, cfg.GlobalEnd)
		if err != nil {
			logger.Fatal("reindex", zap.String("strategy", name), zap.Error(err))
		}
		for i, ts := range hours {
			combined.AppendRow(ts, map[string]float64{"PnL": pnl[i]}, map[string]string{"Strategy": name})
		}
	}

	monthly, err := ranking.AggregateMonthly(combined, "Strategy")
	if err != nil {
		logger.Fatal("aggregate monthly", zap.Error(err))
	}
	ranked := ranking.TopN(monthly, *topN)
	logger.Info("ranked strategies",
		zap.Int("strategies", len(strategies)),
		zap.Int("ranked_rows", len(ranked)),
	)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal(err)
	}
	manifest := cfg.NewManifest("rankstrategies")

	pnlOut := filepath.Join(cfg.OutputDir, "strategy_pnl.csv")
	if err := timeseries.WriteCSV(combined, pnlOut); err != nil {
		logger.Fatal("write pnl table", zap.Error(err))
	}
	rankOut := filepath.Join(cfg.OutputDir, "strategy_ranking.csv")
	if err := timeseries.WriteCSV(ranking.Table(ranked, time.UTC), rankOut); err != nil {
		logger.Fatal("write ranking table", zap.Error(err))
	}
	hourly := ranking.ExtrapolateHourly(ranked, time.UTC)
	hourlyOut := filepath.Join(cfg.OutputDir, "hourly_ranks.csv")
	if err := timeseries.WriteCSV(hourly, hourlyOut); err != nil {
		logger.Fatal("write hourly ranks", zap.Error(err))
	}

	manifest.Outputs = append(manifest.Outputs, pnlOut, rankOut, hourlyOut)
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("ranking written",
		zap.String("table", rankOut),
		zap.Int("hourly_rows", hourly.Len()),
	)
}
