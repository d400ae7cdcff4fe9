// Loads broker candle CSVs into the ClickHouse archive. Re-running over the
// same files is safe; the store collapses duplicates.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/candlestore"
	"fxresearch/services/config"
	"fxresearch/services/timeseries"
)

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("ingestcandles", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	export := fs.Bool("export", false, "read the global range back and write <out>/<symbol>_store.csv")
	fs.Parse(os.Args[1:])
	if err := cfg.Finalize(*start, *end, *gran); err != nil {
		log.Fatal(err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := candlestore.Open(ctx, candlestore.Options{
		DSN:      cfg.ClickHouseDSN,
		Database: cfg.CHDatabase,
		Table:    cfg.CHTable,
		User:     cfg.CHUser,
		Password: cfg.CHPassword,
	}, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	total := 0
	for _, symbol := range cfg.Symbols {
		in := filepath.Join(cfg.DataDir, symbol+"_hourly.csv")
		candles, dropped, err := timeseries.ReadCandles(in, time.UTC)
		if err != nil {
			logger.Fatal("load candles", zap.String("symbol", symbol), zap.Error(err))
		}
		if dropped > 0 {
			logger.Warn("dropped duplicate candles", zap.String("symbol", symbol), zap.Int("dropped", dropped))
		}
		n, err := store.InsertCandles(ctx, symbol, candles)
		if err != nil {
			logger.Fatal("insert", zap.String("symbol", symbol), zap.Error(err))
		}
		total += n

		stored, err := store.CountCandles(ctx, symbol)
		if err != nil {
			logger.Fatal("count", zap.String("symbol", symbol), zap.Error(err))
		}
		logger.Info("symbol ingested",
			zap.String("symbol", symbol),
			zap.Int("inserted", n),
			zap.Uint64("stored", stored),
		)

		if *export {
			back, err := store.QueryRange(ctx, symbol, cfg.GlobalStart, cfg.GlobalEnd)
			if err != nil {
				logger.Fatal("query range", zap.String("symbol", symbol), zap.Error(err))
			}
			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				log.Fatal(err)
			}
			out := filepath.Join(cfg.OutputDir, symbol+"_store.csv")
			if err := timeseries.WriteCSV(timeseries.CandleFrame(back, time.UTC), out); err != nil {
				logger.Fatal("write export", zap.String("symbol", symbol), zap.Error(err))
			}
			logger.Info("store exported", zap.String("symbol", symbol), zap.Int("rows", len(back)))
		}
	}

	manifest := cfg.NewManifest("ingestcandles")
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("ingest complete", zap.Int("rows", total), zap.Int("symbols", len(cfg.Symbols)))
}
