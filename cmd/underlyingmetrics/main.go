// Builds the indicator table for each symbol: broker candle CSV in,
// enriched derived table out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/arrowexport"
	"fxresearch/services/config"
	"fxresearch/services/indicators"
	"fxresearch/services/timeseries"
)

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("underlyingmetrics", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	arrowOut := fs.Bool("arrow", false, "also write Arrow IPC files")
	fs.Parse(os.Args[1:])
	if err := cfg.Finalize(*start, *end, *gran); err != nil {
		log.Fatal(err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal(err)
	}
	manifest := cfg.NewManifest("underlyingmetrics")

	for _, symbol := range cfg.Symbols {
		in := filepath.Join(cfg.DataDir, symbol+"_hourly.csv")
		candles, dropped, err := timeseries.ReadCandles(in, time.UTC)
		if err != nil {
			logger.Fatal("load candles", zap.String("symbol", symbol), zap.Error(err))
		}
		if dropped > 0 {
			logger.Warn("dropped duplicate candles", zap.String("symbol", symbol), zap.Int("dropped", dropped))
		}

		frame := timeseries.CandleFrame(candles, time.UTC)
		sub, err := frame.FilterRange(cfg.GlobalStart, cfg.GlobalEnd)
		if err != nil {
			logger.Fatal("filter range", zap.String("symbol", symbol), zap.Error(err))
		}
		if gaps := sub.DetectGaps(time.Hour); len(gaps) > 0 {
			logger.Warn("gaps in candle series", zap.String("symbol", symbol), zap.Int("gaps", len(gaps)))
		}

		if err := indicators.Enrich(sub, indicators.DefaultParams()); err != nil {
			logger.Fatal("enrich", zap.String("symbol", symbol), zap.Error(err))
		}

		out := filepath.Join(cfg.OutputDir, symbol+"_metrics.csv")
		if err := timeseries.WriteCSV(sub, out); err != nil {
			logger.Fatal("write", zap.String("symbol", symbol), zap.Error(err))
		}
		manifest.Outputs = append(manifest.Outputs, out)

		if *arrowOut {
			arrowPath := filepath.Join(cfg.OutputDir, symbol+"_metrics.arrow")
			if err := arrowexport.EncodeFile(sub, arrowPath); err != nil {
				logger.Fatal("arrow export", zap.String("symbol", symbol), zap.Error(err))
			}
			manifest.Outputs = append(manifest.Outputs, arrowPath)
		}

		logger.Info("indicator table written",
			zap.String("symbol", symbol),
			zap.Int("rows", sub.Len()),
			zap.String("out", out),
		)
	}

	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("done: %d symbols\n", len(cfg.Symbols))
}
