// Downloads monthly candle archives from the broker mirror into the local
// data directory. Already-present months are skipped.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/config"
	"fxresearch/services/fetchcandles"
)

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("fetchcandles", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	timeout := fs.Duration("timeout", 30*time.Second, "per-request timeout")
	fs.Parse(os.Args[1:])
	if err := cfg.Finalize(*start, *end, *gran); err != nil {
		log.Fatal(err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	client := fetchcandles.NewClient(cfg.ArchiveBaseURL, *timeout, logger)
	paths, err := client.FetchRange(context.Background(), cfg.Symbols, cfg.GlobalStart, cfg.GlobalEnd, cfg.DataDir)
	if err != nil {
		logger.Fatal("fetch", zap.Int("fetched", len(paths)), zap.Error(err))
	}

	manifest := cfg.NewManifest("fetchcandles")
	manifest.Outputs = append(manifest.Outputs, paths...)
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("archives fetched", zap.Int("files", len(paths)))
}
