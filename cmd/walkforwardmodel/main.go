// Runs the walk-forward model comparison: per strategy, fit OLS and SGD on
// each training window of indicator features against the hourly rank target
// and predict the test window. Hourly predictions and the month-shifted
// pivot both go out as CSV.
package main

import (
	"flag"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/config"
	"fxresearch/services/ranking"
	"fxresearch/services/regression"
	"fxresearch/services/timeseries"
	"fxresearch/services/walkforward"
)

const defaultFeatures = "RSI_14,MACD,ADX,ROC_12,CMF_20,Stochastic_K,Bollinger_Width"

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("walkforwardmodel", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	ranksPath := fs.String("ranks", "", "hourly rank CSV (default <out>/hourly_ranks.csv)")
	featureList := fs.String("features", defaultFeatures, "comma-separated feature columns")
	seed := fs.Int64("seed", 42, "SGD shuffle seed")
	fs.Parse(os.Args[1:])
	if err := cfg.Finalize(*start, *end, *gran); err != nil {
		log.Fatal(err)
	}
	if *ranksPath == "" {
		*ranksPath = filepath.Join(cfg.OutputDir, "hourly_ranks.csv")
	}
	features := strings.Split(*featureList, ",")
	for i := range features {
		features[i] = strings.TrimSpace(features[i])
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

	ranks, err := timeseries.ReadCSV(*ranksPath, "Date", time.UTC)
	if err != nil {
		logger.Fatal("load ranks", zap.Error(err))
	}
	strategies, err := ranks.UniqueLabels("Strategy")
	if err != nil {
		logger.Fatal("rank strategies", zap.Error(err))
	}

	// Feature tables are per symbol; strategies on the same pair share one.
	featuresBySymbol := make(map[string]*timeseries.Frame, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		f, err := timeseries.ReadCSV(filepath.Join(cfg.OutputDir, symbol+"_metrics.csv"), "Date", time.UTC)
		if err != nil {
			logger.Fatal("load features", zap.String("symbol", symbol), zap.Error(err))
		}
		featuresBySymbol[symbol] = f
	}

	var merged *timeseries.Frame
	for _, name := range strategies {
		symbol := pairOf(name, cfg.Symbols)
		if symbol == "" {
			logger.Fatal("no feature table for strategy", zap.String("strategy", name))
		}
		x := featuresBySymbol[symbol]

		rankSeries, err := ranking.RankSeries(ranks, name, x.Times)
		if err != nil {
			logger.Fatal("rank series", zap.String("strategy", name), zap.Error(err))
		}
		y := timeseries.NewFrame("Date", time.UTC)
		y.Times = x.Times
		y.SetValues("Rank", rankSeries)

		models := []regression.Model{&regression.OLS{}, regression.NewSGD(*seed)}
		out, err := regression.Evaluate(periods, name, x, y, features, "Rank", models, logger)
		if err != nil {
			logger.Fatal("evaluate", zap.String("strategy", name), zap.Error(err))
		}
		if merged == nil {
			merged = out
			continue
		}
		if err := appendFrame(merged, out); err != nil {
			logger.Fatal("merge predictions", zap.String("strategy", name), zap.Error(err))
		}
	}
	if merged == nil || merged.Len() == 0 {
		logger.Fatal("no predictions produced")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal(err)
	}
	predOut := filepath.Join(cfg.OutputDir, "model_predictions.csv")
	if err := timeseries.WriteCSV(merged, predOut); err != nil {
		logger.Fatal("write predictions", zap.Error(err))
	}

	pivot, err := regression.ShiftAndPivot(merged)
	if err != nil {
		logger.Fatal("shift and pivot", zap.Error(err))
	}
	pivotOut := filepath.Join(cfg.OutputDir, "model_pivot.csv")
	if err := timeseries.WriteCSV(pivot, pivotOut); err != nil {
		logger.Fatal("write pivot", zap.Error(err))
	}

	manifest := cfg.NewManifest("walkforwardmodel")
	manifest.Outputs = append(manifest.Outputs, predOut, pivotOut)
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("model comparison written",
		zap.Int("strategies", len(strategies)),
		zap.Int("prediction_rows", merged.Len()),
		zap.Int("pivot_rows", pivot.Len()),
	)
}

// appendFrame copies every row of src onto dst. Both frames come out of
// Evaluate, so the column sets match.
func appendFrame(dst, src *timeseries.Frame) error {
	for i, ts := range src.Times {
		vals := make(map[string]float64)
		for _, name := range src.ValueColumns() {
			col, err := src.Values(name)
			if err != nil {
				return err
			}
			if !math.IsNaN(col[i]) {
				vals[name] = col[i]
			}
		}
		labs := make(map[string]string)
		for _, name := range src.LabelColumns() {
			col, err := src.Labels(name)
			if err != nil {
				return err
			}
			labs[name] = col[i]
		}
		if err := dst.AppendRow(ts, vals, labs); err != nil {
			return err
		}
	}
	return nil
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
