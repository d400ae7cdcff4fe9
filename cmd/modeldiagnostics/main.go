// Prints the full-sample regression diagnostics: one standardized OLS fit
// per strategy against its hourly rank and the variance inflation factors
// of the feature set per symbol.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"fxresearch/services/config"
	"fxresearch/services/ranking"
	"fxresearch/services/regression"
	"fxresearch/services/timeseries"
)

const defaultFeatures = "RSI_14,MACD,ADX,ROC_12,CMF_20,Stochastic_K,Bollinger_Width"

func main() {
	var cfg config.Config
	fs := flag.NewFlagSet("modeldiagnostics", flag.ExitOnError)
	start, end, gran := cfg.RegisterFlags(fs)
	ranksPath := fs.String("ranks", "", "hourly rank CSV (default <out>/hourly_ranks.csv)")
	featureList := fs.String("features", defaultFeatures, "comma-separated feature columns")
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

	ranks, err := timeseries.ReadCSV(*ranksPath, "Date", time.UTC)
	if err != nil {
		logger.Fatal("load ranks", zap.Error(err))
	}
	strategies, err := ranks.UniqueLabels("Strategy")
	if err != nil {
		logger.Fatal("rank strategies", zap.Error(err))
	}

	bold := color.New(color.Bold)
	warn := color.New(color.FgYellow)

	// VIF is a property of the feature table, so one pass per symbol.
	var vifRows [][]string
	featuresBySymbol := make(map[string]*timeseries.Frame, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		f, err := timeseries.ReadCSV(filepath.Join(cfg.OutputDir, symbol+"_metrics.csv"), "Date", time.UTC)
		if err != nil {
			logger.Fatal("load features", zap.String("symbol", symbol), zap.Error(err))
		}
		featuresBySymbol[symbol] = f

		x, kept, err := regression.FeatureMatrix(f, features)
		if err != nil {
			logger.Fatal("feature matrix", zap.String("symbol", symbol), zap.Error(err))
		}
		if len(kept) == 0 {
			logger.Fatal("no complete feature rows", zap.String("symbol", symbol))
		}
		entries, err := regression.VIF(x, features)
		if err != nil {
			logger.Fatal("vif", zap.String("symbol", symbol), zap.Error(err))
		}

		bold.Printf("%s variance inflation (%d rows)\n", symbol, len(kept))
		for _, e := range entries {
			line := fmt.Sprintf("  %-18s %8.2f", e.Feature, e.VIF)
			if e.VIF > 10 || math.IsInf(e.VIF, 1) {
				warn.Println(line)
			} else {
				fmt.Println(line)
			}
			vifRows = append(vifRows, []string{symbol, e.Feature, formatVIF(e.VIF)})
		}
	}

	for _, name := range strategies {
		symbol := pairOf(name, cfg.Symbols)
		if symbol == "" {
			logger.Fatal("no feature table for strategy", zap.String("strategy", name))
		}
		f := featuresBySymbol[symbol]

		x, kept, err := regression.FeatureMatrix(f, features)
		if err != nil {
			logger.Fatal("feature matrix", zap.String("strategy", name), zap.Error(err))
		}
		rankSeries, err := ranking.RankSeries(ranks, name, f.Times)
		if err != nil {
			logger.Fatal("rank series", zap.String("strategy", name), zap.Error(err))
		}
		y := make([]float64, len(kept))
		for r, i := range kept {
			y[r] = rankSeries[i]
		}

		var scaler regression.StandardScaler
		xStd, err := scaler.FitTransform(x)
		if err != nil {
			logger.Fatal("standardize", zap.String("strategy", name), zap.Error(err))
		}
		var ols regression.OLS
		if err := ols.Fit(xStd, y); err != nil {
			logger.Fatal("fit", zap.String("strategy", name), zap.Error(err))
		}

		bold.Printf("%s full-sample OLS (R2 %.4f, %d rows)\n", name, ols.R2, len(kept))
		fmt.Printf("  %-18s %10.4f\n", "Intercept", ols.Intercept)
		for j, feature := range features {
			fmt.Printf("  %-18s %10.4f\n", feature, ols.Coef[j])
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal(err)
	}
	out := filepath.Join(cfg.OutputDir, "vif.csv")
	if err := writeVIF(out, vifRows); err != nil {
		logger.Fatal("write vif", zap.Error(err))
	}

	manifest := cfg.NewManifest("modeldiagnostics")
	manifest.Outputs = append(manifest.Outputs, out)
	if _, err := manifest.Write(cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("diagnostics written", zap.Int("strategies", len(strategies)), zap.String("vif", out))
}

func writeVIF(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := csv.NewWriter(file)
	if err := w.Write([]string{"Symbol", "Feature", "VIF"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatVIF(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", v)
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
