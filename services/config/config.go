// Package config builds the pipeline configuration from flags with env
// fallback and owns the shared zap logger and per-run manifest. No state
// lives at package level; every tool constructs its own Config.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fxresearch/services/walkforward"
)

// Config carries everything the pipeline tools share.
type Config struct {
	DataDir   string
	OutputDir string

	GlobalStart time.Time
	GlobalEnd   time.Time
	Granularity walkforward.Granularity
	TrainYears  int
	TestMonths  int
	StepMonths  int

	Symbols []string
	Workers int

	ClickHouseDSN string
	CHDatabase    string
	CHTable       string
	CHUser        string
	CHPassword    string

	ArchiveBaseURL string
}

// Env returns the env var value, or def when unset or blank.
func Env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvInt is Env for integers; a malformed value falls back to the default.
func EnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// RegisterFlags wires the shared flags onto fs with env-derived defaults.
// Call fs.Parse, then Finalize.
func (c *Config) RegisterFlags(fs *flag.FlagSet) (start, end, granularity *string) {
	fs.StringVar(&c.DataDir, "data", Env("FXR_DATA_DIR", "data"), "input data directory")
	fs.StringVar(&c.OutputDir, "out", Env("FXR_OUT_DIR", "out"), "output directory")
	start = fs.String("start", Env("FXR_START", "2021-06-01"), "global range start (YYYY-MM-DD)")
	end = fs.String("end", Env("FXR_END", "2024-01-01"), "global range end (YYYY-MM-DD)")
	granularity = fs.String("granularity", Env("FXR_GRANULARITY", "hourly"), "daily or hourly")
	fs.IntVar(&c.TrainYears, "train-years", EnvInt("FXR_TRAIN_YEARS", 1), "training window in years")
	fs.IntVar(&c.TestMonths, "test-months", EnvInt("FXR_TEST_MONTHS", 1), "test window in months")
	fs.IntVar(&c.StepMonths, "step-months", EnvInt("FXR_STEP_MONTHS", 1), "step between periods in months")
	fs.IntVar(&c.Workers, "workers", EnvInt("FXR_WORKERS", 0), "worker pool size (0 = NumCPU)")

	c.Symbols = splitSymbols(Env("FXR_SYMBOLS", "EURUSD,GBPUSD"))
	fs.Func("symbols", "comma-separated symbol list", func(v string) error {
		c.Symbols = splitSymbols(v)
		return nil
	})

	c.ClickHouseDSN = Env("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000?secure=false&compress=lz4")
	c.CHDatabase = Env("CH_DATABASE", "fxresearch")
	c.CHTable = Env("CH_TABLE", "candles")
	c.CHUser = Env("CH_USER", "default")
	c.CHPassword = Env("CH_PASSWORD", "")
	c.ArchiveBaseURL = Env("FXR_ARCHIVE_URL", "https://archive.local")
	return start, end, granularity
}

// Finalize parses the string flags into their typed fields. Dates are
// anchored to UTC; the end of an hourly range extends to the last hour of
// the named day.
func (c *Config) Finalize(start, end, granularity string) error {
	g, err := ParseGranularity(granularity)
	if err != nil {
		return err
	}
	c.Granularity = g

	s, err := time.ParseInLocation("2006-01-02", start, time.UTC)
	if err != nil {
		return fmt.Errorf("parse start %q: %w", start, err)
	}
	e, err := time.ParseInLocation("2006-01-02", end, time.UTC)
	if err != nil {
		return fmt.Errorf("parse end %q: %w", end, err)
	}
	if c.Granularity == walkforward.Hourly {
		e = e.Add(23 * time.Hour)
	}
	c.GlobalStart = s
	c.GlobalEnd = e
	return nil
}

// ParseGranularity maps the flag spelling onto the walkforward type.
func ParseGranularity(s string) (walkforward.Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "d":
		return walkforward.Daily, nil
	case "hourly", "hour", "h":
		return walkforward.Hourly, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q", s)
	}
}

// WindowConfig builds the generator config from the parsed windows.
func (c *Config) WindowConfig() walkforward.Config {
	return walkforward.Config{
		TrainYears:  c.TrainYears,
		TestMonths:  c.TestMonths,
		StepMonths:  c.StepMonths,
		Granularity: c.Granularity,
	}
}

// NewLogger builds the shared production logger; FXR_DEBUG=1 switches to
// development output.
func NewLogger() (*zap.Logger, error) {
	if Env("FXR_DEBUG", "") == "1" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Manifest records one pipeline run next to its outputs.
type Manifest struct {
	JobID       string    `json:"job_id"`
	Tool        string    `json:"tool"`
	StartedAt   time.Time `json:"started_at"`
	GlobalStart time.Time `json:"global_start"`
	GlobalEnd   time.Time `json:"global_end"`
	Granularity string    `json:"granularity"`
	TrainYears  int       `json:"train_years"`
	TestMonths  int       `json:"test_months"`
	StepMonths  int       `json:"step_months"`
	Symbols     []string  `json:"symbols,omitempty"`
	Outputs     []string  `json:"outputs,omitempty"`
}

// NewManifest stamps a fresh job id for this run.
func (c *Config) NewManifest(tool string) *Manifest {
	return &Manifest{
		JobID:       uuid.NewString(),
		Tool:        tool,
		StartedAt:   time.Now().UTC(),
		GlobalStart: c.GlobalStart,
		GlobalEnd:   c.GlobalEnd,
		Granularity: c.Granularity.String(),
		TrainYears:  c.TrainYears,
		TestMonths:  c.TestMonths,
		StepMonths:  c.StepMonths,
		Symbols:     c.Symbols,
	}
}

// Write stores the manifest as <out>/<tool>_manifest.json.
func (m *Manifest) Write(outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", outDir, err)
	}
	path := filepath.Join(outDir, m.Tool+"_manifest.json")
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
