// Package walkforward generates the rolling train/test windows every
// cross-validation stage of the pipeline shares, and slices time-indexed
// frames against them. One parametrized generator replaces the per-script
// reimplementations that drifted apart in earlier revisions.
package walkforward

import (
	"errors"
	"fmt"
	"time"
)

// Granularity selects the one-unit offset applied at window boundaries.
// Daily and Hourly are deliberately distinct configurations: the daily
// variant subtracts a day and the hourly variant subtracts an hour, and the
// two produce different boundary timestamps for the same inputs.
type Granularity int

const (
	Daily Granularity = iota
	Hourly
)

func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Hourly:
		return "hourly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// unit returns the single-step duration for the granularity.
func (g Granularity) unit() time.Duration {
	if g == Hourly {
		return time.Hour
	}
	return 24 * time.Hour
}

// ErrZoneMismatch is returned when the two boundary timestamps carry
// different timezone anchors. Mixing anchors silently produces wrong
// comparisons, so generation refuses to start.
var ErrZoneMismatch = errors.New("walkforward: start and end in different timezones")

// ErrEndBeforeStart is returned when the global range is inverted.
var ErrEndBeforeStart = errors.New("walkforward: end before start")

// ErrMisalignedStart is returned by the hourly variant for a start that is
// not at midnight. Its test windows are normalized to the start of the day,
// which would pull TestStart back into the training window of a mid-day
// start.
var ErrMisalignedStart = errors.New("walkforward: hourly generation requires a midnight start")

// Period is one walk-forward window pair. TrainStart <= TrainEnd <
// TestStart <= TestEnd always holds for generated periods, and all four
// bounds lie inside the global [start, end] range.
type Period struct {
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// Label renders the test month, the key consumers group result rows by.
func (p Period) Label() string { return p.TestStart.Format("2006-01") }

// Config parametrizes period generation. The zero value is not usable;
// call DefaultConfig and override.
type Config struct {
	TrainYears  int // training span, calendar years
	TestMonths  int // test span, calendar months
	StepMonths  int // cursor advance per period, calendar months
	Granularity Granularity
}

// DefaultConfig is the production setup: one year of training, one month of
// testing, advancing one month per period.
func DefaultConfig(g Granularity) Config {
	return Config{TrainYears: 1, TestMonths: 1, StepMonths: 1, Granularity: g}
}

func (c Config) validate() error {
	if c.TrainYears <= 0 || c.TestMonths <= 0 || c.StepMonths <= 0 {
		return fmt.Errorf("walkforward: window sizes must be positive (train=%dy test=%dm step=%dm)",
			c.TrainYears, c.TestMonths, c.StepMonths)
	}
	return nil
}

// Generator produces PeriodSequences. It is stateless; Periods is a pure
// function of (start, end, Config).
type Generator struct {
	cfg Config
}

// NewGenerator validates the config and returns a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg}, nil
}

// Periods walks a cursor from start, emitting one Period per step until the
// next test window would overrun end. The final partial period is dropped,
// never truncated. Window arithmetic is calendar-aware (AddDate), so adding
// a month to Jan 31 follows Go's calendar normalization rather than a fixed
// 30-day delta.
//
// The hourly variant additionally normalizes TestStart to the start of its
// day, matching how the hourly tables are aligned upstream.
func (g *Generator) Periods(start, end time.Time) ([]Period, error) {
	if start.Location().String() != end.Location().String() {
		return nil, fmt.Errorf("%w: %s vs %s", ErrZoneMismatch, start.Location(), end.Location())
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrEndBeforeStart, start, end)
	}
	if g.cfg.Granularity == Hourly && !start.Equal(startOfDay(start)) {
		return nil, fmt.Errorf("%w: got %s", ErrMisalignedStart, start)
	}

	unit := g.cfg.Granularity.unit()
	var periods []Period
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, g.cfg.StepMonths, 0) {
		trainStart := cursor
		trainEnd := trainStart.AddDate(g.cfg.TrainYears, 0, 0).Add(-unit)
		testStart := trainEnd.Add(unit)
		if g.cfg.Granularity == Hourly {
			testStart = startOfDay(testStart)
		}
		testEnd := testStart.AddDate(0, g.cfg.TestMonths, 0).Add(-unit)

		if testEnd.After(end) {
			break
		}
		periods = append(periods, Period{
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			TestStart:  testStart,
			TestEnd:    testEnd,
		})
	}
	return periods, nil
}

func startOfDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}
