package walkforward

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"fxresearch/services/timeseries"
)

// StatFunc computes one result row from the paired (train, test) subsets of
// a period. Degenerate inputs (empty windows, zero denominators) are the
// statistic's own contract; the runner neither suppresses nor fabricates rows.
type StatFunc func(p Period, train, test *timeseries.Frame) (map[string]float64, error)

// Row is one collected result: the period it came from, the entity it
// describes and the statistic's output columns.
type Row struct {
	Period Period
	Entity string
	Values map[string]float64
}

// Runner applies a statistic across a fixed PeriodSequence. The sequence is
// computed once per (start, end) pair and reused for every table and entity.
type Runner struct {
	Periods    []Period
	TimeColumn string
	Logger     *zap.Logger
}

// NewRunner builds a runner over an already generated sequence.
func NewRunner(periods []Period, timeColumn string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Periods: periods, TimeColumn: timeColumn, Logger: logger}
}

// Run slices the frame by every period and invokes fn on each pair,
// collecting one row per period. This is the shared consumer pattern for
// ratio calculation, rolling-metric estimation and per-strategy model fits.
func (r *Runner) Run(entity string, f *timeseries.Frame, fn StatFunc) ([]Row, error) {
	rows := make([]Row, 0, len(r.Periods))
	for _, p := range r.Periods {
		s, err := SliceByPeriod(f, p, r.TimeColumn)
		if err != nil {
			return nil, fmt.Errorf("entity %s period %s: %w", entity, p.Label(), err)
		}
		vals, err := fn(p, s.Train, s.Test)
		if err != nil {
			return nil, fmt.Errorf("entity %s period %s: %w", entity, p.Label(), err)
		}
		rows = append(rows, Row{Period: p, Entity: entity, Values: vals})
	}
	return rows, nil
}

// RunEntities fans the per-entity work across a bounded worker pool.
// Per-entity statistics have no cross-entity dependency, so parallelism is
// safe; result order follows the input entity order regardless of worker
// scheduling. workers <= 0 means NumCPU.
func (r *Runner) RunEntities(ctx context.Context, entities []string, frames map[string]*timeseries.Frame, fn StatFunc, workers int) ([]Row, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(entities) {
		workers = len(entities)
	}
	if workers == 0 {
		return nil, nil
	}

	r.Logger.Info("running walk-forward batch",
		zap.Int("entities", len(entities)),
		zap.Int("periods", len(r.Periods)),
		zap.Int("workers", workers),
	)

	type result struct {
		idx  int
		rows []Row
		err  error
	}
	jobs := make(chan int, len(entities))
	results := make(chan result, len(entities))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					results <- result{idx: idx, err: ctx.Err()}
					continue
				default:
				}
				entity := entities[idx]
				f, ok := frames[entity]
				if !ok {
					results <- result{idx: idx, err: fmt.Errorf("entity %s: no frame", entity)}
					continue
				}
				rows, err := r.Run(entity, f, fn)
				results <- result{idx: idx, rows: rows, err: err}
			}
		}()
	}
	for idx := range entities {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	close(results)

	perEntity := make([][]Row, len(entities))
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		perEntity[res.idx] = res.rows
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var out []Row
	for _, rows := range perEntity {
		out = append(out, rows...)
	}
	return out, nil
}

// RowsFrame assembles collected rows into a frame keyed by each row's test
// window start, with the entity as a label column. Column order follows the
// columns slice; a value a statistic did not emit becomes NaN.
func RowsFrame(rows []Row, entityColumn string, columns []string) *timeseries.Frame {
	loc := time.UTC
	if len(rows) > 0 {
		loc = rows[0].Period.TestStart.Location()
	}
	f := timeseries.NewFrame("Date", loc)
	// Installing columns on an empty frame cannot fail.
	_ = f.SetLabels(entityColumn, nil)
	for _, name := range columns {
		_ = f.SetValues(name, nil)
	}
	for _, row := range rows {
		vals := make(map[string]float64, len(columns))
		for _, name := range columns {
			v, ok := row.Values[name]
			if !ok {
				v = math.NaN()
			}
			vals[name] = v
		}
		f.AppendRow(row.Period.TestStart, vals, map[string]string{entityColumn: row.Entity})
	}
	return f
}
