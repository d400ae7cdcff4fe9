package walkforward

import (
	"fmt"

	"fxresearch/services/timeseries"
)

// Slice is one (train, test) pair cut from a frame by a Period.
type Slice struct {
	Period Period
	Train  *timeseries.Frame
	Test   *timeseries.Frame
}

// SliceByPeriod cuts the rows whose timestamp falls inside the period's
// train and test windows, both bounds inclusive, preserving input order.
// Empty subsets are a valid result. A frame whose timezone anchor differs
// from the period's, or a frame missing the timestamp column, is a hard
// error, never a silently empty slice.
func SliceByPeriod(f *timeseries.Frame, p Period, timeColumn string) (*Slice, error) {
	if f.TimeColumn != timeColumn {
		return nil, fmt.Errorf("%w: frame keyed by %q, asked for %q",
			timeseries.ErrMissingColumn, f.TimeColumn, timeColumn)
	}
	if f.Location().String() != p.TrainStart.Location().String() {
		return nil, fmt.Errorf("%w: frame anchored to %s, period to %s",
			timeseries.ErrZoneMismatch, f.Location(), p.TrainStart.Location())
	}
	train, err := f.FilterRange(p.TrainStart, p.TrainEnd)
	if err != nil {
		return nil, fmt.Errorf("train window %s..%s: %w", p.TrainStart, p.TrainEnd, err)
	}
	test, err := f.FilterRange(p.TestStart, p.TestEnd)
	if err != nil {
		return nil, fmt.Errorf("test window %s..%s: %w", p.TestStart, p.TestEnd, err)
	}
	return &Slice{Period: p, Train: train, Test: test}, nil
}

// SliceAll cuts one frame against every period in sequence order.
func SliceAll(f *timeseries.Frame, periods []Period, timeColumn string) ([]*Slice, error) {
	out := make([]*Slice, 0, len(periods))
	for _, p := range periods {
		s, err := SliceByPeriod(f, p, timeColumn)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
