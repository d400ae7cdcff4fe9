// Package timeseries provides the ordered, timestamp-keyed tables the
// pipeline stages exchange as CSV.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrMissingColumn is wrapped by lookups against a column the frame
// does not carry.
var ErrMissingColumn = errors.New("missing column")

// ErrZoneMismatch is wrapped when two time-indexed values are compared
// across different timezone anchors.
var ErrZoneMismatch = errors.New("timezone mismatch")

// Frame is an ordered collection of rows keyed by a timestamp column.
// Value columns hold float64 (NaN for missing cells), label columns hold
// strings. Filters never reorder rows.
type Frame struct {
	TimeColumn string
	Times      []time.Time

	valueOrder []string
	values     map[string][]float64
	labelOrder []string
	labels     map[string][]string

	loc *time.Location
}

// NewFrame creates an empty frame anchored to loc. All timestamps appended
// to the frame must carry the same location.
func NewFrame(timeColumn string, loc *time.Location) *Frame {
	return &Frame{
		TimeColumn: timeColumn,
		values:     make(map[string][]float64),
		labels:     make(map[string][]string),
		loc:        loc,
	}
}

// Location returns the frame's timezone anchor.
func (f *Frame) Location() *time.Location { return f.loc }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Times) }

// ValueColumns returns value column names in insertion order.
func (f *Frame) ValueColumns() []string { return f.valueOrder }

// LabelColumns returns label column names in insertion order.
func (f *Frame) LabelColumns() []string { return f.labelOrder }

// SetValues installs a value column. The series length must match the frame.
func (f *Frame) SetValues(name string, vals []float64) error {
	if len(f.Times) != 0 && len(vals) != len(f.Times) {
		return fmt.Errorf("column %q: length %d does not match %d rows", name, len(vals), len(f.Times))
	}
	if _, ok := f.values[name]; !ok {
		f.valueOrder = append(f.valueOrder, name)
	}
	f.values[name] = vals
	return nil
}

// SetLabels installs a label column.
func (f *Frame) SetLabels(name string, vals []string) error {
	if len(f.Times) != 0 && len(vals) != len(f.Times) {
		return fmt.Errorf("column %q: length %d does not match %d rows", name, len(vals), len(f.Times))
	}
	if _, ok := f.labels[name]; !ok {
		f.labelOrder = append(f.labelOrder, name)
	}
	f.labels[name] = vals
	return nil
}

// Values returns the value column, or a descriptive error naming it.
func (f *Frame) Values(name string) ([]float64, error) {
	v, ok := f.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return v, nil
}

// Labels returns the label column, or a descriptive error naming it.
func (f *Frame) Labels(name string) ([]string, error) {
	v, ok := f.labels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return v, nil
}

// HasColumn reports whether name is a value or label column.
func (f *Frame) HasColumn(name string) bool {
	if _, ok := f.values[name]; ok {
		return true
	}
	_, ok := f.labels[name]
	return ok
}

// AppendRow appends one row. Columns absent from vals get NaN, absent from
// labs get the empty string.
func (f *Frame) AppendRow(ts time.Time, vals map[string]float64, labs map[string]string) error {
	if ts.Location().String() != f.loc.String() {
		return fmt.Errorf("%w: row has zone %s, frame anchored to %s", ErrZoneMismatch, ts.Location(), f.loc)
	}
	f.Times = append(f.Times, ts)
	for _, name := range f.valueOrder {
		v, ok := vals[name]
		if !ok {
			v = math.NaN()
		}
		f.values[name] = append(f.values[name], v)
	}
	for _, name := range f.labelOrder {
		f.labels[name] = append(f.labels[name], labs[name])
	}
	return nil
}

// Select returns a new frame holding the rows at idx, in idx order.
// Shared with the period slicer, which always passes ascending indices so
// input order is preserved.
func (f *Frame) Select(idx []int) *Frame {
	out := NewFrame(f.TimeColumn, f.loc)
	out.Times = make([]time.Time, len(idx))
	for j, i := range idx {
		out.Times[j] = f.Times[i]
	}
	for _, name := range f.valueOrder {
		src := f.values[name]
		col := make([]float64, len(idx))
		for j, i := range idx {
			col[j] = src[i]
		}
		out.valueOrder = append(out.valueOrder, name)
		out.values[name] = col
	}
	for _, name := range f.labelOrder {
		src := f.labels[name]
		col := make([]string, len(idx))
		for j, i := range idx {
			col[j] = src[i]
		}
		out.labelOrder = append(out.labelOrder, name)
		out.labels[name] = col
	}
	return out
}

// FilterRange returns the rows whose timestamp falls in [from, to], both
// inclusive, preserving input order. The bounds must share the frame's
// timezone anchor.
func (f *Frame) FilterRange(from, to time.Time) (*Frame, error) {
	if from.Location().String() != f.loc.String() || to.Location().String() != f.loc.String() {
		return nil, fmt.Errorf("%w: bounds in %s/%s, frame anchored to %s",
			ErrZoneMismatch, from.Location(), to.Location(), f.loc)
	}
	var idx []int
	for i, ts := range f.Times {
		if !ts.Before(from) && !ts.After(to) {
			idx = append(idx, i)
		}
	}
	return f.Select(idx), nil
}

// FilterLabel returns rows whose label column equals want, preserving order.
func (f *Frame) FilterLabel(name, want string) (*Frame, error) {
	col, err := f.Labels(name)
	if err != nil {
		return nil, err
	}
	var idx []int
	for i, v := range col {
		if v == want {
			idx = append(idx, i)
		}
	}
	return f.Select(idx), nil
}

// UniqueLabels returns the distinct values of a label column in first-seen order.
func (f *Frame) UniqueLabels(name string) ([]string, error) {
	col, err := f.Labels(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range col {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// SortByTime sorts rows by timestamp ascending, stable.
func (f *Frame) SortByTime() {
	idx := make([]int, len(f.Times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return f.Times[idx[a]].Before(f.Times[idx[b]]) })
	sorted := f.Select(idx)
	f.Times = sorted.Times
	f.values = sorted.values
	f.labels = sorted.labels
}

// DetectGaps returns the timestamps after which the next row arrives more
// than step late. Rows must already be sorted.
func (f *Frame) DetectGaps(step time.Duration) []time.Time {
	var gaps []time.Time
	for i := 1; i < len(f.Times); i++ {
		if f.Times[i].Sub(f.Times[i-1]) > step {
			gaps = append(gaps, f.Times[i-1])
		}
	}
	return gaps
}
