// Package arrowexport serializes result frames as Apache Arrow IPC streams,
// the columnar interchange the analysis notebooks read directly. The schema
// is derived from the frame: the time column as microsecond timestamps,
// label columns as strings, value columns as float64 with NaN cells null.
package arrowexport

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"fxresearch/services/timeseries"
)

// Encode writes the frame as one Arrow record to w.
func Encode(f *timeseries.Frame, w io.Writer) error {
	pool := memory.NewGoAllocator()

	fields := []arrow.Field{
		{Name: f.TimeColumn, Type: arrow.FixedWidthTypes.Timestamp_us},
	}
	for _, name := range f.LabelColumns() {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.BinaryTypes.String})
	}
	for _, name := range f.ValueColumns() {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	var cols []arrow.Array

	tsBuilder := array.NewTimestampBuilder(pool, &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"})
	for _, ts := range f.Times {
		tsBuilder.Append(arrow.Timestamp(ts.UnixMicro()))
	}
	cols = append(cols, tsBuilder.NewTimestampArray())

	for _, name := range f.LabelColumns() {
		col, err := f.Labels(name)
		if err != nil {
			return err
		}
		b := array.NewStringBuilder(pool)
		b.AppendValues(col, nil)
		cols = append(cols, b.NewStringArray())
	}
	for _, name := range f.ValueColumns() {
		col, err := f.Values(name)
		if err != nil {
			return err
		}
		b := array.NewFloat64Builder(pool)
		for _, v := range col {
			if math.IsNaN(v) {
				b.AppendNull()
			} else {
				b.Append(v)
			}
		}
		cols = append(cols, b.NewFloat64Array())
	}

	record := array.NewRecord(schema, cols, int64(f.Len()))
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(schema))
	defer writer.Close()
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("write arrow record: %w", err)
	}
	return nil
}

// EncodeFile writes the frame to an .arrow file.
func EncodeFile(f *timeseries.Frame, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	return Encode(f, out)
}

// Decode reads an Arrow IPC stream produced by Encode back into a frame
// anchored to loc. Null float cells come back as NaN.
func Decode(r io.Reader, timeColumn string, loc *time.Location) (*timeseries.Frame, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open arrow stream: %w", err)
	}
	defer reader.Release()

	f := timeseries.NewFrame(timeColumn, loc)
	for reader.Next() {
		record := reader.Record()
		schema := record.Schema()
		for ci := 0; ci < int(record.NumCols()); ci++ {
			name := schema.Field(ci).Name
			switch col := record.Column(ci).(type) {
			case *array.Timestamp:
				if name != timeColumn {
					return nil, fmt.Errorf("unexpected timestamp column %q", name)
				}
				for i := 0; i < col.Len(); i++ {
					f.Times = append(f.Times, time.UnixMicro(int64(col.Value(i))).In(loc))
				}
			case *array.String:
				vals := make([]string, col.Len())
				for i := range vals {
					vals[i] = col.Value(i)
				}
				if err := appendLabels(f, name, vals); err != nil {
					return nil, err
				}
			case *array.Float64:
				vals := make([]float64, col.Len())
				for i := range vals {
					if col.IsNull(i) {
						vals[i] = math.NaN()
					} else {
						vals[i] = col.Value(i)
					}
				}
				if err := appendValues(f, name, vals); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("unsupported arrow column %q (%s)", name, schema.Field(ci).Type)
			}
		}
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read arrow stream: %w", err)
	}
	return f, nil
}

// DecodeFile reads an .arrow file written by EncodeFile.
func DecodeFile(path, timeColumn string, loc *time.Location) (*timeseries.Frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(bytes.NewReader(raw), timeColumn, loc)
}

func appendLabels(f *timeseries.Frame, name string, vals []string) error {
	existing, err := f.Labels(name)
	if err == nil {
		vals = append(existing, vals...)
	}
	return f.SetLabels(name, vals)
}

func appendValues(f *timeseries.Frame, name string, vals []float64) error {
	existing, err := f.Values(name)
	if err == nil {
		vals = append(existing, vals...)
	}
	return f.SetValues(name, vals)
}
