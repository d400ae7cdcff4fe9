package timeseries

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CandleTimeLayout is the broker export format for OHLC candles
// (day.month.year with microseconds, e.g. "01.06.2021 00:00:00.000").
const CandleTimeLayout = "02.01.2006 15:04:05.000"

// tradeTimeLayouts are tried in order for trade-log style timestamps.
var tradeTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// openReader opens a CSV file, transparently decoding UTF-16 exports
// (MT5 writes those) to UTF-8.
func openReader(path string) (*csv.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	br := bufio.NewReader(f)
	if b, _ := br.Peek(2); len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return nil, nil, err
		}
		tr := transform.NewReader(f, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
		br = bufio.NewReader(tr)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r, f.Close, nil
}

// ParseTimestamp coerces a trade-log style timestamp string into loc.
// Strings without an explicit offset are anchored to loc; strings with one
// are converted into it, so every caller compares in a single zone.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	for _, layout := range tradeTimeLayouts {
		if strings.ContainsAny(layout, "Z") {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.In(loc), nil
			}
			continue
		}
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// ReadCSV loads a generic derived table. The timeColumn is parsed with the
// trade-log layouts into loc; remaining columns become value columns when
// every non-empty cell parses as a number, label columns otherwise.
func ReadCSV(path, timeColumn string, loc *time.Location) (*Frame, error) {
	r, closeFn, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	timeIdx := -1
	for i, name := range header {
		if name == timeColumn {
			timeIdx = i
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%s: %w: %q", path, ErrMissingColumn, timeColumn)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}

	f := NewFrame(timeColumn, loc)
	f.Times = make([]time.Time, len(rows))
	for i, rec := range rows {
		if timeIdx >= len(rec) {
			return nil, fmt.Errorf("%s row %d: missing %q cell", path, i+2, timeColumn)
		}
		ts, err := ParseTimestamp(rec[timeIdx], loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		f.Times[i] = ts
	}

	for ci, name := range header {
		if ci == timeIdx {
			continue
		}
		numeric := true
		for _, rec := range rows {
			if ci >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[ci])
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}
		if numeric {
			col := make([]float64, len(rows))
			for i, rec := range rows {
				col[i] = math.NaN()
				if ci < len(rec) {
					if cell := strings.TrimSpace(rec[ci]); cell != "" {
						col[i], _ = strconv.ParseFloat(cell, 64)
					}
				}
			}
			if err := f.SetValues(name, col); err != nil {
				return nil, err
			}
		} else {
			col := make([]string, len(rows))
			for i, rec := range rows {
				if ci < len(rec) {
					col[i] = strings.TrimSpace(rec[ci])
				}
			}
			if err := f.SetLabels(name, col); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// WriteCSV writes the frame with the time column first, then label columns,
// then value columns, all in insertion order. NaN cells are written empty.
func WriteCSV(f *Frame, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	w := csv.NewWriter(bufio.NewWriter(out))
	header := append([]string{f.TimeColumn}, f.LabelColumns()...)
	header = append(header, f.ValueColumns()...)
	if err := w.Write(header); err != nil {
		return err
	}

	rec := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		rec[0] = f.Times[i].Format("2006-01-02 15:04:05Z07:00")
		k := 1
		for _, name := range f.LabelColumns() {
			col, _ := f.Labels(name)
			rec[k] = col[i]
			k++
		}
		for _, name := range f.ValueColumns() {
			col, _ := f.Values(name)
			if math.IsNaN(col[i]) {
				rec[k] = ""
			} else {
				rec[k] = strconv.FormatFloat(col[i], 'g', -1, 64)
			}
			k++
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
