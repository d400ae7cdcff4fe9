package walkforward

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hour(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func mustGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestPeriodsDaily(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Daily))
	periods, err := g.Periods(date(2021, 6, 1), date(2024, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) == 0 {
		t.Fatal("expected a non-empty sequence")
	}

	first := periods[0]
	if !first.TrainStart.Equal(date(2021, 6, 1)) {
		t.Errorf("first TrainStart = %s, want 2021-06-01", first.TrainStart)
	}
	if !first.TrainEnd.Equal(date(2022, 5, 31)) {
		t.Errorf("first TrainEnd = %s, want 2022-05-31", first.TrainEnd)
	}
	if !first.TestStart.Equal(date(2022, 6, 1)) {
		t.Errorf("first TestStart = %s, want 2022-06-01", first.TestStart)
	}
	if !first.TestEnd.Equal(date(2022, 6, 30)) {
		t.Errorf("first TestEnd = %s, want 2022-06-30", first.TestEnd)
	}

	second := periods[1]
	if !second.TrainStart.Equal(date(2021, 7, 1)) {
		t.Errorf("second TrainStart = %s, want 2021-07-01", second.TrainStart)
	}
	if !second.TrainEnd.Equal(date(2022, 6, 30)) {
		t.Errorf("second TrainEnd = %s, want 2022-06-30", second.TrainEnd)
	}
	if !second.TestStart.Equal(date(2022, 7, 1)) {
		t.Errorf("second TestStart = %s, want 2022-07-01", second.TestStart)
	}
	if !second.TestEnd.Equal(date(2022, 7, 31)) {
		t.Errorf("second TestEnd = %s, want 2022-07-31", second.TestEnd)
	}

	end := date(2024, 1, 1)
	last := periods[len(periods)-1]
	if last.TestEnd.After(end) {
		t.Errorf("last TestEnd %s exceeds global end", last.TestEnd)
	}
	// The next would-be period must overrun the end, otherwise it should
	// have been emitted.
	nextCursor := last.TrainStart.AddDate(0, 1, 0)
	nextTestEnd := nextCursor.AddDate(1, 1, 0).Add(-24 * time.Hour)
	if !nextTestEnd.After(end) {
		t.Errorf("dropped period with TestEnd %s inside the range", nextTestEnd)
	}
}

func TestPeriodsOrderingInvariants(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Daily))
	periods, err := g.Periods(date(2021, 6, 1), date(2024, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range periods {
		if p.TrainStart.After(p.TrainEnd) {
			t.Errorf("period %d: TrainStart > TrainEnd", i)
		}
		if !p.TrainEnd.Before(p.TestStart) {
			t.Errorf("period %d: TrainEnd %s not before TestStart %s", i, p.TrainEnd, p.TestStart)
		}
		if p.TestStart.After(p.TestEnd) {
			t.Errorf("period %d: TestStart > TestEnd", i)
		}
		if i > 0 {
			want := periods[i-1].TrainStart.AddDate(0, 1, 0)
			if !p.TrainStart.Equal(want) {
				t.Errorf("period %d: TrainStart = %s, want %s", i, p.TrainStart, want)
			}
		}
	}
}

func TestPeriodsHourly(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Hourly))
	periods, err := g.Periods(hour(2021, 6, 1, 0), hour(2023, 12, 31, 23))
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) == 0 {
		t.Fatal("expected a non-empty sequence")
	}
	for i, p := range periods {
		// Exactly one hour between train end and test start: no gap, no overlap.
		if got := p.TestStart.Sub(p.TrainEnd); got != time.Hour {
			t.Errorf("period %d: TestStart-TrainEnd = %s, want 1h", i, got)
		}
		if p.TestStart.Hour() != 0 {
			t.Errorf("period %d: TestStart %s not aligned to start of day", i, p.TestStart)
		}
	}
	first := periods[0]
	if !first.TrainEnd.Equal(hour(2022, 5, 31, 23)) {
		t.Errorf("first TrainEnd = %s, want 2022-05-31 23:00", first.TrainEnd)
	}
	if !first.TestEnd.Equal(hour(2022, 6, 30, 23)) {
		t.Errorf("first TestEnd = %s, want 2022-06-30 23:00", first.TestEnd)
	}
}

func TestPeriodsHourlyMisalignedStart(t *testing.T) {
	// A mid-day start would let the start-of-day normalization pull
	// TestStart back into the training window, so generation refuses it.
	g := mustGenerator(t, DefaultConfig(Hourly))
	_, err := g.Periods(hour(2021, 6, 1, 5), hour(2023, 12, 31, 23))
	if !errors.Is(err, ErrMisalignedStart) {
		t.Fatalf("err = %v, want ErrMisalignedStart", err)
	}

	// The daily variant does not normalize and accepts any start.
	d := mustGenerator(t, DefaultConfig(Daily))
	periods, err := d.Periods(hour(2021, 6, 1, 5), hour(2023, 12, 31, 23))
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range periods {
		if !p.TrainEnd.Before(p.TestStart) {
			t.Errorf("period %d: TrainEnd %s not before TestStart %s", i, p.TrainEnd, p.TestStart)
		}
	}
}

func TestPeriodsDeterministic(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Daily))
	a, err := g.Periods(date(2021, 6, 1), date(2024, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Periods(date(2021, 6, 1), date(2024, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("period %d differs between runs", i)
		}
	}
}

func TestPeriodsTooShortRange(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Daily))
	// Less than a year plus a month: zero periods, not an error.
	periods, err := g.Periods(date(2021, 6, 1), date(2022, 6, 15))
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 0 {
		t.Fatalf("got %d periods, want 0", len(periods))
	}
}

func TestPeriodsZoneMismatch(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Daily))
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	_, err = g.Periods(date(2021, 6, 1), time.Date(2024, 1, 1, 0, 0, 0, 0, berlin))
	if !errors.Is(err, ErrZoneMismatch) {
		t.Fatalf("err = %v, want ErrZoneMismatch", err)
	}
}

func TestPeriodsEndBeforeStart(t *testing.T) {
	g := mustGenerator(t, DefaultConfig(Daily))
	if _, err := g.Periods(date(2024, 1, 1), date(2021, 6, 1)); !errors.Is(err, ErrEndBeforeStart) {
		t.Fatalf("err = %v, want ErrEndBeforeStart", err)
	}
}

func TestPeriodsCalendarArithmetic(t *testing.T) {
	// A cursor landing on Jan 31 must follow calendar-offset semantics when
	// stepped by a month, not a fixed 30-day delta.
	g := mustGenerator(t, DefaultConfig(Daily))
	periods, err := g.Periods(date(2020, 1, 31), date(2022, 6, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) < 2 {
		t.Fatalf("got %d periods, want at least 2", len(periods))
	}
	// Go normalizes Jan 31 + 1 month to Mar 2 (or Mar 3 in leap years);
	// whatever the normalization, the step must equal AddDate(0,1,0).
	want := periods[0].TrainStart.AddDate(0, 1, 0)
	if !periods[1].TrainStart.Equal(want) {
		t.Errorf("second TrainStart = %s, want %s", periods[1].TrainStart, want)
	}
}

func TestNewGeneratorRejectsZeroWindows(t *testing.T) {
	if _, err := NewGenerator(Config{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}
