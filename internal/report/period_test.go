package report

import (
	"testing"
	"time"

	"tally/internal/core"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestResolveToday(t *testing.T) {
	ref := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	rng, bounded := Resolve(PeriodToday, ref, CustomRange{})
	if !bounded {
		t.Fatalf("expected bounded range")
	}
	if !rng.Start.Equal(date(2024, 3, 15)) || !rng.End.Equal(date(2024, 3, 15)) {
		t.Fatalf("got %v..%v", rng.Start, rng.End)
	}
	if !rng.Contains(core.NewDate(2024, 3, 15)) {
		t.Fatalf("same day should match")
	}
	if rng.Contains(core.NewDate(2024, 3, 16)) {
		t.Fatalf("next day should not match")
	}
}

func TestResolveThisWeekMondayAnchor(t *testing.T) {
	cases := []struct {
		ref       time.Time
		wantStart time.Time
	}{
		{date(2024, 3, 13), date(2024, 3, 11)}, // Wednesday
		{date(2024, 3, 11), date(2024, 3, 11)}, // Monday itself
		{date(2024, 3, 17), date(2024, 3, 11)}, // Sunday belongs to the week before
		{date(2024, 1, 1), date(2024, 1, 1)},   // Monday on new year
	}
	for i, tc := range cases {
		rng, bounded := Resolve(PeriodThisWeek, tc.ref, CustomRange{})
		if !bounded {
			t.Fatalf("case %d expected bounded", i)
		}
		if !rng.Start.Equal(tc.wantStart) {
			t.Fatalf("case %d start %v want %v", i, rng.Start, tc.wantStart)
		}
		if want := tc.wantStart.AddDate(0, 0, 6); !rng.End.Equal(want) {
			t.Fatalf("case %d end %v want %v", i, rng.End, want)
		}
	}
}

func TestResolveMonths(t *testing.T) {
	rng, _ := Resolve(PeriodThisMonth, date(2024, 2, 10), CustomRange{})
	if !rng.Start.Equal(date(2024, 2, 1)) || !rng.End.Equal(date(2024, 2, 29)) {
		t.Fatalf("leap february: got %v..%v", rng.Start, rng.End)
	}

	// Last month must roll back across the year boundary.
	rng, _ = Resolve(PeriodLastMonth, date(2024, 1, 10), CustomRange{})
	if !rng.Start.Equal(date(2023, 12, 1)) || !rng.End.Equal(date(2023, 12, 31)) {
		t.Fatalf("year rollback: got %v..%v", rng.Start, rng.End)
	}
}

func TestResolveThisYear(t *testing.T) {
	rng, _ := Resolve(PeriodThisYear, date(2024, 6, 15), CustomRange{})
	if !rng.Start.Equal(date(2024, 1, 1)) || !rng.End.Equal(date(2024, 12, 31)) {
		t.Fatalf("got %v..%v", rng.Start, rng.End)
	}
}

func TestResolveAllIsUnbounded(t *testing.T) {
	if _, bounded := Resolve(PeriodAll, date(2024, 3, 15), CustomRange{}); bounded {
		t.Fatalf("all-time must not filter")
	}
}

func TestResolveCustom(t *testing.T) {
	rng, bounded := Resolve(PeriodCustom, date(2024, 3, 15), CustomRange{Start: "2024-03-01", End: "2024-03-10"})
	if !bounded || !rng.Start.Equal(date(2024, 3, 1)) || !rng.End.Equal(date(2024, 3, 10)) {
		t.Fatalf("got bounded=%v %v..%v", bounded, rng.Start, rng.End)
	}

	// Reversed bounds are normalized by swapping, never an error.
	rng, _ = Resolve(PeriodCustom, date(2024, 3, 15), CustomRange{Start: "2024-03-10", End: "2024-03-01"})
	if !rng.Start.Equal(date(2024, 3, 1)) || !rng.End.Equal(date(2024, 3, 10)) {
		t.Fatalf("swap: got %v..%v", rng.Start, rng.End)
	}

	// Unparseable bounds yield a range nothing matches.
	rng, bounded = Resolve(PeriodCustom, date(2024, 3, 15), CustomRange{Start: "bogus", End: "2024-03-01"})
	if !bounded {
		t.Fatalf("invalid custom should stay bounded")
	}
	if rng.Contains(core.NewDate(2024, 3, 1)) {
		t.Fatalf("invalid custom must match nothing")
	}
}

func TestShiftWeekKeepsMondayAnchor(t *testing.T) {
	// Navigating from a Wednesday moves by exactly 7 days.
	ref := date(2024, 3, 13)
	next, ok := Shift(PeriodThisWeek, ref, 1)
	if !ok || !next.Equal(date(2024, 3, 20)) {
		t.Fatalf("got %v ok=%v", next, ok)
	}
	rngBefore, _ := Resolve(PeriodThisWeek, ref, CustomRange{})
	rngAfter, _ := Resolve(PeriodThisWeek, next, CustomRange{})
	if !rngAfter.Start.Equal(rngBefore.Start.AddDate(0, 0, 7)) {
		t.Fatalf("window moved %v -> %v", rngBefore.Start, rngAfter.Start)
	}
	if rngAfter.Start.Weekday() != time.Monday {
		t.Fatalf("anchor drifted to %v", rngAfter.Start.Weekday())
	}
}

func TestShiftMonthClamps(t *testing.T) {
	got, ok := Shift(PeriodThisMonth, date(2024, 1, 31), 1)
	if !ok || !got.Equal(date(2024, 2, 29)) {
		t.Fatalf("got %v ok=%v", got, ok)
	}
	got, _ = Shift(PeriodThisMonth, date(2024, 3, 15), -1)
	if !got.Equal(date(2024, 2, 15)) {
		t.Fatalf("got %v", got)
	}
}

func TestShiftYear(t *testing.T) {
	got, ok := Shift(PeriodThisYear, date(2024, 2, 29), 1)
	if !ok || !got.Equal(date(2025, 2, 28)) {
		t.Fatalf("got %v ok=%v", got, ok)
	}
}

func TestShiftNotOfferedForCustomOrAll(t *testing.T) {
	if _, ok := Shift(PeriodCustom, date(2024, 3, 15), 1); ok {
		t.Fatalf("custom must not navigate")
	}
	if _, ok := Shift(PeriodAll, date(2024, 3, 15), 1); ok {
		t.Fatalf("all-time must not navigate")
	}
}

func TestFilterRoundTrip(t *testing.T) {
	// filter(all, range) == filter(filter(all, range), range)
	all := sampleLedger()
	ref := date(2024, 3, 15)
	q := Query{Period: PeriodThisMonth}
	once := Filter(all, ref, q)
	twice := Filter(once, ref, q)
	if len(once) != len(twice) {
		t.Fatalf("round trip changed size: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("round trip changed order at %d", i)
		}
	}
}
