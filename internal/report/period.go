// Package report implements the pure reporting core: period resolution,
// transaction filtering, aggregation, statement formatting, and pagination.
// Every function is a side-effect-free transform over snapshots handed in
// by the caller; the package owns no state and performs no I/O.
package report

import (
	"time"

	"tally/internal/core"
)

const (
	PeriodToday     Period = "today"
	PeriodThisWeek  Period = "this-week"
	PeriodThisMonth Period = "this-month"
	PeriodLastMonth Period = "last-month"
	PeriodThisYear  Period = "this-year"
	PeriodAll       Period = "all"
	PeriodCustom    Period = "custom"
)

type (
	// Period names a reporting window relative to a reference date.
	Period string

	// CustomRange carries caller-supplied YYYY-MM-DD bounds for PeriodCustom.
	// The fixed-width ISO form compares lexicographically the same way the
	// parsed dates do.
	CustomRange struct {
		Start string
		End   string
	}

	// DateRange is an inclusive day-granularity window.
	DateRange struct {
		Start time.Time
		End   time.Time
	}
)

func (p Period) IsValid() bool {
	switch p {
	case PeriodToday, PeriodThisWeek, PeriodThisMonth, PeriodLastMonth,
		PeriodThisYear, PeriodAll, PeriodCustom:
		return true
	default:
		return false
	}
}

// Contains reports whether the date falls inside the range. A zero date
// never matches; undated entries are excluded from period-scoped views.
func (r DateRange) Contains(d core.Date) bool {
	if d.IsZero() {
		return false
	}
	day := dayOf(d.Time)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Resolve computes the inclusive date range for a period. The second
// return is false when no filtering applies: PeriodAll always, and
// PeriodCustom with unparseable bounds (the caller then gets an empty
// subset via the none sentinel below, never an error).
func Resolve(p Period, ref time.Time, custom CustomRange) (DateRange, bool) {
	switch p {
	case PeriodToday:
		day := dayOf(ref)
		return DateRange{Start: day, End: day}, true
	case PeriodThisWeek:
		start := weekStart(ref)
		return DateRange{Start: start, End: start.AddDate(0, 0, 6)}, true
	case PeriodThisMonth:
		start := monthStart(ref)
		return DateRange{Start: start, End: start.AddDate(0, 1, -1)}, true
	case PeriodLastMonth:
		// AddDate on the first of the month rolls January back to the
		// previous December without day-of-month normalization surprises.
		start := monthStart(ref).AddDate(0, -1, 0)
		return DateRange{Start: start, End: start.AddDate(0, 1, -1)}, true
	case PeriodThisYear:
		start := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
		return DateRange{Start: start, End: start.AddDate(1, 0, -1)}, true
	case PeriodCustom:
		start, errS := core.ParseDate(custom.Start)
		end, errE := core.ParseDate(custom.End)
		if errS != nil || errE != nil {
			return noneRange(), true
		}
		if end.Before(start.Time) {
			start, end = end, start
		}
		return DateRange{Start: dayOf(start.Time), End: dayOf(end.Time)}, true
	default:
		return DateRange{}, false
	}
}

// Shift moves the reference date by step windows for prev/next navigation.
// Custom and all-time windows are not navigable and return false.
func Shift(p Period, ref time.Time, step int) (time.Time, bool) {
	switch p {
	case PeriodToday:
		return ref.AddDate(0, 0, step), true
	case PeriodThisWeek:
		// Exactly 7 days keeps Monday as the anchor day-of-week.
		return ref.AddDate(0, 0, 7*step), true
	case PeriodThisMonth, PeriodLastMonth:
		return addMonthsClamped(ref, step), true
	case PeriodThisYear:
		return addMonthsClamped(ref, 12*step), true
	default:
		return ref, false
	}
}

// addMonthsClamped adds calendar months preserving the day-of-month,
// clamping to the last day of the target month (Jan 31 + 1 -> Feb 28/29).
func addMonthsClamped(ref time.Time, months int) time.Time {
	start := monthStart(ref).AddDate(0, months, 0)
	day := ref.Day()
	if last := daysInMonth(start.Year(), start.Month()); day > last {
		day = last
	}
	return time.Date(start.Year(), start.Month(), day, 0, 0, 0, 0, ref.Location())
}

// weekStart returns the Monday of the week containing ref. Go numbers
// Sunday as weekday 0; it is treated as day 7 so weeks run Mon..Sun.
func weekStart(ref time.Time) time.Time {
	wd := int(ref.Weekday())
	if wd == 0 {
		wd = 7
	}
	return dayOf(ref).AddDate(0, 0, -(wd - 1))
}

func monthStart(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysInMonth counts via the zeroth-day trick, so leap years come from the
// calendar rather than a fixed table.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// noneRange is an impossible window used when custom bounds are invalid:
// the filtered subset comes back empty instead of an error reaching the view.
func noneRange() DateRange {
	return DateRange{Start: time.Date(1, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)}
}
