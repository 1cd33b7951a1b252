package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"tally/internal/core"
)

type (
	// CategoryAmount is one category's summed amount.
	CategoryAmount struct {
		Name   string
		Amount core.Money
	}

	// AccountBalance pairs an account with its derived current balance.
	AccountBalance struct {
		Account core.Account
		Balance core.Money
	}

	// SeriesPoint is one time bucket of the income/expense chart. Order is
	// a numeric chronological key; display order never depends on the
	// insertion order of the source list.
	SeriesPoint struct {
		Label   string
		Income  core.Money
		Expense core.Money
		Order   int64
	}

	// Summary is the full aggregate over one period-filtered subset.
	Summary struct {
		TotalIncome  core.Money
		TotalExpense core.Money
		Net          core.Money
		ByCategory   []CategoryAmount
		ByAccount    []AccountBalance
		Series       []SeriesPoint
	}
)

// Totals sums amounts grouped by direction. Undated transactions still
// count here; only date-bucketed views exclude them.
func Totals(subset []core.Transaction) (income, expense, net core.Money) {
	for _, t := range subset {
		switch t.Direction {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense, income.Sub(expense)
}

// CategoryBreakdown sums expense amounts per category, sorted descending.
// Ties keep first-encountered-category order. Categories no longer on the
// configured lists still get their own bucket.
func CategoryBreakdown(subset []core.Transaction) []CategoryAmount {
	sums := make(map[string]int64)
	var order []string
	for _, t := range subset {
		if t.Direction != core.Expense {
			continue
		}
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
		}
		sums[t.Category] += t.Amount.Cents
	}

	out := make([]CategoryAmount, 0, len(order))
	for _, name := range order {
		out = append(out, CategoryAmount{Name: name, Amount: core.Money{Cents: sums[name]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// AccountBalances derives every account's current balance over the full
// ledger. Balances are always all-time: the active period filter applies
// to the other stats but deliberately not here, so callers must pass the
// unfiltered transaction list. Transactions without a resolved account
// are skipped (they still count in global totals).
func AccountBalances(accounts []core.Account, all []core.Transaction) []AccountBalance {
	deltas := make(map[string]int64, len(accounts))
	for _, t := range all {
		if t.AccountID == "" {
			continue
		}
		deltas[t.AccountID] += t.Direction.Sign() * t.Amount.Cents
	}

	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountBalance{
			Account: a,
			Balance: core.Money{Cents: a.InitialBalance.Cents + deltas[a.ID]},
		})
	}
	return out
}

// Series buckets the subset into income/expense pairs. Bucket key and
// pre-fill policy follow the period:
//
//   - this-year: month buckets, all 12 pre-filled with zeros so empty
//     months still render
//   - all: month buckets with a 2-digit year suffix (no pre-fill, the
//     range is unbounded), ordered by true chronology
//   - this-month / last-month: day-of-month buckets pre-filled for every
//     calendar day of that month
//   - this-week / today: weekday buckets ordered Mon(1)..Sun(7)
//   - custom: one bucket per calendar day present, no pre-fill
//
// Undated transactions are excluded. The result is sorted by the numeric
// order key regardless of source-list order.
func Series(subset []core.Transaction, p Period, ref time.Time, custom CustomRange) []SeriesPoint {
	byKey := make(map[string]*SeriesPoint)
	var points []*SeriesPoint

	bucket := func(label string, order int64) *SeriesPoint {
		if pt, ok := byKey[label]; ok {
			return pt
		}
		pt := &SeriesPoint{Label: label, Order: order}
		byKey[label] = pt
		points = append(points, pt)
		return pt
	}

	switch p {
	case PeriodThisYear:
		for m := time.January; m <= time.December; m++ {
			bucket(monthAbbr(m), int64(m))
		}
	case PeriodThisMonth, PeriodLastMonth:
		rng, _ := Resolve(p, ref, custom)
		year, month := rng.Start.Year(), rng.Start.Month()
		for d := 1; d <= daysInMonth(year, month); d++ {
			bucket(strconv.Itoa(d), int64(d))
		}
	}

	for _, t := range subset {
		if t.Date.IsZero() {
			continue
		}
		pt := bucketFor(bucket, p, t.Date)
		switch t.Direction {
		case core.Income:
			pt.Income = pt.Income.Add(t.Amount)
		case core.Expense:
			pt.Expense = pt.Expense.Add(t.Amount)
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Order < points[j].Order
	})
	out := make([]SeriesPoint, len(points))
	for i, pt := range points {
		out[i] = *pt
	}
	return out
}

func bucketFor(bucket func(string, int64) *SeriesPoint, p Period, d core.Date) *SeriesPoint {
	switch p {
	case PeriodThisYear:
		return bucket(monthAbbr(d.Month()), int64(d.Month()))
	case PeriodThisMonth, PeriodLastMonth:
		return bucket(strconv.Itoa(d.Day()), int64(d.Day()))
	case PeriodThisWeek, PeriodToday:
		wd := int64(d.Weekday())
		if wd == 0 {
			wd = 7 // Sunday sorts last in a Monday-anchored week
		}
		return bucket(d.Weekday().String()[:3], wd)
	case PeriodCustom:
		day := dayOf(d.Time)
		return bucket(d.ISO(), day.Unix()/86400)
	default: // all-time: months across years need the year suffix
		label := fmt.Sprintf("%s %02d", monthAbbr(d.Month()), d.Year()%100)
		return bucket(label, int64(d.Year())*12+int64(d.Month()))
	}
}

func monthAbbr(m time.Month) string {
	return m.String()[:3]
}

// Summarize runs the whole pipeline for one view: filter by q, then
// totals, expense distribution, and time series over the subset, plus
// all-time account balances over the full ledger.
func Summarize(all []core.Transaction, accounts []core.Account, ref time.Time, q Query) Summary {
	subset := Filter(all, ref, q)
	income, expense, net := Totals(subset)
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Net:          net,
		ByCategory:   CategoryBreakdown(subset),
		ByAccount:    AccountBalances(accounts, all),
		Series:       Series(subset, q.Period, ref, q.Custom),
	}
}
