package report

import (
	"sort"

	"tally/internal/core"
)

const (
	SortDateDesc   SortOrder = "date-desc"
	SortDateAsc    SortOrder = "date-asc"
	SortAmountDesc SortOrder = "amount-desc"
	SortAmountAsc  SortOrder = "amount-asc"
)

// DefaultPageSize is the fixed page length used by the transaction list.
const DefaultPageSize = 10

type (
	// SortOrder names the supported list orderings.
	SortOrder string

	// Page is one fixed-size slice of a sorted transaction list. Number is
	// 1-indexed; TotalPages is 0 only when the input was empty.
	Page struct {
		Items      []core.Transaction
		Number     int
		TotalPages int
		TotalItems int
	}

	// DayGroup collects one page's transactions sharing a calendar date.
	// Subtotal is income minus expense over the items on this page only:
	// when a day spans a page boundary the subtotal covers just the visible
	// part. That is the established list behavior, kept as-is.
	DayGroup struct {
		Date     core.Date
		Items    []core.Transaction
		Subtotal core.Money
	}
)

// Sort returns a sorted copy of the subset. All orderings are stable, so
// ties keep their relative input order. Dates compare by their fixed-width
// ISO form; undated entries sort together ahead of everything in ascending
// order.
func Sort(subset []core.Transaction, order SortOrder) []core.Transaction {
	out := make([]core.Transaction, len(subset))
	copy(out, subset)
	sort.SliceStable(out, func(i, j int) bool {
		switch order {
		case SortDateAsc:
			return out[i].Date.ISO() < out[j].Date.ISO()
		case SortAmountDesc:
			return out[i].Amount.Cents > out[j].Amount.Cents
		case SortAmountAsc:
			return out[i].Amount.Cents < out[j].Amount.Cents
		default: // newest first
			return out[i].Date.ISO() > out[j].Date.ISO()
		}
	})
	return out
}

// Paginate slices the ordered list into fixed-size pages. The requested
// page number is clamped into [1, TotalPages]; asking past the end returns
// the last valid page rather than an empty one. pageSize <= 0 falls back
// to DefaultPageSize.
func Paginate(ordered []core.Transaction, pageSize, number int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(ordered)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		return Page{Items: nil, Number: 1, TotalPages: 0, TotalItems: 0}
	}
	if number < 1 {
		number = 1
	}
	if number > totalPages {
		number = totalPages
	}
	lo := (number - 1) * pageSize
	hi := lo + pageSize
	if hi > total {
		hi = total
	}
	items := make([]core.Transaction, hi-lo)
	copy(items, ordered[lo:hi])
	return Page{Items: items, Number: number, TotalPages: totalPages, TotalItems: total}
}

// GroupByDay buckets a page's items by calendar date in first-encounter
// order, accumulating the per-day net subtotal.
func GroupByDay(items []core.Transaction) []DayGroup {
	index := make(map[string]int)
	var groups []DayGroup
	for _, t := range items {
		key := t.Date.ISO()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: t.Date})
		}
		groups[i].Items = append(groups[i].Items, t)
		groups[i].Subtotal = groups[i].Subtotal.Add(core.Money{Cents: t.Direction.Sign() * t.Amount.Cents})
	}
	return groups
}
