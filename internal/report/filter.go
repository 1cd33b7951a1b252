package report

import (
	"strings"
	"time"

	"tally/internal/core"
)

const (
	DirAll     DirectionFilter = "all"
	DirIncome  DirectionFilter = "income"
	DirExpense DirectionFilter = "expense"
)

type (
	// DirectionFilter narrows a view to one transaction direction.
	DirectionFilter string

	// Query is the full set of predicates for one report view. Zero values
	// mean "match everything": empty Categories matches all categories,
	// empty Search matches all text, DirAll (or "") matches both directions.
	Query struct {
		Period     Period
		Custom     CustomRange
		Categories []string
		Search     string
		Direction  DirectionFilter
	}
)

// Filter returns the transactions matching every predicate in q, resolved
// against ref. Input order is preserved and the input is never mutated.
func Filter(txs []core.Transaction, ref time.Time, q Query) []core.Transaction {
	rng, bounded := Resolve(q.Period, ref, q.Custom)
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if !matches(t, rng, bounded, q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t core.Transaction, rng DateRange, bounded bool, q Query) bool {
	if bounded && !rng.Contains(t.Date) {
		return false
	}
	if !matchesDirection(t, q.Direction) {
		return false
	}
	if !matchesCategories(t, q.Categories) {
		return false
	}
	return matchesSearch(t, q.Search)
}

func matchesDirection(t core.Transaction, d DirectionFilter) bool {
	switch d {
	case DirIncome:
		return t.Direction == core.Income
	case DirExpense:
		return t.Direction == core.Expense
	default:
		return true
	}
}

func matchesCategories(t core.Transaction, selected []string) bool {
	if len(selected) == 0 {
		return true // no selection = show all
	}
	for _, c := range selected {
		if t.Category == c {
			return true
		}
	}
	return false
}

// matchesSearch does a case-insensitive substring match across description,
// category, merchant, and the amount rendered as a decimal string.
func matchesSearch(t core.Transaction, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(t.Category), q) ||
		strings.Contains(strings.ToLower(t.Merchant), q) ||
		strings.Contains(t.Amount.String(), q)
}
