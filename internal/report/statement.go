package report

import (
	"sort"
	"strings"
	"time"

	"tally/internal/core"
)

// topExpenseCount is how many of the largest expense transactions the
// visual report lists.
const topExpenseCount = 5

type (
	// VisualReport is the chart-oriented shape: period totals, the expense
	// category distribution, the largest expense transactions, and the
	// time series.
	VisualReport struct {
		TotalIncome  core.Money
		TotalExpense core.Money
		Net          core.Money
		Distribution []CategoryAmount
		TopExpenses  []core.Transaction
		Series       []SeriesPoint
	}

	// LineItem is one category line of the income statement.
	LineItem struct {
		Category string
		Amount   core.Money
	}

	// Statement is the accounting-oriented shape: category line items per
	// direction plus revenue, expense, and net profit totals.
	Statement struct {
		IncomeLines  []LineItem
		ExpenseLines []LineItem
		TotalRevenue core.Money
		TotalExpense core.Money
		NetProfit    core.Money
	}
)

// BuildVisualReport shapes a period-filtered subset for display. The
// selected category list narrows the distribution only; the totals and
// the series stay computed over the whole subset, matching how the
// dashboard keeps its headline numbers stable while drilling into
// categories.
func BuildVisualReport(subset []core.Transaction, p Period, ref time.Time, custom CustomRange, selected []string) VisualReport {
	income, expense, net := Totals(subset)
	return VisualReport{
		TotalIncome:  income,
		TotalExpense: expense,
		Net:          net,
		Distribution: CategoryBreakdown(selectCategories(subset, selected)),
		TopExpenses:  TopExpenses(subset, topExpenseCount),
		Series:       Series(subset, p, ref, custom),
	}
}

// TopExpenses returns the n largest expense transactions, descending by
// amount with ties kept in original order.
func TopExpenses(subset []core.Transaction, n int) []core.Transaction {
	var expenses []core.Transaction
	for _, t := range subset {
		if t.Direction == core.Expense {
			expenses = append(expenses, t)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.Cents > expenses[j].Amount.Cents
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}
	return expenses
}

// BuildStatement groups the subset by category within each direction into
// two line-item lists sorted descending by amount. A non-empty selected
// list narrows the line items; totals are recomputed from the included
// lines so the statement always balances internally.
func BuildStatement(subset []core.Transaction, selected []string) Statement {
	narrowed := selectCategories(subset, selected)

	st := Statement{
		IncomeLines:  lineItems(narrowed, core.Income),
		ExpenseLines: lineItems(narrowed, core.Expense),
	}
	for _, li := range st.IncomeLines {
		st.TotalRevenue = st.TotalRevenue.Add(li.Amount)
	}
	for _, li := range st.ExpenseLines {
		st.TotalExpense = st.TotalExpense.Add(li.Amount)
	}
	st.NetProfit = st.TotalRevenue.Sub(st.TotalExpense)
	return st
}

func lineItems(subset []core.Transaction, d core.Direction) []LineItem {
	sums := make(map[string]int64)
	var order []string
	for _, t := range subset {
		if t.Direction != d {
			continue
		}
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
		}
		sums[t.Category] += t.Amount.Cents
	}

	out := make([]LineItem, 0, len(order))
	for _, name := range order {
		out = append(out, LineItem{Category: name, Amount: core.Money{Cents: sums[name]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

func selectCategories(subset []core.Transaction, selected []string) []core.Transaction {
	if len(selected) == 0 {
		return subset
	}
	out := make([]core.Transaction, 0, len(subset))
	for _, t := range subset {
		if matchesCategories(t, selected) {
			out = append(out, t)
		}
	}
	return out
}

// Rows renders the statement as ordered label/amount pairs. Both the
// on-screen view and the delimited export go through this one function so
// they can never disagree on grouping or order.
func (s Statement) Rows() [][2]string {
	rows := make([][2]string, 0, len(s.IncomeLines)+len(s.ExpenseLines)+5)
	rows = append(rows, [2]string{"Revenue", ""})
	for _, li := range s.IncomeLines {
		rows = append(rows, [2]string{li.Category, li.Amount.String()})
	}
	rows = append(rows, [2]string{"Total Revenue", s.TotalRevenue.String()})
	rows = append(rows, [2]string{"Expenses", ""})
	for _, li := range s.ExpenseLines {
		rows = append(rows, [2]string{li.Category, li.Amount.String()})
	}
	rows = append(rows, [2]string{"Total Expenses", s.TotalExpense.String()})
	rows = append(rows, [2]string{"Net Profit", s.NetProfit.String()})
	return rows
}

// Render writes the statement as a flat delimited text table, one row per
// line, columns joined by sep.
func (s Statement) Render(sep string) string {
	var b strings.Builder
	for _, row := range s.Rows() {
		b.WriteString(row[0])
		if row[1] != "" {
			b.WriteString(sep)
			b.WriteString(row[1])
		}
		b.WriteString("\n")
	}
	return b.String()
}
