package report

import (
	"strings"
	"testing"

	"tally/internal/core"
)

func TestBuildStatement(t *testing.T) {
	subset := []core.Transaction{
		tx("1", "2024-03-01", 10000, core.Income, "Sales"),
		tx("2", "2024-03-03", 2500, core.Income, "Consulting"),
		tx("3", "2024-03-01", 4000, core.Expense, "Supplies"),
		tx("4", "2024-03-02", 2000, core.Expense, "Transport"),
		tx("5", "2024-03-04", 3000, core.Expense, "Supplies"),
	}
	st := BuildStatement(subset, nil)

	if len(st.IncomeLines) != 2 || st.IncomeLines[0].Category != "Sales" {
		t.Fatalf("income lines: %+v", st.IncomeLines)
	}
	if len(st.ExpenseLines) != 2 || st.ExpenseLines[0].Category != "Supplies" || st.ExpenseLines[0].Amount.Cents != 7000 {
		t.Fatalf("expense lines: %+v", st.ExpenseLines)
	}
	if st.TotalRevenue.Cents != 12500 || st.TotalExpense.Cents != 9000 || st.NetProfit.Cents != 3500 {
		t.Fatalf("totals: %+v", st)
	}
}

// Net recomputed from the accounting line items must equal the visual net.
func TestStatementNetMatchesVisualNet(t *testing.T) {
	subset := sampleLedger()
	vr := BuildVisualReport(subset, PeriodAll, date(2024, 3, 15), CustomRange{}, nil)
	st := BuildStatement(subset, nil)

	var fromLines int64
	for _, li := range st.IncomeLines {
		fromLines += li.Amount.Cents
	}
	for _, li := range st.ExpenseLines {
		fromLines -= li.Amount.Cents
	}
	if fromLines != vr.Net.Cents || st.NetProfit.Cents != vr.Net.Cents {
		t.Fatalf("nets disagree: lines=%d statement=%d visual=%d", fromLines, st.NetProfit.Cents, vr.Net.Cents)
	}
}

func TestStatementEmptyInput(t *testing.T) {
	st := BuildStatement(nil, nil)
	if len(st.IncomeLines) != 0 || len(st.ExpenseLines) != 0 {
		t.Fatalf("expected empty groupings")
	}
	if st.TotalRevenue.Cents != 0 || st.TotalExpense.Cents != 0 || st.NetProfit.Cents != 0 {
		t.Fatalf("expected zero totals")
	}
}

func TestTopExpenses(t *testing.T) {
	subset := []core.Transaction{
		tx("a", "2024-03-01", 100, core.Expense, "X"),
		tx("b", "2024-03-01", 900, core.Expense, "X"),
		tx("c", "2024-03-01", 500, core.Expense, "X"),
		tx("d", "2024-03-01", 500, core.Expense, "X"), // ties keep input order
		tx("e", "2024-03-01", 9999, core.Income, "Y"), // income never listed
		tx("f", "2024-03-01", 300, core.Expense, "X"),
		tx("g", "2024-03-01", 700, core.Expense, "X"),
		tx("h", "2024-03-01", 50, core.Expense, "X"),
	}
	got := TopExpenses(subset, 5)
	if !equalIDs(got, "b", "g", "c", "d", "f") {
		t.Fatalf("got %v", ids(got))
	}
}

func TestCategorySelectionAsymmetry(t *testing.T) {
	subset := []core.Transaction{
		tx("1", "2024-03-01", 10000, core.Income, "Sales"),
		tx("2", "2024-03-01", 4000, core.Expense, "Supplies"),
		tx("3", "2024-03-02", 2000, core.Expense, "Transport"),
	}
	vr := BuildVisualReport(subset, PeriodThisMonth, date(2024, 3, 15), CustomRange{}, []string{"Supplies"})

	// Distribution is narrowed...
	if len(vr.Distribution) != 1 || vr.Distribution[0].Name != "Supplies" {
		t.Fatalf("distribution: %+v", vr.Distribution)
	}
	// ...but headline totals and the series still cover the whole period.
	if vr.TotalIncome.Cents != 10000 || vr.TotalExpense.Cents != 6000 {
		t.Fatalf("selection leaked into totals: %+v", vr)
	}
	var seriesExpense int64
	for _, p := range vr.Series {
		seriesExpense += p.Expense.Cents
	}
	if seriesExpense != 6000 {
		t.Fatalf("selection leaked into series: %d", seriesExpense)
	}

	// The statement narrows its line items to the same selection.
	st := BuildStatement(subset, []string{"Supplies"})
	if len(st.ExpenseLines) != 1 || st.ExpenseLines[0].Category != "Supplies" {
		t.Fatalf("statement lines: %+v", st.ExpenseLines)
	}
	if len(st.IncomeLines) != 0 {
		t.Fatalf("income lines should be filtered out: %+v", st.IncomeLines)
	}
}

// The export and the display shape come from the same rows.
func TestStatementRenderMatchesRows(t *testing.T) {
	st := BuildStatement(sampleLedger(), nil)
	rows := st.Rows()
	rendered := st.Render("\t")

	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	if len(lines) != len(rows) {
		t.Fatalf("%d lines vs %d rows", len(lines), len(rows))
	}
	for i, row := range rows {
		want := row[0]
		if row[1] != "" {
			want = row[0] + "\t" + row[1]
		}
		if lines[i] != want {
			t.Fatalf("line %d: %q want %q", i, lines[i], want)
		}
	}
	// Rendering twice is deterministic.
	if st.Render("\t") != rendered {
		t.Fatalf("render not deterministic")
	}
}
