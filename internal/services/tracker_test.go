package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tally/internal/backup"
	"tally/internal/core"
	"tally/internal/report"
	"tally/internal/store"
)

var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts Options) *TrackerService {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tally.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	st.SetFlushDelay(0)
	t.Cleanup(func() { st.Close() })

	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return NewTrackerService(st, opts)
}

func addTx(t *testing.T, s *TrackerService, iso string, cents int64, dir core.Direction, cat string) string {
	t.Helper()
	d, err := core.ParseDate(iso)
	if err != nil {
		t.Fatalf("parse date %s: %v", iso, err)
	}
	id, err := s.AddTransaction(context.Background(), core.Transaction{
		Date: d, Amount: core.Money{Cents: cents}, Direction: dir,
		Category: cat, Description: cat + " entry",
	})
	if err != nil {
		t.Fatalf("add tx: %v", err)
	}
	return id
}

func TestListPageFiltersAndPaginates(t *testing.T) {
	s := newTestService(t, Options{PageSize: 2})
	ctx := context.Background()

	addTx(t, s, "2024-03-01", 100, core.Expense, "Groceries")
	addTx(t, s, "2024-03-05", 200, core.Expense, "Transport")
	addTx(t, s, "2024-03-10", 300, core.Expense, "Groceries")
	addTx(t, s, "2024-02-10", 400, core.Expense, "Groceries") // outside this-month

	page, err := s.ListPage(ctx, report.Query{Period: report.PeriodThisMonth}, report.SortDateDesc, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalItems != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("page shape: %+v", page)
	}
	if page.Items[0].Date.ISO() != "2024-03-10" {
		t.Fatalf("order: %s", page.Items[0].Date.ISO())
	}

	// Past-the-end requests clamp to the last page.
	last, err := s.ListPage(ctx, report.Query{Period: report.PeriodThisMonth}, report.SortDateDesc, 99)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if last.Number != 2 || len(last.Items) != 1 {
		t.Fatalf("clamped page: %+v", last)
	}
}

func TestSummaryMemoizedUntilLedgerChanges(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()
	q := report.Query{Period: report.PeriodThisMonth}

	addTx(t, s, "2024-03-01", 1000, core.Expense, "Groceries")

	first, err := s.Summary(ctx, q)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if first.TotalExpense.Cents != 1000 {
		t.Fatalf("expense = %d", first.TotalExpense.Cents)
	}
	if s.summaries.Size() != 1 {
		t.Fatalf("cache size = %d", s.summaries.Size())
	}

	again, err := s.Summary(ctx, q)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.summaries.Size() != 1 {
		t.Fatalf("repeat query should hit cache, size = %d", s.summaries.Size())
	}
	if again.TotalExpense.Cents != 1000 {
		t.Fatalf("cached expense = %d", again.TotalExpense.Cents)
	}

	// A write advances the revision, so the next summary recomputes.
	addTx(t, s, "2024-03-02", 500, core.Expense, "Transport")
	updated, err := s.Summary(ctx, q)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if updated.TotalExpense.Cents != 1500 {
		t.Fatalf("stale summary after write: %d", updated.TotalExpense.Cents)
	}
}

func TestAccountsDeriveAllTimeBalances(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()

	accID, err := s.AddAccount(ctx, core.Account{Name: "Wallet", Type: core.Cash, InitialBalance: core.Money{Cents: 5000}})
	if err != nil {
		t.Fatalf("add account: %v", err)
	}
	d, _ := core.ParseDate("2023-12-31")
	if _, err := s.AddTransaction(ctx, core.Transaction{
		Date: d, Amount: core.Money{Cents: 2000}, Direction: core.Expense,
		Category: "Gifts", Description: "presents", AccountID: accID,
	}); err != nil {
		t.Fatalf("add tx: %v", err)
	}

	balances, err := s.Accounts(ctx)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(balances) != 1 || balances[0].Balance.Cents != 3000 {
		t.Fatalf("balances: %+v", balances)
	}
}

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	target, err := backup.NewLocalTarget(t.TempDir(), 5)
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	s := newTestService(t, Options{Backup: target})
	ctx := context.Background()

	addTx(t, s, "2024-03-01", 1234, core.Expense, "Groceries")

	entry, err := s.Backup(ctx)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if entry.Name == "" {
		t.Fatal("empty backup name")
	}

	// Wipe by restoring into a fresh service sharing the target.
	fresh := newTestService(t, Options{Backup: target})
	if err := fresh.Restore(ctx, ""); err != nil {
		t.Fatalf("restore: %v", err)
	}
	page, err := fresh.ListPage(ctx, report.Query{Period: report.PeriodAll}, report.SortDateDesc, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].Amount.Cents != 1234 {
		t.Fatalf("restored page: %+v", page)
	}
}

func TestBackupUnconfigured(t *testing.T) {
	s := newTestService(t, Options{})
	if _, err := s.Backup(context.Background()); !errors.Is(err, ErrBackupUnavailable) {
		t.Fatalf("got %v", err)
	}
	if err := s.Restore(context.Background(), ""); !errors.Is(err, ErrBackupUnavailable) {
		t.Fatalf("got %v", err)
	}
}

func TestAssistantUnconfigured(t *testing.T) {
	s := newTestService(t, Options{})
	if _, err := s.ScanReceipt(context.Background(), []byte{1}, "image/png"); !errors.Is(err, ErrAssistantUnavailable) {
		t.Fatalf("got %v", err)
	}
	if _, err := s.Advise(context.Background(), report.Query{}); !errors.Is(err, ErrAssistantUnavailable) {
		t.Fatalf("got %v", err)
	}
}

func TestVisualReportSelectionKeepsTotalsAndSeries(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()

	addTx(t, s, "2024-03-01", 10000, core.Income, "Sales")
	addTx(t, s, "2024-03-02", 4000, core.Expense, "Supplies")
	addTx(t, s, "2024-03-03", 2000, core.Expense, "Transport")

	// Selection arrives on the query, the way the list filter carries it.
	q := report.Query{Period: report.PeriodThisMonth, Categories: []string{"Supplies"}}
	vr, err := s.VisualReport(ctx, q, nil)
	if err != nil {
		t.Fatalf("visual report: %v", err)
	}

	if vr.TotalIncome.Cents != 10000 || vr.TotalExpense.Cents != 6000 {
		t.Fatalf("selection narrowed the totals: income=%d expense=%d", vr.TotalIncome.Cents, vr.TotalExpense.Cents)
	}
	if len(vr.Distribution) != 1 || vr.Distribution[0].Name != "Supplies" {
		t.Fatalf("distribution not narrowed: %+v", vr.Distribution)
	}
	var seriesExpense int64
	for _, pt := range vr.Series {
		seriesExpense += pt.Expense.Cents
	}
	if seriesExpense != 6000 {
		t.Fatalf("selection narrowed the series: %d", seriesExpense)
	}

	// Passing the selection explicitly behaves identically.
	explicit, err := s.VisualReport(ctx, report.Query{Period: report.PeriodThisMonth}, []string{"Supplies"})
	if err != nil {
		t.Fatalf("visual report: %v", err)
	}
	if explicit.TotalIncome != vr.TotalIncome || len(explicit.Distribution) != len(vr.Distribution) {
		t.Fatalf("explicit selection diverged: %+v", explicit)
	}
}

func TestShiftReferenceMovesPeriodWindow(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()

	addTx(t, s, "2024-03-05", 300, core.Expense, "Groceries")
	addTx(t, s, "2024-02-05", 200, core.Expense, "Groceries")

	if !s.ShiftReference(report.PeriodThisMonth, -1) {
		t.Fatal("this-month should be navigable")
	}
	page, err := s.ListPage(ctx, report.Query{Period: report.PeriodThisMonth}, report.SortDateDesc, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].Date.ISO() != "2024-02-05" {
		t.Fatalf("shifted window wrong: %+v", page)
	}

	sum, err := s.Summary(ctx, report.Query{Period: report.PeriodThisMonth})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalExpense.Cents != 200 {
		t.Fatalf("summary not shifted: %d", sum.TotalExpense.Cents)
	}

	if s.ShiftReference(report.PeriodAll, -1) {
		t.Fatal("all-time window must not be navigable")
	}
	if s.ShiftReference(report.PeriodCustom, 1) {
		t.Fatal("custom window must not be navigable")
	}
}

func TestWriteStatementCSV(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()

	addTx(t, s, "2024-03-01", 100000, core.Income, "Salary")
	addTx(t, s, "2024-03-02", 30000, core.Expense, "Rent")

	st, err := s.Statement(ctx, report.Query{Period: report.PeriodThisMonth}, nil)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteStatementCSV(&buf, st); err != nil {
		t.Fatalf("csv: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Salary,1000.00", "Rent,300.00", "Net Profit,700.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("csv missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryKeyCoversQuery(t *testing.T) {
	base := summaryKey(1, testNow, report.Query{Period: report.PeriodThisMonth})
	variants := []report.Query{
		{Period: report.PeriodThisWeek},
		{Period: report.PeriodThisMonth, Search: "coffee"},
		{Period: report.PeriodThisMonth, Categories: []string{"Rent"}},
		{Period: report.PeriodThisMonth, Direction: report.DirExpense},
		{Period: report.PeriodCustom, Custom: report.CustomRange{Start: "2024-01-01", End: "2024-02-01"}},
	}
	for _, q := range variants {
		if summaryKey(1, testNow, q) == base {
			t.Errorf("key collision for %+v", q)
		}
	}
	if summaryKey(2, testNow, report.Query{Period: report.PeriodThisMonth}) == base {
		t.Error("revision not in key")
	}
}
