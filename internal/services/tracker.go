// Package services orchestrates the ledger backend, the pure reporting
// functions, the assistant, and the backup target behind one façade the
// CLI talks to.
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"tally/internal/backend"
	"tally/internal/backup"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/invoice"
	"tally/internal/report"
	"tally/internal/scan"
)

const (
	summaryCacheSize = 64
	summaryCacheTTL  = 5 * time.Minute
)

// ErrAssistantUnavailable is returned when a scan or advice operation is
// requested but no assistant was configured.
var ErrAssistantUnavailable = errors.New("assistant not configured")

// ErrBackupUnavailable is returned when no backup target was configured.
var ErrBackupUnavailable = errors.New("backup target not configured")

type (
	// TrackerService orchestrates reads and writes. Reporting itself is
	// pure; this layer fetches the ledger state, runs the report
	// functions, and memoizes summaries keyed on the ledger revision so
	// repeated views of an unchanged ledger cost one computation.
	TrackerService struct {
		ledger    backend.Ledger
		assistant *scan.Assistant
		target    backup.Target
		summaries cache.Cache[report.Summary]
		pageSize  int
		now       func() time.Time
	}

	// Options configures optional collaborators.
	Options struct {
		Assistant *scan.Assistant
		Backup    backup.Target
		PageSize  int
		Now       func() time.Time
	}
)

func NewTrackerService(ledger backend.Ledger, opts Options) *TrackerService {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = report.DefaultPageSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TrackerService{
		ledger:    ledger,
		assistant: opts.Assistant,
		target:    opts.Backup,
		summaries: cache.NewLRUCache[report.Summary](summaryCacheSize, summaryCacheTTL),
		pageSize:  pageSize,
		now:       now,
	}
}

// AddTransaction validates and stores a transaction.
func (s *TrackerService) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	id, err := s.ledger.AddTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("add transaction: %w", err)
	}
	return id, nil
}

// DeleteTransaction removes one transaction by ID.
func (s *TrackerService) DeleteTransaction(ctx context.Context, id string) error {
	return s.ledger.DeleteTransaction(ctx, id)
}

// DeleteTransactions removes several transactions, returning how many
// actually existed.
func (s *TrackerService) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	return s.ledger.DeleteTransactions(ctx, ids)
}

// AddAccount validates and stores an account.
func (s *TrackerService) AddAccount(ctx context.Context, a core.Account) (string, error) {
	id, err := s.ledger.AddAccount(ctx, a)
	if err != nil {
		return "", fmt.Errorf("add account: %w", err)
	}
	return id, nil
}

// Accounts returns every account with its derived all-time balance.
func (s *TrackerService) Accounts(ctx context.Context) ([]report.AccountBalance, error) {
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return report.AccountBalances(accounts, txs), nil
}

// Taxonomy returns the configured category lists.
func (s *TrackerService) Taxonomy(ctx context.Context) (core.Taxonomy, error) {
	return s.ledger.Taxonomy(ctx)
}

// SetTaxonomy replaces the configured category lists.
func (s *TrackerService) SetTaxonomy(ctx context.Context, tax core.Taxonomy) error {
	return s.ledger.SetTaxonomy(ctx, tax)
}

// ListPage filters, sorts, and paginates the transaction list.
func (s *TrackerService) ListPage(ctx context.Context, q report.Query, order report.SortOrder, page int) (report.Page, error) {
	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return report.Page{}, fmt.Errorf("list transactions: %w", err)
	}
	subset := report.Filter(txs, s.now(), q)
	return report.Paginate(report.Sort(subset, order), s.pageSize, page), nil
}

// ShiftReference moves the service's reference date by step windows of p,
// for prev/next period navigation. Returns false when the period is not
// navigable (custom and all-time windows).
func (s *TrackerService) ShiftReference(p report.Period, step int) bool {
	ref, ok := report.Shift(p, s.now(), step)
	if !ok {
		return false
	}
	s.now = func() time.Time { return ref }
	return true
}

// Summary computes the aggregate view for a query, memoized on the ledger
// revision so unchanged data never recomputes.
func (s *TrackerService) Summary(ctx context.Context, q report.Query) (report.Summary, error) {
	ref := s.now()
	key := summaryKey(s.ledger.Revision(), ref, q)
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}

	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return report.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return report.Summary{}, fmt.Errorf("list accounts: %w", err)
	}

	sum := report.Summarize(txs, accounts, ref, q)
	s.summaries.Set(key, sum)
	return sum, nil
}

// VisualReport shapes the chart-oriented view for a query. Category
// selection narrows the distribution only, so it is stripped from the
// filter here: the headline totals and the time series always cover the
// whole period. A query's Categories field counts as the selection when
// selected is empty.
func (s *TrackerService) VisualReport(ctx context.Context, q report.Query, selected []string) (report.VisualReport, error) {
	if len(selected) == 0 {
		selected = q.Categories
	}
	q.Categories = nil

	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return report.VisualReport{}, fmt.Errorf("list transactions: %w", err)
	}
	ref := s.now()
	subset := report.Filter(txs, ref, q)
	return report.BuildVisualReport(subset, q.Period, ref, q.Custom, selected), nil
}

// Statement builds the income-statement view for a query.
func (s *TrackerService) Statement(ctx context.Context, q report.Query, selected []string) (report.Statement, error) {
	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return report.Statement{}, fmt.Errorf("list transactions: %w", err)
	}
	subset := report.Filter(txs, s.now(), q)
	return report.BuildStatement(subset, selected), nil
}

// WriteStatementCSV exports a statement through the same row model the
// on-screen view uses.
func WriteStatementCSV(w io.Writer, st report.Statement) error {
	cw := csv.NewWriter(w)
	for _, row := range st.Rows() {
		if err := cw.Write(row[:]); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ScanReceipt runs the assistant over a receipt image and returns the
// normalized draft, without storing anything.
func (s *TrackerService) ScanReceipt(ctx context.Context, image []byte, mimeType string) (scan.Receipt, error) {
	if s.assistant == nil {
		return scan.Receipt{}, ErrAssistantUnavailable
	}
	tax, err := s.ledger.Taxonomy(ctx)
	if err != nil {
		return scan.Receipt{}, fmt.Errorf("load taxonomy: %w", err)
	}
	return s.assistant.ScanReceipt(ctx, image, mimeType, tax)
}

// ImportReceipt stores a scanned receipt as an expense on the given
// account.
func (s *TrackerService) ImportReceipt(ctx context.Context, r scan.Receipt, accountID string) (string, error) {
	return s.AddTransaction(ctx, r.Transaction(s.now(), accountID))
}

// Advise asks the assistant for advice grounded in the summary for q.
func (s *TrackerService) Advise(ctx context.Context, q report.Query) (string, error) {
	if s.assistant == nil {
		return "", ErrAssistantUnavailable
	}
	sum, err := s.Summary(ctx, q)
	if err != nil {
		return "", err
	}
	return s.assistant.Advise(ctx, sum, string(q.Period))
}

// Backup exports the ledger and uploads the snapshot to the configured
// target.
func (s *TrackerService) Backup(ctx context.Context) (backup.Entry, error) {
	if s.target == nil {
		return backup.Entry{}, ErrBackupUnavailable
	}
	snapshot, err := s.ledger.ExportSnapshot(ctx)
	if err != nil {
		return backup.Entry{}, fmt.Errorf("export snapshot: %w", err)
	}
	entry, err := s.target.Upload(ctx, snapshot, s.now())
	if err != nil {
		return backup.Entry{}, err
	}
	slog.InfoContext(ctx, "Backup complete", "name", entry.Name)
	return entry, nil
}

// ListBackups lists the stored snapshots, newest first.
func (s *TrackerService) ListBackups(ctx context.Context) ([]backup.Entry, error) {
	if s.target == nil {
		return nil, ErrBackupUnavailable
	}
	return s.target.List(ctx)
}

// Restore replaces the ledger with a stored snapshot. An empty id means
// the most recent one.
func (s *TrackerService) Restore(ctx context.Context, id string) error {
	if s.target == nil {
		return ErrBackupUnavailable
	}

	var (
		snapshot []byte
		err      error
	)
	if id == "" {
		snapshot, err = backup.Latest(ctx, s.target)
	} else {
		snapshot, err = s.target.Download(ctx, id)
	}
	if err != nil {
		return err
	}

	if err := s.ledger.ImportSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Restore complete", "size", len(snapshot))
	return nil
}

// AddInvoice validates and stores an invoice.
func (s *TrackerService) AddInvoice(ctx context.Context, inv invoice.Invoice) (string, error) {
	return s.ledger.AddInvoice(ctx, inv)
}

// Invoices lists stored invoices.
func (s *TrackerService) Invoices(ctx context.Context) ([]invoice.Invoice, error) {
	return s.ledger.ListInvoices(ctx)
}

// DeleteInvoice removes one invoice by ID.
func (s *TrackerService) DeleteInvoice(ctx context.Context, id string) error {
	return s.ledger.DeleteInvoice(ctx, id)
}

// Close flushes and closes the ledger backend.
func (s *TrackerService) Close() error {
	return s.ledger.Close()
}

// summaryKey builds a cache key covering everything Summary depends on.
// The reference date participates because relative periods resolve
// against it.
func summaryKey(revision uint64, ref time.Time, q report.Query) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s",
		revision,
		ref.Format(core.DateLayout),
		q.Period,
		q.Custom.Start+".."+q.Custom.End,
		strings.Join(q.Categories, ","),
		q.Search,
		q.Direction,
	)
}
