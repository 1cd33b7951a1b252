package backend

import (
	"context"
	"time"

	"tally/internal/core"
	"tally/internal/invoice"
)

// Ledger is the unified persistence interface both backends implement.
// The reporting core never sees it; services fetch snapshots here and
// hand plain slices to the pure functions.
type Ledger interface {
	AddTransaction(ctx context.Context, t core.Transaction) (string, error)
	DeleteTransaction(ctx context.Context, id string) error
	DeleteTransactions(ctx context.Context, ids []string) (int, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)

	AddAccount(ctx context.Context, a core.Account) (string, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)

	Taxonomy(ctx context.Context) (core.Taxonomy, error)
	SetTaxonomy(ctx context.Context, tax core.Taxonomy) error

	AddInvoice(ctx context.Context, inv invoice.Invoice) (string, error)
	ListInvoices(ctx context.Context) ([]invoice.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error

	// ExportSnapshot and ImportSnapshot move whole-state JSON snapshots
	// for manual backup and restore, regardless of backend.
	ExportSnapshot(ctx context.Context) ([]byte, error)
	ImportSnapshot(ctx context.Context, data []byte) error

	// Revision increments on every mutation; callers key caches on it.
	Revision() uint64

	Close() error
}

// BackendType represents the type of backend
type BackendType string

const (
	JSONBackend   BackendType = "json"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case JSONBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// JSON snapshot backend. FlushDelay is the write debounce window;
	// zero flushes synchronously on every mutation.
	SnapshotPath string
	FlushDelay   time.Duration

	// SQLite backend
	SQLiteDBPath string
}
