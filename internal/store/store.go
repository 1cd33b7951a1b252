// Package store is the default ledger backend: the whole state lives in
// memory and is flushed to a single JSON snapshot file. Writes are
// debounced so bursts of entry (imports, bulk deletes) hit the disk once;
// durability is last-write-wins, matching how the tracker treats its data.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/invoice"
)

// DefaultFlushDelay is how long a dirty store waits for more mutations
// before writing the snapshot.
const DefaultFlushDelay = 500 * time.Millisecond

var ErrNotFound = errors.New("not found")

// Store is a mutex-guarded in-memory ledger with a debounced JSON flush.
type Store struct {
	mu         sync.Mutex
	path       string
	flushDelay time.Duration
	timer      *time.Timer
	dirty      bool
	revision   uint64

	txs      []core.Transaction
	accounts []core.Account
	taxonomy core.Taxonomy
	invoices []invoice.Invoice
}

// Open loads the snapshot at path, creating an empty store if the file
// does not exist yet.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Store{path: path, flushDelay: DefaultFlushDelay}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	txs, accounts, tax, invs, err := DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	s.txs, s.accounts, s.taxonomy, s.invoices = txs, accounts, tax, invs
	return s, nil
}

// SetFlushDelay overrides the debounce window; 0 flushes synchronously on
// every mutation.
func (s *Store) SetFlushDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushDelay = d
}

// Revision increments on every mutation. Callers use it to key memoized
// report results; the reporting core itself never caches.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// markDirty must be called with the lock held.
func (s *Store) markDirty() {
	s.revision++
	s.dirty = true
	if s.flushDelay == 0 {
		s.flushLocked()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.flushDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.flushLocked()
	})
}

// flushLocked writes the snapshot; callers hold the lock. Flush failures
// are logged, not raised: the in-memory state stays authoritative and the
// next mutation retries.
func (s *Store) flushLocked() {
	if !s.dirty {
		return
	}
	data, err := EncodeSnapshot(s.txs, s.accounts, s.taxonomy, s.invoices)
	if err != nil {
		slog.Error("Failed to encode snapshot", "error", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		slog.Error("Failed to write snapshot", "path", s.path, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("Failed to replace snapshot", "path", s.path, "error", err)
		return
	}
	s.dirty = false
}

// Flush forces any pending write to disk.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.flushLocked()
}

// Close flushes and stops the debounce timer.
func (s *Store) Close() error {
	s.Flush()
	return nil
}

// AddTransaction validates and stores a new entry, assigning an ID when
// the caller did not.
func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, t)
	s.markDirty()
	return t.ID, nil
}

// DeleteTransaction removes one entry by ID.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			s.markDirty()
			return nil
		}
	}
	return fmt.Errorf("delete transaction %s: %w", id, ErrNotFound)
}

// DeleteTransactions removes all listed IDs, returning how many matched.
// Missing IDs are skipped, not errors: bulk delete is best-effort.
func (s *Store) DeleteTransactions(_ context.Context, ids []string) (int, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.txs[:0:0]
	removed := 0
	for _, t := range s.txs {
		if drop[t.ID] {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if removed > 0 {
		s.txs = kept
		s.markDirty()
	}
	return removed, nil
}

// ListTransactions returns a copy of the ledger in insertion order.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

func (s *Store) AddAccount(_ context.Context, a core.Account) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
	s.markDirty()
	return a.ID, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

func (s *Store) Taxonomy(_ context.Context) (core.Taxonomy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Taxonomy{
		Expense: append([]string(nil), s.taxonomy.Expense...),
		Income:  append([]string(nil), s.taxonomy.Income...),
	}, nil
}

// SetTaxonomy replaces both category lists. Transactions keep whatever
// category string they were created with; orphans stay visible.
func (s *Store) SetTaxonomy(_ context.Context, tax core.Taxonomy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxonomy = core.Taxonomy{
		Expense: append([]string(nil), tax.Expense...),
		Income:  append([]string(nil), tax.Income...),
	}
	s.markDirty()
	return nil
}

func (s *Store) AddInvoice(_ context.Context, inv invoice.Invoice) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append(s.invoices, inv)
	s.markDirty()
	return inv.ID, nil
}

func (s *Store) ListInvoices(_ context.Context) ([]invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]invoice.Invoice, len(s.invoices))
	copy(out, s.invoices)
	return out, nil
}

func (s *Store) DeleteInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inv := range s.invoices {
		if inv.ID == id {
			s.invoices = append(s.invoices[:i], s.invoices[i+1:]...)
			s.markDirty()
			return nil
		}
	}
	return fmt.Errorf("delete invoice %s: %w", id, ErrNotFound)
}

// ExportSnapshot serializes the full state for backup.
func (s *Store) ExportSnapshot(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EncodeSnapshot(s.txs, s.accounts, s.taxonomy, s.invoices)
}

// ImportSnapshot replaces the full state from a backup. Last write wins.
func (s *Store) ImportSnapshot(_ context.Context, data []byte) error {
	txs, accounts, tax, invs, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs, s.accounts, s.taxonomy, s.invoices = txs, accounts, tax, invs
	s.markDirty()
	return nil
}
