// Package storage is the SQLite ledger backend, for users who outgrow the
// single JSON snapshot. Schema changes ship as embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/invoice"
	"tally/internal/store"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db       *sql.DB
	revision atomic.Uint64
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Revision increments on every mutation within this process; the service
// layer keys its report cache on it.
func (r *SQLiteRepository) Revision() uint64 {
	return r.revision.Load()
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, amount_cents, direction, category, description, merchant, account_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.ISO(), t.Amount.Cents, string(t.Direction), t.Category, t.Description, t.Merchant, t.AccountID)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	r.revision.Add(1)

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"date", t.Date.ISO(),
		"amount_cents", t.Amount.Cents,
		"direction", t.Direction)
	return t.ID, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, ErrNotFound)
	}
	r.revision.Add(1)
	return nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	removed := 0
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return removed, fmt.Errorf("bulk delete transaction %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed++
		}
	}
	if removed > 0 {
		r.revision.Add(1)
	}
	return removed, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, amount_cents, direction, category, description, merchant, account_id
		 FROM transactions ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t       core.Transaction
			dateISO string
			dir     string
		)
		if err := rows.Scan(&t.ID, &dateISO, &t.Amount.Cents, &dir, &t.Category, &t.Description, &t.Merchant, &t.AccountID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		// Legacy rows may carry bad dates; keep them as zero Dates rather
		// than dropping the row.
		t.Date, _ = core.ParseDate(dateISO)
		t.Direction = core.Direction(dir)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) AddAccount(ctx context.Context, a core.Account) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, type, initial_cents) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Type), a.InitialBalance.Cents)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	r.revision.Add(1)
	return a.ID, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, initial_cents FROM accounts ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var (
			a   core.Account
			typ string
		)
		if err := rows.Scan(&a.ID, &a.Name, &typ, &a.InitialBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(typ)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Taxonomy(ctx context.Context) (core.Taxonomy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, direction FROM categories ORDER BY direction, position`)
	if err != nil {
		return core.Taxonomy{}, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var tax core.Taxonomy
	for rows.Next() {
		var name, dir string
		if err := rows.Scan(&name, &dir); err != nil {
			return core.Taxonomy{}, fmt.Errorf("scan category: %w", err)
		}
		switch core.Direction(dir) {
		case core.Income:
			tax.Income = append(tax.Income, name)
		default:
			tax.Expense = append(tax.Expense, name)
		}
	}
	if err := rows.Err(); err != nil {
		return core.Taxonomy{}, fmt.Errorf("iterate categories: %w", err)
	}
	return tax, nil
}

// SetTaxonomy replaces both ordered category lists in one transaction.
func (r *SQLiteRepository) SetTaxonomy(ctx context.Context, tax core.Taxonomy) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin taxonomy update: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	insert := func(names []string, dir core.Direction) error {
		for i, name := range names {
			if _, err := dbTx.ExecContext(ctx,
				`INSERT INTO categories (name, direction, position) VALUES (?, ?, ?)`,
				name, string(dir), i); err != nil {
				return fmt.Errorf("insert category %s: %w", name, err)
			}
		}
		return nil
	}
	if err := insert(tax.Expense, core.Expense); err != nil {
		return err
	}
	if err := insert(tax.Income, core.Income); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit taxonomy update: %w", err)
	}
	r.revision.Add(1)
	return nil
}

func (r *SQLiteRepository) AddInvoice(ctx context.Context, inv invoice.Invoice) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	payload, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("encode invoice: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (id, payload) VALUES (?, ?)`, inv.ID, string(payload)); err != nil {
		return "", fmt.Errorf("create invoice: %w", err)
	}
	r.revision.Add(1)
	return inv.ID, nil
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM invoices ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []invoice.Invoice
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		var inv invoice.Invoice
		if err := json.Unmarshal([]byte(payload), &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete invoice %s: %w", id, ErrNotFound)
	}
	r.revision.Add(1)
	return nil
}

// ExportSnapshot serializes the database into the same JSON snapshot
// format the file store uses, so backup and restore work across backends.
func (r *SQLiteRepository) ExportSnapshot(ctx context.Context) ([]byte, error) {
	txs, err := r.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := r.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	tax, err := r.Taxonomy(ctx)
	if err != nil {
		return nil, err
	}
	invs, err := r.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	return store.EncodeSnapshot(txs, accounts, tax, invs)
}

// ImportSnapshot replaces all tables with the snapshot contents.
func (r *SQLiteRepository) ImportSnapshot(ctx context.Context, data []byte) error {
	txs, accounts, tax, invs, err := store.DecodeSnapshot(data)
	if err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer dbTx.Rollback()

	for _, table := range []string{"transactions", "accounts", "categories", "invoices"} {
		if _, err := dbTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO transactions (id, date, amount_cents, direction, category, description, merchant, account_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Date.ISO(), t.Amount.Cents, string(t.Direction), t.Category, t.Description, t.Merchant, t.AccountID); err != nil {
			return fmt.Errorf("import transaction %s: %w", t.ID, err)
		}
	}
	for _, a := range accounts {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO accounts (id, name, type, initial_cents) VALUES (?, ?, ?, ?)`,
			a.ID, a.Name, string(a.Type), a.InitialBalance.Cents); err != nil {
			return fmt.Errorf("import account %s: %w", a.ID, err)
		}
	}
	insertCat := func(names []string, dir core.Direction) error {
		for i, name := range names {
			if _, err := dbTx.ExecContext(ctx,
				`INSERT INTO categories (name, direction, position) VALUES (?, ?, ?)`,
				name, string(dir), i); err != nil {
				return fmt.Errorf("import category %s: %w", name, err)
			}
		}
		return nil
	}
	if err := insertCat(tax.Expense, core.Expense); err != nil {
		return err
	}
	if err := insertCat(tax.Income, core.Income); err != nil {
		return err
	}
	for _, inv := range invs {
		if inv.ID == "" {
			inv.ID = uuid.NewString()
		}
		payload, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("encode invoice %s: %w", inv.ID, err)
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO invoices (id, payload) VALUES (?, ?)`, inv.ID, string(payload)); err != nil {
			return fmt.Errorf("import invoice %s: %w", inv.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	r.revision.Add(1)
	slog.InfoContext(ctx, "Snapshot imported into SQLite",
		"transactions", len(txs), "accounts", len(accounts), "invoices", len(invs))
	return nil
}
