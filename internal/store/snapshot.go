package store

import (
	"encoding/json"
	"fmt"

	"tally/internal/core"
	"tally/internal/invoice"
)

// snapshotVersion is bumped when the on-disk shape changes.
const snapshotVersion = 1

type (
	// Snapshot is the full serialized state of a ledger: one JSON document,
	// written whole on every flush, last write wins.
	Snapshot struct {
		Version      int                 `json:"version"`
		Transactions []transactionRecord `json:"transactions"`
		Accounts     []accountRecord     `json:"accounts"`
		Taxonomy     taxonomyRecord      `json:"taxonomy"`
		Invoices     []invoice.Invoice   `json:"invoices,omitempty"`
	}

	transactionRecord struct {
		ID          string `json:"id"`
		Date        string `json:"date"` // YYYY-MM-DD; may be empty or malformed in old data
		AmountCents int64  `json:"amount_cents"`
		Direction   string `json:"direction"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Merchant    string `json:"merchant,omitempty"`
		AccountID   string `json:"account_id,omitempty"`
	}

	accountRecord struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Type         string `json:"type"`
		InitialCents int64  `json:"initial_cents"`
	}

	taxonomyRecord struct {
		Expense []string `json:"expense"`
		Income  []string `json:"income"`
	}
)

func EncodeSnapshot(txs []core.Transaction, accounts []core.Account, tax core.Taxonomy, invs []invoice.Invoice) ([]byte, error) {
	snap := Snapshot{
		Version:  snapshotVersion,
		Taxonomy: taxonomyRecord{Expense: tax.Expense, Income: tax.Income},
		Invoices: invs,
	}
	for _, t := range txs {
		snap.Transactions = append(snap.Transactions, transactionRecord{
			ID:          t.ID,
			Date:        t.Date.ISO(),
			AmountCents: t.Amount.Cents,
			Direction:   string(t.Direction),
			Category:    t.Category,
			Description: t.Description,
			Merchant:    t.Merchant,
			AccountID:   t.AccountID,
		})
	}
	for _, a := range accounts {
		snap.Accounts = append(snap.Accounts, accountRecord{
			ID:           a.ID,
			Name:         a.Name,
			Type:         string(a.Type),
			InitialCents: a.InitialBalance.Cents,
		})
	}
	return json.MarshalIndent(snap, "", "  ")
}

func DecodeSnapshot(data []byte) ([]core.Transaction, []core.Account, core.Taxonomy, []invoice.Invoice, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, core.Taxonomy{}, nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version > snapshotVersion {
		return nil, nil, core.Taxonomy{}, nil, fmt.Errorf("snapshot version %d newer than supported %d", snap.Version, snapshotVersion)
	}

	txs := make([]core.Transaction, 0, len(snap.Transactions))
	for _, r := range snap.Transactions {
		// Bad dates are kept as zero Dates; the reporting core tolerates
		// them rather than dropping the row.
		d, _ := core.ParseDate(r.Date)
		txs = append(txs, core.Transaction{
			ID:          r.ID,
			Date:        d,
			Amount:      core.Money{Cents: r.AmountCents},
			Direction:   core.Direction(r.Direction),
			Category:    r.Category,
			Description: r.Description,
			Merchant:    r.Merchant,
			AccountID:   r.AccountID,
		})
	}
	accounts := make([]core.Account, 0, len(snap.Accounts))
	for _, r := range snap.Accounts {
		accounts = append(accounts, core.Account{
			ID:             r.ID,
			Name:           r.Name,
			Type:           core.AccountType(r.Type),
			InitialBalance: core.Money{Cents: r.InitialCents},
		})
	}
	tax := core.Taxonomy{Expense: snap.Taxonomy.Expense, Income: snap.Taxonomy.Income}
	return txs, accounts, tax, snap.Invoices, nil
}
