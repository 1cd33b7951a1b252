package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

const (
	Cash    AccountType = "cash"
	Bank    AccountType = "bank"
	EWallet AccountType = "e-wallet"
)

// DateLayout is the canonical calendar-date form used across the ledger.
const DateLayout = "2006-01-02"

type (
	// Direction marks a transaction as money in or money out.
	Direction string

	// AccountType tags where the money lives.
	AccountType string

	// Date is a calendar date with day granularity. A zero Date means the
	// date is missing or was unparseable; aggregation tolerates it.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry. Entries are immutable once
	// created; edits are modeled as delete + re-create by the caller.
	Transaction struct {
		ID          string
		Date        Date
		Amount      Money // non-negative magnitude; Direction carries the sign
		Direction   Direction
		Category    string // open string, not a closed enum
		Description string
		Merchant    string // optional
		AccountID   string // optional; empty means "no account"
	}

	// Account holds a baseline balance. The current balance is always
	// derived from the ledger, never stored.
	Account struct {
		ID             string
		Name           string
		Type           AccountType
		InitialBalance Money
	}

	// Taxonomy is the pair of ordered category lists. Transactions may
	// carry category strings that are no longer on either list.
	Taxonomy struct {
		Expense []string
		Income  []string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidType      = errors.New("invalid account type")
)

func (d Direction) IsValid() bool {
	return d == Income || d == Expense
}

// Sign returns +1 for income and -1 for expense.
func (d Direction) Sign() int64 {
	if d == Income {
		return 1
	}
	return -1
}

func (t AccountType) IsValid() bool {
	switch t {
	case Cash, Bank, EWallet:
		return true
	default:
		return false
	}
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string. Invalid input yields a zero Date
// and an error; callers that tolerate bad dates keep the zero value.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO renders the date as YYYY-MM-DD, or "" for a zero Date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum; amounts are integer cents so there is no drift.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns the difference.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !t.Direction.IsValid() {
		return ErrInvalidDirection
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	if !a.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// Contains reports whether name is on either category list.
func (tx Taxonomy) Contains(name string) bool {
	for _, c := range tx.Expense {
		if c == name {
			return true
		}
	}
	for _, c := range tx.Income {
		if c == name {
			return true
		}
	}
	return false
}

// For returns the category list for the given direction.
func (tx Taxonomy) For(d Direction) []string {
	if d == Income {
		return tx.Income
	}
	return tx.Expense
}
