// Package invoice implements billing documents. Invoices are independent
// of the transaction ledger: nothing here feeds the reporting core.
package invoice

import (
	"errors"
	"fmt"
	"strings"

	"tally/internal/core"
)

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
	StatusPaid  Status = "paid"
)

type (
	Status string

	// LineItem is one billed row. UnitPrice is in cents; Quantity is a
	// whole count.
	LineItem struct {
		Description string     `json:"description"`
		Quantity    int64      `json:"quantity"`
		UnitPrice   core.Money `json:"unit_price"`
	}

	// Invoice is a billing document. TaxRateBps is the tax rate in basis
	// points (e.g. 2100 = 21%).
	Invoice struct {
		ID         string     `json:"id"`
		Number     string     `json:"number"`
		Customer   string     `json:"customer"`
		IssueDate  core.Date  `json:"issue_date"`
		DueDate    core.Date  `json:"due_date"`
		Items      []LineItem `json:"items"`
		TaxRateBps int64      `json:"tax_rate_bps"`
		Status     Status     `json:"status"`
		Notes      string     `json:"notes,omitempty"`
	}
)

var (
	ErrNoItems         = errors.New("invoice has no line items")
	ErrEmptyCustomer   = errors.New("empty customer")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidTaxRate  = errors.New("invalid tax rate")
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid:
		return true
	default:
		return false
	}
}

func (li LineItem) Total() core.Money {
	return core.Money{Cents: li.Quantity * li.UnitPrice.Cents}
}

// Subtotal sums the line items before tax.
func (inv Invoice) Subtotal() core.Money {
	var sum core.Money
	for _, li := range inv.Items {
		sum = sum.Add(li.Total())
	}
	return sum
}

// Tax applies the basis-point rate to the subtotal, truncating fractional
// cents toward zero.
func (inv Invoice) Tax() core.Money {
	return core.Money{Cents: inv.Subtotal().Cents * inv.TaxRateBps / 10000}
}

func (inv Invoice) Total() core.Money {
	return inv.Subtotal().Add(inv.Tax())
}

func (inv Invoice) Validate() error {
	if strings.TrimSpace(inv.Customer) == "" {
		return ErrEmptyCustomer
	}
	if len(inv.Items) == 0 {
		return ErrNoItems
	}
	for _, li := range inv.Items {
		if li.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if li.UnitPrice.Cents < 0 {
			return core.ErrInvalidAmount
		}
		if strings.TrimSpace(li.Description) == "" {
			return core.ErrEmptyDescription
		}
	}
	if inv.TaxRateBps < 0 || inv.TaxRateBps > 10000 {
		return ErrInvalidTaxRate
	}
	if !inv.DueDate.IsZero() && !inv.IssueDate.IsZero() && inv.DueDate.Before(inv.IssueDate.Time) {
		return errors.New("due date before issue date")
	}
	return nil
}

// Render writes the invoice as a tab-delimited text document. PDF output
// is a presentation concern handled elsewhere.
func (inv Invoice) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice %s\n", inv.Number)
	fmt.Fprintf(&b, "Customer\t%s\n", inv.Customer)
	if !inv.IssueDate.IsZero() {
		fmt.Fprintf(&b, "Issued\t%s\n", inv.IssueDate.ISO())
	}
	if !inv.DueDate.IsZero() {
		fmt.Fprintf(&b, "Due\t%s\n", inv.DueDate.ISO())
	}
	b.WriteString("\n")
	b.WriteString("Description\tQty\tUnit\tTotal\n")
	for _, li := range inv.Items {
		fmt.Fprintf(&b, "%s\t%d\t%s\t%s\n", li.Description, li.Quantity, li.UnitPrice.String(), li.Total().String())
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal\t%s\n", inv.Subtotal().String())
	if inv.TaxRateBps > 0 {
		fmt.Fprintf(&b, "Tax (%.2f%%)\t%s\n", float64(inv.TaxRateBps)/100, inv.Tax().String())
	}
	fmt.Fprintf(&b, "Total\t%s\n", inv.Total().String())
	if inv.Notes != "" {
		fmt.Fprintf(&b, "\n%s\n", inv.Notes)
	}
	return b.String()
}
