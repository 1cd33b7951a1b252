package invoice

import (
	"strings"
	"testing"

	"tally/internal/core"
)

func sample() Invoice {
	return Invoice{
		ID:        "inv-1",
		Number:    "2024-001",
		Customer:  "Acme Ltd",
		IssueDate: core.NewDate(2024, 3, 1),
		DueDate:   core.NewDate(2024, 3, 31),
		Items: []LineItem{
			{Description: "Consulting", Quantity: 10, UnitPrice: core.Money{Cents: 7500}},
			{Description: "Travel", Quantity: 1, UnitPrice: core.Money{Cents: 12050}},
		},
		TaxRateBps: 2100,
		Status:     StatusDraft,
	}
}

func TestTotals(t *testing.T) {
	inv := sample()
	if got := inv.Subtotal().Cents; got != 87050 {
		t.Fatalf("subtotal %d", got)
	}
	if got := inv.Tax().Cents; got != 18280 { // 87050 * 0.21 truncated
		t.Fatalf("tax %d", got)
	}
	if got := inv.Total().Cents; got != 105330 {
		t.Fatalf("total %d", got)
	}
}

func TestValidate(t *testing.T) {
	if err := sample().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Invoice)
	}{
		{"no customer", func(i *Invoice) { i.Customer = " " }},
		{"no items", func(i *Invoice) { i.Items = nil }},
		{"zero quantity", func(i *Invoice) { i.Items[0].Quantity = 0 }},
		{"negative price", func(i *Invoice) { i.Items[0].UnitPrice.Cents = -1 }},
		{"blank item", func(i *Invoice) { i.Items[0].Description = "" }},
		{"bad tax rate", func(i *Invoice) { i.TaxRateBps = 10001 }},
		{"due before issue", func(i *Invoice) { i.DueDate = core.NewDate(2024, 2, 1) }},
	}
	for _, tc := range cases {
		inv := sample()
		tc.mutate(&inv)
		if err := inv.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	inv := sample()
	out := inv.Render()
	if out != inv.Render() {
		t.Fatalf("render not deterministic")
	}
	for _, want := range []string{"Invoice 2024-001", "Consulting\t10\t75.00\t750.00", "Subtotal\t870.50", "Total\t1053.30"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
