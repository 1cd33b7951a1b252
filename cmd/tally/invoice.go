package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"tally/internal/core"
	"tally/internal/invoice"
	"tally/internal/services"
)

func cmdInvoice(ctx context.Context, svc *services.TrackerService, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tally invoice <add|list|show|delete> [flags]")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "add":
		return invoiceAdd(ctx, svc, rest)
	case "list":
		return invoiceList(ctx, svc)
	case "show":
		return invoiceShow(ctx, svc, rest)
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("usage: tally invoice delete <id>")
		}
		return svc.DeleteInvoice(ctx, rest[0])
	default:
		return fmt.Errorf("unknown invoice subcommand %q", sub)
	}
}

func invoiceAdd(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("invoice add", flag.ExitOnError)
	number := fs.String("number", "", "invoice number")
	customer := fs.String("customer", "", "customer name")
	issued := fs.String("issued", "", "issue date (YYYY-MM-DD)")
	due := fs.String("due", "", "due date (YYYY-MM-DD)")
	taxBps := fs.Int64("tax-bps", 0, "tax rate in basis points, e.g. 2100 for 21%")
	notes := fs.String("notes", "", "free-form notes")
	items := fs.String("items", "", `line items as "desc:qty:unit-price" joined by ";"`)
	fs.Parse(args)

	inv := invoice.Invoice{
		Number:     *number,
		Customer:   *customer,
		TaxRateBps: *taxBps,
		Status:     invoice.StatusDraft,
		Notes:      *notes,
	}

	var err error
	if *issued != "" {
		if inv.IssueDate, err = core.ParseDate(*issued); err != nil {
			return fmt.Errorf("issue date %q: %w", *issued, err)
		}
	}
	if *due != "" {
		if inv.DueDate, err = core.ParseDate(*due); err != nil {
			return fmt.Errorf("due date %q: %w", *due, err)
		}
	}
	if inv.Items, err = parseLineItems(*items); err != nil {
		return err
	}

	id, err := svc.AddInvoice(ctx, inv)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func invoiceList(ctx context.Context, svc *services.TrackerService) error {
	invs, err := svc.Invoices(ctx)
	if err != nil {
		return err
	}
	if len(invs) == 0 {
		fmt.Println("no invoices")
		return nil
	}
	for _, inv := range invs {
		fmt.Printf("%-8s %-20s %-6s %12s  %s\n", inv.Number, inv.Customer, inv.Status, inv.Total(), inv.ID)
	}
	return nil
}

func invoiceShow(ctx context.Context, svc *services.TrackerService, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tally invoice show <id>")
	}
	invs, err := svc.Invoices(ctx)
	if err != nil {
		return err
	}
	for _, inv := range invs {
		if inv.ID == args[0] {
			fmt.Print(inv.Render())
			return nil
		}
	}
	return fmt.Errorf("invoice %q not found", args[0])
}

// parseLineItems decodes "desc:qty:unit-price" triples joined by ";".
func parseLineItems(s string) ([]invoice.LineItem, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("at least one -items entry is required")
	}
	var out []invoice.LineItem
	for _, raw := range strings.Split(s, ";") {
		parts := strings.Split(strings.TrimSpace(raw), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad line item %q, want desc:qty:unit-price", raw)
		}
		var qty int64
		if _, err := fmt.Sscanf(parts[1], "%d", &qty); err != nil {
			return nil, fmt.Errorf("bad quantity in %q", raw)
		}
		cents, err := core.ParseDecimalToCents(parts[2])
		if err != nil {
			return nil, fmt.Errorf("bad unit price in %q: %w", raw, err)
		}
		out = append(out, invoice.LineItem{
			Description: strings.TrimSpace(parts[0]),
			Quantity:    qty,
			UnitPrice:   core.Money{Cents: cents},
		})
	}
	return out, nil
}
