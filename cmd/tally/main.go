package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"tally/internal/cli"
	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/services"
)

const usage = `tally - personal finance tracker

Usage:
  tally <command> [flags]

Commands:
  add         record a transaction
  delete      delete transactions by id
  list        list transactions (filtered, sorted, paginated)
  report      period totals, category distribution, top expenses
  statement   income statement grouped by category
  export      write the income statement as CSV to stdout
  accounts    list accounts with balances, or add one
  categories  show or replace the category lists
  scan        parse a receipt image into a draft expense
  advise      ask for advice grounded in the current summary
  backup      upload a snapshot to the backup target
  backups     list stored snapshots
  restore     restore a snapshot (latest by default)
  invoice     add, list, or delete invoices

Run 'tally <command> -h' for command flags.
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	ctx, cancel := cli.SignalContext()
	defer cancel()

	if err := run(ctx, logger, cfg, command, args); err != nil {
		logger.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, command string, args []string) error {
	needsAssistant := command == "scan" || command == "advise"

	switch command {
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}

	svc, err := cli.OpenService(ctx, logger, cfg, needsAssistant)
	if err != nil {
		return err
	}
	defer svc.Close()

	switch command {
	case "add":
		return cmdAdd(ctx, svc, args)
	case "delete":
		return cmdDelete(ctx, svc, args)
	case "list":
		return cmdList(ctx, svc, args)
	case "report":
		return cmdReport(ctx, svc, args)
	case "statement":
		return cmdStatement(ctx, svc, args, false)
	case "export":
		return cmdStatement(ctx, svc, args, true)
	case "accounts":
		return cmdAccounts(ctx, svc, args)
	case "categories":
		return cmdCategories(ctx, svc, args)
	case "scan":
		return cmdScan(ctx, svc, args)
	case "advise":
		return cmdAdvise(ctx, svc, args)
	case "backup":
		return cmdBackup(ctx, svc)
	case "backups":
		return cmdBackups(ctx, svc)
	case "restore":
		return cmdRestore(ctx, svc, args)
	case "invoice":
		return cmdInvoice(ctx, svc, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// queryFlags binds the shared filter flags onto a flag set.
type queryFlags struct {
	period     string
	from, to   string
	categories string
	search     string
	direction  string
	shift      int
}

func bindQueryFlags(fs *flag.FlagSet) *queryFlags {
	qf := &queryFlags{}
	fs.StringVar(&qf.period, "period", string(report.PeriodThisMonth),
		"today, this-week, this-month, last-month, this-year, all, custom")
	fs.StringVar(&qf.from, "from", "", "custom period start (YYYY-MM-DD)")
	fs.StringVar(&qf.to, "to", "", "custom period end (YYYY-MM-DD)")
	fs.StringVar(&qf.categories, "category", "", "comma-separated category filter")
	fs.StringVar(&qf.search, "search", "", "free-text search")
	fs.StringVar(&qf.direction, "direction", "all", "all, income, expense")
	fs.IntVar(&qf.shift, "shift", 0, "move the period window, e.g. -1 for the previous one")
	return qf
}

// applyShift moves the service's reference date when -shift was given.
func (qf *queryFlags) applyShift(svc *services.TrackerService, q report.Query) error {
	if qf.shift == 0 {
		return nil
	}
	if !svc.ShiftReference(q.Period, qf.shift) {
		return fmt.Errorf("period %q is not navigable with -shift", q.Period)
	}
	return nil
}

func (qf *queryFlags) query() (report.Query, error) {
	q := report.Query{
		Period:    report.Period(qf.period),
		Custom:    report.CustomRange{Start: qf.from, End: qf.to},
		Search:    qf.search,
		Direction: report.DirectionFilter(qf.direction),
	}
	if qf.from != "" || qf.to != "" {
		q.Period = report.PeriodCustom
	}
	if !q.Period.IsValid() {
		return report.Query{}, fmt.Errorf("unknown period %q", qf.period)
	}
	switch q.Direction {
	case report.DirAll, report.DirIncome, report.DirExpense:
	default:
		return report.Query{}, fmt.Errorf("unknown direction %q", qf.direction)
	}
	q.Categories = splitList(qf.categories)
	return q, nil
}

func cmdAdd(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	date := fs.String("date", "", "date (YYYY-MM-DD), defaults to today")
	amount := fs.String("amount", "", "amount, e.g. 12.34")
	direction := fs.String("direction", "expense", "expense or income")
	category := fs.String("category", "", "category name")
	description := fs.String("description", "", "description")
	merchant := fs.String("merchant", "", "merchant (optional)")
	account := fs.String("account", "", "account id (optional)")
	fs.Parse(args)

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("amount %q: %w", *amount, err)
	}

	var d core.Date
	if *date == "" {
		d = core.Today()
	} else if d, err = core.ParseDate(*date); err != nil {
		return fmt.Errorf("date %q: %w", *date, err)
	}

	id, err := svc.AddTransaction(ctx, core.Transaction{
		Date:        d,
		Amount:      core.Money{Cents: cents},
		Direction:   core.Direction(*direction),
		Category:    *category,
		Description: *description,
		Merchant:    *merchant,
		AccountID:   *account,
	})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func cmdDelete(ctx context.Context, svc *services.TrackerService, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tally delete <id> [id...]")
	}
	removed, err := svc.DeleteTransactions(ctx, args)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d of %d\n", removed, len(args))
	return nil
}

func cmdList(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	qf := bindQueryFlags(fs)
	sortOrder := fs.String("sort", string(report.SortDateDesc),
		"date-desc, date-asc, amount-desc, amount-asc")
	page := fs.Int("page", 1, "page number")
	fs.Parse(args)

	q, err := qf.query()
	if err != nil {
		return err
	}
	if err := qf.applyShift(svc, q); err != nil {
		return err
	}
	p, err := svc.ListPage(ctx, q, report.SortOrder(*sortOrder), *page)
	if err != nil {
		return err
	}
	if p.TotalPages == 0 {
		fmt.Println("no transactions")
		return nil
	}

	for _, g := range report.GroupByDay(p.Items) {
		day := g.Date.ISO()
		if g.Date.IsZero() {
			day = "undated"
		}
		fmt.Printf("%s  (subtotal %s)\n", day, g.Subtotal)
		for _, t := range g.Items {
			sign := "-"
			if t.Direction == core.Income {
				sign = "+"
			}
			fmt.Printf("  %s%-10s %-16s %-30s %s\n", sign, t.Amount, t.Category, t.Description, t.ID)
		}
	}
	fmt.Printf("page %d/%d (%d transactions)\n", p.Number, p.TotalPages, p.TotalItems)
	return nil
}

func cmdReport(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	qf := bindQueryFlags(fs)
	fs.Parse(args)
	q, err := qf.query()
	if err != nil {
		return err
	}

	if err := qf.applyShift(svc, q); err != nil {
		return err
	}

	// The -category flag is a distribution selection here, not a filter:
	// totals, series, and balances stay period-wide.
	selected := q.Categories
	q.Categories = nil

	vr, err := svc.VisualReport(ctx, q, selected)
	if err != nil {
		return err
	}

	fmt.Printf("Income   %12s\n", vr.TotalIncome)
	fmt.Printf("Expenses %12s\n", vr.TotalExpense)
	fmt.Printf("Net      %12s\n", vr.Net)

	if len(vr.Distribution) > 0 {
		fmt.Println("\nSpending by category:")
		for _, c := range vr.Distribution {
			fmt.Printf("  %-20s %12s\n", c.Name, c.Amount)
		}
	}
	if len(vr.TopExpenses) > 0 {
		fmt.Println("\nLargest expenses:")
		for _, t := range vr.TopExpenses {
			fmt.Printf("  %s  %10s  %-16s %s\n", t.Date.ISO(), t.Amount, t.Category, t.Description)
		}
	}
	if len(vr.Series) > 0 {
		fmt.Println("\nOver time:")
		for _, pt := range vr.Series {
			fmt.Printf("  %-8s +%10s  -%10s\n", pt.Label, pt.Income, pt.Expense)
		}
	}

	sum, err := svc.Summary(ctx, q)
	if err != nil {
		return err
	}
	if len(sum.ByAccount) > 0 {
		fmt.Println("\nAccount balances (all time):")
		for _, b := range sum.ByAccount {
			fmt.Printf("  %-20s %-9s %12s\n", b.Account.Name, b.Account.Type, b.Balance)
		}
	}
	return nil
}

func cmdStatement(ctx context.Context, svc *services.TrackerService, args []string, asCSV bool) error {
	fs := flag.NewFlagSet("statement", flag.ExitOnError)
	qf := bindQueryFlags(fs)
	fs.Parse(args)
	q, err := qf.query()
	if err != nil {
		return err
	}
	if err := qf.applyShift(svc, q); err != nil {
		return err
	}

	st, err := svc.Statement(ctx, q, q.Categories)
	if err != nil {
		return err
	}
	if asCSV {
		return services.WriteStatementCSV(os.Stdout, st)
	}
	fmt.Print(st.Render("\t"))
	return nil
}

func cmdAccounts(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	name := fs.String("add", "", "add an account with this name")
	accType := fs.String("type", "cash", "cash, bank, e-wallet")
	initial := fs.String("initial", "0", "initial balance")
	fs.Parse(args)

	if *name != "" {
		cents, err := core.ParseDecimalToCents(*initial)
		if err != nil {
			return fmt.Errorf("initial balance %q: %w", *initial, err)
		}
		id, err := svc.AddAccount(ctx, core.Account{
			Name:           *name,
			Type:           core.AccountType(*accType),
			InitialBalance: core.Money{Cents: cents},
		})
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	}

	balances, err := svc.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(balances) == 0 {
		fmt.Println("no accounts")
		return nil
	}
	for _, b := range balances {
		fmt.Printf("%-20s %-9s %12s  %s\n", b.Account.Name, b.Account.Type, b.Balance, b.Account.ID)
	}
	return nil
}

func cmdCategories(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	expense := fs.String("set-expense", "", "comma-separated expense categories (replaces the list)")
	income := fs.String("set-income", "", "comma-separated income categories (replaces the list)")
	fs.Parse(args)

	if *expense != "" || *income != "" {
		tax, err := svc.Taxonomy(ctx)
		if err != nil {
			return err
		}
		if *expense != "" {
			tax.Expense = splitList(*expense)
		}
		if *income != "" {
			tax.Income = splitList(*income)
		}
		return svc.SetTaxonomy(ctx, tax)
	}

	tax, err := svc.Taxonomy(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Expense:", strings.Join(tax.Expense, ", "))
	fmt.Println("Income: ", strings.Join(tax.Income, ", "))
	return nil
}

func cmdScan(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	account := fs.String("account", "", "account id for the imported expense")
	save := fs.Bool("save", false, "store the draft instead of just printing it")
	mime := fs.String("mime", "image/jpeg", "image MIME type")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tally scan [flags] <image-file>")
	}

	image, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	r, err := svc.ScanReceipt(ctx, image, *mime)
	if err != nil {
		return err
	}
	date := r.Date.ISO()
	if r.Date.IsZero() {
		date = "(today)"
	}
	fmt.Printf("merchant:    %s\n", r.Merchant)
	fmt.Printf("date:        %s\n", date)
	fmt.Printf("amount:      %s\n", r.Amount)
	fmt.Printf("category:    %s\n", r.Category)
	fmt.Printf("description: %s\n", r.Description)

	if *save {
		id, err := svc.ImportReceipt(ctx, r, *account)
		if err != nil {
			return err
		}
		fmt.Println("saved:", id)
	}
	return nil
}

func cmdAdvise(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("advise", flag.ExitOnError)
	qf := bindQueryFlags(fs)
	fs.Parse(args)
	q, err := qf.query()
	if err != nil {
		return err
	}

	advice, err := svc.Advise(ctx, q)
	if err != nil {
		return err
	}
	fmt.Println(advice)
	return nil
}

func cmdBackup(ctx context.Context, svc *services.TrackerService) error {
	entry, err := svc.Backup(ctx)
	if err != nil {
		return err
	}
	fmt.Println("uploaded:", entry.Name)
	return nil
}

func cmdBackups(ctx context.Context, svc *services.TrackerService) error {
	entries, err := svc.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no backups")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.Name, e.ID)
	}
	return nil
}

func cmdRestore(ctx context.Context, svc *services.TrackerService, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	id := fs.String("id", "", "backup id (defaults to the most recent)")
	fs.Parse(args)

	if err := svc.Restore(ctx, *id); err != nil {
		return err
	}
	fmt.Println("restored")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
