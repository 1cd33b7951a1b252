package scan

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"tally/internal/report"
)

// Advise asks the model for short spending advice grounded in the given
// summary. Only aggregate figures leave the process, never individual
// transactions.
func (a *Assistant) Advise(ctx context.Context, sum report.Summary, periodLabel string) (string, error) {
	prompt := buildAdvicePrompt(sum, periodLabel)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("advise: generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("advise: empty response from model")
	}
	return text, nil
}

func buildAdvicePrompt(sum report.Summary, periodLabel string) string {
	var b strings.Builder
	b.WriteString("You are a pragmatic personal finance advisor.\n\n")
	fmt.Fprintf(&b, "Period: %s\n", periodLabel)
	fmt.Fprintf(&b, "Income: %s\n", sum.TotalIncome)
	fmt.Fprintf(&b, "Expenses: %s\n", sum.TotalExpense)
	fmt.Fprintf(&b, "Net: %s\n\n", sum.Net)
	if len(sum.ByCategory) > 0 {
		b.WriteString("Spending by category:\n")
		for _, c := range sum.ByCategory {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Amount)
		}
		b.WriteString("\n")
	}
	if len(sum.ByAccount) > 0 {
		b.WriteString("Account balances:\n")
		for _, bal := range sum.ByAccount {
			fmt.Fprintf(&b, "- %s (%s): %s\n", bal.Account.Name, bal.Account.Type, bal.Balance)
		}
		b.WriteString("\n")
	}
	b.WriteString("Give 3 to 5 short, concrete observations and suggestions.\n")
	b.WriteString("Use plain text, no Markdown. Amounts are in the user's currency.\n")
	return b.String()
}
