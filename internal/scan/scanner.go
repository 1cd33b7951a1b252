// Package scan integrates the generative-AI assistant: receipt images in,
// structured transaction drafts out, plus summary-grounded advice. The
// model is an opaque external service; everything it returns is validated
// and normalized here before any other package sees it.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"tally/internal/core"
)

// DefaultModel is the Gemini model used for scanning and advice.
const DefaultModel = "gemini-2.0-flash"

type (
	// Assistant wraps the GenAI client for receipt scanning and advice.
	Assistant struct {
		client *genai.Client
		model  string
	}

	// Receipt is the structured result of a scan, already normalized:
	// amount in cents, date parsed (zero when the model could not read
	// one), category snapped to the configured taxonomy where close
	// enough.
	Receipt struct {
		Merchant    string
		Date        core.Date
		Amount      core.Money
		Category    string
		Description string
	}

	// receiptPayload is the raw JSON shape the model is instructed to emit.
	receiptPayload struct {
		Merchant    string      `json:"merchant"`
		Date        string      `json:"date"`
		Amount      json.Number `json:"amount"`
		Category    string      `json:"category"`
		Description string      `json:"description"`
	}
)

// New creates an assistant. Credentials come from the environment the way
// the GenAI SDK expects (GOOGLE_API_KEY or application default credentials).
func New(ctx context.Context, model string) (*Assistant, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Assistant{client: client, model: model}, nil
}

// ScanReceipt sends a receipt image to the model and returns the parsed,
// normalized result. The expense category list steers classification; the
// returned category may still be off-list when nothing comes close.
func (a *Assistant) ScanReceipt(ctx context.Context, image []byte, mimeType string, tax core.Taxonomy) (Receipt, error) {
	prompt := buildScanPrompt(tax.Expense)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return Receipt{}, fmt.Errorf("scan receipt: generate content: %w", err)
	}
	rawText := resp.Text()
	if rawText == "" {
		return Receipt{}, fmt.Errorf("scan receipt: empty response from model")
	}

	clean := CleanModelJSON(rawText)
	var payload receiptPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return Receipt{}, fmt.Errorf("scan receipt: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return normalizeReceipt(payload, tax)
}

func buildScanPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString("You are a receipt parser for a personal finance tracker.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Read the attached receipt image.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object.\n\n")
	b.WriteString("The object must have these fields:\n")
	b.WriteString("- \"merchant\": string or null\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\", or null if unreadable\n")
	b.WriteString("- \"amount\": number, the receipt total as a positive decimal\n")
	b.WriteString("- \"category\": string (one of the predefined categories below)\n")
	b.WriteString("- \"description\": string, a short human summary of the purchase\n\n")
	if len(categories) > 0 {
		b.WriteString("Predefined categories:\n")
		for _, c := range categories {
			b.WriteString("- " + c + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")
	return b.String()
}

func normalizeReceipt(payload receiptPayload, tax core.Taxonomy) (Receipt, error) {
	cents, err := core.ParseDecimalToCents(payload.Amount.String())
	if err != nil {
		return Receipt{}, fmt.Errorf("scan receipt: bad amount %q: %w", payload.Amount.String(), err)
	}

	r := Receipt{
		Merchant:    strings.TrimSpace(payload.Merchant),
		Amount:      core.Money{Cents: cents},
		Category:    NormalizeCategory(payload.Category, tax.Expense),
		Description: strings.TrimSpace(payload.Description),
	}
	if r.Description == "" {
		r.Description = r.Merchant
	}
	if r.Description == "" {
		r.Description = "scanned receipt"
	}
	// Unreadable dates stay zero; the caller substitutes today.
	r.Date, _ = core.ParseDate(payload.Date)
	return r, nil
}

// Transaction turns the receipt into an expense draft. A missing date
// falls back to ref so the entry stays valid.
func (r Receipt) Transaction(ref time.Time, accountID string) core.Transaction {
	d := r.Date
	if d.IsZero() {
		d = core.Date{Time: ref}
	}
	return core.Transaction{
		Date:        d,
		Amount:      r.Amount,
		Direction:   core.Expense,
		Category:    r.Category,
		Description: r.Description,
		Merchant:    r.Merchant,
		AccountID:   accountID,
	}
}

// CleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes emits despite instructions, keeping the outermost JSON value.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there is still junk around the JSON value, keep only the span
	// from the first opening delimiter to its matching last closer. The
	// outermost value decides: an array of objects must not be cut down
	// to its first element.
	start, closer := strings.Index(s, "{"), "}"
	if arr := strings.Index(s, "["); arr != -1 && (start == -1 || arr < start) {
		start, closer = arr, "]"
	}
	if start != -1 {
		if end := strings.LastIndex(s, closer); end > start {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
