// Package suggest proposes an allocation category for a free-text
// transaction description using Gemini. Suggestions are advisory only and
// never feed the reconciliation rules.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for category suggestions.
const DefaultModelName = "gemini-2.0-flash"

// Suggester asks an AI model which budget bucket a transaction belongs in.
type Suggester struct {
	model string
}

// NewSuggester creates a suggester using the default model.
func NewSuggester() *Suggester {
	return &Suggester{model: DefaultModelName}
}

// SuggestCategory returns one of need/want/savings/investments for the
// given description. The model is instructed to answer with a single word;
// anything unrecognized is an error rather than a guess.
func (s *Suggester) SuggestCategory(ctx context.Context, description string) (domain.AllocationCategory, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("SuggestCategory: description is empty")
	}

	prompt :=
		"You are a personal budgeting assistant.\n" +
			"Classify the following transaction description into exactly one budget bucket.\n\n" +
			"Buckets:\n" +
			"- need: essentials (rent, groceries, utilities, transport, medicine)\n" +
			"- want: discretionary spending (eating out, entertainment, gadgets)\n" +
			"- savings: transfers into savings or emergency funds\n" +
			"- investments: stocks, funds, retirement contributions\n\n" +
			"Respond with ONLY the bucket name in lowercase.\n" +
			"No punctuation, no explanation, no Markdown.\n\n" +
			"Description: " + description

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("SuggestCategory: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("SuggestCategory: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("SuggestCategory: empty response from model")
	}

	cat, err := ParseCategory(raw)
	if err != nil {
		return "", fmt.Errorf("SuggestCategory: %w", err)
	}
	return cat, nil
}

// ParseCategory normalizes a model answer into an allocation category. It
// tolerates whitespace, case, trailing punctuation, and stray code fences.
func ParseCategory(raw string) (domain.AllocationCategory, error) {
	clean := strings.ToLower(strings.TrimSpace(raw))
	clean = strings.Trim(clean, "`.\"' \n")
	// Some models answer in a short sentence despite instructions; take
	// the first known bucket mentioned.
	for _, cat := range []domain.AllocationCategory{
		domain.CategoryNeed,
		domain.CategoryWant,
		domain.CategorySavings,
		domain.CategoryInvestments,
	} {
		if clean == string(cat) {
			return cat, nil
		}
	}
	for _, cat := range []domain.AllocationCategory{
		domain.CategoryInvestments,
		domain.CategorySavings,
		domain.CategoryNeed,
		domain.CategoryWant,
	} {
		if strings.Contains(clean, string(cat)) {
			return cat, nil
		}
	}
	return "", fmt.Errorf("unrecognized category %q", raw)
}
