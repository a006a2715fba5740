// Package domain contains core business entities and rules.
package domain

import "strings"

// AllCategories is the filter sentinel that matches every quote.
const AllCategories = "all"

// Quote is a quotation paired with the category it belongs to.
// Quotes carry no identity; two quotes are the same quote when both fields match.
type Quote struct {
	// Text is the quotation itself.
	Text string `json:"text"`

	// Category groups quotes for filtering (e.g. "Motivation", "Life").
	Category string `json:"category"`
}

// NewQuote trims both fields and returns a validated Quote.
// Returns a ValidationError naming the first empty field.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate reports whether both fields are non-empty after trimming.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "must not be empty")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "must not be empty")
	}

	return nil
}

// Matches reports whether the quote passes the category filter.
// The AllCategories sentinel matches everything; anything else is exact equality.
func (q Quote) Matches(category string) bool {
	return category == AllCategories || q.Category == category
}

// DefaultQuotes returns the seed list used when nothing usable is persisted.
func DefaultQuotes() []Quote {
	return []Quote{
		{
			Text:     "The only limit to our realization of tomorrow is our doubts of today.",
			Category: "Inspiration",
		},
		{
			Text:     "Life is what happens when you're busy making other plans.",
			Category: "Life",
		},
	}
}

// FilterQuotes returns the quotes matching category, preserving order.
func FilterQuotes(quotes []Quote, category string) []Quote {
	if category == AllCategories {
		out := make([]Quote, len(quotes))
		copy(out, quotes)

		return out
	}

	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Matches(category) {
			out = append(out, q)
		}
	}

	return out
}

// DistinctCategories returns each category once, in order of first appearance.
func DistinctCategories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	out := make([]string, 0, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}

	return out
}
