package dto

import (
	"time"

	"github.com/jsamuelsen/quote-generator/internal/app"
	"github.com/jsamuelsen/quote-generator/internal/domain"
)

// QuoteResponse is the wire shape of a quote.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a list, never returning nil.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}

// CreateQuoteRequest is the body of POST /api/v1/quotes and the page form.
type CreateQuoteRequest struct {
	Text     string `json:"text"     form:"text"     validate:"notempty,max=2000"`
	Category string `json:"category" form:"category" validate:"notempty,max=100"`
}

// ListQuotesRequest holds the query of GET /api/v1/quotes.
type ListQuotesRequest struct {
	PaginationRequest

	Category string `form:"category" validate:"omitempty,max=100"`
}

// DisplayResponse is what the quote display region shows.
type DisplayResponse struct {
	Quote    *QuoteResponse `json:"quote,omitempty"`
	Empty    bool           `json:"empty"`
	Message  string         `json:"message,omitempty"`
	Category string         `json:"category"`
}

// NewDisplayResponse converts a renderer display.
func NewDisplayResponse(d app.Display) DisplayResponse {
	resp := DisplayResponse{
		Empty:    d.Empty,
		Message:  d.Message,
		Category: d.Category,
	}

	if !d.Empty {
		q := NewQuoteResponse(d.Quote)
		resp.Quote = &q
	}

	return resp
}

// CreateQuoteResponse reports the stored quote and the refreshed display.
type CreateQuoteResponse struct {
	Quote   QuoteResponse   `json:"quote"`
	Display DisplayResponse `json:"display"`
}

// SelectCategoryRequest is the body of PUT /api/v1/categories/selected.
// A blank category selects every quote.
type SelectCategoryRequest struct {
	Category string `json:"category" form:"category" validate:"max=100"`
}

// CategoriesResponse lists known categories and the persisted selection.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Options    []string `json:"options"`
	Selected   string   `json:"selected"`
}

// ImportResponse reports the effect of an import.
type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// SyncResponse reports one sync cycle.
type SyncResponse struct {
	Outcome    string    `json:"outcome"`
	Count      int       `json:"count"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
}

// NewSyncResponse converts a sync result.
func NewSyncResponse(r app.SyncResult) SyncResponse {
	return SyncResponse{
		Outcome:    string(r.Outcome),
		Count:      r.Count,
		Message:    r.Message,
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// NotificationResponse is the current transient notice, if any.
type NotificationResponse struct {
	Active    bool       `json:"active"`
	ID        string     `json:"id,omitempty"`
	Message   string     `json:"message,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// NewNotificationResponse converts the notifier state.
func NewNotificationResponse(n app.Notice, ok bool) NotificationResponse {
	if !ok {
		return NotificationResponse{}
	}

	expires := n.ExpiresAt

	return NotificationResponse{
		Active:    true,
		ID:        n.ID,
		Message:   n.Message,
		ExpiresAt: &expires,
	}
}
