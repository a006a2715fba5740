package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"

	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// NoQuotesMessage is shown when the current filter matches nothing.
const NoQuotesMessage = "No quotes available."

// Display is what the quote region shows: one quote or the empty state.
type Display struct {
	Quote    domain.Quote `json:"quote"`
	Empty    bool         `json:"empty"`
	Message  string       `json:"message,omitempty"`
	Category string       `json:"category"`
}

// Renderer picks quotes for display and remembers the last one per session.
type Renderer struct {
	store    *QuoteStore
	sessions ports.SessionStore
	intN     func(n int) int
	logger   *slog.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRandomSource replaces the uniform index source. intN must return a
// value in [0, n).
func WithRandomSource(intN func(n int) int) RendererOption {
	return func(r *Renderer) { r.intN = intN }
}

// NewRenderer creates a renderer over store. Panics if store or sessions is nil.
func NewRenderer(store *QuoteStore, sessions ports.SessionStore, logger *slog.Logger, opts ...RendererOption) *Renderer {
	if store == nil {
		panic("app: NewRenderer requires a QuoteStore")
	}

	if sessions == nil {
		panic("app: NewRenderer requires a SessionStore")
	}

	if logger == nil {
		logger = slog.Default()
	}

	r := &Renderer{
		store:    store,
		sessions: sessions,
		intN:     rand.IntN,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// PickRandom returns a uniformly chosen quote, or false when quotes is empty.
func (r *Renderer) PickRandom(quotes []domain.Quote) (domain.Quote, bool) {
	if len(quotes) == 0 {
		return domain.Quote{}, false
	}

	return quotes[r.intN(len(quotes))], true
}

// Render picks a random quote matching category and records it as the
// session's last viewed quote. An empty match renders the empty state and
// forgets the last viewed quote, so a reload keeps showing the empty state.
func (r *Renderer) Render(ctx context.Context, sessionID, category string) Display {
	if category == "" {
		category = domain.AllCategories
	}

	q, ok := r.PickRandom(domain.FilterQuotes(r.store.Snapshot(), category))
	if !ok {
		r.forget(ctx, sessionID)
		return Display{Empty: true, Message: NoQuotesMessage, Category: category}
	}

	r.remember(ctx, sessionID, q)

	return Display{Quote: q, Category: category}
}

// LastViewed returns the session's last rendered quote, if any.
func (r *Renderer) LastViewed(ctx context.Context, sessionID string) (domain.Quote, bool) {
	if sessionID == "" {
		return domain.Quote{}, false
	}

	raw, err := r.sessions.Get(ctx, sessionID, ports.SessionSlotLastViewed)
	if err != nil {
		return domain.Quote{}, false
	}

	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil || q.Validate() != nil {
		r.logger.WarnContext(ctx, "discarding corrupt last viewed quote", slog.Any("error", err))
		return domain.Quote{}, false
	}

	return q, true
}

// Current restores the session's last viewed quote verbatim, or renders a
// fresh one when the session has none. A session whose last render was empty
// has none.
func (r *Renderer) Current(ctx context.Context, sessionID, category string) Display {
	if category == "" {
		category = domain.AllCategories
	}

	if q, ok := r.LastViewed(ctx, sessionID); ok {
		return Display{Quote: q, Category: category}
	}

	return r.Render(ctx, sessionID, category)
}

func (r *Renderer) remember(ctx context.Context, sessionID string, q domain.Quote) {
	if sessionID == "" {
		return
	}

	data, err := json.Marshal(q)
	if err != nil {
		return
	}

	if err := r.sessions.Put(ctx, sessionID, ports.SessionSlotLastViewed, data); err != nil {
		r.logger.WarnContext(ctx, "storing last viewed quote failed", slog.Any("error", err))
	}
}

func (r *Renderer) forget(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}

	if err := r.sessions.Delete(ctx, sessionID, ports.SessionSlotLastViewed); err != nil {
		r.logger.WarnContext(ctx, "clearing last viewed quote failed", slog.Any("error", err))
	}
}
