// Package app contains application services that orchestrate use cases.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// ReplaceStrategy selects how Replace merges incoming records.
type ReplaceStrategy int

const (
	// StrategyAppend adds incoming records after the existing ones (import).
	StrategyAppend ReplaceStrategy = iota

	// StrategyReplaceAll discards the existing records (sync).
	StrategyReplaceAll
)

// String returns the strategy name used in logs.
func (s ReplaceStrategy) String() string {
	switch s {
	case StrategyAppend:
		return "append"
	case StrategyReplaceAll:
		return "replace_all"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// QuoteStore owns the ordered quote list and mirrors it to durable storage.
// Every mutation is written through to the SlotStore before it returns; if the
// write fails the in-memory list is rolled back so both copies stay equal.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes []domain.Quote
	slots  ports.SlotStore
	logger *slog.Logger
}

// NewQuoteStore creates a store seeded with the default quotes.
// Call Load to replace them with the persisted list.
// Panics if slots is nil.
func NewQuoteStore(slots ports.SlotStore, logger *slog.Logger) *QuoteStore {
	if slots == nil {
		panic("app: NewQuoteStore requires a SlotStore")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteStore{
		quotes: domain.DefaultQuotes(),
		slots:  slots,
		logger: logger,
	}
}

// Load reads the persisted list. An absent, unreadable, or corrupt slot, or
// one holding a record with blank text or category, falls back to the
// default quotes; corruption is logged, never returned.
func (s *QuoteStore) Load(ctx context.Context) {
	quotes := s.readPersisted(ctx)

	s.mu.Lock()
	s.quotes = quotes
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "quote store loaded", slog.Int("count", len(quotes)))
}

func (s *QuoteStore) readPersisted(ctx context.Context) []domain.Quote {
	raw, err := s.slots.Get(ctx, ports.SlotQuotes)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.WarnContext(ctx, "reading persisted quotes failed, using defaults",
				slog.Any("error", err),
			)
		}

		return domain.DefaultQuotes()
	}

	var quotes []domain.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil || quotes == nil {
		s.logger.WarnContext(ctx, "persisted quotes are corrupt, using defaults",
			slog.Any("error", err),
			slog.Int("bytes", len(raw)),
		)

		return domain.DefaultQuotes()
	}

	for i, q := range quotes {
		if err := q.Validate(); err != nil {
			s.logger.WarnContext(ctx, "persisted quotes hold an invalid record, using defaults",
				slog.Int("index", i),
				slog.Any("error", err),
			)

			return domain.DefaultQuotes()
		}
	}

	return quotes
}

// Save writes the full list to durable storage.
func (s *QuoteStore) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.persistLocked(ctx, s.quotes)
}

// persistLocked serializes quotes to the quotes slot. Caller holds mu.
func (s *QuoteStore) persistLocked(ctx context.Context, quotes []domain.Quote) error {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	data, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := s.slots.Put(ctx, ports.SlotQuotes, data); err != nil {
		return fmt.Errorf("persisting quotes: %w", err)
	}

	return nil
}

// Append validates and appends one quote, then persists.
// Returns a ValidationError naming the empty field without changing state.
func (s *QuoteStore) Append(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clip(s.quotes), q)
	if err := s.persistLocked(ctx, next); err != nil {
		return domain.Quote{}, err
	}

	s.quotes = next

	return q, nil
}

// Replace merges records into the store using strategy, then persists.
func (s *QuoteStore) Replace(ctx context.Context, records []domain.Quote, strategy ReplaceStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next []domain.Quote

	switch strategy {
	case StrategyAppend:
		next = make([]domain.Quote, 0, len(s.quotes)+len(records))
		next = append(next, s.quotes...)
		next = append(next, records...)
	case StrategyReplaceAll:
		next = slices.Clone(records)
		if next == nil {
			next = []domain.Quote{}
		}
	default:
		return fmt.Errorf("unknown replace strategy %s", strategy)
	}

	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}

	s.quotes = next

	s.logger.DebugContext(ctx, "quote store replaced",
		slog.String("strategy", strategy.String()),
		slog.Int("incoming", len(records)),
		slog.Int("count", len(next)),
	)

	return nil
}

// Snapshot returns a copy of the current list.
func (s *QuoteStore) Snapshot() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.quotes)
}

// Len returns the number of stored quotes.
func (s *QuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.quotes)
}

// ExportSnapshot renders the list as two-space indented JSON.
func (s *QuoteStore) ExportSnapshot() ([]byte, error) {
	quotes := s.Snapshot()
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	data, err := json.MarshalIndent(quotes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	return data, nil
}

// SelectedCategory returns the persisted filter, or AllCategories when none
// has been stored.
func (s *QuoteStore) SelectedCategory(ctx context.Context) string {
	raw, err := s.slots.Get(ctx, ports.SlotSelectedCategory)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.WarnContext(ctx, "reading selected category failed", slog.Any("error", err))
		}

		return domain.AllCategories
	}

	category := strings.TrimSpace(string(raw))
	if category == "" {
		return domain.AllCategories
	}

	return category
}

// SetSelectedCategory persists the filter. Blank selects AllCategories.
// The value is not checked against the known categories.
func (s *QuoteStore) SetSelectedCategory(ctx context.Context, category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.AllCategories
	}

	if err := s.slots.Put(ctx, ports.SlotSelectedCategory, []byte(category)); err != nil {
		return "", fmt.Errorf("persisting selected category: %w", err)
	}

	return category, nil
}

// importRecord mirrors domain.Quote with strict field types for decoding.
type importRecord struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// ParseImport decodes an import payload. The top level must be a JSON array
// and every element needs non-empty text and category; any violation rejects
// the whole payload.
func ParseImport(data []byte) ([]domain.Quote, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, domain.NewParseError("import", "payload is empty", nil)
	}

	if trimmed[0] != '[' {
		return nil, domain.NewParseError("import", "top-level value is not an array", nil)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, domain.NewParseError("import", "malformed JSON", err)
	}

	quotes := make([]domain.Quote, 0, len(elements))

	for i, el := range elements {
		var rec importRecord
		if err := json.Unmarshal(el, &rec); err != nil {
			return nil, domain.NewParseError("import", fmt.Sprintf("element %d is not a quote object", i), err)
		}

		q, err := domain.NewQuote(rec.Text, rec.Category)
		if err != nil {
			return nil, indexValidationError(i, err)
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

func indexValidationError(i int, err error) error {
	field := ""
	msg := err.Error()

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		field = ve.Field
		msg = ve.Message
	}

	return domain.NewValidationError(fmt.Sprintf("[%d].%s", i, field), msg)
}
