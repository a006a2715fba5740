package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quote-generator/internal/domain"
)

// QuoteService orchestrates the user-facing quote use cases on top of the
// store, renderer, and category index. Handlers and the CLI call it; it never
// sees HTTP types.
type QuoteService struct {
	store      *QuoteStore
	renderer   *Renderer
	categories *CategoryIndex
	executor   *Executor
	logger     *slog.Logger
}

// QuoteServiceConfig contains the dependencies of the quote service.
type QuoteServiceConfig struct {
	Store      *QuoteStore
	Renderer   *Renderer
	Categories *CategoryIndex
	Executor   *Executor
	Logger     *slog.Logger
}

// NewQuoteService creates a quote service. Panics if Store or Renderer is nil.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Store == nil {
		panic("app: NewQuoteService requires a QuoteStore")
	}

	if cfg.Renderer == nil {
		panic("app: NewQuoteService requires a Renderer")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Categories == nil {
		cfg.Categories = NewCategoryIndex()
	}

	if cfg.Executor == nil {
		cfg.Executor = NewExecutor(cfg.Logger)
	}

	cfg.Categories.Refresh(cfg.Store.Snapshot())

	return &QuoteService{
		store:      cfg.Store,
		renderer:   cfg.Renderer,
		categories: cfg.Categories,
		executor:   cfg.Executor,
		logger:     cfg.Logger,
	}
}

// Quotes returns the quotes matching category (all when blank).
func (s *QuoteService) Quotes(category string) []domain.Quote {
	if category == "" {
		category = domain.AllCategories
	}

	return domain.FilterQuotes(s.store.Snapshot(), category)
}

// RandomQuote renders a new random quote. A blank category uses the
// persisted selection.
func (s *QuoteService) RandomQuote(ctx context.Context, sessionID, category string) Display {
	if category == "" {
		category = s.store.SelectedCategory(ctx)
	}

	return s.renderer.Render(ctx, sessionID, category)
}

// CurrentQuote returns the session's last viewed quote or a fresh one.
func (s *QuoteService) CurrentQuote(ctx context.Context, sessionID string) Display {
	return s.renderer.Current(ctx, sessionID, s.store.SelectedCategory(ctx))
}

// SubmitQuote appends a quote, refreshes the categories, and re-renders under
// the current filter. Validation failures leave everything unchanged.
func (s *QuoteService) SubmitQuote(ctx context.Context, sessionID, text, category string) (domain.Quote, Display, error) {
	q, err := s.store.Append(ctx, text, category)
	if err != nil {
		s.logger.WarnContext(ctx, "quote rejected", slog.Any("error", err))
		return domain.Quote{}, Display{}, err
	}

	s.categories.Refresh([]domain.Quote{q})

	s.logger.InfoContext(ctx, "quote added",
		slog.String("category", q.Category),
		slog.Int("count", s.store.Len()),
	)

	return q, s.RandomQuote(ctx, sessionID, ""), nil
}

// Categories returns the known categories and the persisted selection.
func (s *QuoteService) Categories(ctx context.Context) ([]string, string) {
	return s.categories.List(), s.store.SelectedCategory(ctx)
}

// CategoryOptions returns the selector entries including the "all" sentinel.
func (s *QuoteService) CategoryOptions() []string {
	return s.categories.Options()
}

// SetFilter persists the selected category.
func (s *QuoteService) SetFilter(ctx context.Context, category string) (string, error) {
	selected, err := s.store.SetSelectedCategory(ctx, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist filter", slog.Any("error", err))
		return "", err
	}

	s.logger.DebugContext(ctx, "filter changed", slog.String("category", selected))

	return selected, nil
}

// ImportResult reports the effect of an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// Import parses data and appends every record to the store. A malformed
// payload or any invalid record rejects the whole import.
func (s *QuoteService) Import(ctx context.Context, data []byte) (ImportResult, error) {
	op := Operation[[]byte, []domain.Quote, []domain.Quote, ImportResult]{
		Name: "import_quotes",
		Perform: func(_ context.Context, payload []byte) ([]domain.Quote, error) {
			return ParseImport(payload)
		},
		Verify: func(_ context.Context, _ []byte, parsed []domain.Quote) ([]domain.Quote, error) {
			return parsed, nil
		},
		Archive: func(ctx context.Context, _ []byte, records []domain.Quote) error {
			if err := s.store.Replace(ctx, records, StrategyAppend); err != nil {
				return err
			}

			s.categories.Refresh(records)

			return nil
		},
		Respond: func(_ context.Context, _ []byte, records []domain.Quote) (ImportResult, error) {
			return ImportResult{Imported: len(records), Total: s.store.Len()}, nil
		},
	}

	res, err := Execute(ctx, s.executor, op, data)
	if err != nil {
		return ImportResult{}, err
	}

	s.logger.InfoContext(ctx, "quotes imported",
		slog.Int("imported", res.Imported),
		slog.Int("total", res.Total),
	)

	return res, nil
}

// Export returns the pretty-printed quote list.
func (s *QuoteService) Export(_ context.Context) ([]byte, error) {
	return s.store.ExportSnapshot()
}
