package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-generator/internal/domain"
)

func newQuoteService(t *testing.T) (*QuoteService, *fixture) {
	t.Helper()

	f := newFixture(t)

	return NewQuoteService(QuoteServiceConfig{
		Store:    f.store,
		Renderer: f.renderer,
		Logger:   discardLogger(),
	}), f
}

func TestNewQuoteService_Panics(t *testing.T) {
	f := newFixture(t)

	assert.Panics(t, func() { NewQuoteService(QuoteServiceConfig{Renderer: f.renderer}) })
	assert.Panics(t, func() { NewQuoteService(QuoteServiceConfig{Store: f.store}) })
}

func TestQuoteService_Quotes(t *testing.T) {
	svc, _ := newQuoteService(t)

	assert.Len(t, svc.Quotes(""), 2)
	assert.Len(t, svc.Quotes(domain.AllCategories), 2)
	assert.Equal(t, []domain.Quote{domain.DefaultQuotes()[1]}, svc.Quotes("Life"))
	assert.Empty(t, svc.Quotes("Nonexistent"))
}

func TestQuoteService_RandomQuote_UsesSelection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuoteService(t)

	_, err := svc.SetFilter(ctx, "Life")
	require.NoError(t, err)

	got := svc.RandomQuote(ctx, "s1", "")
	assert.Equal(t, "Life", got.Category)
	assert.Equal(t, "Life", got.Quote.Category)

	// An explicit category overrides the selection without persisting it.
	got = svc.RandomQuote(ctx, "s1", "Inspiration")
	assert.Equal(t, "Inspiration", got.Quote.Category)

	_, selected := svc.Categories(ctx)
	assert.Equal(t, "Life", selected)
}

func TestQuoteService_CurrentQuote(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuoteService(t)

	shown := svc.RandomQuote(ctx, "s1", "Life")

	assert.Equal(t, shown.Quote, svc.CurrentQuote(ctx, "s1").Quote)
}

func TestQuoteService_SubmitQuote(t *testing.T) {
	ctx := context.Background()
	svc, f := newQuoteService(t)

	q, display, err := svc.SubmitQuote(ctx, "s1", " Keep going. ", " Grit ")

	require.NoError(t, err)
	assert.Equal(t, domain.Quote{Text: "Keep going.", Category: "Grit"}, q)
	assert.False(t, display.Empty)
	assert.Equal(t, 3, f.store.Len())

	categories, _ := svc.Categories(ctx)
	assert.Equal(t, []string{"Inspiration", "Life", "Grit"}, categories)
	assert.Equal(t, []string{domain.AllCategories, "Inspiration", "Life", "Grit"}, svc.CategoryOptions())
}

func TestQuoteService_SubmitQuote_RerendersUnderFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuoteService(t)

	_, err := svc.SetFilter(ctx, "Nonexistent")
	require.NoError(t, err)

	_, display, err := svc.SubmitQuote(ctx, "s1", "Text", "Other")

	require.NoError(t, err)
	assert.True(t, display.Empty)
	assert.Equal(t, NoQuotesMessage, display.Message)
}

func TestQuoteService_SubmitQuote_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, f := newQuoteService(t)

	_, _, err := svc.SubmitQuote(ctx, "s1", "Text", "")

	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 2, f.store.Len())

	categories, _ := svc.Categories(ctx)
	assert.Len(t, categories, 2)
}

func TestQuoteService_SetFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuoteService(t)

	selected, err := svc.SetFilter(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, domain.AllCategories, selected)

	selected, err = svc.SetFilter(ctx, "Life")
	require.NoError(t, err)
	assert.Equal(t, "Life", selected)
}

func TestQuoteService_Import(t *testing.T) {
	ctx := context.Background()
	svc, f := newQuoteService(t)

	res, err := svc.Import(ctx, []byte(`[{"text":"A","category":"Imported"},{"text":"B","category":"Imported"}]`))

	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 2, Total: 4}, res)
	assert.Equal(t, "A", f.store.Snapshot()[2].Text)

	categories, _ := svc.Categories(ctx)
	assert.Contains(t, categories, "Imported")
}

func TestQuoteService_Import_AllOrNothing(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantParse bool
	}{
		{"not an array", `{"text":"A","category":"X"}`, true},
		{"malformed", `[{`, true},
		{"one invalid record", `[{"text":"A","category":"X"},{"text":"B","category":""}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, f := newQuoteService(t)

			_, err := svc.Import(context.Background(), []byte(tt.data))

			require.Error(t, err)
			assert.Equal(t, tt.wantParse, domain.IsParse(err))
			assert.Equal(t, !tt.wantParse, domain.IsValidation(err))

			step, ok := GetExecutionStep(err)
			require.True(t, ok)
			assert.Equal(t, StepPerform, step)
			assert.Equal(t, domain.DefaultQuotes(), f.store.Snapshot())
		})
	}
}

func TestQuoteService_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQuoteService(t)

	data, err := svc.Export(ctx)
	require.NoError(t, err)

	var exported []domain.Quote
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, domain.DefaultQuotes(), exported)

	other, f := newQuoteService(t)
	res, err := other.Import(ctx, data)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, append(domain.DefaultQuotes(), domain.DefaultQuotes()...), f.store.Snapshot())
}
