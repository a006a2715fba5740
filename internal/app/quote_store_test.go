package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-generator/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/mocks"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

func TestNewQuoteStore_PanicsWithoutSlots(t *testing.T) {
	assert.Panics(t, func() { NewQuoteStore(nil, nil) })
}

func TestQuoteStore_Load(t *testing.T) {
	persisted := []domain.Quote{{Text: "Saved", Category: "Disk"}}
	raw, err := json.Marshal(persisted)
	require.NoError(t, err)

	tests := []struct {
		name string
		slot []byte
		want []domain.Quote
	}{
		{"absent slot uses defaults", nil, domain.DefaultQuotes()},
		{"persisted list wins", raw, persisted},
		{"corrupt slot uses defaults", []byte(`[{"text":`), domain.DefaultQuotes()},
		{"null uses defaults", []byte(`null`), domain.DefaultQuotes()},
		{"empty list stays empty", []byte(`[]`), []domain.Quote{}},
		{"record with missing fields uses defaults", []byte(`[{"text":"Saved","category":"Disk"},{}]`), domain.DefaultQuotes()},
		{"record with blank text uses defaults", []byte(`[{"text":"  ","category":"X"}]`), domain.DefaultQuotes()},
		{"non-object element uses defaults", []byte(`["just text"]`), domain.DefaultQuotes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			slots := memory.NewSlotStore()

			if tt.slot != nil {
				require.NoError(t, slots.Put(ctx, ports.SlotQuotes, tt.slot))
			}

			store := NewQuoteStore(slots, discardLogger())
			store.Load(ctx)

			if diff := cmp.Diff(tt.want, store.Snapshot()); diff != "" {
				t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuoteStore_Append(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	q, err := f.store.Append(ctx, "  Be yourself.  ", " Wisdom ")
	require.NoError(t, err)
	assert.Equal(t, domain.Quote{Text: "Be yourself.", Category: "Wisdom"}, q)
	assert.Equal(t, 3, f.store.Len())

	// Written through: a fresh store over the same slots sees the append.
	reloaded := NewQuoteStore(f.slots, discardLogger())
	reloaded.Load(ctx)
	assert.Equal(t, f.store.Snapshot(), reloaded.Snapshot())
}

func TestQuoteStore_Append_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		category  string
		wantField string
	}{
		{"empty text", "", "Life", "text"},
		{"whitespace category", "Quote", "   ", "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.store.Append(context.Background(), tt.text, tt.category)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, domain.DefaultQuotes(), f.store.Snapshot())
		})
	}
}

func TestQuoteStore_Append_PersistFailureRollsBack(t *testing.T) {
	slots := mocks.NewMockSlotStore(t)
	slots.EXPECT().Put(mock.Anything, ports.SlotQuotes, mock.Anything).Return(errors.New("disk full"))

	store := NewQuoteStore(slots, discardLogger())

	_, err := store.Append(context.Background(), "Text", "Category")

	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, domain.DefaultQuotes(), store.Snapshot())
}

func TestQuoteStore_Replace(t *testing.T) {
	incoming := []domain.Quote{{Text: "Remote", Category: "Server"}}

	tests := []struct {
		name     string
		strategy ReplaceStrategy
		records  []domain.Quote
		want     []domain.Quote
	}{
		{"append keeps existing", StrategyAppend, incoming, append(domain.DefaultQuotes(), incoming...)},
		{"replace all discards existing", StrategyReplaceAll, incoming, incoming},
		{"replace all with nothing", StrategyReplaceAll, nil, []domain.Quote{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			require.NoError(t, f.store.Replace(context.Background(), tt.records, tt.strategy))

			if diff := cmp.Diff(tt.want, f.store.Snapshot()); diff != "" {
				t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuoteStore_Replace_UnknownStrategy(t *testing.T) {
	f := newFixture(t)

	err := f.store.Replace(context.Background(), nil, ReplaceStrategy(42))

	require.ErrorContains(t, err, "strategy(42)")
	assert.Equal(t, 2, f.store.Len())
}

func TestQuoteStore_SnapshotIsACopy(t *testing.T) {
	f := newFixture(t)

	snap := f.store.Snapshot()
	snap[0].Text = "mutated"

	assert.NotEqual(t, "mutated", f.store.Snapshot()[0].Text)
}

func TestQuoteStore_ExportSnapshot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Replace(context.Background(), []domain.Quote{{Text: "A", Category: "B"}}, StrategyReplaceAll))

	data, err := f.store.ExportSnapshot()

	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"text\": \"A\",\n    \"category\": \"B\"\n  }\n]", string(data))
}

func TestQuoteStore_ExportSnapshot_Empty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Replace(context.Background(), nil, StrategyReplaceAll))

	data, err := f.store.ExportSnapshot()

	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestQuoteStore_SelectedCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.Equal(t, domain.AllCategories, f.store.SelectedCategory(ctx))

	selected, err := f.store.SetSelectedCategory(ctx, " Life ")
	require.NoError(t, err)
	assert.Equal(t, "Life", selected)
	assert.Equal(t, "Life", f.store.SelectedCategory(ctx))

	// Unknown categories are stored as-is.
	selected, err = f.store.SetSelectedCategory(ctx, "Nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "Nonexistent", selected)

	selected, err = f.store.SetSelectedCategory(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.AllCategories, selected)
}

func TestParseImport(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		want      []domain.Quote
		wantParse bool
		wantField string
	}{
		{
			name: "valid records are trimmed",
			data: `[{"text":" A ","category":"X"},{"text":"B","category":" Y"}]`,
			want: []domain.Quote{{Text: "A", Category: "X"}, {Text: "B", Category: "Y"}},
		},
		{
			name: "empty array",
			data: `[]`,
			want: []domain.Quote{},
		},
		{
			name: "unknown fields are ignored",
			data: `[{"text":"A","category":"X","author":"someone"}]`,
			want: []domain.Quote{{Text: "A", Category: "X"}},
		},
		{name: "empty payload", data: "  ", wantParse: true},
		{name: "object at top level", data: `{"text":"A","category":"X"}`, wantParse: true},
		{name: "malformed JSON", data: `[{"text":"A"`, wantParse: true},
		{name: "element is not an object", data: `["A"]`, wantParse: true},
		{name: "text has wrong type", data: `[{"text":1,"category":"X"}]`, wantParse: true},
		{name: "missing category", data: `[{"text":"A","category":"X"},{"text":"B"}]`, wantField: "[1].category"},
		{name: "blank text", data: `[{"text":"  ","category":"X"}]`, wantField: "[0].text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseImport([]byte(tt.data))

			switch {
			case tt.wantParse:
				assert.True(t, domain.IsParse(err), "want parse error, got %v", err)
				assert.Nil(t, got)
			case tt.wantField != "":
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantField, ve.Field)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)

				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("ParseImport() mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}
