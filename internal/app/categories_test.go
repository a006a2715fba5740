package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsamuelsen/quote-generator/internal/domain"
)

func TestCategoryIndex(t *testing.T) {
	idx := NewCategoryIndex()

	assert.Equal(t, []string{}, idx.List())
	assert.Equal(t, []string{domain.AllCategories}, idx.Options())

	added := idx.Refresh(domain.DefaultQuotes())
	assert.Equal(t, 2, added)

	added = idx.Refresh([]domain.Quote{
		{Text: "a", Category: "Life"},
		{Text: "b", Category: "Humor"},
		{Text: "c", Category: "Humor"},
	})
	assert.Equal(t, 1, added)

	assert.Equal(t, []string{"Inspiration", "Life", "Humor"}, idx.List())
	assert.Equal(t, []string{domain.AllCategories, "Inspiration", "Life", "Humor"}, idx.Options())
}

func TestCategoryIndex_NeverShrinks(t *testing.T) {
	idx := NewCategoryIndex()
	idx.Refresh(domain.DefaultQuotes())

	assert.Zero(t, idx.Refresh(nil))
	assert.Len(t, idx.List(), 2)
}

func TestCategoryIndex_ListIsACopy(t *testing.T) {
	idx := NewCategoryIndex()
	idx.Refresh(domain.DefaultQuotes())

	list := idx.List()
	list[0] = "mutated"

	assert.Equal(t, "Inspiration", idx.List()[0])
}
