package app

import (
	"slices"
	"sync"

	"github.com/jsamuelsen/quote-generator/internal/domain"
)

// CategoryIndex is the list behind the category selector. Categories are
// added in order of first appearance and never removed.
type CategoryIndex struct {
	mu         sync.RWMutex
	categories []string
	seen       map[string]struct{}
}

// NewCategoryIndex creates an empty index.
func NewCategoryIndex() *CategoryIndex {
	return &CategoryIndex{seen: make(map[string]struct{})}
}

// Refresh merges the categories of quotes into the index.
// Returns the number of newly added categories.
func (c *CategoryIndex) Refresh(quotes []domain.Quote) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0

	for _, category := range domain.DistinctCategories(quotes) {
		if _, ok := c.seen[category]; ok {
			continue
		}

		c.seen[category] = struct{}{}
		c.categories = append(c.categories, category)
		added++
	}

	return added
}

// List returns the categories without the "all" sentinel.
func (c *CategoryIndex) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := slices.Clone(c.categories)
	if out == nil {
		out = []string{}
	}

	return out
}

// Options returns the selector entries: the "all" sentinel followed by List.
func (c *CategoryIndex) Options() []string {
	return append([]string{domain.AllCategories}, c.List()...)
}
