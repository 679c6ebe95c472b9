// Package search provides literal keyword lookup across stored items.
// It is intentionally a filter, not a scoring search: a linear scan
// with normalized tokens, ordered by recency.
package search

import (
	"context"
	"fmt"
	"strings"

	"stashbot/internal/database"
	"stashbot/internal/models"
	"stashbot/internal/validation"
)

// Index answers keyword queries for one owner's items
type Index struct {
	repo database.ItemRepositoryInterface
}

// NewIndex creates a search index over the item store
func NewIndex(repo database.ItemRepositoryInterface) *Index {
	return &Index{repo: repo}
}

// Search returns items whose title, text, or tags contain every query
// token, case-insensitively, newest first.
func (idx *Index) Search(ctx context.Context, owner, query string) ([]*models.Item, error) {
	tokens := strings.Fields(strings.ToLower(validation.SanitizeText(query)))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: search query is required", validation.ErrInvalid)
	}

	items, err := idx.repo.ListAllByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	var matches []*models.Item
	for _, item := range items {
		if matchesAll(item, tokens) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

func matchesAll(item *models.Item, tokens []string) bool {
	haystack := strings.ToLower(item.Title + "\n" + item.Text + "\n" + strings.Join(item.Tags, "\n"))
	for _, token := range tokens {
		if !strings.Contains(haystack, token) {
			return false
		}
	}
	return true
}
