package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/model"
)

func scopeBooks() []model.Book {
	return []model.Book{
		{Index: 0, Title: "Getting Started"},
		{Index: 1, Title: "User Guide"},
		{Index: 2, Title: "API Reference"},
		{Index: 3, Title: "Release Notes"},
	}
}

func TestBuildScope_NoGroups(t *testing.T) {
	s := BuildScope(scopeBooks(), nil)

	require.Equal(t, 5, s.Len())
	entries := s.Entries()
	assert.Equal(t, ScopeEntry{Level: 0, Title: AllBooksTitle, Books: []int{0, 1, 2, 3}}, entries[0])
	assert.Equal(t, ScopeEntry{Level: 1, Title: "API Reference", Books: []int{2}}, entries[3])
}

func TestBuildScope_Groups(t *testing.T) {
	groups := []model.BookGroup{
		{
			Title:       "Manuals",
			BookIndexes: []int{1, 0},
			Groups:      []model.BookGroup{{Title: "Developer", BookIndexes: []int{2}}},
		},
		{Title: "Other", BookIndexes: []int{3, 9}},
	}
	s := BuildScope(scopeBooks(), groups)

	want := []ScopeEntry{
		{Level: 0, Title: AllBooksTitle, Books: []int{0, 1, 2, 3}},
		{Level: 1, Title: "Manuals", Books: []int{0, 1, 2}},
		{Level: 2, Title: "User Guide", Books: []int{1}},
		{Level: 2, Title: "Getting Started", Books: []int{0}},
		{Level: 2, Title: "Developer", Books: []int{2}},
		{Level: 3, Title: "API Reference", Books: []int{2}},
		{Level: 1, Title: "Other", Books: []int{3}},
		{Level: 2, Title: "Release Notes", Books: []int{3}},
	}
	assert.Equal(t, want, s.Entries())
}

func TestScope_Resolve(t *testing.T) {
	s := BuildScope(scopeBooks(), nil)

	books, err := s.Resolve(-3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, books)

	books, err = s.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, books)

	_, err = s.Resolve(5)
	assert.True(t, errors.Is(err, searchErrors.ErrInvalidInput))
}

func TestBuildScope_EmptyCatalog(t *testing.T) {
	s := BuildScope(nil, nil)
	require.Equal(t, 1, s.Len())
	books, err := s.Resolve(0)
	require.NoError(t, err)
	assert.Empty(t, books)
}
