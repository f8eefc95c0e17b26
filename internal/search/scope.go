package search

import (
	"sort"

	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/model"
)

// AllBooksTitle is the title of the scope entry covering every book.
const AllBooksTitle = "All books"

// ScopeEntry is one selectable search scope: a group or a single book.
type ScopeEntry struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	Books []int  `json:"books"`
}

// Scope is the flattened book-group tree. Entry 0 always covers all books.
type Scope struct {
	entries []ScopeEntry
}

// BuildScope flattens the book groups. Each group is followed by its own
// books one level deeper and then by its subgroups. Without groups every book
// gets its own entry.
func BuildScope(books []model.Book, groups []model.BookGroup) *Scope {
	all := make([]int, len(books))
	for i := range books {
		all[i] = i
	}
	s := &Scope{entries: []ScopeEntry{{Level: 0, Title: AllBooksTitle, Books: all}}}

	if len(groups) == 0 {
		for i, b := range books {
			s.entries = append(s.entries, ScopeEntry{Level: 1, Title: b.Title, Books: []int{i}})
		}
		return s
	}

	s.addGroups(books, groups, 1)
	return s
}

func (s *Scope) addGroups(books []model.Book, groups []model.BookGroup, level int) {
	for _, g := range groups {
		s.entries = append(s.entries, ScopeEntry{Level: level, Title: g.Title, Books: groupBooks(g, len(books))})
		for _, bi := range g.BookIndexes {
			if bi < 0 || bi >= len(books) {
				continue
			}
			s.entries = append(s.entries, ScopeEntry{Level: level + 1, Title: books[bi].Title, Books: []int{bi}})
		}
		s.addGroups(books, g.Groups, level+1)
	}
}

// groupBooks returns the sorted, distinct books of a group subtree.
func groupBooks(g model.BookGroup, bookCount int) []int {
	seen := make(map[int]struct{})
	var walk func(model.BookGroup)
	walk = func(g model.BookGroup) {
		for _, bi := range g.BookIndexes {
			if bi >= 0 && bi < bookCount {
				seen[bi] = struct{}{}
			}
		}
		for _, sub := range g.Groups {
			walk(sub)
		}
	}
	walk(g)

	out := make([]int, 0, len(seen))
	for bi := range seen {
		out = append(out, bi)
	}
	sort.Ints(out)
	return out
}

// Entries returns the flattened scope list.
func (s *Scope) Entries() []ScopeEntry {
	out := make([]ScopeEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of scope entries.
func (s *Scope) Len() int {
	return len(s.entries)
}

// Resolve returns the books selected by a scope index. Negative indexes
// select all books.
func (s *Scope) Resolve(scopeIndex int) ([]int, error) {
	if scopeIndex < 0 {
		scopeIndex = 0
	}
	if scopeIndex >= len(s.entries) {
		return nil, searchErrors.NewValidationError("scope", "scope index out of range")
	}
	return s.entries[scopeIndex].Books, nil
}
