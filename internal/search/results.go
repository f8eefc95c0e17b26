package search

import (
	"sort"
)

// SortOrder selects how results are ordered.
type SortOrder int

const (
	// SortByScore orders by descending score.
	SortByScore SortOrder = iota
	// SortByBook groups results under their book, in book order.
	SortByBook
)

func (o SortOrder) String() string {
	if o == SortByBook {
		return "book"
	}
	return "score"
}

// MarshalText renders the order for JSON.
func (o SortOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Entry is one matched file.
type Entry struct {
	BookIndex int    `json:"book_index"`
	BookTitle string `json:"book_title"`
	FileIndex int    `json:"file_index"`
	Score     int    `json:"score"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

// Results is the result set of one query with its display cursor.
// It is owned by a single Panel, which guards it.
type Results struct {
	entries      []Entry
	maxScore     int
	order        SortOrder
	displayIndex int
}

// NewResults creates an empty result set.
func NewResults() *Results {
	return &Results{}
}

// Add appends an entry.
func (r *Results) Add(e Entry) {
	r.entries = append(r.entries, e)
	if e.Score > r.maxScore {
		r.maxScore = e.Score
	}
}

// Len returns the number of entries.
func (r *Results) Len() int {
	return len(r.entries)
}

// MaxScore returns the highest entry score.
func (r *Results) MaxScore() int {
	return r.maxScore
}

// Order returns the current sort order.
func (r *Results) Order() SortOrder {
	return r.order
}

// DisplayIndex returns the index of the next entry to render.
func (r *Results) DisplayIndex() int {
	return r.displayIndex
}

// Rewind moves the display cursor back to the first entry.
func (r *Results) Rewind() {
	r.displayIndex = 0
}

// Entry returns the entry at i.
func (r *Results) Entry(i int) (Entry, bool) {
	if i < 0 || i >= len(r.entries) {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns a copy of all entries in their current order.
func (r *Results) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Retain keeps the entries for which keep returns true, preserving order,
// and recomputes the max score.
func (r *Results) Retain(keep func(Entry) bool) {
	kept := make([]Entry, 0, len(r.entries))
	r.maxScore = 0
	for _, e := range r.entries {
		if !keep(e) {
			continue
		}
		kept = append(kept, e)
		if e.Score > r.maxScore {
			r.maxScore = e.Score
		}
	}
	r.entries = kept
	if r.displayIndex > len(kept) {
		r.displayIndex = len(kept)
	}
}

// Sort orders the entries and rewinds the cursor. Ties on the primary key
// fall back to book index, title, file index and URL, so the order is total.
func (r *Results) Sort(order SortOrder) {
	r.order = order
	r.displayIndex = 0
	sort.SliceStable(r.entries, func(i, j int) bool {
		return lessEntry(order, r.entries[i], r.entries[j])
	})
}

func lessEntry(order SortOrder, a, b Entry) bool {
	if order == SortByScore && a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.BookIndex != b.BookIndex {
		return a.BookIndex < b.BookIndex
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	if a.FileIndex != b.FileIndex {
		return a.FileIndex < b.FileIndex
	}
	return a.URL < b.URL
}

// Page returns one page of entries (1-based) and the total entry count.
// Pages past the end are empty.
func (r *Results) Page(page, pageSize int) ([]Entry, int) {
	total := len(r.entries)
	if page < 1 || pageSize < 1 {
		return []Entry{}, total
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []Entry{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	out := make([]Entry, end-start)
	copy(out, r.entries[start:end])
	return out, total
}

// Rank converts a score into a display percentage of maxScore. Any match
// ranks at least 1.
func Rank(score, maxScore int) int {
	if maxScore <= 0 {
		return 100
	}
	rank := score * 100 / maxScore
	if rank < 1 {
		return 1
	}
	return rank
}
