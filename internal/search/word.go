// Package search implements the help-set match engine: per-book word
// validation, file-score joins, phrase confirmation from pair data, result
// sorting and segment rendering, driven by the Panel state machine.
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/index"
	"github.com/gcbaptista/go-help-search/internal/tokenizer"
)

// SearchWord is a normalized query word with its derived match pattern.
type SearchWord struct {
	Text     string
	Wildcard bool
	pattern  *regexp.Regexp
}

// NewSearchWord builds the match pattern for a normalized word. The wildcard
// marker matches any run of characters.
func NewSearchWord(text string) SearchWord {
	w := SearchWord{Text: text, Wildcard: tokenizer.HasWildcard(text)}
	if w.Wildcard {
		parts := strings.Split(text, string(tokenizer.WildcardMarker))
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		w.pattern = regexp.MustCompile("(?i)^" + strings.Join(parts, ".*") + "$")
	}
	return w
}

// Matches reports whether an index word satisfies the search word.
func (w SearchWord) Matches(indexWord string) bool {
	if w.pattern != nil {
		return w.pattern.MatchString(indexWord)
	}
	return strings.EqualFold(w.Text, indexWord)
}

// CollectScores adds the match strings of every shard word matching w to
// into and returns the number of malformed pairs skipped.
func (w SearchWord) CollectScores(shard index.WordShard, into index.FileScores) int {
	if !w.Wildcard {
		if matches, ok := shard[w.Text]; ok {
			return index.ParseMatchString(matches, into)
		}
		return 0
	}

	skipped := 0
	for word, matches := range shard {
		if w.Matches(word) {
			skipped += index.ParseMatchString(matches, into)
		}
	}
	return skipped
}

// BookRules are the word validity rules of one book.
type BookRules struct {
	MinimumWordLength int
	skipWords         map[string]struct{}
}

// NewBookRules derives the rules from a book's search settings.
func NewBookRules(s config.BookSearchSettings) BookRules {
	return BookRules{
		MinimumWordLength: s.MinimumWordLength,
		skipWords:         s.SkipWordSet(),
	}
}

// ValidSearchWord reports whether word takes part in matching for the book.
// Words shorter than the minimum are ignored unless they carry a wildcard;
// skip words are always ignored.
func (r BookRules) ValidSearchWord(word string) bool {
	n := utf8.RuneCountInString(word)
	if n == 0 {
		return false
	}
	if n < r.MinimumWordLength && !tokenizer.HasWildcard(word) {
		return false
	}
	if _, skip := r.skipWords[word]; skip {
		return false
	}
	return true
}

// ValidWords filters words through the rules, keeping the first occurrence
// of each word in order.
func (r BookRules) ValidWords(words []string) []SearchWord {
	seen := make(map[string]struct{}, len(words))
	out := make([]SearchWord, 0, len(words))
	for _, w := range words {
		if !r.ValidSearchWord(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, NewSearchWord(w))
	}
	return out
}
