package tokenizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WildcardMarker matches any run of characters inside a search word.
const WildcardMarker = '*'

// RawToken is one whitespace/quote delimited piece of a query before
// word breaking.
type RawToken struct {
	Text   string
	Quoted bool
}

// Token is a bare word or a phrase after word breaking. A bare token
// always holds exactly one word.
type Token struct {
	Words  []string
	Phrase bool
}

// SplitQuery splits a raw query into bare words and quoted phrases.
//
// A field starting with a quote opens a phrase and a field ending with a quote
// closes it. An unterminated phrase runs to the end of the query. A field that
// ends with a quote while no phrase is open is a plain word once its quotes
// are stripped.
func SplitQuery(query string) []RawToken {
	var (
		tokens   []RawToken
		phrase   []string
		inPhrase bool
	)

	closePhrase := func() {
		tokens = append(tokens, RawToken{Text: strings.Join(phrase, " "), Quoted: true})
		phrase = phrase[:0]
		inPhrase = false
	}

	for _, field := range strings.Fields(query) {
		switch {
		case !inPhrase && strings.HasPrefix(field, `"`):
			inPhrase = true
			field = field[1:]
			phrase = append(phrase, stripQuotes(field))
			if field != "" && strings.HasSuffix(field, `"`) {
				closePhrase()
			}
		case inPhrase:
			closing := strings.HasSuffix(field, `"`)
			phrase = append(phrase, stripQuotes(field))
			if closing {
				closePhrase()
			}
		default:
			tokens = append(tokens, RawToken{Text: stripQuotes(field)})
		}
	}
	if inPhrase {
		closePhrase()
	}

	return tokens
}

// BreakWords lower-cases text and splits it into words at Unicode word
// boundaries. The wildcard marker is kept as part of a word.
func BreakWords(text string) []string {
	// Casers are stateful, so one is created per call.
	lowered := cases.Lower(language.Und).String(text)
	runes := []rune(lowered)

	var b strings.Builder
	b.Grow(len(lowered) + 8)
	for i, r := range runes {
		if isWordRune(r) {
			if isIdeograph(r) {
				b.WriteRune(separator)
				b.WriteRune(r)
				b.WriteRune(separator)
				continue
			}
			b.WriteRune(r)
			continue
		}

		var prev, next rune
		if i > 0 {
			prev = runes[i-1]
		}
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		if joinsWord(prev, r, next) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(separator)
	}

	words := strings.FieldsFunc(b.String(), func(r rune) bool { return r == separator })
	if words == nil {
		return make([]string, 0)
	}
	return words
}

// ParseQuery tokenizes a query into bare words and phrases.
// A bare field that breaks into several words (e.g. "state-of-the-art")
// becomes a phrase. Tokens without any word are dropped.
func ParseQuery(query string) []Token {
	raw := SplitQuery(query)

	tokens := make([]Token, 0, len(raw))
	for _, rt := range raw {
		words := BreakWords(rt.Text)
		if len(words) == 0 {
			continue
		}
		tokens = append(tokens, Token{Words: words, Phrase: rt.Quoted || len(words) > 1})
	}
	return tokens
}

// Words flattens tokens into the ordered list of their words.
func Words(tokens []Token) []string {
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		words = append(words, t.Words...)
	}
	return words
}

// Serialize renders tokens back into query text. For tokens without
// embedded quote characters ParseQuery(Serialize(t)) reproduces t.
func Serialize(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Phrase {
			parts = append(parts, `"`+strings.Join(t.Words, " ")+`"`)
			continue
		}
		parts = append(parts, strings.Join(t.Words, " "))
	}
	return strings.Join(parts, " ")
}

// HasWildcard reports whether word contains the wildcard marker.
func HasWildcard(word string) bool {
	return strings.ContainsRune(word, WildcardMarker)
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
