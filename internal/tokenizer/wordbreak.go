package tokenizer

import "unicode"

// separator replaces every code point that ends a word.
const separator = ' '

// extend covers Grapheme_Extend plus spacing marks, which never start a
// new word.
var extend = []*unicode.RangeTable{
	unicode.Mn,
	unicode.Me,
	unicode.Mc,
	unicode.Other_Grapheme_Extend,
}

// midLetter may appear inside a word between two letters.
var midLetter = map[rune]bool{
	':':      true,
	'\u00B7': true, // middle dot
	'\u0387': true, // greek ano teleia
	'\u05F4': true, // hebrew gershayim
	'\u2027': true, // hyphenation point
	'\uFE13': true,
	'\uFE55': true,
	'\uFF1A': true,
}

// midNumLet may appear between two letters or between two digits.
var midNumLet = map[rune]bool{
	'.':      true,
	'\'':     true,
	'\u2018': true,
	'\u2019': true,
	'\u2024': true,
	'\uFE52': true,
	'\uFF07': true,
	'\uFF0E': true,
}

// midNum may appear between two digits.
var midNum = map[rune]bool{
	',':      true,
	';':      true,
	'\u037E': true,
	'\u0589': true,
	'\u060C': true,
	'\u060D': true,
	'\u066C': true,
	'\u07F8': true,
	'\u2044': true,
	'\uFE10': true,
	'\uFE14': true,
	'\uFE50': true,
	'\uFE54': true,
	'\uFF0C': true,
	'\uFF1B': true,
}

// isAlphabetic mirrors the Unicode Alphabetic property.
func isAlphabetic(r rune) bool {
	return unicode.IsLetter(r) || unicode.In(r, unicode.Nl, unicode.Other_Alphabetic)
}

// isWordRune reports whether r belongs to a word on its own.
func isWordRune(r rune) bool {
	if r == WildcardMarker {
		return true
	}
	return isAlphabetic(r) ||
		unicode.In(r, extend...) ||
		unicode.Is(unicode.Nd, r) ||
		unicode.Is(unicode.Pc, r)
}

// isIdeograph reports whether r forms a word by itself.
func isIdeograph(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana)
}

func isLetter(r rune) bool {
	return r != 0 && isAlphabetic(r) && !isIdeograph(r)
}

func isDigit(r rune) bool {
	return r != 0 && unicode.Is(unicode.Nd, r)
}

// joinsWord reports whether the non-word rune r sits inside a word given its
// neighbours, e.g. the apostrophe in "don't" or the comma in "1,000".
func joinsWord(prev, r, next rune) bool {
	switch {
	case midLetter[r]:
		return isLetter(prev) && isLetter(next)
	case midNumLet[r]:
		return (isLetter(prev) && isLetter(next)) || (isDigit(prev) && isDigit(next))
	case midNum[r]:
		return isDigit(prev) && isDigit(next)
	}
	return false
}
