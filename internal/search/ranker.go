package search

import (
	"html"
	"strconv"
	"strings"

	"github.com/gcbaptista/go-help-search/config"
)

// Ranker renders results into bounded HTML segments.
type Ranker struct {
	maxSegmentSize int
	showRank       bool
}

// NewRanker creates a ranker from the panel settings.
func NewRanker(settings config.PanelSettings) *Ranker {
	settings.ApplyDefaults()
	return &Ranker{maxSegmentSize: settings.MaxSegmentSize, showRank: settings.ShowRank}
}

// Advance renders entries from the display cursor until the segment reaches
// the maximum size or the entries run out, and moves the cursor past them.
// At least one entry is rendered per call while any remain. It returns false
// once every entry has been rendered.
//
// In book order a book title precedes the first entry of each run of
// entries from the same book, including runs that continue across
// segments.
func (rk *Ranker) Advance(r *Results) (string, bool) {
	if r.displayIndex >= len(r.entries) {
		return "", false
	}

	var b strings.Builder
	for r.displayIndex < len(r.entries) {
		i := r.displayIndex
		e := r.entries[i]

		if r.order == SortByBook && (i == 0 || r.entries[i-1].BookIndex != e.BookIndex) {
			b.WriteString(`<div class="book">`)
			b.WriteString(html.EscapeString(e.BookTitle))
			b.WriteString("</div>\n")
		}
		rk.writeEntry(&b, i, e, r.maxScore)
		r.displayIndex++

		if b.Len() >= rk.maxSegmentSize {
			break
		}
	}
	return b.String(), true
}

func (rk *Ranker) writeEntry(b *strings.Builder, i int, e Entry, maxScore int) {
	b.WriteString(`<div class="result"><a href="`)
	b.WriteString(html.EscapeString(e.URL))
	b.WriteString(`" data-result="`)
	b.WriteString(strconv.Itoa(i))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(e.Title))
	b.WriteString("</a>")
	if rk.showRank {
		b.WriteString(` <span class="rank">`)
		b.WriteString(strconv.Itoa(Rank(e.Score, maxScore)))
		b.WriteString("%</span>")
	}
	b.WriteString("</div>\n")
}

// Render returns the full rendering of all entries without touching the
// cursor. Draining Advance produces the same text.
func (rk *Ranker) Render(r *Results) string {
	saved := r.displayIndex
	r.displayIndex = 0
	var b strings.Builder
	for {
		seg, ok := rk.Advance(r)
		if !ok {
			break
		}
		b.WriteString(seg)
	}
	r.displayIndex = saved
	return b.String()
}
