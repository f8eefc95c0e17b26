package search

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	return []Entry{
		{BookIndex: 1, FileIndex: 0, Score: 5, Title: "Beta", URL: "b/0.htm"},
		{BookIndex: 0, FileIndex: 2, Score: 9, Title: "Alpha", URL: "a/2.htm"},
		{BookIndex: 0, FileIndex: 1, Score: 5, Title: "Alpha", URL: "a/1.htm"},
		{BookIndex: 0, FileIndex: 3, Score: 5, Title: "Gamma", URL: "a/3.htm"},
		{BookIndex: 1, FileIndex: 4, Score: 9, Title: "Alpha", URL: "b/4.htm"},
	}
}

func fill(entries []Entry) *Results {
	r := NewResults()
	for _, e := range entries {
		r.Add(e)
	}
	return r
}

func TestResults_SortByScore(t *testing.T) {
	r := fill(sampleEntries())
	r.Sort(SortByScore)

	got := r.Entries()
	want := []string{"a/2.htm", "b/4.htm", "a/1.htm", "a/3.htm", "b/0.htm"}
	for i, u := range want {
		assert.Equal(t, u, got[i].URL, "position %d", i)
	}
	assert.Equal(t, SortByScore, r.Order())
	assert.Equal(t, 9, r.MaxScore())
}

func TestResults_SortByBook(t *testing.T) {
	r := fill(sampleEntries())
	r.Sort(SortByBook)

	got := r.Entries()
	want := []string{"a/1.htm", "a/2.htm", "a/3.htm", "b/4.htm", "b/0.htm"}
	for i, u := range want {
		assert.Equal(t, u, got[i].URL, "position %d", i)
	}
}

func TestResults_URLBreaksFinalTie(t *testing.T) {
	r := fill([]Entry{
		{BookIndex: 0, FileIndex: 1, Score: 1, Title: "Same", URL: "z.htm"},
		{BookIndex: 0, FileIndex: 1, Score: 1, Title: "Same", URL: "a.htm"},
	})
	r.Sort(SortByScore)

	e, _ := r.Entry(0)
	assert.Equal(t, "a.htm", e.URL)
}

func TestResults_SortIsDeterministic(t *testing.T) {
	base := sampleEntries()
	rng := rand.New(rand.NewSource(3))

	for _, order := range []SortOrder{SortByScore, SortByBook} {
		reference := fill(base)
		reference.Sort(order)

		for i := 0; i < 20; i++ {
			shuffled := append([]Entry(nil), base...)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

			r := fill(shuffled)
			r.Sort(order)
			require.Equal(t, reference.Entries(), r.Entries())

			r.Sort(order)
			require.Equal(t, reference.Entries(), r.Entries(), "re-sorting must not change the order")
		}
	}
}

func TestResults_Retain(t *testing.T) {
	r := fill(sampleEntries())
	r.Retain(func(e Entry) bool { return e.Score < 9 })

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 5, r.MaxScore())
	urls := []string{}
	for _, e := range r.Entries() {
		urls = append(urls, e.URL)
	}
	assert.Equal(t, []string{"b/0.htm", "a/1.htm", "a/3.htm"}, urls, "order is preserved")
}

func TestResults_Page(t *testing.T) {
	r := fill(sampleEntries())
	r.Sort(SortByBook)

	page, total := r.Page(1, 2)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	page, _ = r.Page(3, 2)
	assert.Len(t, page, 1)
	assert.Equal(t, "b/0.htm", page[0].URL)

	page, _ = r.Page(4, 2)
	assert.Empty(t, page)

	page, _ = r.Page(0, 2)
	assert.Empty(t, page)
}

func TestResults_EntryOutOfRange(t *testing.T) {
	r := fill(sampleEntries())

	_, ok := r.Entry(5)
	assert.False(t, ok)
	_, ok = r.Entry(-1)
	assert.False(t, ok)
}

func TestRank(t *testing.T) {
	assert.Equal(t, 100, Rank(10, 10))
	assert.Equal(t, 50, Rank(5, 10))
	assert.Equal(t, 33, Rank(1, 3))
	assert.Equal(t, 1, Rank(1, 1000), "non-zero matches never show 0%")
	assert.Equal(t, 1, Rank(0, 10))
	assert.Equal(t, 100, Rank(0, 0))
}
