package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/index"
	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/internal/jobs"
	"github.com/gcbaptista/go-help-search/internal/metrics"
	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/store"
)

func newTestPanel(catalog Catalog, loader store.DataLoader, settings config.PanelSettings, opts ...Option) *Panel {
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return NewPanel(catalog, loader, settings, opts...)
}

func submitAndWait(t *testing.T, p *Panel, query string, scope int) Status {
	t.Helper()
	started, err := p.SubmitQuery(query, scope)
	require.NoError(t, err)
	require.True(t, started)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := p.Wait(ctx)
	require.NoError(t, err)
	return st
}

// guideCatalog is a single book "Guide" with intro.htm and setup.htm.
func guideCatalog(t *testing.T, settings config.BookSearchSettings) (*store.Catalog, *memLoader) {
	c := store.NewCatalog()
	addBook(t, c, "guide", "Guide", settings, "intro.htm", "Introduction", "setup.htm", "Setup")

	l := newMemLoader()
	l.addWord(0, 0, "setup", "1,10")
	l.addWord(0, 0, "guide", "0,2,1,3")
	l.addWord(0, 0, "the", "0,1,1,1")
	return c, l
}

func TestPanel_SingleWordSingleBook(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{})

	st := submitAndWait(t, p, "setup", 0)

	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, OutcomeOK, st.Outcome)
	assert.Equal(t, 1, st.EntryCount)
	assert.Equal(t, 10, st.MaxScore)
	assert.Equal(t, SortByBook, st.SortOrder, "a single-book catalog sorts by book")

	entries, total := p.Page(1, 10)
	require.Equal(t, 1, total)
	assert.Equal(t, Entry{BookIndex: 0, BookTitle: "Guide", FileIndex: 1, Score: 10, Title: "Setup", URL: "guide/setup.htm"}, entries[0])
	assert.Zero(t, l.pairLoads, "single words need no pair data")

	link, err := p.ShowResult(0)
	require.NoError(t, err)
	assert.Equal(t, "guide/setup.htm", link.URL)
	assert.Equal(t, "Setup", link.Title)
}

func TestPanel_PhraseConfirmedInOneBookOnly(t *testing.T) {
	c := store.NewCatalog()
	addBook(t, c, "a", "Book A", config.BookSearchSettings{},
		"0.htm", "Zero", "1.htm", "One", "2.htm", "Two", "3.htm", "Quick Start")
	addBook(t, c, "b", "Book B", config.BookSearchSettings{},
		"0.htm", "Start Quickly")

	l := newMemLoader()
	l.addWord(0, 0, "quick", "3,5")
	l.addWord(0, 0, "start", "3,4")
	l.addWord(1, 0, "quick", "0,2")
	l.addWord(1, 0, "start", "0,2")
	l.addPairs(0, 3, index.Pair{First: "quick", Second: "start"})
	l.addPairs(1, 0, index.Pair{First: "start", Second: "quickly"}, index.Pair{First: "start", Second: "quick"})

	p := newTestPanel(c, l, config.PanelSettings{})

	// Without quotes both books match on word AND alone.
	st := submitAndWait(t, p, "quick start", 0)
	assert.Equal(t, 2, st.EntryCount)
	assert.Equal(t, SortByScore, st.SortOrder)

	st = submitAndWait(t, p, `"quick start"`, 0)
	assert.Equal(t, OutcomeOK, st.Outcome)
	require.Equal(t, 1, st.EntryCount)

	entries, _ := p.Page(1, 10)
	assert.Equal(t, 0, entries[0].BookIndex)
	assert.Equal(t, 3, entries[0].FileIndex)
	assert.Equal(t, 9, entries[0].Score)
}

func TestPanel_SkipWordsIgnored(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{SkipWords: []string{"the"}})

	p1 := newTestPanel(c, l, config.PanelSettings{})
	submitAndWait(t, p1, "the setup", 0)

	p2 := newTestPanel(c, l, config.PanelSettings{})
	submitAndWait(t, p2, "setup", 0)

	e1, _ := p1.Page(1, 10)
	e2, _ := p2.Page(1, 10)
	assert.Equal(t, e2, e1)
	assert.Equal(t, p2.Status().MaxScore, p1.Status().MaxScore)
}

func TestPanel_AndSemanticsAcrossWords(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{})

	submitAndWait(t, p, "guide setup", 0)
	entries, total := p.Page(1, 10)
	require.Equal(t, 1, total)
	assert.Equal(t, 1, entries[0].FileIndex)
	assert.Equal(t, 13, entries[0].Score)
}

func TestPanel_WildcardAcrossShards(t *testing.T) {
	c := store.NewCatalog()
	addBook(t, c, "g", "G", config.BookSearchSettings{SearchFileCount: 2, MinimumWordLength: 4},
		"0.htm", "Zero", "1.htm", "One")

	l := newMemLoader()
	l.addWord(0, 0, "install", "0,1")
	l.addWord(0, 1, "installer", "0,2,1,4")

	p := newTestPanel(c, l, config.PanelSettings{})
	st := submitAndWait(t, p, "in*", 0)

	assert.Equal(t, 2, st.EntryCount)
	assert.Equal(t, 2, l.wordLoads, "every shard is loaded")
	entries, _ := p.Page(1, 10)
	scores := map[int]int{}
	for _, e := range entries {
		scores[e.FileIndex] = e.Score
	}
	assert.Equal(t, map[int]int{0: 3, 1: 4}, scores)
}

func TestPanel_NoValidWords(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{MinimumWordLength: 5, SkipWords: []string{"setup"}})
	p := newTestPanel(c, l, config.PanelSettings{})

	for _, q := range []string{"a bc", "setup", "!!!", ""} {
		st := submitAndWait(t, p, q, 0)
		assert.Equal(t, OutcomeNoValidWords, st.Outcome, "query %q", q)
		assert.Equal(t, StateIdle, st.State)
		assert.Zero(t, st.EntryCount)
		assert.Empty(t, st.Error)
	}
	assert.Zero(t, l.wordLoads, "nothing is loaded without valid words")

	seg, ok := p.AdvanceResultSegment()
	assert.False(t, ok)
	assert.Empty(t, seg)
}

func TestPanel_ResubmitIsNoop(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{})

	st := submitAndWait(t, p, "setup", 0)
	loads := l.wordLoads

	started, err := p.SubmitQuery("setup", 0)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, st.Generation, p.Status().Generation)
	assert.Equal(t, loads, l.wordLoads)

	// A different scope restarts.
	started, err = p.SubmitQuery("setup", 1)
	require.NoError(t, err)
	assert.True(t, started)
}

func TestPanel_ResubmitAfterBookAdded(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{})

	st := submitAndWait(t, p, "setup", 0)
	require.Equal(t, 1, st.EntryCount)

	addBook(t, c, "admin", "Admin", config.BookSearchSettings{}, "install.htm", "Server Setup")
	l.addWord(1, 0, "setup", "0,4")

	// Scope 0 now covers two books, so the same text runs again.
	st = submitAndWait(t, p, "setup", 0)
	assert.Equal(t, 2, st.EntryCount)
	assert.Equal(t, uint64(2), st.Generation)

	started, err := p.SubmitQuery("setup", 0)
	require.NoError(t, err)
	assert.False(t, started)
}

// jobExecutor runs query work as jobs of a jobs.Manager.
type jobExecutor struct {
	jobs *jobs.Manager
	ids  chan string
}

func (x jobExecutor) Execute(ctx context.Context, run func(ctx context.Context) error) error {
	id, err := x.jobs.Submit(ctx, model.JobTypeQuery, "session-1", nil, func(ctx context.Context, _ *model.Job) error {
		return run(ctx)
	})
	if err == nil {
		x.ids <- id
	}
	return err
}

func TestPanel_CancelledJobAllowsResubmit(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	l.hold = make(chan struct{})

	manager := jobs.NewManager(2, zerolog.Nop())
	manager.Start()
	t.Cleanup(manager.Stop)

	exec := jobExecutor{jobs: manager, ids: make(chan string, 4)}
	p := newTestPanel(c, l, config.PanelSettings{LoadTimeout: time.Minute}, WithExecutor(exec))

	started, err := p.SubmitQuery("setup", 0)
	require.NoError(t, err)
	require.True(t, started)
	require.NoError(t, manager.CancelJob(<-exec.ids))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, OutcomeCancelled, st.Outcome)
	assert.Zero(t, st.EntryCount)
	assert.True(t, errors.Is(p.Err(), searchErrors.ErrQueryCancelled))

	close(l.hold)
	l.mu.Lock()
	l.hold = nil
	l.mu.Unlock()

	// The cancelled search never finished, so the same query runs again.
	started, err = p.SubmitQuery("setup", 0)
	require.NoError(t, err)
	require.True(t, started)
	<-exec.ids
	st, err = p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, OutcomeOK, st.Outcome)
	assert.Equal(t, 1, st.EntryCount)
}

func TestPanel_CloseCancelsCurrentRun(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	l.hold = make(chan struct{})
	defer close(l.hold)

	m := metrics.New(prometheus.NewRegistry())
	p := newTestPanel(c, l, config.PanelSettings{LoadTimeout: time.Minute}, WithMetrics(m))
	_, err := p.SubmitQuery("setup", 0)
	require.NoError(t, err)

	p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, OutcomeCancelled, st.Outcome)
	assert.Zero(t, testutil.ToFloat64(m.StaleDiscardsTotal), "a cancelled current run is not stale")
}

func TestPanel_InvalidScope(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{})

	_, err := p.SubmitQuery("setup", 7)
	assert.True(t, errors.Is(err, searchErrors.ErrInvalidInput))
	assert.Zero(t, p.Status().Generation)
}

func TestPanel_ScopeRestrictsBooks(t *testing.T) {
	c := store.NewCatalog()
	addBook(t, c, "a", "A", config.BookSearchSettings{}, "0.htm", "A0")
	addBook(t, c, "b", "B", config.BookSearchSettings{}, "0.htm", "B0")

	l := newMemLoader()
	l.addWord(0, 0, "setup", "0,1")
	l.addWord(1, 0, "setup", "0,7")

	p := newTestPanel(c, l, config.PanelSettings{})
	st := submitAndWait(t, p, "setup", 2) // entry 2 is book B

	assert.Equal(t, 1, st.EntryCount)
	assert.Equal(t, SortByBook, st.SortOrder, "a scope spanning one book sorts by book")
	link, err := p.ShowResult(0)
	require.NoError(t, err)
	assert.Equal(t, "B", link.BookTitle)
}

func TestPanel_ResultsByBookSetting(t *testing.T) {
	c := store.NewCatalog()
	addBook(t, c, "a", "A", config.BookSearchSettings{}, "0.htm", "A0")
	addBook(t, c, "b", "B", config.BookSearchSettings{}, "0.htm", "B0")

	l := newMemLoader()
	l.addWord(0, 0, "setup", "0,1")
	l.addWord(1, 0, "setup", "0,7")

	p := newTestPanel(c, l, config.PanelSettings{ResultsByBook: true})
	st := submitAndWait(t, p, "setup", 0)
	assert.Equal(t, SortByBook, st.SortOrder)

	seg, ok := p.AdvanceResultSegment()
	require.True(t, ok)
	assert.Contains(t, seg, `<div class="book">A</div>`)
	assert.Contains(t, seg, `<div class="book">B</div>`)
	assert.Less(t, strings.Index(seg, ">A0<"), strings.Index(seg, ">B0<"))
}

func TestPanel_UnknownFileIDsSkipped(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	l.addWord(0, 0, "ghost", "1,1,42,9")

	p := newTestPanel(c, l, config.PanelSettings{})
	st := submitAndWait(t, p, "ghost", 0)
	assert.Equal(t, 1, st.EntryCount)
}

func TestPanel_LoadFailureThenRetry(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	l.err = errBroken

	p := newTestPanel(c, l, config.PanelSettings{})
	st := submitAndWait(t, p, "setup", 0)

	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, OutcomeLoadFailed, st.Outcome)
	assert.Contains(t, st.Error, "broken data file")
	assert.True(t, errors.Is(p.Err(), errBroken))
	assert.False(t, errors.Is(p.Err(), searchErrors.ErrLoadTimeout))

	l.mu.Lock()
	l.err = nil
	l.mu.Unlock()

	// The same query may be resubmitted after a failure.
	st = submitAndWait(t, p, "setup", 0)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, 1, st.EntryCount)
	assert.NoError(t, p.Err())
}

func TestPanel_Timeout(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	l.hold = make(chan struct{})
	defer close(l.hold)

	p := newTestPanel(c, l, config.PanelSettings{LoadTimeout: 30 * time.Millisecond})
	st := submitAndWait(t, p, "setup", 0)

	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, OutcomeLoadFailed, st.Outcome)
	assert.True(t, errors.Is(p.Err(), searchErrors.ErrLoadTimeout))
	assert.Zero(t, st.EntryCount)
}

func TestPanel_NewerQuerySupersedesOlder(t *testing.T) {
	c := store.NewCatalog()
	addBook(t, c, "a", "A", config.BookSearchSettings{}, "0.htm", "Alpha topic", "1.htm", "Beta topic")

	l := newMemLoader()
	l.addWord(0, 0, "alpha", "0,5")
	l.addWord(0, 0, "beta", "1,5")
	l.hold = make(chan struct{})
	l.ignoreCtx = true // the stale load still delivers data

	m := metrics.New(prometheus.NewRegistry())
	var mu sync.Mutex
	var events []QueryEvent
	p := newTestPanel(c, l, config.PanelSettings{}, WithMetrics(m), WithObserver(func(e QueryEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))

	started, err := p.SubmitQuery("alpha", 0)
	require.NoError(t, err)
	require.True(t, started)
	started, err = p.SubmitQuery("beta", 0)
	require.NoError(t, err)
	require.True(t, started)
	assert.Equal(t, StateWords, p.Status().State)

	close(l.hold)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := p.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), st.Generation)
	assert.Equal(t, "beta", st.Query)
	require.Equal(t, 1, st.EntryCount)
	link, err := p.ShowResult(0)
	require.NoError(t, err)
	assert.Equal(t, "Beta topic", link.Title)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.StaleDiscardsTotal) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The superseded run never reaches the observer or the results.
	assert.Equal(t, 1, p.Status().EntryCount)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "beta", events[0].Query)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("ok")))
}

func TestPanel_PhraseFilteringOnlyRemoves(t *testing.T) {
	c := store.NewCatalog()
	addBook(t, c, "a", "A", config.BookSearchSettings{},
		"0.htm", "F0", "1.htm", "F1", "2.htm", "F2", "3.htm", "F3")

	l := newMemLoader()
	l.addWord(0, 0, "user", "0,1,1,1,2,1,3,1")
	l.addWord(0, 0, "guide", "0,1,1,1,3,1")
	l.addPairs(0, 0, index.Pair{First: "user", Second: "guide"})
	l.addPairs(0, 3, index.Pair{First: "user", Second: "guide"})
	l.addPairs(0, 2, index.Pair{First: "user", Second: "guide"}) // no "guide" word in file 2

	p := newTestPanel(c, l, config.PanelSettings{})

	submitAndWait(t, p, "user guide", 0)
	words, _ := p.Page(1, 100)

	submitAndWait(t, p, `"user guide"`, 0)
	phrase, _ := p.Page(1, 100)

	inWords := map[int]bool{}
	for _, e := range words {
		inWords[e.FileIndex] = true
	}
	for _, e := range phrase {
		assert.True(t, inWords[e.FileIndex], "file %d added by phrase filtering", e.FileIndex)
	}
	assert.Len(t, words, 3)
	assert.Len(t, phrase, 2)
}

func TestPanel_SegmentsAndRewind(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{MaxSegmentSize: 1, ShowRank: true})
	submitAndWait(t, p, "guide", 0)

	var segments []string
	for {
		seg, ok := p.AdvanceResultSegment()
		if !ok {
			break
		}
		segments = append(segments, seg)
	}
	require.Len(t, segments, 2)
	assert.Contains(t, segments[0], `<div class="book">Guide</div>`)
	assert.Contains(t, segments[0], "Introduction")
	assert.Contains(t, segments[1], "Setup")
	assert.Contains(t, segments[1], "100%")
	assert.Equal(t, 2, p.Status().DisplayIndex)

	p.Rewind()
	seg, ok := p.AdvanceResultSegment()
	require.True(t, ok)
	assert.Equal(t, segments[0], seg)
}

func TestPanel_ShowResultOutOfRange(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{})
	submitAndWait(t, p, "setup", 0)

	_, err := p.ShowResult(3)
	assert.True(t, errors.Is(err, searchErrors.ErrResultNotFound))
	assert.Contains(t, err.Error(), "1 results available")
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, func(context.Context) error) error {
	return errors.New("executor closed")
}

func TestPanel_ExecutorRejects(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	p := newTestPanel(c, l, config.PanelSettings{}, WithExecutor(failingExecutor{}))

	started, err := p.SubmitQuery("setup", 0)
	assert.Error(t, err)
	assert.False(t, started)
	assert.Equal(t, StateFailed, p.Status().State)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = p.Wait(ctx)
	assert.NoError(t, err, "a rejected run still resolves its readiness signal")
}

func TestPanel_WaitHonoursContext(t *testing.T) {
	c, l := guideCatalog(t, config.BookSearchSettings{})
	l.hold = make(chan struct{})
	defer close(l.hold)

	p := newTestPanel(c, l, config.PanelSettings{LoadTimeout: time.Minute})
	_, err := p.SubmitQuery("setup", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	st, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateWords, st.State)

	p.Close()
}
