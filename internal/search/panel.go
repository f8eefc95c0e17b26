package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/index"
	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/internal/metrics"
	"github.com/gcbaptista/go-help-search/internal/tokenizer"
	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/store"
)

const tracerName = "github.com/gcbaptista/go-help-search/internal/search"

// State is the match engine state of a panel.
type State int

const (
	StateIdle State = iota
	StateWords
	StatePairs
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateWords:
		return "words"
	case StatePairs:
		return "pairs"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText renders the state for JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome classifies how a query run ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoValidWords
	OutcomeStaleQuery
	OutcomeLoadFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoValidWords:
		return "no_valid_words"
	case OutcomeStaleQuery:
		return "stale_query"
	case OutcomeLoadFailed:
		return "load_failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "ok"
	}
}

// MarshalText renders the outcome for JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Catalog is the read-only book metadata a panel searches.
type Catalog interface {
	Books() []model.Book
	Groups() []model.BookGroup
	SearchSettings(index int) (config.BookSearchSettings, error)
}

// Executor runs query work in the background. Unless Execute returns an
// error, run is called exactly once.
type Executor interface {
	Execute(ctx context.Context, run func(ctx context.Context) error) error
}

type goExecutor struct{}

func (goExecutor) Execute(ctx context.Context, run func(ctx context.Context) error) error {
	go func() { _ = run(ctx) }()
	return nil
}

// QueryEvent describes a finished, non-stale query run.
type QueryEvent struct {
	Query       string
	ScopeIndex  int
	Generation  uint64
	Outcome     Outcome
	ResultCount int
	Duration    time.Duration
	Phrase      bool
	Wildcard    bool
	Err         error
}

// Observer is notified after each committed query run.
type Observer func(QueryEvent)

// Status is a snapshot of a panel.
type Status struct {
	State        State     `json:"state"`
	Generation   uint64    `json:"generation"`
	Query        string    `json:"query"`
	ScopeIndex   int       `json:"scope_index"`
	SortOrder    SortOrder `json:"sort_order"`
	MaxScore     int       `json:"max_score"`
	EntryCount   int       `json:"entry_count"`
	DisplayIndex int       `json:"display_index"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error,omitempty"`
}

// Option configures a Panel.
type Option func(*Panel)

// WithLogger sets the panel logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Panel) { p.logger = logger }
}

// WithExecutor sets how query runs are scheduled.
func WithExecutor(exec Executor) Option {
	return func(p *Panel) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// WithTracer sets the tracer used for phase spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Panel) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Panel) { p.metrics = m }
}

// WithObserver registers a callback for finished query runs.
func WithObserver(obs Observer) Option {
	return func(p *Panel) { p.observer = obs }
}

// Panel is one search panel: it runs queries over the catalog and feeds
// the results to a renderer.
//
// Each submission starts a new generation and supersedes the previous
// run, whose context is cancelled. Only the current generation may commit
// results, so data loaded for a superseded query is never combined into a
// newer one.
type Panel struct {
	catalog  Catalog
	loader   store.DataLoader
	settings config.PanelSettings
	ranker   *Ranker

	exec     Executor
	logger   zerolog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	observer Observer

	mu         sync.Mutex
	state      State
	generation uint64
	hasQuery   bool
	query      string
	scopeIndex int
	selected   []int // Books the current query's scope resolved to
	outcome    Outcome
	lastErr    error
	results    *Results
	cancel     context.CancelFunc
	done       chan struct{}
}

// queryRun is the immutable input of one generation.
type queryRun struct {
	generation uint64
	query      string
	scopeIndex int
	books      []model.Book
	selected   []int
	sortByBook bool
	done       chan struct{}
	cancel     context.CancelFunc
}

// NewPanel creates an idle panel.
func NewPanel(catalog Catalog, loader store.DataLoader, settings config.PanelSettings, opts ...Option) *Panel {
	settings.ApplyDefaults()

	done := make(chan struct{})
	close(done)

	p := &Panel{
		catalog:  catalog,
		loader:   loader,
		settings: settings,
		ranker:   NewRanker(settings),
		exec:     goExecutor{},
		logger:   log.Logger,
		tracer:   otel.Tracer(tracerName),
		results:  NewResults(),
		done:     done,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SubmitQuery starts a search for text within the scope entry scopeIndex.
// It returns false without doing anything when the same text was already
// submitted over the same books and that run did not fail or get
// cancelled. A negative scope index selects all books.
func (p *Panel) SubmitQuery(text string, scopeIndex int) (bool, error) {
	if scopeIndex < 0 {
		scopeIndex = 0
	}

	books := p.catalog.Books()
	selected, err := BuildScope(books, p.catalog.Groups()).Resolve(scopeIndex)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	if p.hasQuery && p.query == text && p.scopeIndex == scopeIndex &&
		slices.Equal(p.selected, selected) && p.state != StateFailed {
		p.mu.Unlock()
		return false, nil
	}
	if p.cancel != nil {
		p.cancel()
	}

	p.generation++
	ctx, cancel := context.WithTimeout(context.Background(), p.settings.LoadTimeout)
	run := &queryRun{
		generation: p.generation,
		query:      text,
		scopeIndex: scopeIndex,
		books:      books,
		selected:   selected,
		sortByBook: p.settings.ResultsByBook || len(books) == 1 || len(selected) == 1,
		done:       make(chan struct{}),
		cancel:     cancel,
	}

	p.hasQuery = true
	p.query = text
	p.scopeIndex = scopeIndex
	p.selected = selected
	p.state = StateWords
	p.outcome = OutcomeOK
	p.lastErr = nil
	p.results = NewResults()
	p.cancel = cancel
	p.done = run.done
	p.mu.Unlock()

	p.logger.Debug().Uint64("generation", run.generation).Str("query", text).Int("scope", scopeIndex).
		Int("books", len(selected)).Msg("query submitted")

	if err := p.exec.Execute(ctx, func(ctx context.Context) error { return p.execute(ctx, run) }); err != nil {
		cancel()
		outcome := OutcomeLoadFailed
		if errors.Is(err, context.Canceled) {
			outcome = OutcomeCancelled
			err = fmt.Errorf("%w: %v", searchErrors.ErrQueryCancelled, err)
		}
		p.commit(run, nil, outcome, err, 0, tokenizer.ParseQuery(text))
		return false, err
	}
	return true, nil
}

func (p *Panel) execute(ctx context.Context, run *queryRun) error {
	defer run.cancel()

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "search.query", trace.WithAttributes(
		attribute.Int64("search.generation", int64(run.generation)),
		attribute.Int("search.scope", run.scopeIndex),
		attribute.Int("search.books", len(run.selected)),
	))
	defer span.End()

	tokens := tokenizer.ParseQuery(run.query)
	results, outcome, err := p.match(ctx, run, tokens)
	if err != nil && outcome != OutcomeStaleQuery {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("search.outcome", outcome.String()))

	p.commit(run, results, outcome, err, time.Since(start), tokens)
	return err
}

// match runs the words and pairs phases for one generation.
func (p *Panel) match(ctx context.Context, run *queryRun, tokens []tokenizer.Token) (*Results, Outcome, error) {
	words := tokenizer.Words(tokens)
	results := NewResults()
	phrases := make(map[int]*MultiPhrase)

	// words
	phaseStart := time.Now()
	wordsCtx, wordsSpan := p.tracer.Start(ctx, "search.words")
	anyValid := false
	for _, bi := range run.selected {
		book := run.books[bi]
		settings, err := p.catalog.SearchSettings(bi)
		if err != nil {
			wordsSpan.End()
			return nil, OutcomeLoadFailed, searchErrors.NewLoadError(bi, "search settings", err, false)
		}
		rules := NewBookRules(settings)

		valid := rules.ValidWords(words)
		if len(valid) == 0 {
			continue
		}
		anyValid = true

		tables := make([]index.FileScores, len(valid))
		for i := range tables {
			tables[i] = index.FileScores{}
		}
		skipped := 0
		for shard := 0; shard < settings.SearchFileCount; shard++ {
			if outcome, err := p.interrupted(wordsCtx, run, bi, "word data"); err != nil {
				wordsSpan.End()
				return nil, outcome, err
			}
			ws, err := p.loader.LoadWordShard(wordsCtx, book, shard)
			p.metrics.RecordLoad("words", err)
			if err != nil {
				wordsSpan.End()
				outcome, err := p.loadFailure(wordsCtx, run, bi, fmt.Sprintf("word shard %d", shard), err)
				return nil, outcome, err
			}
			for i, w := range valid {
				skipped += w.CollectScores(ws, tables[i])
			}
		}
		if skipped > 0 {
			p.logger.Debug().Int("book", bi).Int("skipped", skipped).Msg("skipped malformed score pairs")
		}

		p.combineResults(results, book, index.JoinFileScores(tables...))

		mp := NewMultiPhrase(rules)
		mp.ParseTokens(tokens)
		if mp.PhraseCount() > 0 {
			phrases[bi] = mp
		}
	}
	wordsSpan.SetAttributes(attribute.Int("search.candidates", results.Len()))
	wordsSpan.End()
	p.metrics.RecordPhase("words", time.Since(phaseStart))

	if !anyValid {
		return results, OutcomeNoValidWords, nil
	}

	// pairs
	if len(phrases) > 0 && results.Len() > 0 {
		if !p.setState(run.generation, StatePairs) {
			return nil, OutcomeStaleQuery, searchErrors.ErrStaleQuery
		}
		phaseStart = time.Now()
		pairsCtx, pairsSpan := p.tracer.Start(ctx, "search.pairs")

		type fileKey struct{ book, file int }
		failed := make(map[fileKey]bool)
		for _, e := range results.entries {
			mp, ok := phrases[e.BookIndex]
			if !ok {
				continue
			}
			if outcome, err := p.interrupted(pairsCtx, run, e.BookIndex, "pair data"); err != nil {
				pairsSpan.End()
				return nil, outcome, err
			}
			pd, err := p.loader.LoadPairs(pairsCtx, run.books[e.BookIndex], e.FileIndex)
			p.metrics.RecordLoad("pairs", err)
			if err != nil {
				pairsSpan.End()
				outcome, err := p.loadFailure(pairsCtx, run, e.BookIndex, fmt.Sprintf("pair data of file %d", e.FileIndex), err)
				return nil, outcome, err
			}
			mp.ResetMatches()
			mp.SearchPairs(pd)
			if !mp.CheckForMatch() {
				failed[fileKey{e.BookIndex, e.FileIndex}] = true
			}
		}
		results.Retain(func(e Entry) bool { return !failed[fileKey{e.BookIndex, e.FileIndex}] })

		pairsSpan.SetAttributes(attribute.Int("search.rejected", len(failed)))
		pairsSpan.End()
		p.metrics.RecordPhase("pairs", time.Since(phaseStart))
	}

	order := SortByScore
	if run.sortByBook {
		order = SortByBook
	}
	results.Sort(order)
	return results, OutcomeOK, nil
}

// combineResults adds a book's joined file scores to the result set.
func (p *Panel) combineResults(results *Results, book model.Book, joined index.FileScores) {
	for _, fileID := range joined.FileIDs() {
		f, ok := book.File(fileID)
		if !ok {
			p.logger.Warn().Int("book", book.Index).Int("file", fileID).Msg("search data refers to unknown file")
			continue
		}
		results.Add(Entry{
			BookIndex: book.Index,
			BookTitle: book.Title,
			FileIndex: fileID,
			Score:     joined[fileID],
			Title:     f.Title,
			URL:       book.DocumentURL(f),
		})
	}
}

// interrupted reports whether the run must stop before its next load.
func (p *Panel) interrupted(ctx context.Context, run *queryRun, bookIndex int, what string) (Outcome, error) {
	if !p.isCurrent(run.generation) {
		return OutcomeStaleQuery, searchErrors.ErrStaleQuery
	}
	if err := ctx.Err(); err != nil {
		return p.loadFailure(ctx, run, bookIndex, what, err)
	}
	return OutcomeOK, nil
}

// loadFailure classifies a failed load. Only a superseded run is stale; a
// current run whose context was cancelled ends as cancelled.
func (p *Panel) loadFailure(ctx context.Context, run *queryRun, bookIndex int, what string, err error) (Outcome, error) {
	if !p.isCurrent(run.generation) {
		return OutcomeStaleQuery, searchErrors.ErrStaleQuery
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return OutcomeCancelled, fmt.Errorf("%w while loading %s for book %d", searchErrors.ErrQueryCancelled, what, bookIndex)
	}
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return OutcomeLoadFailed, searchErrors.NewLoadError(bookIndex, what, err, timeout)
}

func (p *Panel) isCurrent(generation uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation == generation
}

func (p *Panel) setState(generation uint64, state State) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != generation {
		return false
	}
	p.state = state
	return true
}

// commit publishes a finished run if it is still current, otherwise
// discards it.
func (p *Panel) commit(run *queryRun, results *Results, outcome Outcome, err error, elapsed time.Duration, tokens []tokenizer.Token) {
	defer close(run.done)

	p.mu.Lock()
	current := p.generation == run.generation
	if current {
		p.outcome = outcome
		p.cancel = nil
		if err != nil && outcome != OutcomeStaleQuery {
			p.state = StateFailed
			p.lastErr = err
			p.results = NewResults()
		} else {
			p.state = StateIdle
			if results != nil {
				p.results = results
			}
		}
	}
	count := p.results.Len()
	p.mu.Unlock()

	if !current || outcome == OutcomeStaleQuery {
		p.metrics.RecordStale()
		p.logger.Debug().Uint64("generation", run.generation).Msg("discarded stale query run")
		return
	}

	p.metrics.RecordQuery(outcome.String(), elapsed, count)
	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.WarnLevel
	}
	p.logger.WithLevel(level).Err(err).Uint64("generation", run.generation).Str("query", run.query).Int("scope", run.scopeIndex).
		Str("outcome", outcome.String()).Int("results", count).Dur("elapsed", elapsed).Msg("query finished")

	if p.observer != nil {
		p.observer(QueryEvent{
			Query:       run.query,
			ScopeIndex:  run.scopeIndex,
			Generation:  run.generation,
			Outcome:     outcome,
			ResultCount: count,
			Duration:    elapsed,
			Phrase:      hasPhrase(tokens),
			Wildcard:    tokenizer.HasWildcard(run.query),
			Err:         err,
		})
	}
}

func hasPhrase(tokens []tokenizer.Token) bool {
	for _, t := range tokens {
		if t.Phrase && len(t.Words) > 1 {
			return true
		}
	}
	return false
}

// Wait blocks until the current generation has finished or ctx is done and
// returns the panel status.
func (p *Panel) Wait(ctx context.Context) (Status, error) {
	for {
		p.mu.Lock()
		done := p.done
		p.mu.Unlock()

		select {
		case <-done:
			p.mu.Lock()
			if p.done == done {
				st := p.statusLocked()
				p.mu.Unlock()
				return st, nil
			}
			p.mu.Unlock()
		case <-ctx.Done():
			return p.Status(), ctx.Err()
		}
	}
}

// Status returns a snapshot of the panel.
func (p *Panel) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Panel) statusLocked() Status {
	st := Status{
		State:        p.state,
		Generation:   p.generation,
		Query:        p.query,
		ScopeIndex:   p.scopeIndex,
		SortOrder:    p.results.Order(),
		MaxScore:     p.results.MaxScore(),
		EntryCount:   p.results.Len(),
		DisplayIndex: p.results.DisplayIndex(),
		Outcome:      p.outcome,
	}
	if p.lastErr != nil {
		st.Error = p.lastErr.Error()
	}
	return st
}

// Err returns the error of the last failed run.
func (p *Panel) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// AdvanceResultSegment renders the next bounded chunk of results. It
// returns false once every result has been rendered or while a query is
// still running.
func (p *Panel) AdvanceResultSegment() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return "", false
	}
	seg, ok := p.ranker.Advance(p.results)
	if ok {
		p.metrics.RecordSegment()
	}
	return seg, ok
}

// RenderResults renders every result at once, leaving the segment cursor
// where it is. It returns false while a query is still running.
func (p *Panel) RenderResults() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return "", false
	}
	return p.ranker.Render(p.results), true
}

// Rewind restarts segment rendering from the first result.
func (p *Panel) Rewind() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results.Rewind()
}

// ShowResult resolves a result to its book-relative document URL.
func (p *Panel) ShowResult(i int) (model.ResultLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.results.Entry(i)
	if !ok {
		return model.ResultLink{}, searchErrors.NewResultNotFoundError(i, p.results.Len())
	}
	return model.ResultLink{
		ResultIndex: i,
		BookIndex:   e.BookIndex,
		BookTitle:   e.BookTitle,
		FileIndex:   e.FileIndex,
		Title:       e.Title,
		URL:         e.URL,
	}, nil
}

// Page returns one page of results (1-based) and the total count.
func (p *Panel) Page(page, pageSize int) ([]Entry, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results.Page(page, pageSize)
}

// Close cancels any in-flight run.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
