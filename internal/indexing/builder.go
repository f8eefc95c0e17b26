// Package indexing generates the search data of a book: word shards with
// per-file scores and per-file word-pair data.
package indexing

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/index"
	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/internal/search"
	"github.com/gcbaptista/go-help-search/internal/tokenizer"
	"github.com/gcbaptista/go-help-search/model"
)

// Config contains configuration for building a book's search data
type Config struct {
	WorkerCount      int // Number of parallel workers tokenizing files
	TitleWeight      int // Score added for each occurrence of a word in a file title
	ProgressCallback func(processed, total int, message string)
}

// DefaultConfig returns sensible defaults for building search data
func DefaultConfig() Config {
	return Config{
		WorkerCount: runtime.NumCPU(),
		TitleWeight: 10,
	}
}

// BookData is the generated search data of one book.
type BookData struct {
	Book     model.Book
	Settings config.BookSearchSettings
	Shards   []index.WordShard // By shard number
	Pairs    []*index.PairData // By file index
	Words    int               // Distinct indexed words
}

// Builder turns book sources into search data.
type Builder struct {
	config Config
	logger zerolog.Logger
}

// NewBuilder creates a builder. Zero config values fall back to defaults.
func NewBuilder(cfg Config, logger zerolog.Logger) *Builder {
	def := DefaultConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.TitleWeight <= 0 {
		cfg.TitleWeight = def.TitleWeight
	}
	return &Builder{config: cfg, logger: logger.With().Str("component", "indexing").Logger()}
}

// fileResult is the tokenized content of one file
type fileResult struct {
	fileIndex int
	scores    map[string]int
	pairs     *index.PairData
}

// Build validates the source and generates its search data. Files keep
// their source order, which defines their file ids.
func (b *Builder) Build(ctx context.Context, src model.BookSource, settings config.BookSearchSettings) (*BookData, error) {
	if err := validateSource(src); err != nil {
		return nil, err
	}
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, searchErrors.NewValidationError("settings", problems[0])
	}
	settings.ApplyDefaults()

	start := time.Now()
	rules := search.NewBookRules(settings)
	total := len(src.Files)

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fileChan := make(chan int, b.config.WorkerCount*2)
	resultChan := make(chan fileResult, b.config.WorkerCount*2)

	var wg sync.WaitGroup
	for i := 0; i < b.config.WorkerCount; i++ {
		wg.Add(1)
		go b.worker(workCtx, src.Files, rules, fileChan, resultChan, &wg)
	}

	go func() {
		defer close(fileChan)
		for i := range src.Files {
			select {
			case fileChan <- i:
			case <-workCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results
	wordScores := make(map[string]index.FileScores)
	pairs := make([]*index.PairData, total)
	processed := 0
	for res := range resultChan {
		for word, score := range res.scores {
			fs, ok := wordScores[word]
			if !ok {
				fs = index.FileScores{}
				wordScores[word] = fs
			}
			fs[res.fileIndex] += score
		}
		pairs[res.fileIndex] = res.pairs
		processed++

		if b.config.ProgressCallback != nil {
			b.config.ProgressCallback(processed, total, fmt.Sprintf("Processed %d/%d files", processed, total))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shards := make([]index.WordShard, settings.SearchFileCount)
	for i := range shards {
		shards[i] = index.WordShard{}
	}
	for word, fs := range wordScores {
		shards[index.ShardFor(word, settings.SearchFileCount)].Add(word, index.EncodeMatches(fs))
	}

	book := model.Book{
		Directory: strings.Trim(src.Directory, "/"),
		Title:     src.Title,
		Files:     make([]model.File, total),
	}
	for i, f := range src.Files {
		book.Files[i] = model.File{Index: i, Title: f.Title, URL: f.URL}
	}

	b.logger.Info().
		Str("book", book.Title).
		Int("files", total).
		Int("words", len(wordScores)).
		Dur("elapsed", time.Since(start)).
		Msg("built book search data")

	return &BookData{
		Book:     book,
		Settings: settings,
		Shards:   shards,
		Pairs:    pairs,
		Words:    len(wordScores),
	}, nil
}

// worker tokenizes files in parallel
func (b *Builder) worker(ctx context.Context, files []model.FileSource, rules search.BookRules, fileChan <-chan int, resultChan chan<- fileResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := range fileChan {
		if ctx.Err() != nil {
			return
		}
		res := b.processFile(i, files[i], rules)
		select {
		case resultChan <- res:
		case <-ctx.Done():
			return
		}
	}
}

// processFile scores the valid words of one file and records the pairs of
// adjacent valid words in its title and text
func (b *Builder) processFile(fileIndex int, f model.FileSource, rules search.BookRules) fileResult {
	res := fileResult{
		fileIndex: fileIndex,
		scores:    make(map[string]int),
		pairs:     index.NewPairData(),
	}

	titleWords := indexWords(f.Title, rules)
	for _, w := range titleWords {
		res.scores[w] += b.config.TitleWeight
	}
	addPairs(res.pairs, titleWords)

	textWords := indexWords(f.Text, rules)
	for _, w := range textWords {
		res.scores[w]++
	}
	addPairs(res.pairs, textWords)

	return res
}

// indexWords breaks text into the words a query can match. The wildcard
// marker is query syntax and never part of an indexed word.
func indexWords(text string, rules search.BookRules) []string {
	text = strings.ReplaceAll(text, string(tokenizer.WildcardMarker), " ")
	words := tokenizer.BreakWords(text)
	valid := words[:0]
	for _, w := range words {
		if rules.ValidSearchWord(w) {
			valid = append(valid, w)
		}
	}
	return valid
}

func addPairs(pd *index.PairData, words []string) {
	for i := 0; i+1 < len(words); i++ {
		pd.Add(index.Pair{First: words[i], Second: words[i+1]})
	}
}

func validateSource(src model.BookSource) error {
	if strings.TrimSpace(src.Title) == "" {
		return searchErrors.NewValidationError("title", "book title cannot be empty")
	}
	dir := strings.Trim(strings.TrimSpace(src.Directory), "/")
	if dir == "" {
		return searchErrors.NewValidationError("directory", "book directory cannot be empty")
	}
	if strings.Contains(dir, "..") {
		return searchErrors.NewValidationError("directory", "book directory cannot leave the help set")
	}
	for i, f := range src.Files {
		if strings.TrimSpace(f.URL) == "" {
			return searchErrors.NewValidationError("files", fmt.Sprintf("file %d has no url", i))
		}
	}
	return nil
}
