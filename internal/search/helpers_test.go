package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/index"
	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/store"
)

type shardKey struct{ book, shard int }
type pairKey struct{ book, file int }

// memLoader serves generated data from memory.
type memLoader struct {
	mu     sync.Mutex
	shards map[shardKey]index.WordShard
	pairs  map[pairKey]*index.PairData

	hold      chan struct{} // loads wait for this channel when set
	ignoreCtx bool          // keep waiting on hold even after cancellation
	err       error
	wordLoads int
	pairLoads int
}

func newMemLoader() *memLoader {
	return &memLoader{
		shards: make(map[shardKey]index.WordShard),
		pairs:  make(map[pairKey]*index.PairData),
	}
}

func (l *memLoader) addWord(book, shard int, word, matches string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := shardKey{book, shard}
	if l.shards[k] == nil {
		l.shards[k] = index.WordShard{}
	}
	l.shards[k].Add(word, matches)
}

func (l *memLoader) addPairs(book, file int, pairs ...index.Pair) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pairs[pairKey{book, file}] = index.NewPairData(pairs...)
}

func (l *memLoader) wait(ctx context.Context) error {
	l.mu.Lock()
	hold := l.hold
	l.mu.Unlock()
	if hold == nil {
		return ctx.Err()
	}
	if l.ignoreCtx {
		<-hold
		return nil
	}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *memLoader) LoadWordShard(ctx context.Context, book model.Book, shard int) (index.WordShard, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wordLoads++
	if l.err != nil {
		return nil, l.err
	}
	if ws, ok := l.shards[shardKey{book.Index, shard}]; ok {
		return ws, nil
	}
	return index.WordShard{}, nil
}

func (l *memLoader) LoadPairs(ctx context.Context, book model.Book, fileIndex int) (*index.PairData, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pairLoads++
	if l.err != nil {
		return nil, l.err
	}
	if pd, ok := l.pairs[pairKey{book.Index, fileIndex}]; ok {
		return pd, nil
	}
	return index.NewPairData(), nil
}

var errBroken = errors.New("broken data file")

func addBook(t *testing.T, c *store.Catalog, dir, title string, settings config.BookSearchSettings, files ...string) model.Book {
	t.Helper()
	b := model.Book{Directory: dir, Title: title}
	for i := 0; i+1 < len(files); i += 2 {
		b.Files = append(b.Files, model.File{URL: files[i], Title: files[i+1]})
	}
	stored, err := c.AddBook(b, settings)
	require.NoError(t, err)
	return stored
}
