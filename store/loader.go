package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gcbaptista/go-help-search/index"
	"github.com/gcbaptista/go-help-search/model"
)

// Generated data layout below a help-set root:
//
//	<root>/<book directory>/search/words_<shard>.txt
//	<root>/<book directory>/search/pairs/<file index>.txt
const (
	searchDirName = "search"
	pairsDirName  = "pairs"
)

// SearchDir returns the directory holding a book's generated search data.
func SearchDir(root string, book model.Book) string {
	return filepath.Join(root, filepath.FromSlash(book.Directory), searchDirName)
}

// WordShardPath returns the path of one generated word shard.
func WordShardPath(root string, book model.Book, shard int) string {
	return filepath.Join(SearchDir(root, book), "words_"+strconv.Itoa(shard)+".txt")
}

// PairPath returns the path of a file's generated pair data.
func PairPath(root string, book model.Book, fileIndex int) string {
	return filepath.Join(SearchDir(root, book), pairsDirName, strconv.Itoa(fileIndex)+".txt")
}

// DataLoader delivers generated search data for one book.
type DataLoader interface {
	LoadWordShard(ctx context.Context, book model.Book, shard int) (index.WordShard, error)
	LoadPairs(ctx context.Context, book model.Book, fileIndex int) (*index.PairData, error)
}

// FileLoader reads generated search data from a help-set directory.
type FileLoader struct {
	root   string
	logger zerolog.Logger
}

// NewFileLoader creates a loader rooted at the help-set directory.
func NewFileLoader(root string, logger zerolog.Logger) *FileLoader {
	return &FileLoader{root: root, logger: logger.With().Str("component", "loader").Logger()}
}

// Root returns the help-set directory.
func (l *FileLoader) Root() string {
	return l.root
}

// LoadWordShard reads one word shard. A missing shard is treated as empty.
func (l *FileLoader) LoadWordShard(ctx context.Context, book model.Book, shard int) (index.WordShard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := WordShardPath(l.root, book, shard)
	f, err := os.Open(path) // #nosec G304 -- path is built from catalog data, not user input
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn().Int("book", book.Index).Int("shard", shard).Str("path", path).Msg("word shard missing, treating as empty")
			return index.WordShard{}, nil
		}
		return nil, fmt.Errorf("failed to open word shard %s: %w", path, err)
	}
	defer f.Close()

	ws, skipped, err := index.ParseWordShard(f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		l.logger.Debug().Int("book", book.Index).Int("shard", shard).Int("skipped", skipped).Msg("skipped malformed word shard lines")
	}
	return ws, ctx.Err()
}

// LoadPairs reads the pair data of one file. A missing file has no pairs.
func (l *FileLoader) LoadPairs(ctx context.Context, book model.Book, fileIndex int) (*index.PairData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := PairPath(l.root, book, fileIndex)
	f, err := os.Open(path) // #nosec G304 -- path is built from catalog data, not user input
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return index.NewPairData(), nil
		}
		return nil, fmt.Errorf("failed to open pair data %s: %w", path, err)
	}
	defer f.Close()

	pd, skipped, err := index.ParsePairData(f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		l.logger.Debug().Int("book", book.Index).Int("file", fileIndex).Int("skipped", skipped).Msg("skipped malformed pair lines")
	}
	return pd, ctx.Err()
}
