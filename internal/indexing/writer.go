package indexing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/gcbaptista/go-help-search/store"
)

// Writer stores generated book data below a help-set root in the layout
// store.FileLoader reads.
type Writer struct {
	root   string
	logger zerolog.Logger
}

// NewWriter creates a writer for the help set at root.
func NewWriter(root string, logger zerolog.Logger) *Writer {
	return &Writer{root: root, logger: logger.With().Str("component", "indexing").Logger()}
}

// Write replaces the book's search directory with the generated data. The
// data is written to a sibling directory first and swapped in at the end,
// so readers see either the old or the new data.
func (w *Writer) Write(ctx context.Context, data *BookData) error {
	finalDir := store.SearchDir(w.root, data.Book)
	tmpDir := finalDir + ".tmp"

	if err := os.RemoveAll(tmpDir); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	pairsDir := filepath.Join(tmpDir, filepath.Base(filepath.Dir(store.PairPath(w.root, data.Book, 0))))
	if err := os.MkdirAll(pairsDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	for shard, ws := range data.Shards {
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(tmpDir)
			return err
		}
		path := filepath.Join(tmpDir, filepath.Base(store.WordShardPath(w.root, data.Book, shard)))
		if err := writeFile(path, ws); err != nil {
			_ = os.RemoveAll(tmpDir)
			return fmt.Errorf("failed to write word shard %d: %w", shard, err)
		}
	}

	for fileIndex, pd := range data.Pairs {
		if pd.Len() == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(tmpDir)
			return err
		}
		path := filepath.Join(pairsDir, filepath.Base(store.PairPath(w.root, data.Book, fileIndex)))
		if err := writeFile(path, pd); err != nil {
			_ = os.RemoveAll(tmpDir)
			return fmt.Errorf("failed to write pairs of file %d: %w", fileIndex, err)
		}
	}

	if err := os.RemoveAll(finalDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("failed to remove previous search data: %w", err)
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		return fmt.Errorf("failed to move search data into place: %w", err)
	}

	w.logger.Info().
		Str("book", data.Book.Title).
		Str("dir", finalDir).
		Int("shards", len(data.Shards)).
		Msg("wrote book search data")
	return nil
}

func writeFile(path string, data io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := data.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
