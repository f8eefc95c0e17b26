package engine

import (
	"context"
	"fmt"

	"github.com/gcbaptista/go-help-search/config"
	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/internal/indexing"
	"github.com/gcbaptista/go-help-search/model"
)

// AddBookAsync generates a book's search data in the background and
// registers the book when done. A book with the same directory is
// replaced. It returns the build job id.
func (e *Engine) AddBookAsync(src model.BookSource, settings config.BookSearchSettings) (string, error) {
	if src.Title == "" {
		return "", searchErrors.NewValidationError("title", "book title cannot be empty")
	}
	if problems := settings.Validate(); len(problems) > 0 {
		return "", searchErrors.NewValidationError("settings", problems[0])
	}

	jobID := e.jobManager.CreateJob(model.JobTypeBuildBook, src.Title, map[string]string{
		"operation": "build_book",
		"directory": src.Directory,
		"files":     fmt.Sprintf("%d", len(src.Files)),
	})

	err := e.jobManager.ExecuteJob(context.Background(), jobID, func(ctx context.Context, job *model.Job) error {
		_, err := e.executeBuildBookJob(ctx, src, settings, job.ID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to start build book job: %w", err)
	}
	return jobID, nil
}

// AddBook generates and registers a book synchronously.
func (e *Engine) AddBook(ctx context.Context, src model.BookSource, settings config.BookSearchSettings) (model.Book, error) {
	return e.executeBuildBookJob(ctx, src, settings, "")
}

// executeBuildBookJob builds, writes and registers one book.
func (e *Engine) executeBuildBookJob(ctx context.Context, src model.BookSource, settings config.BookSearchSettings, jobID string) (model.Book, error) {
	builder := e.builder
	if jobID != "" {
		cfg := e.opts.Indexing
		cfg.ProgressCallback = func(processed, total int, message string) {
			e.jobManager.UpdateJobProgress(jobID, processed, total, message)
		}
		builder = indexing.NewBuilder(cfg, e.logger)
	}

	data, err := builder.Build(ctx, src, settings)
	if err != nil {
		return model.Book{}, fmt.Errorf("failed to build book '%s': %w", src.Title, err)
	}

	// Writing data and updating the catalog happen under one lock so two
	// builds of the same directory cannot interleave.
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	if err := e.writer.Write(ctx, data); err != nil {
		return model.Book{}, fmt.Errorf("failed to write book '%s': %w", src.Title, err)
	}

	book, err := e.catalog.AddBook(data.Book, data.Settings)
	if err != nil {
		return model.Book{}, err
	}
	if err := e.saveCatalog(); err != nil {
		return model.Book{}, err
	}

	e.metrics.SetBooks(e.catalog.BookCount())
	e.logger.Info().Str("book", book.Title).Int("index", book.Index).Int("files", book.FileCount()).Msg("book registered")
	return book, nil
}
