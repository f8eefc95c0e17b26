package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gcbaptista/go-help-search/internal/engine"
	"github.com/gcbaptista/go-help-search/internal/indexing"
	"github.com/gcbaptista/go-help-search/internal/logger"
	"github.com/gcbaptista/go-help-search/services"
)

func main() {
	var (
		dataDir  = flag.String("data-dir", "./help_data", "Help set directory")
		source   = flag.String("source", "", "JSON file with the book source and settings")
		workers  = flag.Int("workers", 0, "Indexing workers (0 = number of CPUs)")
		logLevel = flag.String("log-level", "info", "Log level")
		pretty   = flag.Bool("pretty", true, "Human readable log output")
	)
	flag.Parse()

	log := logger.Init(logger.Config{Level: *logLevel, Pretty: *pretty, Service: "helpindex"})

	if *source == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s --source book.json [--data-dir dir]\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	data, err := os.ReadFile(*source)
	if err != nil {
		log.Fatal().Err(err).Str("source", *source).Msg("failed to read book source")
	}
	var req services.AddBookRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Fatal().Err(err).Str("source", *source).Msg("invalid book source")
	}

	indexCfg := indexing.DefaultConfig()
	if *workers > 0 {
		indexCfg.WorkerCount = *workers
	}
	indexCfg.ProgressCallback = func(processed, total int, message string) {
		log.Debug().Int("processed", processed).Int("total", total).Msg(message)
	}

	eng, err := engine.New(engine.Options{DataDir: *dataDir, Indexing: indexCfg}, engine.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open help set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	book, err := eng.AddBook(ctx, req.Book, req.Settings)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build book")
	}
	log.Info().Int("index", book.Index).Str("title", book.Title).Int("files", book.FileCount()).
		Str("data_dir", *dataDir).Msg("book added")
}
