// Package engine ties the help-set catalog, search sessions, background
// jobs and book generation together.
package engine

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/internal/indexing"
	"github.com/gcbaptista/go-help-search/internal/jobs"
	"github.com/gcbaptista/go-help-search/internal/metrics"
	"github.com/gcbaptista/go-help-search/internal/search"
	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/store"
)

const dataDirPerm = 0755

// Options configures an Engine.
type Options struct {
	DataDir     string // Help-set root: catalog file and book directories
	Panel       config.PanelSettings
	MaxSessions int
	SessionTTL  time.Duration
	MaxWorkers  int // Book builds

	// QueryWorkers reserves worker slots for query runs; zero shares the
	// build workers
	QueryWorkers int
	Indexing     indexing.Config
}

// OptionsFromConfig derives engine options from the application config.
func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{
		DataDir:     cfg.DataDir,
		Panel:       cfg.Panel,
		MaxSessions: cfg.MaxSessions,
		SessionTTL:  cfg.SessionTTL,
		MaxWorkers:  cfg.MaxWorkers,

		QueryWorkers: cfg.QueryWorkers,
		Indexing:     indexing.DefaultConfig(),
	}
}

// ObserverFactory creates the query observer of a new session.
type ObserverFactory func(sessionID string) search.Observer

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records search and session metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer passed to search panels.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithLoader replaces the on-disk data loader.
func WithLoader(loader store.DataLoader) Option {
	return func(e *Engine) { e.loader = loader }
}

// WithObserverFactory attaches an observer to every new session.
func WithObserverFactory(f ObserverFactory) Option {
	return func(e *Engine) { e.observerFor = f }
}

// Engine manages the catalog and the search sessions over it.
type Engine struct {
	opts    Options
	catalog *store.Catalog
	loader  store.DataLoader
	builder *indexing.Builder
	writer  *indexing.Writer

	jobManager  *jobs.Manager
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	observerFor ObserverFactory
	logger      zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	buildMu  sync.Mutex // Serializes catalog updates from book builds
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates an engine over the help set in opts.DataDir, loading its
// catalog when present.
func New(opts Options, options ...Option) (*Engine, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	opts.Panel.ApplyDefaults()
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 1
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}

	e := &Engine{
		opts:     opts,
		logger:   zerolog.Nop(),
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
	for _, o := range options {
		o(e)
	}
	e.logger = e.logger.With().Str("component", "engine").Logger()

	if err := os.MkdirAll(opts.DataDir, dataDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", opts.DataDir, err)
	}

	catalog, err := e.loadCatalog()
	if err != nil {
		return nil, err
	}
	e.catalog = catalog

	if e.loader == nil {
		e.loader = store.NewFileLoader(opts.DataDir, e.logger)
	}
	e.builder = indexing.NewBuilder(opts.Indexing, e.logger)
	e.writer = indexing.NewWriter(opts.DataDir, e.logger)
	e.jobManager = jobs.NewManager(opts.MaxWorkers, e.logger,
		jobs.WithDedicatedWorkers(model.JobTypeQuery, opts.QueryWorkers))

	e.metrics.SetBooks(catalog.BookCount())
	e.logger.Info().Str("data_dir", opts.DataDir).Int("books", catalog.BookCount()).Msg("engine ready")
	return e, nil
}

// Start launches the job manager and the session janitor.
func (e *Engine) Start() {
	e.jobManager.Start()
	go e.janitor()
}

// Stop closes all sessions and stops background work.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)

		e.mu.Lock()
		for id, s := range e.sessions {
			s.Panel.Close()
			delete(e.sessions, id)
		}
		e.mu.Unlock()
		e.metrics.SetActiveSessions(0)

		e.jobManager.Stop()
	})
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *store.Catalog {
	return e.catalog
}

// Jobs returns the job manager.
func (e *Engine) Jobs() *jobs.Manager {
	return e.jobManager
}

// Books lists the catalog books.
func (e *Engine) Books() []model.Book {
	return e.catalog.Books()
}

// Scope returns the current search scope list.
func (e *Engine) Scope() *search.Scope {
	return search.BuildScope(e.catalog.Books(), e.catalog.Groups())
}

// ScopeTitle returns the title of a scope entry, or "" when out of range.
func (e *Engine) ScopeTitle(index int) string {
	entries := e.Scope().Entries()
	if index < 0 || index >= len(entries) {
		return ""
	}
	return entries[index].Title
}

// SetGroups replaces the book groups and persists the catalog.
func (e *Engine) SetGroups(groups []model.BookGroup) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	if err := e.catalog.SetGroups(groups); err != nil {
		return err
	}
	return e.saveCatalog()
}
