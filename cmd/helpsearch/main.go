package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/gcbaptista/go-help-search/api"
	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/internal/analytics"
	"github.com/gcbaptista/go-help-search/internal/engine"
	"github.com/gcbaptista/go-help-search/internal/logger"
	"github.com/gcbaptista/go-help-search/internal/metrics"
	"github.com/gcbaptista/go-help-search/internal/observability"
	"github.com/gcbaptista/go-help-search/internal/repo"
	"github.com/gcbaptista/go-help-search/internal/search"
)

const version = "1.0.0"

func main() {
	// Define command-line flags
	var (
		help    = flag.Bool("help", false, "Show help message")
		showVer = flag.Bool("version", false, "Show version information")
		envFile = flag.String("env", ".env", "Optional .env file to load")
		port    = flag.String("port", "", "Port to run the server on (overrides PORT)")
		dataDir = flag.String("data-dir", "", "Help set directory (overrides DATA_DIR)")
	)

	flag.Parse()

	// Handle help flag
	if *help {
		fmt.Printf("Go Help Search - full-text search over generated help sets\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                          # Start server on default port 8080\n", os.Args[0])
		fmt.Printf("  %s --port 9000              # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --data-dir /srv/help     # Serve a custom help set\n", os.Args[0])
		return
	}

	// Handle version flag
	if *showVer {
		fmt.Printf("Go Help Search v%s\n", version)
		return
	}

	cfg, err := config.LoadAppConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	log := logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: cfg.OTEL.ServiceName})
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.AppConfig, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	// Analytics persistence is optional
	var db *gorm.DB
	if cfg.AnalyticsDBPath != "" {
		db, err = repo.OpenSQLite(cfg.AnalyticsDBPath)
		if err != nil {
			return fmt.Errorf("open analytics database: %w", err)
		}
		defer func() { _ = repo.Close(db) }()
		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate analytics database: %w", err)
		}
	}

	// The engine and the analytics service reference each other: sessions
	// report to analytics, analytics reads the catalog.
	var dashboards *analytics.Service
	eng, err := engine.New(engine.OptionsFromConfig(cfg),
		engine.WithLogger(log),
		engine.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		engine.WithTracer(otel.Tracer("github.com/gcbaptista/go-help-search")),
		engine.WithObserverFactory(func(sessionID string) search.Observer {
			return dashboards.Observer(sessionID)
		}),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	analyticsOpts := []analytics.Option{analytics.WithLogger(log)}
	if db != nil {
		analyticsOpts = append(analyticsOpts, analytics.WithRepository(db))
	}
	dashboards = analytics.NewService(eng, analyticsOpts...)
	if n, err := dashboards.Prune(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to prune analytics events")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("pruned analytics events")
	}

	eng.Start()
	defer eng.Stop()
	defer dashboards.Flush()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	api.SetupRoutes(router, eng, dashboards, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("data_dir", cfg.DataDir).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down gracefully")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
