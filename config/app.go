package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AppConfig holds the process-level configuration of the search server.
type AppConfig struct {
	// Server
	Port    string
	DataDir string
	GinMode string // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error
	LogPretty bool

	// Search panels
	Panel       PanelSettings
	MaxSessions int
	SessionTTL  time.Duration
	MaxWorkers  int

	// Worker slots reserved for query runs, separate from book builds
	QueryWorkers int

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// CORS allowlist; empty means allow all
	CORSAllowedOrigins []string

	// Analytics query log (SQLite); empty disables persistence
	AnalyticsDBPath string

	OTEL OTELConfig
}

// LoadAppConfig loads an optional .env file, then reads configuration from
// environment variables, applies defaults and validates the result.
func LoadAppConfig(envFiles ...string) (AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return AppConfig{}, err
			}
		}
	}

	cfg := AppConfig{
		Port:    getenv("PORT", "8080"),
		DataDir: getenv("DATA_DIR", "./help_data"),
		GinMode: strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		Panel: PanelSettings{
			ResultsByBook:  getbool("RESULTS_BY_BOOK", false),
			ShowRank:       getbool("SHOW_RANK", true),
			MaxSegmentSize: getint("MAX_SEGMENT_SIZE", 4096),
			LoadTimeout:    getdur("LOAD_TIMEOUT", 30*time.Second),
		},
		MaxSessions: getint("MAX_SESSIONS", 1000),
		SessionTTL:  getdur("SESSION_TTL", 30*time.Minute),
		MaxWorkers:  getint("MAX_WORKERS", 8),

		QueryWorkers: getint("QUERY_WORKERS", 32),

		RateRPS:   getfloat("RATE_RPS", 20),
		RateBurst: getint("RATE_BURST", 40),

		CORSAllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		AnalyticsDBPath:    getenv("ANALYTICS_DB_PATH", ""),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-help-search"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return cfg, errors.New("DATA_DIR must not be empty")
	}
	if cfg.Panel.MaxSegmentSize <= 0 {
		return cfg, errors.New("MAX_SEGMENT_SIZE must be > 0")
	}
	if cfg.Panel.LoadTimeout <= 0 {
		return cfg, errors.New("LOAD_TIMEOUT must be a positive duration")
	}
	if cfg.MaxSessions < 1 {
		return cfg, errors.New("MAX_SESSIONS must be >= 1")
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be a positive duration")
	}
	if cfg.MaxWorkers < 1 {
		return cfg, errors.New("MAX_WORKERS must be >= 1")
	}
	if cfg.QueryWorkers < 1 {
		return cfg, errors.New("QUERY_WORKERS must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
