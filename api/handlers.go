package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/internal/analytics"
	"github.com/gcbaptista/go-help-search/services"
)

const maxRequestBody = 8 << 20 // Book sources carry full file text

// API holds dependencies for API handlers, primarily the help engine.
type API struct {
	engine    services.HelpEngine
	analytics *analytics.Service
}

// NewAPI creates a new API handler structure. Without an analytics service
// the dashboard is computed from an in-memory event log.
func NewAPI(engine services.HelpEngine, dashboards *analytics.Service) *API {
	if dashboards == nil {
		dashboards = analytics.NewService(scopeCatalog{engine})
	}
	return &API{
		engine:    engine,
		analytics: dashboards,
	}
}

// scopeCatalog adapts a BookManager to the analytics catalog view.
type scopeCatalog struct {
	services.BookManager
}

func (s scopeCatalog) ScopeTitle(index int) string {
	entries := s.Scope().Entries()
	if index < 0 || index >= len(entries) {
		return ""
	}
	return entries[index].Title
}

// SetupRoutes installs the middleware stack and all API routes.
func SetupRoutes(router *gin.Engine, engine services.HelpEngine, dashboards *analytics.Service, cfg config.AppConfig) {
	apiHandler := NewAPI(engine, dashboards)

	router.HandleMethodNotAllowed = true

	if cfg.OTEL.Enabled {
		router.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	}
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RequestSizeLimitMiddleware(maxRequestBody))
	if cfg.RateRPS > 0 {
		router.Use(NewRateLimiter(cfg.RateRPS, cfg.RateBurst).Handler())
	}
	router.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	router.NoRoute(func(c *gin.Context) {
		SendError(c, http.StatusNotFound, ErrorCodeRouteNotFound, "route not found")
	})
	router.NoMethod(func(c *gin.Context) {
		SendError(c, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
	})

	// Health and observability routes
	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.DELETE("/:jobId", apiHandler.CancelJobHandler)   // Cancel a job
	}

	// Help set routes
	router.GET("/books", apiHandler.ListBooksHandler)
	router.POST("/books", apiHandler.AddBookHandler)
	router.GET("/scopes", apiHandler.GetScopesHandler)
	router.PUT("/groups", apiHandler.SetGroupsHandler)

	// Search session routes
	sessionRoutes := router.Group("/sessions")
	{
		sessionRoutes.GET("", apiHandler.ListSessionsHandler)
		sessionRoutes.POST("", apiHandler.CreateSessionHandler)
		sessionRoutes.DELETE("/:sessionId", apiHandler.DeleteSessionHandler)
		sessionRoutes.POST("/:sessionId/query", apiHandler.SubmitQueryHandler)
		sessionRoutes.GET("/:sessionId/status", apiHandler.GetStatusHandler)
		sessionRoutes.GET("/:sessionId/jobs", apiHandler.ListSessionJobsHandler)

		// Rendered output can be large
		output := sessionRoutes.Group("/:sessionId", gzip.Gzip(gzip.DefaultCompression))
		{
			output.GET("/segments/next", apiHandler.NextSegmentHandler)
			output.POST("/segments/rewind", apiHandler.RewindHandler)
			output.GET("/html", apiHandler.RenderResultsHandler)
			output.GET("/results", apiHandler.GetResultsHandler)
			output.GET("/results/:index", apiHandler.ShowResultHandler)
		}
	}
}

// corsConfig allows all origins unless an allowlist is configured.
func corsConfig(allowed []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
	}
	return cfg
}
