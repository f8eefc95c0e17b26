package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-help-search/config"
	testutil "github.com/gcbaptista/go-help-search/internal/testing"
)

func newMiddlewareRouter(middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(middleware...)
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newMiddlewareRouter()
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	generated := w.Header().Get(requestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(requestIDHeader, "client-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-id", w.Header().Get(requestIDHeader))
	assert.Equal(t, "client-id", w.Body.String())
}

func TestLoggerMiddleware_StoresRequestLogger(t *testing.T) {
	r := newMiddlewareRouter(LoggerMiddleware())
	found := false
	r.GET("/log", func(c *gin.Context) {
		_, found = c.Get(loggerKey)
		LoggerFrom(c).Debug().Msg("handled")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/log", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, found)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := newMiddlewareRouter(LoggerMiddleware(), RecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assertErrorCode(t, w, http.StatusInternalServerError, ErrorCodeInternalError)
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	r := newMiddlewareRouter(RequestSizeLimitMiddleware(16))
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			SendInvalidJSONError(c, err)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"b"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`)))
	assertErrorCode(t, w, http.StatusRequestEntityTooLarge, ErrorCodeInvalidRequest)
}

func TestRateLimiter(t *testing.T) {
	r := newMiddlewareRouter(NewRateLimiter(0.001, 2).Handler())
	r.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		codes[i] = w.Code
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSetupRoutes_RateLimitAndCORS(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(t, eng, nil, config.AppConfig{
		RateRPS:            0.001,
		RateBurst:          1,
		CORSAllowedOrigins: []string{"https://docs.example.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/books", nil)
	req.Header.Set("Origin", "https://docs.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://docs.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// The preflight used the only token
	assertErrorCode(t, doRequest(t, router, http.MethodGet, "/books", nil), http.StatusTooManyRequests, ErrorCodeRateLimited)
}
