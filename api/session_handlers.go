package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-help-search/internal/search"
	"github.com/gcbaptista/go-help-search/services"
)

const maxStatusWait = 30 * time.Second

// panelFor validates the session path parameter and resolves its panel.
// It writes the error response and returns nil when that fails.
func (api *API) panelFor(c *gin.Context) *search.Panel {
	sessionID := c.Param("sessionId")
	if validation := ValidateID("sessionId", sessionID); validation.HasErrors() {
		SendValidationError(c, validation)
		return nil
	}

	panel, err := api.engine.Session(sessionID)
	if err != nil {
		SendEngineError(c, "session lookup", err)
		return nil
	}
	return panel
}

// CreateSessionHandler opens a new search session.
func (api *API) CreateSessionHandler(c *gin.Context) {
	info := api.engine.CreateSession()
	c.JSON(http.StatusCreated, info)
}

// ListSessionsHandler lists open search sessions.
func (api *API) ListSessionsHandler(c *gin.Context) {
	sessions := api.engine.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// DeleteSessionHandler closes a search session.
func (api *API) DeleteSessionHandler(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if validation := ValidateID("sessionId", sessionID); validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	if err := api.engine.DeleteSession(sessionID); err != nil {
		SendEngineError(c, "session delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session '" + sessionID + "' closed"})
}

// SubmitQueryHandler starts a query run in a session.
// Request Body: services.QueryRequest
func (api *API) SubmitQueryHandler(c *gin.Context) {
	panel := api.panelFor(c)
	if panel == nil {
		return
	}

	var req services.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if validation := ValidateQueryRequest(&req); validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	started, err := panel.SubmitQuery(req.Query, req.Scope)
	if err != nil {
		SendEngineError(c, "query submit", err)
		return
	}

	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	c.JSON(status, services.QueryResponse{
		Started:    started,
		Generation: panel.Status().Generation,
	})
}

// GetStatusHandler returns the session's panel status. With ?wait=1 it
// blocks until the current query run has finished.
func (api *API) GetStatusHandler(c *gin.Context) {
	panel := api.panelFor(c)
	if panel == nil {
		return
	}

	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))
	if !wait {
		c.JSON(http.StatusOK, panel.Status())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), maxStatusWait)
	defer cancel()

	st, err := panel.Wait(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		// Client went away
		LoggerFrom(c).Debug().Err(err).Msg("status wait aborted")
	}
	c.JSON(http.StatusOK, st)
}

// NextSegmentHandler renders the next chunk of results as HTML.
func (api *API) NextSegmentHandler(c *gin.Context) {
	panel := api.panelFor(c)
	if panel == nil {
		return
	}

	html, ok := panel.AdvanceResultSegment()
	c.JSON(http.StatusOK, services.SegmentResponse{HTML: html, Done: !ok})
}

// RenderResultsHandler renders all results as one HTML document.
func (api *API) RenderResultsHandler(c *gin.Context) {
	panel := api.panelFor(c)
	if panel == nil {
		return
	}

	html, ready := panel.RenderResults()
	if !ready {
		SendError(c, http.StatusConflict, ErrorCodeSearchFailed, "query is still running")
		return
	}
	c.JSON(http.StatusOK, services.SegmentResponse{HTML: html, Done: true})
}

// RewindHandler restarts segment rendering from the first result.
func (api *API) RewindHandler(c *gin.Context) {
	panel := api.panelFor(c)
	if panel == nil {
		return
	}

	panel.Rewind()
	c.JSON(http.StatusOK, gin.H{"message": "Results rewound"})
}

// GetResultsHandler returns one page of results as JSON.
func (api *API) GetResultsHandler(c *gin.Context) {
	panel := api.panelFor(c)
	if panel == nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	page, pageSize, _ = ValidatePagination(page, pageSize)

	entries, total := panel.Page(page, pageSize)
	c.JSON(http.StatusOK, services.ResultsPage{
		Results:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		MaxScore: panel.Status().MaxScore,
	})
}

// ShowResultHandler resolves a result to its document URL.
func (api *API) ShowResultHandler(c *gin.Context) {
	panel := api.panelFor(c)
	if panel == nil {
		return
	}

	index, validation := ValidateResultIndex(c.Param("index"))
	if validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	link, err := panel.ShowResult(index)
	if err != nil {
		SendEngineError(c, "show result", err)
		return
	}
	c.JSON(http.StatusOK, link)
}
