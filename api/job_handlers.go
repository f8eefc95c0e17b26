package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-help-search/internal/engine"
	"github.com/gcbaptista/go-help-search/model"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")
	if validation := ValidateID("jobId", jobID); validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	job, err := api.engine.GetJob(jobID)
	if err != nil {
		SendEngineError(c, "job lookup", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelJobHandler cancels a pending or running job
func (api *API) CancelJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")
	if validation := ValidateID("jobId", jobID); validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	if err := api.engine.CancelJob(jobID); err != nil {
		SendEngineError(c, "job cancel", err)
		return
	}

	job, err := api.engine.GetJob(jobID)
	if err != nil {
		SendEngineError(c, "job lookup", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListSessionJobsHandler lists the query jobs of a session
func (api *API) ListSessionJobsHandler(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if api.panelFor(c) == nil {
		return
	}

	var statusFilter *model.JobStatus
	if statusParam := c.Query("status"); statusParam != "" {
		status := model.JobStatus(statusParam)
		statusFilter = &status
	}

	jobs := api.engine.ListJobs(sessionID, statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":       jobs,
		"session_id": sessionID,
		"total":      len(jobs),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	concrete, ok := api.engine.(*engine.Engine)
	if !ok {
		SendError(c, http.StatusNotImplemented, ErrorCodeInternalError, "Job metrics not supported by this engine")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics":          concrete.GetJobMetrics(),
		"success_rate":     concrete.GetJobSuccessRate(),
		"current_workload": concrete.GetCurrentWorkload(),
	})
}
