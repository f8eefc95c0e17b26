package engine

import (
	"github.com/gcbaptista/go-help-search/internal/jobs"
	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/services"
)

var _ services.HelpEngine = (*Engine)(nil)

// GetJob returns a job by ID
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns jobs for an owner, optionally filtered by status
func (e *Engine) ListJobs(owner string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(owner, status)
}

// CancelJob cancels a pending or running job
func (e *Engine) CancelJob(jobID string) error {
	return e.jobManager.CancelJob(jobID)
}

// GetJobMetrics returns job performance metrics
func (e *Engine) GetJobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// GetJobSuccessRate returns the job success rate as a percentage
func (e *Engine) GetJobSuccessRate() float64 {
	return e.jobManager.GetJobSuccessRate()
}

// GetCurrentWorkload returns the number of currently running jobs
func (e *Engine) GetCurrentWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}
