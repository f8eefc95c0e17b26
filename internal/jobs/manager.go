package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/model"
)

// ErrShuttingDown is returned when a job is submitted after Stop.
var ErrShuttingDown = errors.New("job manager is shutting down")

// JobFunc is the work of one job. It must return promptly once ctx is done.
type JobFunc func(ctx context.Context, job *model.Job) error

// Manager handles background job execution and tracking
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	cancels  map[string]context.CancelFunc
	workers  chan struct{} // Limits concurrent jobs
	pools    map[model.JobType]chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	metrics  *JobMetrics
	logger   zerolog.Logger
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithDedicatedWorkers gives jobs of one type their own worker slots, so
// they never wait behind jobs of other types.
func WithDedicatedWorkers(jobType model.JobType, workers int) ManagerOption {
	return func(m *Manager) {
		if workers > 0 {
			m.pools[jobType] = make(chan struct{}, workers)
		}
	}
}

// NewManager creates a new job manager with specified worker count
func NewManager(maxWorkers int, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	m := &Manager{
		jobs:     make(map[string]*model.Job),
		cancels:  make(map[string]context.CancelFunc),
		workers:  make(chan struct{}, maxWorkers),
		pools:    make(map[model.JobType]chan struct{}),
		stopChan: make(chan struct{}),
		metrics:  NewJobMetrics(),
		logger:   logger.With().Str("component", "jobs").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// slotsFor returns the worker slots a job type draws from.
func (m *Manager) slotsFor(jobType model.JobType) chan struct{} {
	if pool, ok := m.pools[jobType]; ok {
		return pool
	}
	return m.workers
}

// Start begins the job manager and starts background cleanup
func (m *Manager) Start() {
	m.logger.Info().Int("max_workers", cap(m.workers)).Int("dedicated_pools", len(m.pools)).Msg("job manager started")
	go m.cleanupRoutine()
}

// Stop cancels running jobs and waits for them to return
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		for _, cancel := range m.cancels {
			cancel()
		}
		m.mu.Unlock()

		m.wg.Wait()
		m.logger.Info().Msg("job manager stopped")
	})
}

// CreateJob creates a new job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, owner string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		Owner:     owner,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.metrics.RecordJobCreated(jobType)
	m.logger.Debug().Str("job_id", job.ID).Str("type", string(job.Type)).Str("owner", owner).Msg("created job")
	return job.ID
}

// Submit creates a job and starts it under ctx
func (m *Manager) Submit(ctx context.Context, jobType model.JobType, owner string, metadata map[string]string, fn JobFunc) (string, error) {
	jobID := m.CreateJob(jobType, owner, metadata)
	if err := m.ExecuteJob(ctx, jobID, fn); err != nil {
		return jobID, err
	}
	return jobID, nil
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, searchErrors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns all jobs of an owner, optionally filtered by status,
// oldest first
func (m *Manager) ListJobs(owner string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Job
	for _, job := range m.jobs {
		if job.Owner != owner {
			continue
		}
		if status == nil || job.Status == *status {
			result = append(result, copyJob(job))
		}
	}
	sortJobs(result)
	return result
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	return &jobCopy
}

func sortJobs(jobs []*model.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

// ExecuteJob runs a pending job in a goroutine with proper tracking. The
// job's context derives from ctx and is cancelled by CancelJob or Stop.
// ExecuteJob blocks while all worker slots of the job's type are busy.
func (m *Manager) ExecuteJob(ctx context.Context, jobID string, jobFunc JobFunc) error {
	select {
	case <-m.stopChan:
		return ErrShuttingDown
	default:
	}

	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return searchErrors.NewJobNotFoundError(jobID)
	}

	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	m.cancels[jobID] = cancel
	slots := m.slotsFor(job.Type)
	m.mu.Unlock()

	// Acquire worker slot
	select {
	case slots <- struct{}{}:
	case <-m.stopChan:
		m.finishJob(jobID, cancel, model.JobStatusCancelled, ErrShuttingDown.Error())
		return ErrShuttingDown
	case <-jobCtx.Done():
		m.finishJob(jobID, cancel, model.JobStatusCancelled, jobCtx.Err().Error())
		return jobCtx.Err()
	}

	m.mu.Lock()
	oldStatus := job.Status
	if oldStatus != model.JobStatusPending {
		// Cancelled while waiting for a worker.
		m.mu.Unlock()
		<-slots
		m.finishJob(jobID, cancel, model.JobStatusCancelled, "")
		return context.Canceled
	}
	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	jobCopy := copyJob(job)
	m.metrics.RecordJobStatusChange(oldStatus, job.Status)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer func() {
			<-slots // Release worker slot
			m.wg.Done()
		}()

		startTime := time.Now()
		err := jobFunc(jobCtx, jobCopy)
		executionTime := time.Since(startTime)

		switch {
		case err != nil && jobCtx.Err() != nil && errors.Is(jobCtx.Err(), context.Canceled):
			m.finishJob(jobID, cancel, model.JobStatusCancelled, err.Error())
			m.metrics.RecordJobCancelled(jobCopy.Type)
			m.logger.Debug().Str("job_id", jobID).Dur("elapsed", executionTime).Msg("job cancelled")
		case err != nil:
			m.finishJob(jobID, cancel, model.JobStatusFailed, err.Error())
			m.metrics.RecordJobFailed(jobCopy.Type)
			m.logger.Warn().Str("job_id", jobID).Dur("elapsed", executionTime).Err(err).Msg("job failed")
		default:
			m.finishJob(jobID, cancel, model.JobStatusCompleted, "")
			m.metrics.RecordJobCompleted(jobCopy.Type, executionTime)
			m.logger.Debug().Str("job_id", jobID).Dur("elapsed", executionTime).Msg("job completed")
		}
	}()

	return nil
}

// CancelJob cancels a pending or running job
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return searchErrors.NewJobNotFoundError(jobID)
	}

	switch job.Status {
	case model.JobStatusPending:
		m.setStatusLocked(job, model.JobStatusCancelled, "cancelled before start")
	case model.JobStatusRunning:
		m.setStatusLocked(job, model.JobStatusCancelling, "")
	default:
		return nil
	}
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
	}
	return nil
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}

	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

// finishJob records the final status of a job and releases its context
func (m *Manager) finishJob(jobID string, cancel context.CancelFunc, status model.JobStatus, errorMsg string) {
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cancels, jobID)
	if job, exists := m.jobs[jobID]; exists {
		m.setStatusLocked(job, status, errorMsg)
	}
}

func (m *Manager) setStatusLocked(job *model.Job, status model.JobStatus, errorMsg string) {
	oldStatus := job.Status
	if oldStatus == status {
		return
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	if status == model.JobStatusCompleted || status == model.JobStatusFailed || status == model.JobStatusCancelled {
		now := time.Now()
		job.CompletedAt = &now
	}

	m.metrics.RecordJobStatusChange(oldStatus, status)
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Query jobs are short-lived and plentiful
			m.CleanupOldJobs(time.Hour)
		case <-m.stopChan:
			return
		}
	}
}

// CleanupOldJobs removes finished jobs older than the specified duration
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.logger.Debug().Int("count", cleaned).Msg("cleaned up old jobs")
	}
}

// GetMetrics returns current job performance metrics
func (m *Manager) GetMetrics() JobMetricsData {
	return m.metrics.GetMetrics()
}

// GetJobSuccessRate returns the overall job success rate
func (m *Manager) GetJobSuccessRate() float64 {
	return m.metrics.GetSuccessRate()
}

// GetCurrentWorkload returns the number of currently active jobs
func (m *Manager) GetCurrentWorkload() int64 {
	return m.metrics.GetCurrentWorkload()
}
