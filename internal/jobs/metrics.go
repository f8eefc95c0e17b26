package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/go-help-search/model"
)

// recentWindow bounds the durations kept per job type for the rolling mean.
const recentWindow = 50

// TypeStats summarizes the jobs of one type.
type TypeStats struct {
	Created       int64         `json:"created"`
	Completed     int64         `json:"completed"`
	Failed        int64         `json:"failed"`
	Cancelled     int64         `json:"cancelled"`
	RecentAverage time.Duration `json:"recent_average_ns"`
}

// JobMetricsData is a point-in-time copy of JobMetrics.
type JobMetricsData struct {
	JobsCreated   int64                       `json:"jobs_created"`
	JobsCompleted int64                       `json:"jobs_completed"`
	JobsFailed    int64                       `json:"jobs_failed"`
	JobsCancelled int64                       `json:"jobs_cancelled"`
	Busy          int64                       `json:"busy"`
	ByType        map[model.JobType]TypeStats `json:"by_type"`
	LastUpdated   time.Time                   `json:"last_updated"`
}

type typeCounters struct {
	stats  TypeStats
	recent []time.Duration
}

// JobMetrics counts query runs and book builds as they move through the
// manager. Superseded query runs end up in Cancelled.
type JobMetrics struct {
	mu          sync.RWMutex
	byType      map[model.JobType]*typeCounters
	byStatus    map[model.JobStatus]int64
	lastUpdated time.Time
}

// NewJobMetrics creates an empty collector.
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		byType:      make(map[model.JobType]*typeCounters),
		byStatus:    make(map[model.JobStatus]int64),
		lastUpdated: time.Now(),
	}
}

func (m *JobMetrics) counters(jobType model.JobType) *typeCounters {
	c, ok := m.byType[jobType]
	if !ok {
		c = &typeCounters{}
		m.byType[jobType] = c
	}
	return c
}

// RecordJobCreated counts a newly submitted job as pending.
func (m *JobMetrics) RecordJobCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters(jobType).stats.Created++
	m.byStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange moves one job between status buckets.
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" && m.byStatus[oldStatus] > 0 {
		m.byStatus[oldStatus]--
	}
	m.byStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordJobCompleted counts a successful job and its run time.
func (m *JobMetrics) RecordJobCompleted(jobType model.JobType, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.counters(jobType)
	c.stats.Completed++
	c.recent = append(c.recent, took)
	if len(c.recent) > recentWindow {
		c.recent = c.recent[len(c.recent)-recentWindow:]
	}
	m.lastUpdated = time.Now()
}

// RecordJobFailed counts a job that returned an error.
func (m *JobMetrics) RecordJobFailed(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters(jobType).stats.Failed++
	m.lastUpdated = time.Now()
}

// RecordJobCancelled counts a job stopped by cancellation, e.g. a query
// superseded by a newer submission.
func (m *JobMetrics) RecordJobCancelled(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters(jobType).stats.Cancelled++
	m.lastUpdated = time.Now()
}

// GetMetrics returns totals and per-type stats.
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := JobMetricsData{
		Busy:        m.byStatus[model.JobStatusPending] + m.byStatus[model.JobStatusRunning],
		ByType:      make(map[model.JobType]TypeStats, len(m.byType)),
		LastUpdated: m.lastUpdated,
	}
	for jobType, c := range m.byType {
		stats := c.stats
		if len(c.recent) > 0 {
			var sum time.Duration
			for _, d := range c.recent {
				sum += d
			}
			stats.RecentAverage = sum / time.Duration(len(c.recent))
		}
		data.ByType[jobType] = stats
		data.JobsCreated += stats.Created
		data.JobsCompleted += stats.Completed
		data.JobsFailed += stats.Failed
		data.JobsCancelled += stats.Cancelled
	}
	return data
}

// GetSuccessRate is completed / (completed + failed). Cancelled jobs are
// not counted. It is 1 before any job has finished.
func (m *JobMetrics) GetSuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ok, failed int64
	for _, c := range m.byType {
		ok += c.stats.Completed
		failed += c.stats.Failed
	}
	if ok+failed == 0 {
		return 1.0
	}
	return float64(ok) / float64(ok+failed)
}

// GetCurrentWorkload returns the number of pending and running jobs.
func (m *JobMetrics) GetCurrentWorkload() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.byStatus[model.JobStatusPending] + m.byStatus[model.JobStatusRunning]
}
