// Package testing provides utilities and helpers for testing the help search service.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/internal/engine"
	"github.com/gcbaptista/go-help-search/internal/search"
	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/services"
)

// CreateTestEngine creates a started engine over a temporary help set. The
// engine is stopped when the test ends.
func CreateTestEngine(t *testing.T, options ...engine.Option) *engine.Engine {
	t.Helper()

	opts := engine.Options{
		DataDir:     t.TempDir(),
		Panel:       config.PanelSettings{ShowRank: true, LoadTimeout: 5 * time.Second},
		MaxSessions: 10,
		SessionTTL:  time.Minute,
		MaxWorkers:  4,

		QueryWorkers: 4,
	}
	eng, err := engine.New(opts, append([]engine.Option{engine.WithLogger(zerolog.Nop())}, options...)...)
	require.NoError(t, err, "Failed to create test engine")

	eng.Start()
	t.Cleanup(eng.Stop)
	return eng
}

// SampleBooks returns two small books: a user guide and a reference.
func SampleBooks() []model.BookSource {
	return []model.BookSource{
		{
			Title:     "User Guide",
			Directory: "guide",
			Files: []model.FileSource{
				{Title: "Installing Printers", URL: "install.htm", Text: "Connect the printer and install the printer driver."},
				{Title: "Network Setup", URL: "network.htm", Text: "Add a network printer queue for the office."},
				{Title: "Troubleshooting", URL: "trouble.htm", Text: "If the print queue stalls, restart the spooler."},
			},
		},
		{
			Title:     "Reference",
			Directory: "ref",
			Files: []model.FileSource{
				{Title: "Spooler Service", URL: "spooler.htm", Text: "The spooler manages the print queue."},
				{Title: "Drivers", URL: "drivers.htm", Text: "Driver packages for every printer model."},
			},
		},
	}
}

// AddSampleBooks registers SampleBooks with eng.
func AddSampleBooks(t *testing.T, eng *engine.Engine) []model.Book {
	t.Helper()

	var books []model.Book
	for _, src := range SampleBooks() {
		book, err := eng.AddBook(context.Background(), src, config.BookSearchSettings{SearchFileCount: 2})
		require.NoError(t, err, "Failed to add test book %s", src.Title)
		books = append(books, book)
	}
	return books
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
	}
}

// WaitForJob polls a job until it reaches a final status or times out
func WaitForJob(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()

	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not finish within %v timeout", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled:
				return job
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID, job.Progress.Current, job.Progress.Total, job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// WaitIdle waits for a panel's current query run to finish.
func WaitIdle(t *testing.T, panel *search.Panel) search.Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := panel.Wait(ctx)
	require.NoError(t, err, "Query run did not finish")
	return st
}

// SearchTestCase is one query against a session and its expected results
type SearchTestCase struct {
	Name        string
	Query       string
	Scope       int
	ExpectedURL []string // Expected result URLs in any order
}

// RunSearchTests runs each case in a fresh session of eng
func RunSearchTests(t *testing.T, eng services.SessionManager, tests []SearchTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			info := eng.CreateSession()
			defer func() { _ = eng.DeleteSession(info.ID) }()

			panel, err := eng.Session(info.ID)
			require.NoError(t, err)

			_, err = panel.SubmitQuery(tt.Query, tt.Scope)
			require.NoError(t, err)
			st := WaitIdle(t, panel)
			require.Equal(t, search.OutcomeOK, st.Outcome, "query %q failed: %s", tt.Query, st.Error)

			entries, _ := panel.Page(1, 100)
			urls := make([]string, len(entries))
			for i, e := range entries {
				urls[i] = e.URL
			}
			assert.ElementsMatch(t, tt.ExpectedURL, urls)
		})
	}
}
