package services

import (
	"github.com/gcbaptista/go-help-search/config"
	"github.com/gcbaptista/go-help-search/internal/search"
	"github.com/gcbaptista/go-help-search/model"
)

// AddBookRequest is the body of a book build request.
type AddBookRequest struct {
	Book     model.BookSource          `json:"book"`
	Settings config.BookSearchSettings `json:"settings"`
}

// QueryRequest submits a query to a search session.
type QueryRequest struct {
	Query string `json:"query"`
	Scope int    `json:"scope"` // Scope entry index; 0 or negative searches all books
}

// QueryResponse reports whether a query run was started.
type QueryResponse struct {
	Started    bool   `json:"started"`
	Generation uint64 `json:"generation"`
}

// SegmentResponse carries one rendered chunk of results.
type SegmentResponse struct {
	HTML string `json:"html"`
	Done bool   `json:"done"` // No further segments for the current results
}

// ResultsPage is one page of results in JSON form.
type ResultsPage struct {
	Results  []search.Entry `json:"results"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	MaxScore int            `json:"max_score"`
}

// BookManager manages the books of the help set and their search scope
type BookManager interface {
	Books() []model.Book
	Scope() *search.Scope
	SetGroups(groups []model.BookGroup) error
	AddBookAsync(src model.BookSource, settings config.BookSearchSettings) (string, error) // Returns job ID
}

// SessionManager manages the lifecycle of search sessions
type SessionManager interface {
	CreateSession() model.SessionInfo
	Session(id string) (*search.Panel, error)
	DeleteSession(id string) error
	Sessions() []model.SessionInfo
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(owner string, status *model.JobStatus) []*model.Job
	CancelJob(jobID string) error
}

// HelpEngine is everything the HTTP layer needs from the engine.
type HelpEngine interface {
	BookManager
	SessionManager
	JobManager
}
