package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrBookNotFound is returned when a book index is not part of the catalog
	ErrBookNotFound = errors.New("book not found")

	// ErrSessionNotFound is returned when a search session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrResultNotFound is returned when a result index is outside the current result set
	ErrResultNotFound = errors.New("result not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleQuery is returned internally when data arrives for a superseded query
	ErrStaleQuery = errors.New("stale query")

	// ErrQueryCancelled is returned when the current query run was cancelled before it finished
	ErrQueryCancelled = errors.New("query cancelled")

	// ErrLoadTimeout is returned when generated search data did not arrive in time
	ErrLoadTimeout = errors.New("search data load timed out")
)

// BookNotFoundError represents a book not found error with context
type BookNotFoundError struct {
	BookIndex int
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book with index %d not found", e.BookIndex)
}

func (e *BookNotFoundError) Is(target error) bool {
	return target == ErrBookNotFound
}

// NewBookNotFoundError creates a new BookNotFoundError
func NewBookNotFoundError(bookIndex int) *BookNotFoundError {
	return &BookNotFoundError{BookIndex: bookIndex}
}

// SessionNotFoundError represents a session not found error with context
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session with ID '%s' not found", e.SessionID)
}

func (e *SessionNotFoundError) Is(target error) bool {
	return target == ErrSessionNotFound
}

// NewSessionNotFoundError creates a new SessionNotFoundError
func NewSessionNotFoundError(sessionID string) *SessionNotFoundError {
	return &SessionNotFoundError{SessionID: sessionID}
}

// ResultNotFoundError represents a result lookup outside the current result set
type ResultNotFoundError struct {
	Index int
	Count int
}

func (e *ResultNotFoundError) Error() string {
	return fmt.Sprintf("result %d not found (%d results available)", e.Index, e.Count)
}

func (e *ResultNotFoundError) Is(target error) bool {
	return target == ErrResultNotFound
}

// NewResultNotFoundError creates a new ResultNotFoundError
func NewResultNotFoundError(index, count int) *ResultNotFoundError {
	return &ResultNotFoundError{Index: index, Count: count}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// LoadError wraps a failure to load generated search data for a book.
// It matches ErrLoadTimeout when the underlying cause was a deadline.
type LoadError struct {
	BookIndex int
	What      string
	Err       error
	Timeout   bool
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s for book %d: %v", e.What, e.BookIndex, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return e.Timeout && target == ErrLoadTimeout
}

// NewLoadError creates a new LoadError
func NewLoadError(bookIndex int, what string, err error, timeout bool) *LoadError {
	return &LoadError{BookIndex: bookIndex, What: what, Err: err, Timeout: timeout}
}
