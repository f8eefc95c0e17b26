// Package api provides the HTTP interface of the help search service.
package api

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/services"
)

const (
	maxQueryLength = 1024
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateID validates a session or job ID path parameter
func ValidateID(field, id string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if id == "" {
		result.AddError(field, "ID is required")
		return result
	}
	if _, err := uuid.Parse(id); err != nil {
		result.AddError(field, "ID must be a UUID")
	}
	return result
}

// ValidateQueryRequest validates a query submission
func ValidateQueryRequest(req *services.QueryRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if strings.TrimSpace(req.Query) == "" {
		result.AddError("query", "Query cannot be empty or whitespace-only")
	}
	if len(req.Query) > maxQueryLength {
		result.AddError("query", fmt.Sprintf("Query cannot be longer than %d bytes", maxQueryLength))
	}
	return result
}

// ValidateAddBookRequest validates a book build request
func ValidateAddBookRequest(req *services.AddBookRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}
	book := req.Book

	if strings.TrimSpace(book.Title) == "" {
		result.AddError("book.title", "Book title is required")
	}

	dir := strings.Trim(book.Directory, "/")
	switch {
	case dir == "":
		result.AddError("book.directory", "Book directory is required")
	case path.IsAbs(book.Directory) || strings.Contains(dir, ".."):
		result.AddError("book.directory", "Book directory must be a relative path inside the help set")
	}

	if len(book.Files) == 0 {
		result.AddError("book.files", "No files provided")
	}
	for i, f := range book.Files {
		if strings.TrimSpace(f.URL) == "" {
			result.AddError(fmt.Sprintf("book.files[%d].url", i), "File URL cannot be empty")
		}
	}

	for _, problem := range req.Settings.Validate() {
		result.AddError("settings", problem)
	}
	return result
}

// ValidateBookGroups validates a book group tree
func ValidateBookGroups(groups []model.BookGroup) *ValidationResult {
	result := &ValidationResult{Valid: true}
	validateGroups(result, "groups", groups)
	return result
}

func validateGroups(result *ValidationResult, prefix string, groups []model.BookGroup) {
	for i, g := range groups {
		field := fmt.Sprintf("%s[%d]", prefix, i)
		if strings.TrimSpace(g.Title) == "" {
			result.AddError(field+".title", "Group title is required")
		}
		validateGroups(result, field+".groups", g.Groups)
	}
}

// ValidatePagination validates pagination parameters
func ValidatePagination(page, pageSize int) (int, int, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	// Set defaults
	if page <= 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPerPage
	}
	if pageSize > maxPerPage {
		pageSize = maxPerPage
	}

	return page, pageSize, result
}

// ValidateResultIndex parses a result index path parameter
func ValidateResultIndex(raw string) (int, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	index, err := strconv.Atoi(raw)
	if err != nil {
		result.AddError("index", "Result index must be an integer")
		return 0, result
	}
	if index < 0 {
		result.AddError("index", "Result index cannot be negative")
	}
	return index, result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding validates JSON binding and returns a standardized error
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}
