package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-help-search/model"
	"github.com/gcbaptista/go-help-search/services"
)

// ListBooksHandler lists the books of the help set.
func (api *API) ListBooksHandler(c *gin.Context) {
	books := api.engine.Books()
	summaries := make([]gin.H, len(books))
	for i, b := range books {
		summaries[i] = gin.H{
			"index":      b.Index,
			"title":      b.Title,
			"directory":  b.Directory,
			"file_count": b.FileCount(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"books": summaries,
		"total": len(books),
	})
}

// AddBookHandler generates a book's search data in the background.
// Request Body: services.AddBookRequest
func (api *API) AddBookHandler(c *gin.Context) {
	var req services.AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if validation := ValidateAddBookRequest(&req); validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	jobID, err := api.engine.AddBookAsync(req.Book, req.Settings)
	if err != nil {
		SendJobExecutionError(c, "book build", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Book build started for '" + req.Book.Title + "'",
		"job_id":  jobID,
	})
}

// GetScopesHandler returns the flattened search scope list.
func (api *API) GetScopesHandler(c *gin.Context) {
	entries := api.engine.Scope().Entries()
	c.JSON(http.StatusOK, gin.H{
		"scopes": entries,
		"total":  len(entries),
	})
}

// SetGroupsHandler replaces the book group tree.
// Request Body: {"groups": [model.BookGroup]}
func (api *API) SetGroupsHandler(c *gin.Context) {
	var req struct {
		Groups []model.BookGroup `json:"groups"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if validation := ValidateBookGroups(req.Groups); validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	if err := api.engine.SetGroups(req.Groups); err != nil {
		SendEngineError(c, "set book groups", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Book groups updated",
		"scopes":  api.engine.Scope().Entries(),
	})
}
