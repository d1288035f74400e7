package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/service"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
	"github.com/skooldesk/skooldesk-api/pkg/response"
)

// ResultHandler exposes result CRUD and export endpoints.
type ResultHandler struct {
	service *service.ResultService
}

// NewResultHandler constructs a result handler.
func NewResultHandler(svc *service.ResultService) *ResultHandler {
	return &ResultHandler{service: svc}
}

func resultFilterFromQuery(c *gin.Context) models.ResultFilter {
	return models.ResultFilter{
		Search:       searchFromQuery(c),
		StudentID:    c.Query("student_id"),
		ExamID:       c.Query("exam_id"),
		AssignmentID: c.Query("assignment_id"),
		PageRequest:  pageRequestFromQuery(c),
	}
}

// List returns the results visible to the caller. When a search term was
// applied after the fetch, meta carries the raw and filtered row counts.
func (h *ResultHandler) List(c *gin.Context) {
	results, pagination, outcome, err := h.service.List(c.Request.Context(), actorFromContext(c), resultFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if outcome != nil {
		meta = map[string]interface{}{
			"raw_count":      outcome.RawCount,
			"filtered_count": outcome.FilteredCount,
		}
	}
	response.JSON(c, http.StatusOK, results, pagination, meta)
}

// Get returns one result.
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export downloads the caller's visible results as CSV or PDF.
func (h *ResultHandler) Export(c *gin.Context) {
	dataset, err := h.service.Export(c.Request.Context(), actorFromContext(c), resultFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	renderExport(c, dataset, "results")
}

// Create records a score.
func (h *ResultHandler) Create(c *gin.Context) {
	var req service.ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update modifies a result.
func (h *ResultHandler) Update(c *gin.Context) {
	var req service.ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete removes a result.
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
