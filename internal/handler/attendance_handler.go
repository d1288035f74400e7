package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/service"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
	"github.com/skooldesk/skooldesk-api/pkg/response"
)

// AttendanceHandler exposes attendance CRUD and export endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

func attendanceFilterFromQuery(c *gin.Context) models.AttendanceFilter {
	filter := models.AttendanceFilter{
		Search:      searchFromQuery(c),
		StudentID:   c.Query("student_id"),
		LessonID:    c.Query("lesson_id"),
		ClassID:     c.Query("class_id"),
		PageRequest: pageRequestFromQuery(c),
	}
	if raw := c.Query("present"); raw != "" {
		if present, err := strconv.ParseBool(raw); err == nil {
			filter.Present = &present
		}
	}
	return filter
}

// List returns the attendance records visible to the caller.
func (h *AttendanceHandler) List(c *gin.Context) {
	attendances, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), attendanceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attendances, pagination)
}

// Get returns one attendance record.
func (h *AttendanceHandler) Get(c *gin.Context) {
	attendance, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attendance, nil)
}

// Export downloads the caller's visible attendance records as CSV or PDF.
func (h *AttendanceHandler) Export(c *gin.Context) {
	dataset, err := h.service.Export(c.Request.Context(), actorFromContext(c), attendanceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	renderExport(c, dataset, "attendances")
}

// Create records presence.
func (h *AttendanceHandler) Create(c *gin.Context) {
	var req service.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attendance, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attendance)
}

// Update modifies an attendance record.
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attendance, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attendance, nil)
}

// Delete removes an attendance record.
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
