package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// BatchHandler exposes batch and enrollment endpoints.
type BatchHandler struct {
	batches *service.BatchService
}

// NewBatchHandler constructs BatchHandler.
func NewBatchHandler(batches *service.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// List godoc
// @Summary List batches
// @Tags Batches
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param teacherId query string false "Filter by teacher"
// @Param search query string false "Search by name or code"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	var filter models.BatchFilter
	filter.CourseID = c.Query("courseId")
	filter.TeacherID = c.Query("teacherId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	batches, pagination, err := h.batches.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, pagination)
}

// Get godoc
// @Summary Get batch detail
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Create godoc
// @Summary Create batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body service.BatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req service.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Update godoc
// @Summary Update batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body service.BatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /batches/{id} [put]
func (h *BatchHandler) Update(c *gin.Context) {
	var req service.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	batch, err := h.batches.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Delete godoc
// @Summary Delete batch
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 204 {object} response.Envelope
// @Router /batches/{id} [delete]
func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.batches.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Students godoc
// @Summary List enrolled students
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/students [get]
func (h *BatchHandler) Students(c *gin.Context) {
	students, err := h.batches.ListStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Enroll godoc
// @Summary Enroll student into batch
// @Description Rejects duplicates, full batches, and timing clashes with the student's other batches
// @Tags Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body object true "Student reference"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /batches/{id}/students [post]
func (h *BatchHandler) Enroll(c *gin.Context) {
	var payload struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id required"))
		return
	}
	if err := h.batches.Enroll(c.Request.Context(), c.Param("id"), payload.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"batch_id": c.Param("id"), "student_id": payload.StudentID}, nil)
}

// Unenroll godoc
// @Summary Remove student from batch
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Router /batches/{id}/students/{studentId} [delete]
func (h *BatchHandler) Unenroll(c *gin.Context) {
	if err := h.batches.Unenroll(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
