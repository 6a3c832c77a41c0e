package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// TeacherPortalHandler exposes the self-service teacher endpoints.
type TeacherPortalHandler struct {
	portal *service.TeacherService
}

// NewTeacherPortalHandler constructs TeacherPortalHandler.
func NewTeacherPortalHandler(portal *service.TeacherService) *TeacherPortalHandler {
	return &TeacherPortalHandler{portal: portal}
}

// Dashboard godoc
// @Summary Teacher portal dashboard
// @Tags Teacher Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/dashboard [get]
func (h *TeacherPortalHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.portal.Dashboard(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Batches godoc
// @Summary Assigned batches
// @Tags Teacher Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/batches [get]
func (h *TeacherPortalHandler) Batches(c *gin.Context) {
	batches, err := h.portal.Batches(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}

// BatchStudents godoc
// @Summary Roster of an assigned batch
// @Tags Teacher Portal
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/batches/{id}/students [get]
func (h *TeacherPortalHandler) BatchStudents(c *gin.Context) {
	students, err := h.portal.BatchStudents(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// MarkAttendance godoc
// @Summary Mark attendance sheet for a batch
// @Description Re-marking the same date overwrites the previous sheet
// @Tags Teacher Portal
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance sheet"
// @Success 204 {object} response.Envelope
// @Router /portal/teacher/attendance [post]
func (h *TeacherPortalHandler) MarkAttendance(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.portal.MarkAttendance(c.Request.Context(), actorFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Attendance godoc
// @Summary Attendance across assigned batches
// @Tags Teacher Portal
// @Produce json
// @Param batchId query string false "Restrict to one batch"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/attendance [get]
func (h *TeacherPortalHandler) Attendance(c *gin.Context) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.portal.Attendance(c.Request.Context(), actorFromContext(c), c.Query("batchId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Tests godoc
// @Summary Own tests
// @Tags Teacher Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/tests [get]
func (h *TeacherPortalHandler) Tests(c *gin.Context) {
	tests, err := h.portal.Tests(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tests, nil)
}

// CreateTest godoc
// @Summary Create test
// @Tags Teacher Portal
// @Accept json
// @Produce json
// @Param payload body service.TestRequest true "Test payload"
// @Success 201 {object} response.Envelope
// @Router /portal/teacher/tests [post]
func (h *TeacherPortalHandler) CreateTest(c *gin.Context) {
	var req service.TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	test, err := h.portal.CreateTest(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, test)
}

// UpdateTest godoc
// @Summary Update own test
// @Tags Teacher Portal
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body service.TestRequest true "Test payload"
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/tests/{id} [put]
func (h *TeacherPortalHandler) UpdateTest(c *gin.Context) {
	var req service.TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	test, err := h.portal.UpdateTest(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, test, nil)
}

// DeleteTest godoc
// @Summary Delete own test and its results
// @Tags Teacher Portal
// @Produce json
// @Param id path string true "Test ID"
// @Success 204 {object} response.Envelope
// @Router /portal/teacher/tests/{id} [delete]
func (h *TeacherPortalHandler) DeleteTest(c *gin.Context) {
	if err := h.portal.DeleteTest(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TestResults godoc
// @Summary Results of own test
// @Tags Teacher Portal
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/tests/{id}/results [get]
func (h *TeacherPortalHandler) TestResults(c *gin.Context) {
	results, err := h.portal.TestResults(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// UploadResults godoc
// @Summary Upload evaluated scores for own test
// @Description Re-uploading the same sheet overwrites existing rows
// @Tags Teacher Portal
// @Accept json
// @Produce json
// @Param payload body service.UploadResultsRequest true "Results payload"
// @Success 204 {object} response.Envelope
// @Router /portal/teacher/tests/results [post]
func (h *TeacherPortalHandler) UploadResults(c *gin.Context) {
	var req service.UploadResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.portal.UploadResults(c.Request.Context(), actorFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Materials godoc
// @Summary Own study materials
// @Tags Teacher Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/materials [get]
func (h *TeacherPortalHandler) Materials(c *gin.Context) {
	materials, err := h.portal.Materials(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, nil)
}

// CreateMaterial godoc
// @Summary Publish study material
// @Tags Teacher Portal
// @Accept json
// @Produce json
// @Param payload body service.MaterialRequest true "Material payload"
// @Success 201 {object} response.Envelope
// @Router /portal/teacher/materials [post]
func (h *TeacherPortalHandler) CreateMaterial(c *gin.Context) {
	var req service.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	material, err := h.portal.CreateMaterial(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// UpdateMaterial godoc
// @Summary Update own study material
// @Tags Teacher Portal
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body service.MaterialRequest true "Material payload"
// @Success 200 {object} response.Envelope
// @Router /portal/teacher/materials/{id} [put]
func (h *TeacherPortalHandler) UpdateMaterial(c *gin.Context) {
	var req service.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	material, err := h.portal.UpdateMaterial(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material, nil)
}

// DeleteMaterial godoc
// @Summary Delete own study material
// @Tags Teacher Portal
// @Produce json
// @Param id path string true "Material ID"
// @Success 204 {object} response.Envelope
// @Router /portal/teacher/materials/{id} [delete]
func (h *TeacherPortalHandler) DeleteMaterial(c *gin.Context) {
	if err := h.portal.DeleteMaterial(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentPerformance godoc
// @Summary Performance of a student sharing a batch
// @Tags Teacher Portal
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /portal/teacher/students/{id}/performance [get]
func (h *TeacherPortalHandler) StudentPerformance(c *gin.Context) {
	performance, err := h.portal.Performance(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, performance, nil)
}
