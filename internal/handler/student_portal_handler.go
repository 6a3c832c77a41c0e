package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// StudentPortalHandler exposes the self-service student endpoints. Identity
// always comes from the token; no student id appears in these routes.
type StudentPortalHandler struct {
	portal *service.StudentService
}

// NewStudentPortalHandler constructs StudentPortalHandler.
func NewStudentPortalHandler(portal *service.StudentService) *StudentPortalHandler {
	return &StudentPortalHandler{portal: portal}
}

// Dashboard godoc
// @Summary Student portal dashboard
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/student/dashboard [get]
func (h *StudentPortalHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.portal.Dashboard(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Batches godoc
// @Summary Enrolled batches
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/student/batches [get]
func (h *StudentPortalHandler) Batches(c *gin.Context) {
	batches, err := h.portal.Batches(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}

// Attendance godoc
// @Summary Own attendance with per-batch summary
// @Tags Student Portal
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /portal/student/attendance [get]
func (h *StudentPortalHandler) Attendance(c *gin.Context) {
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
	records, summaries, err := h.portal.Attendance(c.Request.Context(), actorFromContext(c), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"records": records, "summary": summaries}, nil)
}

// Fees godoc
// @Summary Own fees with summary
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/student/fees [get]
func (h *StudentPortalHandler) Fees(c *gin.Context) {
	fees, summary, err := h.portal.Fees(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"fees": fees, "summary": summary}, nil)
}

// Tests godoc
// @Summary Published tests for enrolled courses
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/student/tests [get]
func (h *StudentPortalHandler) Tests(c *gin.Context) {
	tests, err := h.portal.AvailableTests(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tests, nil)
}

// SubmitTest godoc
// @Summary Submit marks for a test
// @Tags Student Portal
// @Accept json
// @Produce json
// @Param payload body service.SubmitTestRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /portal/student/tests/submit [post]
func (h *StudentPortalHandler) SubmitTest(c *gin.Context) {
	var req service.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.portal.SubmitTest(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Results godoc
// @Summary Own results grouped per course with grade
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/student/results [get]
func (h *StudentPortalHandler) Results(c *gin.Context) {
	results, err := h.portal.Results(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Materials godoc
// @Summary Study materials for enrolled courses
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /portal/student/materials [get]
func (h *StudentPortalHandler) Materials(c *gin.Context) {
	materials, err := h.portal.Materials(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, nil)
}
