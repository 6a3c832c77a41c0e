package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// DashboardHandler exposes the admin dashboard and report endpoints.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be YYYY-MM-DD", key))
	}
	return &ts, nil
}

// Stats godoc
// @Summary Institute-wide counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// AttendanceReport godoc
// @Summary Per-student attendance summary
// @Tags Dashboard
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *DashboardHandler) AttendanceReport(c *gin.Context) {
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
	report, err := h.dashboard.AttendanceReport(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// FeeReport godoc
// @Summary Fee collection summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/fees [get]
func (h *DashboardHandler) FeeReport(c *gin.Context) {
	report, err := h.dashboard.FeeReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// MarksReport godoc
// @Summary Test marks summary per test
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/marks [get]
func (h *DashboardHandler) MarksReport(c *gin.Context) {
	rows, err := h.dashboard.MarksReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ExportMarksReport godoc
// @Summary Download marks report
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /reports/marks/export [get]
func (h *DashboardHandler) ExportMarksReport(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.dashboard.ExportMarksReport(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("marks-report-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// ExportAttendanceReport godoc
// @Summary Download attendance report
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /reports/attendance/export [get]
func (h *DashboardHandler) ExportAttendanceReport(c *gin.Context) {
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
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.dashboard.ExportAttendanceReport(c.Request.Context(), from, to, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("attendance-report-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// ExportFeeReport godoc
// @Summary Download fee report
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /reports/fees/export [get]
func (h *DashboardHandler) ExportFeeReport(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.dashboard.ExportFeeReport(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("fee-report-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
