package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// FeeHandler exposes fee management endpoints. Students reach the read
// endpoints scoped to their own records; mutations are admin-only.
type FeeHandler struct {
	fees *service.FeeService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees *service.FeeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// List godoc
// @Summary List fees
// @Tags Fees
// @Produce json
// @Param status query string false "Filter by payment status"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	fees, err := h.fees.List(c.Request.Context(), actorFromContext(c), models.PaymentStatus(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, nil)
}

// Get godoc
// @Summary Get fee detail
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	fee, err := h.fees.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Create godoc
// @Summary Create fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.FeeRequest true "Fee payload"
// @Success 201 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var req service.FeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// Update godoc
// @Summary Update fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body service.FeeRequest true "Fee payload"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [put]
func (h *FeeHandler) Update(c *gin.Context) {
	var req service.FeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Delete godoc
// @Summary Delete fee record
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 204 {object} response.Envelope
// @Router /fees/{id} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	if err := h.fees.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordPayment godoc
// @Summary Record out-of-band payment
// @Description Applies a cash, cheque, or transfer payment against the fee
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/{id}/payments [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.RecordPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// StudentSummary godoc
// @Summary Fee summary for a student
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/fee-summary [get]
func (h *FeeHandler) StudentSummary(c *gin.Context) {
	summary, err := h.fees.StudentSummary(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// MarkOverdue godoc
// @Summary Mark past-due fees overdue
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/fees/mark-overdue [post]
func (h *FeeHandler) MarkOverdue(c *gin.Context) {
	updated, err := h.fees.MarkOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": updated}, nil)
}
