package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// PaymentHandler exposes the gateway-backed payment flow.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateOrder godoc
// @Summary Open payment order
// @Description Creates a gateway order for the outstanding balance of a fee
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CreateOrderRequest true "Order payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/orders [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	order, err := h.payments.CreateOrder(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// Confirm godoc
// @Summary Confirm payment
// @Description Verifies the gateway signature and settles the fee
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.ConfirmRequest true "Confirmation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req service.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.payments.Confirm(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}
