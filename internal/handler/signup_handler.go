package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// SignupHandler exposes the public application endpoint and the admin
// review endpoints.
type SignupHandler struct {
	signups *service.SignupService
}

// NewSignupHandler constructs SignupHandler.
func NewSignupHandler(signups *service.SignupService) *SignupHandler {
	return &SignupHandler{signups: signups}
}

// Submit godoc
// @Summary Submit signup request
// @Description Public application for a student or teacher account
// @Tags Signup
// @Accept json
// @Produce json
// @Param payload body service.SubmitSignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /signup [post]
func (h *SignupHandler) Submit(c *gin.Context) {
	var req service.SubmitSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.signups.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List signup requests
// @Tags Signup
// @Produce json
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Success 200 {object} response.Envelope
// @Router /signup-requests [get]
func (h *SignupHandler) List(c *gin.Context) {
	requests, err := h.signups.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get signup request
// @Tags Signup
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /signup-requests/{id} [get]
func (h *SignupHandler) Get(c *gin.Context) {
	request, err := h.signups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve signup request
// @Description Creates the account and profile from the stored request
// @Tags Signup
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.DecideSignupRequest false "Decision note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /signup-requests/{id}/approve [post]
func (h *SignupHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var decision service.DecideSignupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&decision); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	request, err := h.signups.Approve(c.Request.Context(), c.Param("id"), claims.UserID, decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject signup request
// @Tags Signup
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.DecideSignupRequest false "Decision note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /signup-requests/{id}/reject [post]
func (h *SignupHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var decision service.DecideSignupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&decision); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	request, err := h.signups.Reject(c.Request.Context(), c.Param("id"), claims.UserID, decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
