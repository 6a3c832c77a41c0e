package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/service"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/response"
)

// NotificationHandler exposes broadcast endpoints and the public contact
// inquiry form.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary List notifications
// @Description Admins see every broadcast including expired and inactive; other roles see the active feed for their audience
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.Role == models.RoleAdmin {
		notifications, err := h.notifications.ListAll(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, notifications, nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.notifications.ListForRole(c.Request.Context(), claims.Role, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// Get godoc
// @Summary Get notification
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id} [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	notification, err := h.notifications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notification, nil)
}

// Create godoc
// @Summary Create notification
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body service.NotificationRequest true "Notification payload"
// @Success 201 {object} response.Envelope
// @Router /notifications [post]
func (h *NotificationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	notification, err := h.notifications.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notification)
}

// Update godoc
// @Summary Update notification
// @Tags Notifications
// @Accept json
// @Produce json
// @Param id path string true "Notification ID"
// @Param payload body service.NotificationRequest true "Notification payload"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id} [put]
func (h *NotificationHandler) Update(c *gin.Context) {
	var req service.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	notification, err := h.notifications.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notification, nil)
}

// Delete godoc
// @Summary Delete notification
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Contact godoc
// @Summary Submit contact inquiry
// @Description Public form; the inquiry is queued and surfaces as an admin notification
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body service.ContactRequest true "Inquiry payload"
// @Success 202 {object} response.Envelope
// @Router /contact [post]
func (h *NotificationHandler) Contact(c *gin.Context) {
	var req service.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.notifications.SubmitContact(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "thank you for reaching out, we will get back to you"}, nil)
}
