package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meetup-service/internal/models"
	"meetup-service/internal/repositories"
)

// NotificationHandler manages stored notification endpoints.
type NotificationHandler struct {
	notifRepo repositories.NotificationRepository
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(notifRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifRepo: notifRepo}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetInt("userID")
	notifs, err := h.notifRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}
	if notifs == nil {
		notifs = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifs})
}

// MarkRead marks the caller's notification read. Idempotent.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notifID, ok := parseNotificationID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.notifRepo.MarkRead(c.Request.Context(), notifID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notification read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked read"})
}

// Delete removes the caller's notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	notifID, ok := parseNotificationID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.notifRepo.Delete(c.Request.Context(), notifID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseNotificationID(c *gin.Context) (int, bool) {
	notifID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return 0, false
	}
	return notifID, true
}
