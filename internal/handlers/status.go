package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"meetup-service/internal/models"
	"meetup-service/internal/repositories"
)

// StatusHandler exposes derived online presence.
type StatusHandler struct {
	presenceRepo repositories.PresenceRepository
	onlineWindow time.Duration
}

// NewStatusHandler builds a StatusHandler.
func NewStatusHandler(presenceRepo repositories.PresenceRepository, onlineWindow time.Duration) *StatusHandler {
	return &StatusHandler{presenceRepo: presenceRepo, onlineWindow: onlineWindow}
}

// Get reports whether a user is online. A user nobody has seen yet is simply
// offline with no last_seen, not an error.
func (h *StatusHandler) Get(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	rec, err := h.presenceRepo.Get(c.Request.Context(), userID)
	if errors.Is(err, repositories.ErrPresenceNotFound) {
		c.JSON(http.StatusOK, models.PresenceStatus{UserID: userID})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}

	lastSeen := rec.LastSeen
	c.JSON(http.StatusOK, models.PresenceStatus{
		UserID:   userID,
		IsOnline: time.Since(lastSeen) <= h.onlineWindow,
		LastSeen: &lastSeen,
	})
}
