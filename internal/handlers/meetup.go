package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"meetup-service/internal/models"
	"meetup-service/internal/observability"
	"meetup-service/internal/rabbitmq"
	"meetup-service/internal/repositories"
)

// MeetupHandler manages the meetup lifecycle endpoints.
type MeetupHandler struct {
	meetupRepo repositories.MeetupRepository
	notifRepo  repositories.NotificationRepository
	publisher  rabbitmq.Publisher
}

// NewMeetupHandler builds a MeetupHandler.
func NewMeetupHandler(meetupRepo repositories.MeetupRepository, notifRepo repositories.NotificationRepository, publisher rabbitmq.Publisher) *MeetupHandler {
	return &MeetupHandler{
		meetupRepo: meetupRepo,
		notifRepo:  notifRepo,
		publisher:  publisher,
	}
}

// Create opens a pending meetup request against a listing.
func (h *MeetupHandler) Create(c *gin.Context) {
	var req struct {
		ListingID        int     `json:"listing_id" binding:"required"`
		ReceiverID       int     `json:"receiver_id" binding:"required"`
		ReceiverUsername string  `json:"receiver_username"`
		Location         *string `json:"location"`
		Notes            *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	meetup, err := h.meetupRepo.Create(c.Request.Context(), repositories.CreateMeetupParams{
		ListingID:         req.ListingID,
		RequesterID:       userID,
		RequesterUsername: c.GetString("username"),
		ReceiverID:        req.ReceiverID,
		ReceiverUsername:  req.ReceiverUsername,
		Location:          req.Location,
		Notes:             req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInvalidTarget):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot request a meetup with yourself"})
		case errors.Is(err, repositories.ErrDuplicateActive):
			c.JSON(http.StatusConflict, gin.H{"error": "an active meetup already exists for this listing"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create meetup"})
		}
		return
	}

	h.notifyCounterparty(c.Request.Context(), meetup, userID,
		fmt.Sprintf("New meetup request from %s", meetup.RequesterUsername))
	h.publishTransition(c, "requested", meetup)
	c.JSON(http.StatusCreated, meetup)
}

// List returns the caller's meetups, newest first.
func (h *MeetupHandler) List(c *gin.Context) {
	userID := c.GetInt("userID")
	meetups, err := h.meetupRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load meetups"})
		return
	}
	if meetups == nil {
		meetups = []models.Meetup{}
	}
	c.JSON(http.StatusOK, gin.H{"meetups": meetups})
}

// Accept moves a pending meetup to accepted and hands the caller its own
// verification code. The counterparty's code is never exposed.
func (h *MeetupHandler) Accept(c *gin.Context) {
	meetupID, ok := parseMeetupID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	meetup, err := h.meetupRepo.Accept(c.Request.Context(), meetupID, userID)
	if err != nil {
		respondMeetupError(c, err)
		return
	}

	h.notifyCounterparty(c.Request.Context(), meetup, userID,
		fmt.Sprintf("%s accepted your meetup request", meetup.ReceiverUsername))
	h.publishTransition(c, "accepted", meetup)
	c.JSON(http.StatusOK, gin.H{"your_code": meetup.CodeFor(userID)})
}

// Reject declines a pending meetup.
func (h *MeetupHandler) Reject(c *gin.Context) {
	meetupID, ok := parseMeetupID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	meetup, err := h.meetupRepo.Reject(c.Request.Context(), meetupID, userID)
	if err != nil {
		respondMeetupError(c, err)
		return
	}

	h.notifyCounterparty(c.Request.Context(), meetup, userID,
		fmt.Sprintf("%s declined your meetup request", meetup.ReceiverUsername))
	h.publishTransition(c, "rejected", meetup)
	c.JSON(http.StatusOK, gin.H{"message": "meetup rejected"})
}

// Verify submits the counterparty's code. The response is deliberately
// uniform; it never reveals whose flag flipped or whether both are set.
func (h *MeetupHandler) Verify(c *gin.Context) {
	meetupID, ok := parseMeetupID(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	meetup, err := h.meetupRepo.Verify(c.Request.Context(), meetupID, userID, req.Code)
	if err != nil {
		respondMeetupError(c, err)
		return
	}

	if meetup.Status == models.MeetupVerified {
		h.publishTransition(c, "verified", meetup)
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification recorded"})
}

// Complete closes a verified meetup and tells the caller whom to rate.
// Completing an already-completed meetup succeeds again with the same prompt.
func (h *MeetupHandler) Complete(c *gin.Context) {
	meetupID, ok := parseMeetupID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	meetup, err := h.meetupRepo.Complete(c.Request.Context(), meetupID, userID)
	if err != nil {
		respondMeetupError(c, err)
		return
	}

	otherID, otherUsername := meetup.Counterparty(userID)
	h.notifyCounterparty(c.Request.Context(), meetup, userID, "Your meetup was completed")
	h.publishTransition(c, "completed", meetup)
	c.JSON(http.StatusOK, models.RatingPrompt{
		RateUserID:   otherID,
		RateUsername: otherUsername,
		ListingID:    meetup.ListingID,
	})
}

// Cancel abandons a meetup before completion. Either party may cancel.
func (h *MeetupHandler) Cancel(c *gin.Context) {
	meetupID, ok := parseMeetupID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	meetup, err := h.meetupRepo.Cancel(c.Request.Context(), meetupID, userID)
	if err != nil {
		respondMeetupError(c, err)
		return
	}

	h.notifyCounterparty(c.Request.Context(), meetup, userID, "Your meetup was cancelled")
	h.publishTransition(c, "cancelled", meetup)
	c.JSON(http.StatusOK, gin.H{"message": "meetup cancelled"})
}

func (h *MeetupHandler) notifyCounterparty(ctx context.Context, meetup models.Meetup, actorID int, content string) {
	otherID, _ := meetup.Counterparty(actorID)
	if _, err := h.notifRepo.Create(ctx, otherID, models.NotificationMeetup, content); err != nil {
		log.Warn().Err(err).Int("meetup_id", meetup.ID).Msg("meetup notification failed")
	}
}

func (h *MeetupHandler) publishTransition(c *gin.Context, name string, meetup models.Meetup) {
	envelope := observability.EventEnvelope{
		EventType: "meetup_events",
		EventName: name,
		Payload:   meetup,
	}
	headers := observability.BuildHeaders(requestIDFromContext(c), traceIDFromContext(c))
	if err := h.publisher.Publish(c.Request.Context(), "meetups."+name, envelope, headers); err != nil {
		log.Warn().Err(err).Int("meetup_id", meetup.ID).Str("event", name).Msg("meetup event publish failed")
	}
	observability.IncMeetupTransition(meetup.Status)
}

func parseMeetupID(c *gin.Context) (int, bool) {
	meetupID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meetup id"})
		return 0, false
	}
	return meetupID, true
}

func respondMeetupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrMeetupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "meetup not found"})
	case errors.Is(err, repositories.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, repositories.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "meetup is not in a valid state for this action"})
	case errors.Is(err, repositories.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "meetup update failed"})
	}
}
