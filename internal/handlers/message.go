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
	"meetup-service/internal/notify"
	"meetup-service/internal/repositories"
)

// MessageHandler manages conversation endpoints.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	notifRepo   repositories.NotificationRepository
	hub         *notify.Hub
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, notifRepo repositories.NotificationRepository, hub *notify.Hub) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		notifRepo:   notifRepo,
		hub:         hub,
	}
}

// Post stores a message in the listing conversation and records a
// notification for the recipient.
func (h *MessageHandler) Post(c *gin.Context) {
	var req struct {
		ListingID   int    `json:"listing_id" binding:"required"`
		RecipientID int    `json:"recipient_id" binding:"required"`
		Content     string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messageRepo.Create(c.Request.Context(), req.ListingID, userID, c.GetString("username"), req.RecipientID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "content cannot be empty"})
		case errors.Is(err, repositories.ErrInvalidTarget):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	if _, err := h.notifRepo.Create(c.Request.Context(), req.RecipientID, models.NotificationMessage,
		fmt.Sprintf("New message from %s", msg.SenderUsername)); err != nil {
		log.Warn().Err(err).Int("recipient_id", req.RecipientID).Msg("message notification failed")
	}

	h.publishUnread(c.Request.Context(), req.RecipientID)
	c.JSON(http.StatusCreated, msg)
}

// GetConversation returns the thread for one listing and counterparty,
// ascending, filtered by the caller's visibility.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	listingID, otherUserID, ok := parseThreadIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msgs, err := h.messageRepo.ListConversation(c.Request.Context(), listingID, userID, otherUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead marks the thread's inbound messages read for the caller.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	listingID, otherUserID, ok := parseThreadIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.messageRepo.MarkRead(c.Request.Context(), listingID, userID, otherUserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	h.publishUnread(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "messages marked read"})
}

// DeleteMessage soft deletes a message for both parties. Sender only.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messageRepo.Get(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can delete a message"})
		return
	}

	if err := h.messageRepo.SoftDelete(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	// Deleting an unread message shrinks the recipient's unread count.
	h.publishUnread(c.Request.Context(), msg.RecipientID)
	c.Status(http.StatusNoContent)
}

// DeleteChat buries the whole thread for the caller only.
func (h *MessageHandler) DeleteChat(c *gin.Context) {
	listingID, otherUserID, ok := parseThreadIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.messageRepo.ClearConversation(c.Request.Context(), listingID, userID, otherUserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete chat"})
		return
	}

	h.publishUnread(c.Request.Context(), userID)
	c.Status(http.StatusNoContent)
}

// ListChats returns the caller's chat-list feed by recency.
func (h *MessageHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")
	chats, err := h.messageRepo.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// UnreadCount returns the caller's polled unread snapshot.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID := c.GetInt("userID")
	snapshot, err := h.messageRepo.UnreadSnapshot(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread count"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// publishUnread feeds the user's fresh snapshot into the in-process change
// feed. Best effort; the polling endpoints remain the source of truth.
func (h *MessageHandler) publishUnread(ctx context.Context, userID int) {
	if h.hub == nil {
		return
	}
	snapshot, err := h.messageRepo.UnreadSnapshot(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int("user_id", userID).Msg("unread snapshot failed")
		return
	}
	h.hub.Publish(notify.UnreadEvent{UserID: userID, Snapshot: snapshot})
}

func parseThreadIDs(c *gin.Context) (int, int, bool) {
	listingID, err := strconv.Atoi(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return 0, 0, false
	}
	otherUserID, err := strconv.Atoi(c.Param("other_user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, 0, false
	}
	return listingID, otherUserID, true
}
