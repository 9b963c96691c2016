package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meetup-service/internal/mocks"
	"meetup-service/internal/models"
	"meetup-service/internal/notify"
	"meetup-service/internal/repositories"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("username", "alice")
		c.Next()
	})
	r.POST("/messages", handler.Post)
	r.GET("/messages/:listing_id/:other_user_id", handler.GetConversation)
	r.POST("/messages/mark-read/:listing_id/:other_user_id", handler.MarkRead)
	r.DELETE("/messages/:id", handler.DeleteMessage)
	r.GET("/chats", handler.ListChats)
	r.GET("/chats/unread-count", handler.UnreadCount)
	r.DELETE("/chats/:listing_id/:other_user_id", handler.DeleteChat)
	return r
}

func TestPostMessageSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	notifRepo := new(mocks.NotificationRepositoryMock)
	hub := notify.NewHub()
	handler := NewMessageHandler(messageRepo, notifRepo, hub)
	router := setupMessageRouter(handler)

	stored := models.Message{ID: 9, ListingID: 7, SenderID: 1, SenderUsername: "alice", RecipientID: 2, Content: "hi"}
	messageRepo.On("Create", mock.Anything, 7, 1, "alice", 2, "hi").Return(stored, nil).Once()
	notifRepo.On("Create", mock.Anything, 2, models.NotificationMessage, "New message from alice").
		Return(models.Notification{}, nil).Once()
	messageRepo.On("UnreadSnapshot", mock.Anything, 2).
		Return(models.UnreadSnapshot{UnreadCount: 1, LatestUnread: &models.LatestUnread{ListingID: 7, SenderID: 1}}, nil).Once()

	feed := hub.Subscribe()
	defer hub.Unsubscribe(feed)

	body := bytes.NewBufferString(`{"listing_id":7,"recipient_id":2,"content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	select {
	case event := <-feed:
		assert.Equal(t, 2, event.UserID)
		assert.Equal(t, 1, event.Snapshot.UnreadCount)
	default:
		t.Fatal("expected an unread event on the change feed")
	}
	messageRepo.AssertExpectations(t)
	notifRepo.AssertExpectations(t)
}

func TestPostMessageBlankContent(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), nil)
	router := setupMessageRouter(handler)

	messageRepo.On("Create", mock.Anything, 7, 1, "alice", 2, "   ").
		Return(models.Message{}, repositories.ErrEmptyContent).Once()

	body := bytes.NewBufferString(`{"listing_id":7,"recipient_id":2,"content":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPostMessageToSelf(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), nil)
	router := setupMessageRouter(handler)

	messageRepo.On("Create", mock.Anything, 7, 1, "alice", 1, "hi").
		Return(models.Message{}, repositories.ErrInvalidTarget).Once()

	body := bytes.NewBufferString(`{"listing_id":7,"recipient_id":1,"content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestGetConversation(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), nil)
	router := setupMessageRouter(handler)

	messageRepo.On("ListConversation", mock.Anything, 7, 1, 2).
		Return([]models.Message{{ID: 1, Content: "hey"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/7/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkReadPublishesFreshSnapshot(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := notify.NewHub()
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), hub)
	router := setupMessageRouter(handler)

	messageRepo.On("MarkRead", mock.Anything, 7, 1, 2).Return(nil).Once()
	messageRepo.On("UnreadSnapshot", mock.Anything, 1).
		Return(models.UnreadSnapshot{UnreadCount: 0}, nil).Once()

	feed := hub.Subscribe()
	defer hub.Unsubscribe(feed)

	req := httptest.NewRequest(http.MethodPost, "/messages/mark-read/7/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	select {
	case event := <-feed:
		assert.Equal(t, 1, event.UserID)
		assert.Zero(t, event.Snapshot.UnreadCount)
	default:
		t.Fatal("expected an unread event on the change feed")
	}
	messageRepo.AssertExpectations(t)
}

func TestDeleteMessageNotSender(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), nil)
	router := setupMessageRouter(handler)

	messageRepo.On("Get", mock.Anything, 9).
		Return(models.Message{ID: 9, SenderID: 2, RecipientID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
	messageRepo.AssertExpectations(t)
}

func TestDeleteMessageSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := notify.NewHub()
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), hub)
	router := setupMessageRouter(handler)

	messageRepo.On("Get", mock.Anything, 9).
		Return(models.Message{ID: 9, SenderID: 1, RecipientID: 2}, nil).Once()
	messageRepo.On("SoftDelete", mock.Anything, 9, 1).Return(nil).Once()
	messageRepo.On("UnreadSnapshot", mock.Anything, 2).
		Return(models.UnreadSnapshot{UnreadCount: 0}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestDeleteChatIsViewerScoped(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := notify.NewHub()
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), hub)
	router := setupMessageRouter(handler)

	messageRepo.On("ClearConversation", mock.Anything, 7, 1, 2).Return(nil).Once()
	messageRepo.On("UnreadSnapshot", mock.Anything, 1).
		Return(models.UnreadSnapshot{UnreadCount: 0}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/7/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestListChats(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), nil)
	router := setupMessageRouter(handler)

	messageRepo.On("ListChats", mock.Anything, 1).
		Return([]models.ChatSummary{{ListingID: 7, OtherUserID: 2, UnreadCount: 3}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestUnreadCountSnapshot(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, new(mocks.NotificationRepositoryMock), nil)
	router := setupMessageRouter(handler)

	messageRepo.On("UnreadSnapshot", mock.Anything, 1).
		Return(models.UnreadSnapshot{UnreadCount: 4, LatestUnread: &models.LatestUnread{ListingID: 7, SenderID: 2}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot models.UnreadSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	require.Equal(t, 4, snapshot.UnreadCount)
	require.NotNil(t, snapshot.LatestUnread)
	require.Equal(t, 7, snapshot.LatestUnread.ListingID)
	messageRepo.AssertExpectations(t)
}
