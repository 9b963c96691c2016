package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meetup-service/internal/mocks"
	"meetup-service/internal/models"
	"meetup-service/internal/repositories"
)

func setupMeetupRouter(handler *MeetupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("username", "alice")
		c.Next()
	})
	r.POST("/meetups", handler.Create)
	r.GET("/meetups", handler.List)
	r.PUT("/meetups/:id/accept", handler.Accept)
	r.PUT("/meetups/:id/reject", handler.Reject)
	r.POST("/meetups/:id/verify", handler.Verify)
	r.POST("/meetups/:id/complete", handler.Complete)
	r.DELETE("/meetups/:id", handler.Cancel)
	return r
}

func TestCreateMeetupSuccess(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	notifRepo := new(mocks.NotificationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	handler := NewMeetupHandler(meetupRepo, notifRepo, publisher)
	router := setupMeetupRouter(handler)

	created := models.Meetup{
		ID: 5, ListingID: 7, RequesterID: 1, RequesterUsername: "alice",
		ReceiverID: 2, ReceiverUsername: "bob", Status: models.MeetupPending,
	}
	meetupRepo.On("Create", mock.Anything, repositories.CreateMeetupParams{
		ListingID: 7, RequesterID: 1, RequesterUsername: "alice",
		ReceiverID: 2, ReceiverUsername: "bob",
	}).Return(created, nil).Once()
	notifRepo.On("Create", mock.Anything, 2, models.NotificationMeetup, "New meetup request from alice").
		Return(models.Notification{}, nil).Once()
	publisher.On("Publish", mock.Anything, "meetups.requested", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"listing_id":7,"receiver_id":2,"receiver_username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/meetups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	meetupRepo.AssertExpectations(t)
	notifRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCreateMeetupDuplicateActive(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("Create", mock.Anything, mock.Anything).
		Return(models.Meetup{}, repositories.ErrDuplicateActive).Once()

	body := bytes.NewBufferString(`{"listing_id":7,"receiver_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/meetups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	meetupRepo.AssertExpectations(t)
}

func TestCreateMeetupSelfTarget(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("Create", mock.Anything, mock.Anything).
		Return(models.Meetup{}, repositories.ErrInvalidTarget).Once()

	body := bytes.NewBufferString(`{"listing_id":7,"receiver_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/meetups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	meetupRepo.AssertExpectations(t)
}

func TestListMeetups(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("ListForUser", mock.Anything, 1).
		Return([]models.Meetup{{ID: 3, Status: models.MeetupPending}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/meetups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	meetupRepo.AssertExpectations(t)
}

func TestAcceptMeetupReturnsOwnCode(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	notifRepo := new(mocks.NotificationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	handler := NewMeetupHandler(meetupRepo, notifRepo, publisher)
	router := setupMeetupRouter(handler)

	requesterCode := "QQQ777"
	receiverCode := "ABC234"
	accepted := models.Meetup{
		ID: 5, ListingID: 7, RequesterID: 2, RequesterUsername: "bob",
		ReceiverID: 1, ReceiverUsername: "alice", Status: models.MeetupAccepted,
		RequesterCode: &requesterCode, ReceiverCode: &receiverCode,
	}
	meetupRepo.On("Accept", mock.Anything, 5, 1).Return(accepted, nil).Once()
	notifRepo.On("Create", mock.Anything, 2, models.NotificationMeetup, mock.Anything).
		Return(models.Notification{}, nil).Once()
	publisher.On("Publish", mock.Anything, "meetups.accepted", mock.Anything, mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/meetups/5/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, receiverCode, resp["your_code"])
	meetupRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestAcceptMeetupForbidden(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("Accept", mock.Anything, 5, 1).
		Return(models.Meetup{}, repositories.ErrForbidden).Once()

	req := httptest.NewRequest(http.MethodPut, "/meetups/5/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	meetupRepo.AssertExpectations(t)
}

func TestRejectMeetupInvalidState(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("Reject", mock.Anything, 5, 1).
		Return(models.Meetup{}, repositories.ErrInvalidState).Once()

	req := httptest.NewRequest(http.MethodPut, "/meetups/5/reject", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	meetupRepo.AssertExpectations(t)
}

func TestVerifyFirstPartyGenericResponse(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	publisher := new(mocks.PublisherMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), publisher)
	router := setupMeetupRouter(handler)

	partial := models.Meetup{
		ID: 5, RequesterID: 1, ReceiverID: 2,
		Status: models.MeetupAccepted, RequesterVerified: true,
	}
	meetupRepo.On("Verify", mock.Anything, 5, 1, "ABC234").Return(partial, nil).Once()

	body := bytes.NewBufferString(`{"code":"ABC234"}`)
	req := httptest.NewRequest(http.MethodPost, "/meetups/5/verify", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "verification recorded", resp["message"])
	meetupRepo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifySecondPartyPublishesVerified(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	publisher := new(mocks.PublisherMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), publisher)
	router := setupMeetupRouter(handler)

	verified := models.Meetup{
		ID: 5, RequesterID: 1, ReceiverID: 2,
		Status: models.MeetupVerified, RequesterVerified: true, ReceiverVerified: true,
	}
	meetupRepo.On("Verify", mock.Anything, 5, 1, "ABC234").Return(verified, nil).Once()
	publisher.On("Publish", mock.Anything, "meetups.verified", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"code":"ABC234"}`)
	req := httptest.NewRequest(http.MethodPost, "/meetups/5/verify", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	meetupRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestVerifyWrongCode(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("Verify", mock.Anything, 5, 1, "WRONG1").
		Return(models.Meetup{}, repositories.ErrInvalidCode).Once()

	body := bytes.NewBufferString(`{"code":"WRONG1"}`)
	req := httptest.NewRequest(http.MethodPost, "/meetups/5/verify", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	meetupRepo.AssertExpectations(t)
}

func TestCompleteReturnsRatingPrompt(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	notifRepo := new(mocks.NotificationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	handler := NewMeetupHandler(meetupRepo, notifRepo, publisher)
	router := setupMeetupRouter(handler)

	completed := models.Meetup{
		ID: 5, ListingID: 7, RequesterID: 2, RequesterUsername: "bob",
		ReceiverID: 1, ReceiverUsername: "alice", Status: models.MeetupCompleted,
	}
	meetupRepo.On("Complete", mock.Anything, 5, 1).Return(completed, nil).Once()
	notifRepo.On("Create", mock.Anything, 2, models.NotificationMeetup, mock.Anything).
		Return(models.Notification{}, nil).Once()
	publisher.On("Publish", mock.Anything, "meetups.completed", mock.Anything, mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/meetups/5/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var prompt models.RatingPrompt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&prompt))
	require.Equal(t, 2, prompt.RateUserID)
	require.Equal(t, "bob", prompt.RateUsername)
	require.Equal(t, 7, prompt.ListingID)
	meetupRepo.AssertExpectations(t)
}

func TestCompleteBeforeVerification(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("Complete", mock.Anything, 5, 1).
		Return(models.Meetup{}, repositories.ErrInvalidState).Once()

	req := httptest.NewRequest(http.MethodPost, "/meetups/5/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	meetupRepo.AssertExpectations(t)
}

func TestCancelMeetup(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	notifRepo := new(mocks.NotificationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	handler := NewMeetupHandler(meetupRepo, notifRepo, publisher)
	router := setupMeetupRouter(handler)

	cancelled := models.Meetup{
		ID: 5, RequesterID: 1, RequesterUsername: "alice",
		ReceiverID: 2, ReceiverUsername: "bob", Status: models.MeetupCancelled,
	}
	meetupRepo.On("Cancel", mock.Anything, 5, 1).Return(cancelled, nil).Once()
	notifRepo.On("Create", mock.Anything, 2, models.NotificationMeetup, mock.Anything).
		Return(models.Notification{}, nil).Once()
	publisher.On("Publish", mock.Anything, "meetups.cancelled", mock.Anything, mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/meetups/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	meetupRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestMeetupNotFound(t *testing.T) {
	meetupRepo := new(mocks.MeetupRepositoryMock)
	handler := NewMeetupHandler(meetupRepo, new(mocks.NotificationRepositoryMock), new(mocks.PublisherMock))
	router := setupMeetupRouter(handler)

	meetupRepo.On("Cancel", mock.Anything, 99, 1).
		Return(models.Meetup{}, repositories.ErrMeetupNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/meetups/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	meetupRepo.AssertExpectations(t)
}
