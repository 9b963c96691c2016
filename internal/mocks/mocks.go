package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"meetup-service/internal/models"
	"meetup-service/internal/repositories"
)

type MeetupRepositoryMock struct {
	mock.Mock
}

func (m *MeetupRepositoryMock) Create(ctx context.Context, params repositories.CreateMeetupParams) (models.Meetup, error) {
	args := m.Called(ctx, params)
	var meetup models.Meetup
	if val := args.Get(0); val != nil {
		meetup = val.(models.Meetup)
	}
	return meetup, args.Error(1)
}

func (m *MeetupRepositoryMock) Get(ctx context.Context, meetupID int) (models.Meetup, error) {
	args := m.Called(ctx, meetupID)
	var meetup models.Meetup
	if val := args.Get(0); val != nil {
		meetup = val.(models.Meetup)
	}
	return meetup, args.Error(1)
}

func (m *MeetupRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Meetup, error) {
	args := m.Called(ctx, userID)
	var list []models.Meetup
	if val := args.Get(0); val != nil {
		list = val.([]models.Meetup)
	}
	return list, args.Error(1)
}

func (m *MeetupRepositoryMock) Accept(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	args := m.Called(ctx, meetupID, actorID)
	var meetup models.Meetup
	if val := args.Get(0); val != nil {
		meetup = val.(models.Meetup)
	}
	return meetup, args.Error(1)
}

func (m *MeetupRepositoryMock) Reject(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	args := m.Called(ctx, meetupID, actorID)
	var meetup models.Meetup
	if val := args.Get(0); val != nil {
		meetup = val.(models.Meetup)
	}
	return meetup, args.Error(1)
}

func (m *MeetupRepositoryMock) Cancel(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	args := m.Called(ctx, meetupID, actorID)
	var meetup models.Meetup
	if val := args.Get(0); val != nil {
		meetup = val.(models.Meetup)
	}
	return meetup, args.Error(1)
}

func (m *MeetupRepositoryMock) Verify(ctx context.Context, meetupID, actorID int, code string) (models.Meetup, error) {
	args := m.Called(ctx, meetupID, actorID, code)
	var meetup models.Meetup
	if val := args.Get(0); val != nil {
		meetup = val.(models.Meetup)
	}
	return meetup, args.Error(1)
}

func (m *MeetupRepositoryMock) Complete(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	args := m.Called(ctx, meetupID, actorID)
	var meetup models.Meetup
	if val := args.Get(0); val != nil {
		meetup = val.(models.Meetup)
	}
	return meetup, args.Error(1)
}

func (m *MeetupRepositoryMock) ExpireStale(ctx context.Context, cutoff time.Time) ([]models.Meetup, error) {
	args := m.Called(ctx, cutoff)
	var list []models.Meetup
	if val := args.Get(0); val != nil {
		list = val.([]models.Meetup)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, listingID, senderID int, senderUsername string, recipientID int, content string) (models.Message, error) {
	args := m.Called(ctx, listingID, senderID, senderUsername, recipientID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversation(ctx context.Context, listingID, viewerID, otherUserID int) ([]models.Message, error) {
	args := m.Called(ctx, listingID, viewerID, otherUserID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, listingID, viewerID, otherUserID int) error {
	args := m.Called(ctx, listingID, viewerID, otherUserID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID, senderID int) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ClearConversation(ctx context.Context, listingID, viewerID, otherUserID int) error {
	args := m.Called(ctx, listingID, viewerID, otherUserID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var chats []models.ChatSummary
	if val := args.Get(0); val != nil {
		chats = val.([]models.ChatSummary)
	}
	return chats, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadSnapshot(ctx context.Context, userID int) (models.UnreadSnapshot, error) {
	args := m.Called(ctx, userID)
	var snapshot models.UnreadSnapshot
	if val := args.Get(0); val != nil {
		snapshot = val.(models.UnreadSnapshot)
	}
	return snapshot, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, userID int, notifType, content string) (models.Notification, error) {
	args := m.Called(ctx, userID, notifType, content)
	var notif models.Notification
	if val := args.Get(0); val != nil {
		notif = val.(models.Notification)
	}
	return notif, args.Error(1)
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var notifs []models.Notification
	if val := args.Get(0); val != nil {
		notifs = val.([]models.Notification)
	}
	return notifs, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID, userID int) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) Delete(ctx context.Context, notificationID, userID int) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

type PresenceRepositoryMock struct {
	mock.Mock
}

func (m *PresenceRepositoryMock) Touch(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) Get(ctx context.Context, userID int) (models.PresenceRecord, error) {
	args := m.Called(ctx, userID)
	var rec models.PresenceRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.PresenceRecord)
	}
	return rec, args.Error(1)
}

var (
	_ repositories.MeetupRepository       = (*MeetupRepositoryMock)(nil)
	_ repositories.MessageRepository      = (*MessageRepositoryMock)(nil)
	_ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
	_ repositories.PresenceRepository     = (*PresenceRepositoryMock)(nil)
)
