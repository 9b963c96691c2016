package models

import "time"

// Message is a single chat message inside a (listing, user pair) conversation.
// Deleted is the sender-initiated soft delete that hides the message from both
// parties; per-viewer conversation deletes live in chat_tombstones instead.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ListingID      int       `db:"listing_id" json:"listing_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	SenderUsername string    `db:"sender_username" json:"sender_username"`
	RecipientID    int       `db:"recipient_id" json:"recipient_id"`
	Content        string    `db:"content" json:"content"`
	Read           bool      `db:"read" json:"read"`
	Deleted        bool      `db:"deleted" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"timestamp"`
}

// ChatSummary is one row of the chat-list feed.
type ChatSummary struct {
	ListingID       int       `db:"listing_id" json:"listing_id"`
	OtherUserID     int       `db:"other_user_id" json:"other_user_id"`
	OtherUsername   string    `db:"other_username" json:"other_username"`
	LastMessage     string    `db:"last_message" json:"last_message"`
	LastMessageTime time.Time `db:"last_message_time" json:"last_message_time"`
	UnreadCount     int       `db:"unread_count" json:"unread_count"`
}

// LatestUnread points the client at the conversation holding the newest
// unread message.
type LatestUnread struct {
	ListingID int `db:"listing_id" json:"listing_id"`
	SenderID  int `db:"sender_id" json:"sender_id"`
}

// UnreadSnapshot is the polled unread-count payload. LatestUnread is nil when
// the count is zero.
type UnreadSnapshot struct {
	UnreadCount  int           `json:"unread_count"`
	LatestUnread *LatestUnread `json:"latest_unread"`
}
