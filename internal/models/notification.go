package models

import "time"

// Notification types.
const (
	NotificationMessage  = "message"
	NotificationListing  = "listing"
	NotificationGiveaway = "giveaway"
	NotificationMeetup   = "meetup"
)

// Notification is a stored user-facing notification. Only Read is mutable;
// the owner may delete it.
type Notification struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Content   string    `db:"content" json:"content"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
