package models

import "time"

// Meetup statuses. Rejected, cancelled, expired and completed are terminal.
const (
	MeetupPending   = "pending"
	MeetupAccepted  = "accepted"
	MeetupVerified  = "verified"
	MeetupCompleted = "completed"
	MeetupRejected  = "rejected"
	MeetupCancelled = "cancelled"
	MeetupExpired   = "expired"
)

// Meetup is a two-party in-person exchange tied to a listing. The two
// verification codes are issued at acceptance and never regenerated; each
// party is only ever shown its own code, and verifies by entering the
// counterparty's.
type Meetup struct {
	ID                int        `db:"id" json:"id"`
	ListingID         int        `db:"listing_id" json:"listing_id"`
	RequesterID       int        `db:"requester_id" json:"requester_id"`
	RequesterUsername string     `db:"requester_username" json:"requester_username"`
	ReceiverID        int        `db:"receiver_id" json:"receiver_id"`
	ReceiverUsername  string     `db:"receiver_username" json:"receiver_username"`
	Status            string     `db:"status" json:"status"`
	RequesterCode     *string    `db:"requester_code" json:"-"`
	ReceiverCode      *string    `db:"receiver_code" json:"-"`
	RequesterVerified bool       `db:"requester_verified" json:"requester_verified"`
	ReceiverVerified  bool       `db:"receiver_verified" json:"receiver_verified"`
	Location          *string    `db:"location" json:"location,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	AcceptedAt        *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	VerifiedAt        *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Terminal reports whether no further transition is accepted.
func (m Meetup) Terminal() bool {
	switch m.Status {
	case MeetupRejected, MeetupCancelled, MeetupExpired, MeetupCompleted:
		return true
	}
	return false
}

// CodeFor returns the code issued to the given participant, empty until accept.
func (m Meetup) CodeFor(userID int) string {
	if userID == m.RequesterID && m.RequesterCode != nil {
		return *m.RequesterCode
	}
	if userID == m.ReceiverID && m.ReceiverCode != nil {
		return *m.ReceiverCode
	}
	return ""
}

// IsParticipant reports whether the user is one of the two parties.
func (m Meetup) IsParticipant(userID int) bool {
	return m.RequesterID == userID || m.ReceiverID == userID
}

// Counterparty returns the other participant's id and username.
func (m Meetup) Counterparty(userID int) (int, string) {
	if userID == m.RequesterID {
		return m.ReceiverID, m.ReceiverUsername
	}
	return m.RequesterID, m.RequesterUsername
}

// RatingPrompt is emitted once a meetup completes so the rating UI can ask
// each party to rate the other.
type RatingPrompt struct {
	RateUserID   int    `json:"rate_user_id"`
	RateUsername string `json:"rate_username"`
	ListingID    int    `json:"listing_id"`
}
